package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/dl-alexandre/rcache/internal/types"
	"github.com/dl-alexandre/rcache/internal/utils"
	"github.com/olekukonko/tablewriter"
)

// textRenderable is implemented by results with a line-oriented text form
type textRenderable interface {
	TextLines() []string
}

// OutputWriter renders command results on stdout in the selected format.
// Diagnostics (warnings, verbose lines, text-mode errors) go to stderr.
type OutputWriter struct {
	format   types.OutputFormat
	quiet    bool
	verbose  bool
	traceID  string
	stdout   io.Writer
	stderr   io.Writer
	warnings []types.CLIWarning
}

// NewOutputWriter creates a new output writer. An empty format means text.
func NewOutputWriter(format types.OutputFormat, quiet, verbose bool, stdout, stderr io.Writer) *OutputWriter {
	if format == "" {
		format = types.OutputFormatText
	}
	return &OutputWriter{
		format:   format,
		quiet:    quiet,
		verbose:  verbose,
		stdout:   stdout,
		stderr:   stderr,
		warnings: []types.CLIWarning{},
	}
}

// output returns a writer whose JSON envelopes carry the run ID that also
// tags this invocation's log lines
func (a *App) output() *OutputWriter {
	w := NewOutputWriter(a.flags.OutputFormat, a.flags.Quiet, a.flags.Verbose, a.stdout, a.stderr)
	w.traceID = a.runID
	return w
}

func (w *OutputWriter) AddWarning(code, message, severity string) {
	w.warnings = append(w.warnings, types.CLIWarning{
		Code:     code,
		Message:  message,
		Severity: severity,
	})
}

func (w *OutputWriter) envelope(command string, data interface{}, errs ...types.CLIError) types.CLIOutput {
	if errs == nil {
		errs = []types.CLIError{}
	}
	return types.CLIOutput{
		SchemaVersion: utils.SchemaVersion,
		TraceID:       w.traceID,
		Command:       command,
		Data:          data,
		Warnings:      w.warnings,
		Errors:        errs,
	}
}

// WriteSuccess writes a command result. Text mode prefers the result's own
// lines and falls back to a table.
func (w *OutputWriter) WriteSuccess(command string, data interface{}) error {
	if w.format == types.OutputFormatJSON {
		return w.writeJSON(w.envelope(command, data))
	}

	w.writeWarnings()
	if text, ok := data.(textRenderable); ok && w.format == types.OutputFormatText {
		for _, line := range text.TextLines() {
			if _, err := fmt.Fprintln(w.stdout, line); err != nil {
				return err
			}
		}
		return nil
	}
	if renderer, ok := data.(types.TableRenderer); ok {
		return w.renderTable(renderer)
	}
	return w.writeJSON(w.envelope(command, data))
}

// WriteError writes an error result: the JSON envelope in json mode, the
// bare message on stderr otherwise
func (w *OutputWriter) WriteError(command string, cliErr types.CLIError) error {
	if w.format == types.OutputFormatJSON {
		return w.writeJSON(w.envelope(command, nil, cliErr))
	}
	_, err := fmt.Fprintln(w.stderr, cliErr.Message)
	return err
}

func (w *OutputWriter) writeJSON(output types.CLIOutput) error {
	encoder := json.NewEncoder(w.stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}

func (w *OutputWriter) writeWarnings() {
	if w.quiet {
		return
	}
	for _, warning := range w.warnings {
		fmt.Fprintf(w.stderr, "Warning [%s]: %s\n", warning.Code, warning.Message)
	}
}

func (w *OutputWriter) renderTable(renderer types.TableRenderer) error {
	rows := renderer.Rows()
	if len(rows) == 0 {
		if msg := renderer.EmptyMessage(); msg != "" && !w.quiet {
			_, err := fmt.Fprintln(w.stdout, msg)
			return err
		}
		return nil
	}

	table := tablewriter.NewWriter(w.stdout)
	table.SetHeader(renderer.Headers())
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.AppendBulk(rows)
	table.Render()
	return nil
}

// Verbose writes a progress line to stderr with --verbose, except in JSON mode
func (w *OutputWriter) Verbose(format string, args ...interface{}) {
	if w.verbose && w.format != types.OutputFormatJSON {
		fmt.Fprintf(w.stderr, "[VERBOSE] "+format+"\n", args...)
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
