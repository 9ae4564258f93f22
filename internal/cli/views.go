package cli

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/dl-alexandre/rcache/internal/audit"
	"github.com/dl-alexandre/rcache/internal/reconcile"
	"github.com/dl-alexandre/rcache/internal/store"
	"github.com/dl-alexandre/rcache/internal/submit"
	"github.com/dl-alexandre/rcache/internal/types"
	"github.com/dustin/go-humanize"
)

// recordLine is the text form of one reconciliation record
func recordLine(kind reconcile.Kind, path string, fraction float64, files, directives int) string {
	switch kind {
	case reconcile.KindCountMismatch:
		return fmt.Sprintf("[WARN] Cache directives do not match HDFS files (files: %d, directives: %d)", files, directives)
	case reconcile.KindPartiallyCached:
		return fmt.Sprintf("[WARN] Incomplete cache. Path: %s, Cached: %3.2f%%", path, fraction)
	case reconcile.KindOrphanFile:
		return "[WARN] Path not found in directives: " + path
	case reconcile.KindOrphanDirective:
		return "[WARN] Directive not found in files: " + path
	case reconcile.KindMatched:
		return "[INFO] Complete cache. Path: " + path
	}
	return fmt.Sprintf("[WARN] %s: %s", kind, path)
}

// actionView reports a state change: one line of text, or Data as JSON
type actionView struct {
	Message string
	Data    map[string]interface{}
}

func (v actionView) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Data)
}

func (v actionView) TextLines() []string { return []string{v.Message} }

type submitView struct {
	submit.Result
}

func (v submitView) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Result)
}

func (v submitView) TextLines() []string {
	if v.DryRun {
		return []string{fmt.Sprintf("Dry run: %d directives would be created.", v.Files)}
	}
	return []string{"Cache done."}
}

func (v submitView) Headers() []string {
	return []string{"Root", "Pool", "Files", "Created", "Excluded", "Duration"}
}

func (v submitView) Rows() [][]string {
	return [][]string{{
		v.Root,
		v.Pool,
		strconv.Itoa(v.Files),
		strconv.Itoa(v.Created),
		strconv.Itoa(v.Excluded),
		v.Duration.Round(time.Millisecond).String(),
	}}
}

func (v submitView) EmptyMessage() string { return "" }

// auditView prints warnings always and matched paths only with Show
type auditView struct {
	Outcome *audit.Outcome
	Show    bool
}

func (v auditView) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Outcome)
}

func (v auditView) visible() []reconcile.Record {
	var out []reconcile.Record
	for _, rec := range v.Outcome.Report.Records {
		if rec.IsWarning() || v.Show {
			out = append(out, rec)
		}
	}
	return out
}

func (v auditView) TextLines() []string {
	var lines []string
	for _, rec := range v.visible() {
		lines = append(lines, recordLine(rec.Kind, rec.Path, rec.Fraction, rec.FileCount, rec.DirectiveCount))
	}
	return lines
}

func (v auditView) Headers() []string {
	return []string{"Kind", "Path", "Cached", "Bytes"}
}

func (v auditView) Rows() [][]string {
	var rows [][]string
	for _, rec := range v.visible() {
		cached, bytes := "-", "-"
		switch rec.Kind {
		case reconcile.KindCountMismatch:
			rows = append(rows, []string{
				string(rec.Kind),
				fmt.Sprintf("files: %d, directives: %d", rec.FileCount, rec.DirectiveCount),
				cached,
				bytes,
			})
			continue
		case reconcile.KindPartiallyCached:
			cached = fmt.Sprintf("%3.2f%%", rec.Fraction)
		case reconcile.KindMatched:
			cached = "100%"
		}
		if d := rec.Directive; d != nil {
			bytes = humanize.IBytes(uint64(max(d.BytesCached, 0))) + " / " + humanize.IBytes(uint64(max(d.BytesNeeded, 0)))
		}
		rows = append(rows, []string{string(rec.Kind), rec.Path, cached, bytes})
	}
	return rows
}

func (v auditView) EmptyMessage() string {
	if v.Outcome.Report.Empty() {
		return ""
	}
	return "All directives fully cached."
}

type poolsView []string

func (v poolsView) TextLines() []string { return v }

func (v poolsView) Headers() []string { return []string{"Pool"} }

func (v poolsView) Rows() [][]string {
	rows := make([][]string, len(v))
	for i, p := range v {
		rows[i] = []string{p}
	}
	return rows
}

func (v poolsView) EmptyMessage() string { return "No cache pools found." }

type directivesView []types.DirectiveEntry

func (v directivesView) Headers() []string {
	return []string{"ID", "Path", "Pool", "Repl", "Files", "Bytes", "Cached"}
}

func (v directivesView) Rows() [][]string {
	rows := make([][]string, len(v))
	for i, d := range v {
		rows[i] = []string{
			strconv.FormatInt(d.ID, 10),
			d.Path,
			d.Pool,
			strconv.Itoa(d.Replication),
			fmt.Sprintf("%d/%d", d.FilesCached, d.FilesNeeded),
			humanize.IBytes(uint64(max(d.BytesCached, 0))) + " / " + humanize.IBytes(uint64(max(d.BytesNeeded, 0))),
			fmt.Sprintf("%3.2f%%", directivePercent(d)),
		}
	}
	return rows
}

func (v directivesView) EmptyMessage() string { return "No cache directives found." }

func directivePercent(d types.DirectiveEntry) float64 {
	if d.FullyCached() {
		return 100
	}
	return min(reconcile.CachedPercent(d.BytesCached, d.BytesNeeded), reconcile.MaxPartialPercent)
}

type runsView []store.Run

func (v runsView) Headers() []string {
	return []string{"ID", "Started", "Pool", "Root", "Files", "Directives", "Issues", "State"}
}

func (v runsView) Rows() [][]string {
	rows := make([][]string, len(v))
	for i, r := range v {
		rows[i] = []string{
			shortID(r.ID),
			humanize.Time(r.StartedAt),
			r.Pool,
			r.Root,
			strconv.Itoa(r.Files),
			strconv.Itoa(r.Directives),
			strconv.Itoa(r.Partial + r.OrphanFiles + r.OrphanDirectives),
			runState(r),
		}
	}
	return rows
}

func (v runsView) EmptyMessage() string { return "No audit runs recorded." }

func (v runsView) TextLines() []string {
	if len(v) == 0 {
		return []string{v.EmptyMessage()}
	}
	lines := make([]string, len(v))
	for i, r := range v {
		lines[i] = fmt.Sprintf("%s  %s  %s %s  issues=%d  %s",
			shortID(r.ID), r.StartedAt.Local().Format("2006-01-02 15:04:05"), r.Pool, r.Root,
			r.Partial+r.OrphanFiles+r.OrphanDirectives, runState(r))
	}
	return lines
}

type runDetailView struct {
	Run     *store.Run        `json:"run"`
	Records []store.RunRecord `json:"records"`
}

func (v runDetailView) TextLines() []string {
	r := v.Run
	lines := []string{
		fmt.Sprintf("Run %s: pool %s, root %s, policy %s", r.ID, r.Pool, r.Root, r.Policy),
		fmt.Sprintf("Started %s (%s), %s", r.StartedAt.Local().Format("2006-01-02 15:04:05"), humanize.Time(r.StartedAt), runState(*r)),
	}
	if r.Error != "" {
		lines = append(lines, "Error: "+r.Error)
	}
	for _, rec := range v.Records {
		lines = append(lines, recordLine(reconcile.Kind(rec.Kind), rec.Path, rec.Fraction, r.Files, r.Directives))
	}
	return lines
}

func (v runDetailView) Headers() []string { return []string{"#", "Kind", "Path", "Cached"} }

func (v runDetailView) Rows() [][]string {
	rows := make([][]string, len(v.Records))
	for i, rec := range v.Records {
		cached := "-"
		if reconcile.Kind(rec.Kind) == reconcile.KindPartiallyCached {
			cached = fmt.Sprintf("%3.2f%%", rec.Fraction)
		}
		rows[i] = []string{strconv.Itoa(rec.Seq), rec.Kind, rec.Path, cached}
	}
	return rows
}

func (v runDetailView) EmptyMessage() string { return "No records." }

func runState(r store.Run) string {
	switch {
	case r.Error != "":
		return "failed: " + truncate(r.Error, 40)
	case r.Unchanged():
		return "unchanged"
	case r.PreviousFingerprint == "":
		return "first"
	}
	return "changed"
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
