// Package audit loads files and directives from a backend, reconciles them
// and records the outcome.
package audit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dl-alexandre/rcache/internal/backend"
	"github.com/dl-alexandre/rcache/internal/logging"
	"github.com/dl-alexandre/rcache/internal/metrics"
	"github.com/dl-alexandre/rcache/internal/reconcile"
	"github.com/dl-alexandre/rcache/internal/resolver"
	"github.com/dl-alexandre/rcache/internal/store"
	"github.com/dl-alexandre/rcache/internal/types"
	"github.com/google/uuid"
)

var ErrInvalidOptions = errors.New("invalid audit options")

type Options struct {
	Root   string
	Pool   string
	Policy reconcile.Policy
	// ReportEmptySide reports orphans when one side is empty
	ReportEmptySide bool
	// ScopeToRoot ignores directives outside Root. By default every
	// directive of the pool is compared.
	ScopeToRoot bool
	// Record stores the run in the history database
	Record bool
}

// Outcome is the result of one audit
type Outcome struct {
	RunID       string            `json:"runId"`
	Root        string            `json:"root"`
	Pool        string            `json:"pool"`
	Policy      reconcile.Policy  `json:"policy"`
	StartedAt   time.Time         `json:"startedAt"`
	Duration    time.Duration     `json:"duration"`
	Report      reconcile.Report  `json:"report"`
	Summary     reconcile.Summary `json:"summary"`
	Fingerprint string            `json:"fingerprint"`
	// Unchanged is set when the previous recorded run for the same pool
	// and root had the same fingerprint
	Unchanged bool `json:"unchanged"`
}

// History persists audit runs
type History interface {
	InsertRun(ctx context.Context, run store.Run, records []store.RunRecord) error
	ListRuns(ctx context.Context, pool string, limit int) ([]store.Run, error)
}

type Auditor struct {
	backend backend.Backend
	history History
	metrics *metrics.Recorder
	logger  logging.Logger
	now     func() time.Time
}

// New creates an Auditor. history and rec may be nil.
func New(b backend.Backend, history History, rec *metrics.Recorder, logger logging.Logger) *Auditor {
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	return &Auditor{backend: b, history: history, metrics: rec, logger: logger, now: time.Now}
}

// Run audits opts.Pool against the files under opts.Root. A failed listing
// is logged and the audit carries on with what it has; the listing error
// is returned together with the outcome.
func (a *Auditor) Run(ctx context.Context, opts Options) (*Outcome, error) {
	root, err := resolver.Normalize(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("%w: directory %q: %v", ErrInvalidOptions, opts.Root, err)
	}
	if strings.TrimSpace(opts.Pool) == "" {
		return nil, fmt.Errorf("%w: a cache pool is required", ErrInvalidOptions)
	}
	if opts.Policy == "" {
		opts.Policy = reconcile.PolicyOrdered
	}

	// the run is recorded under the invocation's trace ID when there is one
	runID := logging.TraceIDFromContext(ctx)
	if runID == "" {
		runID = uuid.New().String()
	}
	out := &Outcome{
		RunID:     runID,
		Root:      root,
		Pool:      opts.Pool,
		Policy:    opts.Policy,
		StartedAt: a.now().UTC(),
	}
	logger := a.logger.WithTraceID(out.RunID)

	var errs []error
	files, err := backend.ListFilesRecursive(ctx, a.backend, root)
	if err != nil {
		errs = append(errs, err)
		a.backendFailed(logger, "Listing files failed", err)
	}
	directives, err := a.backend.ListDirectives(ctx, opts.Pool)
	if err != nil {
		err = backend.Wrap("listDirectives", opts.Pool, err)
		errs = append(errs, err)
		a.backendFailed(logger, "Listing directives failed", err)
	}
	if opts.ScopeToRoot {
		directives = underRoot(directives, root)
	}

	out.Report = reconcile.Reconcile(files, directives, reconcile.Options{
		Policy:          opts.Policy,
		Pool:            opts.Pool,
		ReportEmptySide: opts.ReportEmptySide,
	})
	out.Summary = out.Report.Summarize()
	out.Fingerprint = out.Report.Fingerprint()
	out.Duration = a.now().Sub(out.StartedAt)
	runErr := errors.Join(errs...)

	logger.Info("Audit finished",
		logging.F("root", root),
		logging.F("pool", opts.Pool),
		logging.F("files", len(files)),
		logging.F("directives", len(directives)),
		logging.F("discrepancies", out.Summary.Discrepancies()),
		logging.F("fingerprint", out.Fingerprint),
	)

	a.metrics.ObserveAudit(opts.Pool, kindCounts(out.Report), out.Duration, out.StartedAt.Add(out.Duration))

	if opts.Record && a.history != nil {
		if err := a.record(ctx, out, runErr); err != nil {
			logger.Warn("Recording audit run failed", logging.F("error", err.Error()))
			errs = append(errs, fmt.Errorf("recording audit run: %w", err))
			runErr = errors.Join(errs...)
		}
	}

	return out, runErr
}

func (a *Auditor) backendFailed(logger logging.Logger, msg string, err error) {
	logger.Error(msg, logging.F("error", err.Error()))
	var be *backend.Error
	if errors.As(err, &be) {
		a.metrics.BackendError(be.Op)
	}
}

func (a *Auditor) record(ctx context.Context, out *Outcome, runErr error) error {
	previous, err := a.history.ListRuns(ctx, out.Pool, 0)
	if err != nil {
		return err
	}
	for _, run := range previous {
		if run.Root == out.Root {
			out.Unchanged = run.Fingerprint == out.Fingerprint
			break
		}
	}

	s := out.Summary
	run := store.Run{
		ID:               out.RunID,
		Pool:             out.Pool,
		Root:             out.Root,
		Policy:           string(out.Policy),
		StartedAt:        out.StartedAt,
		Files:            s.Files,
		Directives:       s.Directives,
		Matched:          s.Matched,
		Partial:          s.PartiallyCached,
		OrphanFiles:      s.OrphanFiles,
		OrphanDirectives: s.OrphanDirectives,
		Fingerprint:      out.Fingerprint,
	}
	if runErr != nil {
		run.Error = runErr.Error()
	}

	records := make([]store.RunRecord, len(out.Report.Records))
	for i, rec := range out.Report.Records {
		records[i] = store.RunRecord{Seq: i, Kind: string(rec.Kind), Path: rec.Path, Fraction: rec.Fraction}
	}
	return a.history.InsertRun(ctx, run, records)
}

// underRoot keeps directives at or below root
func underRoot(directives []types.DirectiveEntry, root string) []types.DirectiveEntry {
	if root == "/" {
		return directives
	}
	out := make([]types.DirectiveEntry, 0, len(directives))
	for _, d := range directives {
		p, err := resolver.Normalize(d.Path)
		if err != nil {
			continue
		}
		if resolver.IsUnder(p, root) {
			out = append(out, d)
		}
	}
	return out
}

func kindCounts(r reconcile.Report) map[string]int {
	counts := map[string]int{
		string(reconcile.KindMatched):         0,
		string(reconcile.KindPartiallyCached): 0,
		string(reconcile.KindOrphanFile):      0,
		string(reconcile.KindOrphanDirective): 0,
	}
	for _, rec := range r.Records {
		if rec.Kind != reconcile.KindCountMismatch {
			counts[string(rec.Kind)]++
		}
	}
	return counts
}
