// Package submit walks a directory tree and requests one cache directive
// per regular file.
package submit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dl-alexandre/rcache/internal/backend"
	"github.com/dl-alexandre/rcache/internal/exclude"
	"github.com/dl-alexandre/rcache/internal/logging"
	"github.com/dl-alexandre/rcache/internal/metrics"
	"github.com/dl-alexandre/rcache/internal/resolver"
	"github.com/dl-alexandre/rcache/internal/types"
	"github.com/dl-alexandre/rcache/internal/utils"
)

var (
	ErrPoolNotFound   = errors.New("cache pool not found")
	ErrInvalidOptions = errors.New("invalid submit options")
)

// PreconditionError means nothing was submitted because the request could
// not be started
type PreconditionError struct {
	Reason string
	Err    error
}

func (e *PreconditionError) Error() string {
	return e.Reason
}

func (e *PreconditionError) Unwrap() error {
	return e.Err
}

type Options struct {
	Root        string
	Pool        string
	Replication int
	// Verbose writes a "Cached: <path>" line to Out for every file
	Verbose bool
	Out     io.Writer
	// DryRun walks and reports without creating directives
	DryRun  bool
	Exclude *exclude.Matcher
}

// Validate checks the options and returns a copy with Root normalised
func (o Options) Validate() (Options, error) {
	root, err := resolver.Normalize(o.Root)
	if err != nil {
		return o, &PreconditionError{Reason: fmt.Sprintf("Invalid directory %q: %v", o.Root, err), Err: ErrInvalidOptions}
	}
	o.Root = root
	if strings.TrimSpace(o.Pool) == "" {
		return o, &PreconditionError{Reason: "A cache pool is required", Err: ErrInvalidOptions}
	}
	if o.Replication == 0 {
		o.Replication = utils.DefaultReplication
	}
	if o.Replication < 1 || o.Replication > utils.MaxReplication {
		return o, &PreconditionError{
			Reason: fmt.Sprintf("Replication must be between 1 and %d, got %d", utils.MaxReplication, o.Replication),
			Err:    ErrInvalidOptions,
		}
	}
	return o, nil
}

// Result summarises one submit run. On failure it still reports what was
// done before the failing call.
type Result struct {
	Root     string        `json:"root"`
	Pool     string        `json:"pool"`
	Files    int           `json:"files"`
	Created  int           `json:"created"`
	Excluded int           `json:"excluded"`
	DryRun   bool          `json:"dryRun"`
	Duration time.Duration `json:"duration"`
}

type Submitter struct {
	backend backend.Backend
	logger  logging.Logger
	metrics *metrics.Recorder
}

// New creates a Submitter; rec may be nil
func New(b backend.Backend, logger logging.Logger, rec *metrics.Recorder) *Submitter {
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	return &Submitter{backend: b, logger: logger, metrics: rec}
}

// Run checks that the pool exists, then walks opts.Root and submits one
// directive per regular file. Directive creation is not retried: the first
// backend error ends the run.
func (s *Submitter) Run(ctx context.Context, opts Options) (Result, error) {
	start := time.Now()
	opts, err := opts.Validate()
	if err != nil {
		return Result{}, err
	}
	logger := s.logger.WithContext(ctx)
	res := Result{Root: opts.Root, Pool: opts.Pool, DryRun: opts.DryRun}

	if err := s.requirePool(ctx, opts.Pool); err != nil {
		return res, err
	}

	logger.Debug("Submitting cache directives",
		logging.F("root", opts.Root),
		logging.F("pool", opts.Pool),
		logging.F("replication", opts.Replication),
		logging.F("dry_run", opts.DryRun),
	)

	err = backend.Walk(ctx, s.backend, opts.Root, func(entry types.FileEntry) error {
		if opts.Exclude.IsExcluded(relative(opts.Root, entry.Path), entry.IsDir) {
			logger.Debug("Excluded", logging.F("path", entry.Path), logging.F("dir", entry.IsDir))
			if entry.IsDir {
				return backend.SkipDir
			}
			res.Excluded++
			s.metrics.FileExcluded(opts.Pool)
			return nil
		}
		if entry.IsDir {
			return nil
		}

		res.Files++
		if !opts.DryRun {
			req := types.DirectiveRequest{Path: entry.Path, Pool: opts.Pool, Replication: opts.Replication}
			if err := s.backend.CreateDirective(ctx, req); err != nil {
				return backend.Wrap("createDirective", entry.Path, err)
			}
			res.Created++
			s.metrics.DirectiveCreated(opts.Pool)
		}
		if opts.Verbose && opts.Out != nil {
			_, _ = fmt.Fprintf(opts.Out, "Cached: %s\n", entry.Path)
		}
		return nil
	})
	res.Duration = time.Since(start)

	if err != nil {
		var be *backend.Error
		if errors.As(err, &be) {
			s.metrics.BackendError(be.Op)
		}
		logger.Error("Submit aborted",
			logging.F("root", opts.Root),
			logging.F("created", res.Created),
			logging.F("error", err.Error()),
		)
		return res, err
	}

	logger.Info("Submit finished",
		logging.F("root", opts.Root),
		logging.F("pool", opts.Pool),
		logging.F("files", res.Files),
		logging.F("created", res.Created),
		logging.F("excluded", res.Excluded),
	)
	return res, nil
}

func (s *Submitter) requirePool(ctx context.Context, pool string) error {
	pools, err := s.backend.ListPools(ctx)
	if err != nil {
		s.metrics.BackendError("listPools")
		return backend.Wrap("listPools", "", err)
	}
	for _, p := range pools {
		if p == pool {
			return nil
		}
	}
	return &PreconditionError{Reason: "No pool exists named " + pool, Err: ErrPoolNotFound}
}

func relative(root, p string) string {
	if p == root {
		return ""
	}
	if root == "/" {
		return strings.TrimPrefix(p, "/")
	}
	return strings.TrimPrefix(p, root+"/")
}
