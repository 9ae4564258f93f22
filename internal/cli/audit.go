package cli

import (
	"time"

	"github.com/dl-alexandre/rcache/internal/audit"
	"github.com/dl-alexandre/rcache/internal/logging"
	"github.com/dl-alexandre/rcache/internal/reconcile"
	"github.com/dl-alexandre/rcache/internal/utils"
	"github.com/spf13/cobra"
)

type auditParams struct {
	root              string
	pool              string
	show              bool
	policy            string
	reportEmptySide   bool
	scopeToRoot       bool
	noRecord          bool
	failOnDiscrepancy bool
}

func (a *App) newAuditCmd() *cobra.Command {
	var p auditParams
	cmd := &cobra.Command{
		Use:     "audit <directory>",
		Aliases: []string{"check"},
		Short:   "Check that the files under a directory are fully cached",
		Long: `Compare the files under a directory with the cache directives of a pool.
Files without a directive, directives without a file and directives that
are only partially cached are reported as warnings. Fully cached paths are
listed with --show.

Each audit is recorded in the state database; 'rcache history' lists them.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p.root = args[0]
			return a.runAudit(cmd, p)
		},
	}

	cmd.Flags().StringVarP(&p.pool, "pool", "p", "", "Cache pool name")
	cmd.Flags().BoolVar(&p.show, "show", false, "Also print fully cached directives")
	cmd.Flags().StringVar(&p.policy, "policy", "", "Resync policy after a mismatch (ordered, larger-side)")
	cmd.Flags().BoolVar(&p.reportEmptySide, "report-empty-side", false, "Report orphans when files or directives are empty")
	cmd.Flags().BoolVar(&p.scopeToRoot, "scope-to-root", false, "Ignore directives outside the directory")
	cmd.Flags().BoolVar(&p.noRecord, "no-record", false, "Do not store the run in the history")
	cmd.Flags().BoolVar(&p.failOnDiscrepancy, "fail-on-discrepancy", false, "Exit with status 1 when discrepancies are found")
	_ = cmd.MarkFlagRequired("pool")
	return cmd
}

func (a *App) runAudit(cmd *cobra.Command, p auditParams) error {
	out := a.output()
	ctx := cmd.Context()

	policyName := p.policy
	if policyName == "" {
		policyName = a.cfg.ResyncPolicy
	}
	policy, err := reconcile.ParsePolicy(policyName)
	if err != nil {
		return a.fail(out, "audit", utils.WrapAppError(
			utils.NewCLIError(utils.ErrCodeInvalidArgument, err.Error()).Build(), err))
	}

	b, err := a.newBackend(ctx)
	if err != nil {
		return a.fail(out, "audit", err)
	}

	var history audit.History
	if !p.noRecord && !a.flags.DryRun {
		db, err := a.store()
		if err != nil {
			// history is optional; the audit itself can still run
			a.logger.Warn("Audit history unavailable", logging.F("error", err.Error()))
		} else {
			history = db
		}
	}

	a.recorded = true
	outcome, err := audit.New(b, history, a.metrics, a.logger).Run(ctx, audit.Options{
		Root:            p.root,
		Pool:            p.pool,
		Policy:          policy,
		ReportEmptySide: p.reportEmptySide || a.cfg.ReportEmptySide,
		ScopeToRoot:     p.scopeToRoot,
		Record:          history != nil,
	})
	if outcome == nil {
		return a.fail(out, "audit", err)
	}

	if err != nil {
		// partial listing: print what was found, then fail
		out.AddWarning(utils.ErrCodeBackendError, err.Error(), "error")
		if werr := out.WriteSuccess("audit", auditView{Outcome: outcome, Show: p.show}); werr != nil {
			a.logger.Error("Writing audit output failed", logging.F("error", werr.Error()))
		}
		return toAppError(err)
	}

	if err := out.WriteSuccess("audit", auditView{Outcome: outcome, Show: p.show}); err != nil {
		return err
	}
	out.Verbose("Audited %d files against %d directives in %s (run %s)",
		outcome.Summary.Files, outcome.Summary.Directives,
		outcome.Duration.Round(time.Millisecond), shortID(outcome.RunID))

	if p.failOnDiscrepancy && outcome.Summary.Discrepancies() > 0 {
		return utils.NewAppError(utils.NewCLIError(utils.ErrCodeDiscrepancies, "audit found discrepancies").
			WithContext("discrepancies", outcome.Summary.Discrepancies()).Build())
	}
	return nil
}
