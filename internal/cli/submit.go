package cli

import (
	"github.com/dl-alexandre/rcache/internal/exclude"
	"github.com/dl-alexandre/rcache/internal/submit"
	"github.com/dl-alexandre/rcache/internal/types"
	"github.com/spf13/cobra"
)

type submitParams struct {
	root            string
	pool            string
	replication     int
	exclude         []string
	excludeDefaults bool
}

func (a *App) newSubmitCmd() *cobra.Command {
	var p submitParams
	cmd := &cobra.Command{
		Use:   "submit <directory>",
		Short: "Cache every file under a directory",
		Long: `Walk the directory and create one cache directive per regular file in
the given pool. The pool must exist. The first failing directive stops the
run; directives created before it are kept.`,
		Example: `  rcache submit /warehouse/events/dt=2024-01-01 --pool hot -r 2 -v
  rcache submit /warehouse/events --pool hot --exclude-defaults --dry-run`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p.root = args[0]
			return a.runSubmit(cmd, p)
		},
	}

	cmd.Flags().StringVarP(&p.pool, "pool", "p", "", "Cache pool name")
	cmd.Flags().IntVarP(&p.replication, "replication", "r", 0, "Cache replication (default from config, 1)")
	cmd.Flags().StringSliceVar(&p.exclude, "exclude", nil, "Skip paths matching these patterns (repeatable)")
	cmd.Flags().BoolVar(&p.excludeDefaults, "exclude-defaults", false, "Skip Hadoop temporary and marker files")
	_ = cmd.MarkFlagRequired("pool")
	return cmd
}

func (a *App) runSubmit(cmd *cobra.Command, p submitParams) error {
	out := a.output()
	ctx := cmd.Context()

	b, err := a.newBackend(ctx)
	if err != nil {
		return a.fail(out, "submit", err)
	}

	replication := p.replication
	if replication == 0 {
		replication = a.cfg.DefaultReplication
	}

	opts := submit.Options{
		Root:        p.root,
		Pool:        p.pool,
		Replication: replication,
		Verbose:     a.flags.Verbose && out.format == types.OutputFormatText,
		Out:         a.stdout,
		DryRun:      a.flags.DryRun,
	}
	patterns := append(append([]string(nil), a.cfg.Exclude...), p.exclude...)
	withDefaults := a.cfg.ExcludeDefaults || p.excludeDefaults
	if len(patterns) > 0 || withDefaults {
		opts.Exclude = exclude.New(patterns, withDefaults)
	}

	a.recorded = true
	res, err := submit.New(b, a.logger, a.metrics).Run(ctx, opts)
	if err != nil {
		return a.fail(out, "submit", err)
	}
	return out.WriteSuccess("submit", submitView{Result: res})
}
