package cli

import (
	"github.com/spf13/cobra"
)

func (a *App) newHistoryCmd() *cobra.Command {
	var pool string
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded audit runs",
		Long: `List recorded audit runs, newest first. A run is "unchanged" when the
previous run for the same pool and root produced the same report.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := a.output()
			db, err := a.store()
			if err != nil {
				return a.fail(out, "history", err)
			}
			runs, err := db.ListRuns(cmd.Context(), pool, limit)
			if err != nil {
				return a.fail(out, "history", err)
			}
			return out.WriteSuccess("history", runsView(runs))
		},
	}
	cmd.Flags().StringVarP(&pool, "pool", "p", "", "Only runs for this pool")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum runs to show (0 for all)")

	showCmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show the records of one audit run (any unique ID prefix)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := a.output()
			db, err := a.store()
			if err != nil {
				return a.fail(out, "history.show", err)
			}
			id, err := db.ResolveRunID(cmd.Context(), args[0])
			if err != nil {
				return a.fail(out, "history.show", err)
			}
			run, records, err := db.GetRun(cmd.Context(), id)
			if err != nil {
				return a.fail(out, "history.show", err)
			}
			return out.WriteSuccess("history.show", runDetailView{Run: run, Records: records})
		},
	}

	cmd.AddCommand(showCmd)
	return cmd
}
