package cli

import (
	"github.com/dl-alexandre/rcache/internal/backend"
	"github.com/dl-alexandre/rcache/internal/resolver"
	"github.com/dl-alexandre/rcache/internal/types"
	"github.com/dl-alexandre/rcache/internal/utils"
	"github.com/spf13/cobra"
)

func (a *App) newPoolsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pools",
		Short: "Cache pool operations",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List cache pools",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := a.output()
			b, err := a.newBackend(cmd.Context())
			if err != nil {
				return a.fail(out, "pools.list", err)
			}
			pools, err := b.ListPools(cmd.Context())
			if err != nil {
				return a.fail(out, "pools.list", backend.Wrap("listPools", "", err))
			}
			return out.WriteSuccess("pools.list", poolsView(pools))
		},
	}

	addCmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Create a cache pool",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := a.output()
			b, err := a.newBackend(cmd.Context())
			if err != nil {
				return a.fail(out, "pools.add", err)
			}
			creator, ok := b.(backend.PoolCreator)
			if !ok {
				return a.fail(out, "pools.add", backend.Wrap("addPool", args[0], backend.ErrUnsupported))
			}
			if a.flags.DryRun {
				return out.WriteSuccess("pools.add", actionView{
					Message: "Dry run: would create pool " + args[0],
					Data:    map[string]interface{}{"pool": args[0], "dryRun": true},
				})
			}
			if err := creator.AddPool(cmd.Context(), args[0]); err != nil {
				return a.fail(out, "pools.add", backend.Wrap("addPool", args[0], err))
			}
			return out.WriteSuccess("pools.add", actionView{
				Message: "Created pool " + args[0],
				Data:    map[string]interface{}{"pool": args[0], "dryRun": false},
			})
		},
	}

	cmd.AddCommand(listCmd, addCmd)
	return cmd
}

func (a *App) newDirectivesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "directives",
		Short: "Cache directive operations",
	}

	var pool, under string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List the directives of a pool with their cache statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := a.output()
			b, err := a.newBackend(cmd.Context())
			if err != nil {
				return a.fail(out, "directives.list", err)
			}
			entries, err := b.ListDirectives(cmd.Context(), pool)
			if err != nil {
				return a.fail(out, "directives.list", backend.Wrap("listDirectives", pool, err))
			}
			if under != "" {
				root, err := resolver.Normalize(under)
				if err != nil {
					return a.fail(out, "directives.list", utils.WrapAppError(
						utils.NewCLIError(utils.ErrCodeInvalidPath, "--under: "+err.Error()).Build(), err))
				}
				entries = directivesUnder(entries, root)
			}
			return out.WriteSuccess("directives.list", directivesView(entries))
		},
	}
	listCmd.Flags().StringVarP(&pool, "pool", "p", "", "Cache pool name")
	listCmd.Flags().StringVar(&under, "under", "", "Only directives at or below this path")
	_ = listCmd.MarkFlagRequired("pool")

	cmd.AddCommand(listCmd)
	return cmd
}

func directivesUnder(entries []types.DirectiveEntry, root string) []types.DirectiveEntry {
	var out []types.DirectiveEntry
	for _, d := range entries {
		if resolver.IsUnder(resolver.MustNormalize(d.Path), root) {
			out = append(out, d)
		}
	}
	return out
}
