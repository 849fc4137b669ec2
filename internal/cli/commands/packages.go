package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/alsym/alsym/internal/query"
)

func newPackagesCommand(o *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "packages",
		Short: "Load and inspect packages",
	}
	cmd.AddCommand(newPackagesLoadCommand(o))
	cmd.AddCommand(newPackagesActionCommand(o, query.ActionList, "List loaded packages"))
	cmd.AddCommand(newPackagesActionCommand(o, query.ActionStats, "Show object counts"))
	return cmd
}

func newPackagesLoadCommand(o *globalOptions) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "load [path]",
		Short: "Load packages and report what was ingested",
		Long: `Load the packages under path (or the configured package path) and print
the load report. Packages that fail to decode are listed and do not stop
the others from loading.`,
		Args: cobra.MaximumNArgs(1),
	}
	cmd.Flags().BoolVar(&force, "force", false, "re-ingest versions that are already loaded")

	cmd.RunE = o.run(func(ctx context.Context, a *app, args []string) error {
		p := query.PackagesParams{
			Action:       query.ActionLoad,
			AutoDiscover: &a.cfg.Packages.AutoDiscover,
			ForceReload:  force,
		}
		if len(args) == 1 {
			p.Path = args[0]
		}
		ws := a.newWorkspace()
		res, err := ws.Query.Packages(ctx, p)
		if err != nil {
			return err
		}
		return a.render(res, func() { a.packagesTable(res) })
	})
	return cmd
}

func newPackagesActionCommand(o *globalOptions, action, short string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   action,
		Short: short,
		Args:  cobra.NoArgs,
	}
	cmd.RunE = o.run(func(ctx context.Context, a *app, _ []string) error {
		ws, err := a.openWorkspace(ctx)
		if err != nil {
			return err
		}
		res, err := ws.Query.Packages(ctx, query.PackagesParams{Action: action})
		if err != nil {
			return err
		}
		return a.render(res, func() { a.packagesTable(res) })
	})
	return cmd
}
