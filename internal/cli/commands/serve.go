package commands

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/alsym/alsym/internal/httpapi"
	"github.com/alsym/alsym/internal/packages"
	"github.com/alsym/alsym/internal/rpc"
	"github.com/alsym/alsym/internal/watch"
	"github.com/alsym/alsym/internal/workspace"
)

func newServeCommand(o *globalOptions) *cobra.Command {
	var useHTTP bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Answer queries over stdio or HTTP",
		Long: `Start the query server.

By default the server speaks JSON-RPC 2.0 over stdin/stdout and is meant to
be started by an editor or agent. The initialize request may name the
workspace folder, which becomes the package path unless one is configured.

With --http the same methods are served as POST /v1/{method}.

Packages are loaded on the first query. With --watch, package files that
change on disk are reloaded.`,
		Example: `  alsym serve --path ./my-app
  alsym serve --http --addr 127.0.0.1:8765 --watch`,
		Args: cobra.NoArgs,
	}
	flags := cmd.Flags()
	flags.BoolVar(&useHTTP, "http", false, "serve HTTP instead of stdio")
	flags.String("addr", "127.0.0.1:8765", "HTTP listen address")
	flags.Bool("watch", false, "reload package files when they change")
	_ = o.v.BindPFlag("server.http_addr", flags.Lookup("addr"))
	_ = o.v.BindPFlag("packages.watch", flags.Lookup("watch"))

	cmd.RunE = o.run(func(ctx context.Context, a *app, _ []string) error {
		ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()

		ws := a.newWorkspace()
		if a.cfg.Packages.Watch {
			w, err := startWatcher(ctx, ws, a.logger)
			if err != nil {
				return err
			}
			if w != nil {
				defer w.Stop()
			}
		}

		if !useHTTP {
			return rpc.NewServer(ws, Version, a.logger).Run(ctx)
		}

		srv, err := httpapi.New(ws, httpapi.DefaultConfig(a.cfg.Server.HTTPAddr), Version, a.logger)
		if err != nil {
			return err
		}
		// load in the background so the first request does not wait for it
		go func() { _ = ws.Ensure(ctx) }()
		return srv.Run(ctx)
	})
	return cmd
}

// startWatcher reloads changed package files under the workspace's package
// path. It returns nil when no path is configured.
func startWatcher(ctx context.Context, ws *workspace.Workspace, logger *zap.Logger) (*watch.PackageWatcher, error) {
	root := ws.Loader.DefaultPath()
	if root == "" {
		logger.Warn("--watch needs a package path; not watching")
		return nil, nil
	}
	dirs, err := watch.Dirs(root, packages.SymbolsDir)
	if err != nil {
		return nil, err
	}

	w, err := watch.NewPackageWatcher(dirs, packages.Extension, watch.DefaultDelay, func(files []string) error {
		var errs []error
		for _, file := range files {
			if _, err := ws.Reload(ctx, file); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}, logger)
	if err != nil {
		return nil, err
	}
	if err := w.Start(); err != nil {
		_ = w.Stop()
		return nil, err
	}
	return w, nil
}
