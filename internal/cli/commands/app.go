package commands

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/alsym/alsym/internal/cli/config"
	"github.com/alsym/alsym/internal/logging"
	"github.com/alsym/alsym/internal/workspace"
)

// errNoPackagePath is returned by commands that need packages when none are
// configured
var errNoPackagePath = errors.New("no package path configured (use --path, packages.path or ALSYM_PACKAGES_PATH)")

// globalOptions are the persistent flags shared by every command
type globalOptions struct {
	v          *viper.Viper
	configFile string
	output     string
	noColor    bool
}

func newGlobalOptions() *globalOptions {
	return &globalOptions{v: config.New()}
}

// bind registers the persistent flags and maps the configuration ones onto
// their config keys
func (o *globalOptions) bind(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.StringVar(&o.configFile, "config", "", "config file (default ./alsym.yaml or ~/.config/alsym/alsym.yaml)")
	flags.StringVarP(&o.output, "output", "o", formatTable, "output format: table, json or yaml")
	flags.BoolVar(&o.noColor, "no-color", false, "disable colored output")

	flags.StringP("path", "p", "", "package root: a directory or a single .app file")
	flags.Bool("auto-discover", true, "collect packages from .alpackages directories below the root")
	flags.Int("workers", 4, "packages decoded in parallel")
	flags.String("log-level", "info", "log level: debug, info, warn or error")

	keys := map[string]string{
		"packages.path":          "path",
		"packages.auto_discover": "auto-discover",
		"packages.workers":       "workers",
		"log.level":              "log-level",
	}
	for key, flag := range keys {
		_ = o.v.BindPFlag(key, flags.Lookup(flag))
	}
}

// app is what a command runs with once configuration is resolved
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	out    io.Writer
	errOut io.Writer
	output string

	// ws is set once openWorkspace has loaded packages
	ws *workspace.Workspace
}

func (o *globalOptions) newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load(o.v, o.configFile)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return nil, err
	}
	return &app{
		cfg:    cfg,
		logger: logger,
		out:    cmd.OutOrStdout(),
		errOut: cmd.ErrOrStderr(),
		output: o.output,
	}, nil
}

func (a *app) newWorkspace() *workspace.Workspace {
	return workspace.New(a.cfg.WorkspaceOptions(), a.logger)
}

// openWorkspace creates a workspace and loads the configured packages.
// Packages that fail to load are reported as warnings.
func (a *app) openWorkspace(ctx context.Context) (*workspace.Workspace, error) {
	ws := a.newWorkspace()
	if ws.Loader.DefaultPath() == "" {
		return nil, errNoPackagePath
	}
	if err := ws.Ensure(ctx); err != nil {
		return nil, err
	}
	a.ws = ws
	if report := ws.InitReport(); report != nil {
		warn := color.New(color.FgYellow)
		for _, f := range report.Failures {
			warn.Fprintf(a.errOut, "warning: %v\n", f)
		}
	}
	return ws, nil
}

func (a *app) close() {
	_ = a.logger.Sync()
}

// run resolves configuration and calls fn with it
func (o *globalOptions) run(fn func(ctx context.Context, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := o.newApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()
		if err := fn(cmd.Context(), a, args); err != nil {
			return fmt.Errorf("%s: %w", cmd.Name(), err)
		}
		return nil
	}
}
