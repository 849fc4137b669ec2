// Package workspace owns the store, the resolver, the package loader and the
// query facade of one process, and gates the initial package load.
//
// The first query triggers loading of the default package path. Concurrent
// callers arriving meanwhile share that one in-flight load. Once it settles,
// successfully or not, it is never retried automatically; an explicit
// package load action is always allowed.
package workspace

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/alsym/alsym/internal/normalize"
	"github.com/alsym/alsym/internal/packages"
	"github.com/alsym/alsym/internal/query"
	"github.com/alsym/alsym/internal/references"
	"github.com/alsym/alsym/internal/store"
)

// State is the initialization state of a workspace
type State int

const (
	StateUninitialized State = iota
	StateInProgress
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInProgress:
		return "in_progress"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// MarshalText renders the state name in JSON responses
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Options configures a workspace
type Options struct {
	Query        query.Config
	Packages     packages.Options
	AutoDiscover bool
}

// Workspace is the explicit context object passed to every handler
type Workspace struct {
	Store    *store.Store
	Resolver *references.Resolver
	Loader   *packages.Loader
	Query    *query.Service

	autoDiscover bool
	logger       *zap.Logger
	group        singleflight.Group

	mu      sync.Mutex
	state   State
	initErr error
	report  *packages.Report
}

// New wires a workspace
func New(opts Options, logger *zap.Logger) *Workspace {
	if logger == nil {
		logger = zap.NewNop()
	}
	st := store.New(logger)
	resolver := references.New(st, logger)
	loader := packages.NewLoader(st, normalize.New(logger), opts.Packages, logger)

	return &Workspace{
		Store:        st,
		Resolver:     resolver,
		Loader:       loader,
		Query:        query.NewService(st, resolver, loader, opts.Query, logger),
		autoDiscover: opts.AutoDiscover,
		logger:       logger.Named("workspace"),
	}
}

// State returns the initialization state and the recorded failure, if any
func (w *Workspace) State() (State, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state, w.initErr
}

// InitReport returns the report of the initial load, or nil
func (w *Workspace) InitReport() *packages.Report {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.report
}

// SetRoot sets the default package path unless one is configured already.
// It reports whether the root was adopted.
func (w *Workspace) SetRoot(path string) bool {
	if path == "" || w.Loader.DefaultPath() != "" {
		return false
	}
	w.Loader.SetDefaultPath(path)
	w.logger.Info("package root set", zap.String("path", path))
	return true
}

// Ensure runs the initial load once. With no default path there is nothing
// to load and the workspace stays uninitialized. A failed initial load is
// returned to every caller; queries still run against whatever is loaded.
func (w *Workspace) Ensure(ctx context.Context) error {
	w.mu.Lock()
	state, err := w.state, w.initErr
	w.mu.Unlock()

	switch state {
	case StateReady:
		return nil
	case StateFailed:
		return err
	}
	if w.Loader.DefaultPath() == "" {
		return nil
	}

	ch := w.group.DoChan("init", func() (any, error) {
		w.mu.Lock()
		if w.state == StateReady || w.state == StateFailed {
			err := w.initErr
			w.mu.Unlock()
			return nil, err
		}
		w.state = StateInProgress
		w.mu.Unlock()

		// the load is not cancellable once started
		report, err := w.Loader.Load(context.WithoutCancel(ctx), packages.LoadRequest{
			AutoDiscover: w.autoDiscover,
		})

		w.mu.Lock()
		defer w.mu.Unlock()
		w.report = report
		if err != nil {
			w.state = StateFailed
			w.initErr = fmt.Errorf("initial package load: %w", err)
			w.logger.Error("initial package load failed", zap.Error(err))
			return nil, w.initErr
		}
		w.state = StateReady
		return nil, nil
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Reload force-reloads the packages under path, typically a single changed
// package file
func (w *Workspace) Reload(ctx context.Context, path string) (*packages.Report, error) {
	report, err := w.Loader.Load(ctx, packages.LoadRequest{
		Path:         path,
		AutoDiscover: w.autoDiscover,
		ForceReload:  true,
	})
	if err != nil {
		return nil, err
	}
	w.logger.Info("packages reloaded",
		zap.String("path", path),
		zap.Int("loaded", report.Loaded()),
		zap.Int("failed", len(report.Failures)),
	)
	return report, nil
}
