// Package rpc exposes the query operations as request/response methods and
// serves them over a JSON-RPC 2.0 stream.
package rpc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	apperrors "github.com/alsym/alsym/internal/errors"
	"github.com/alsym/alsym/internal/query"
	"github.com/alsym/alsym/internal/workspace"
)

// Query method names
const (
	MethodSearch         = "search"
	MethodGetDefinition  = "getDefinition"
	MethodFindReferences = "findReferences"
	MethodSearchMembers  = "searchMembers"
	MethodGetSummary     = "getSummary"
	MethodPackages       = "packages"
)

// ErrUnknownMethod is returned for a method the dispatcher does not serve
var ErrUnknownMethod = errors.New("unknown method")

type handlerFunc func(ctx context.Context, params []byte) (any, error)

// Dispatcher routes method calls to the query facade. Calls run one at a
// time.
type Dispatcher struct {
	ws      *workspace.Workspace
	logger  *zap.Logger
	mu      sync.Mutex
	methods map[string]handlerFunc
}

// NewDispatcher creates a dispatcher over ws
func NewDispatcher(ws *workspace.Workspace, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Dispatcher{
		ws:     ws,
		logger: logger.Named("rpc"),
	}
	svc := ws.Query
	d.methods = map[string]handlerFunc{
		MethodSearch: handle(d, func(_ context.Context, p query.SearchParams) (any, error) {
			return svc.Search(p)
		}),
		MethodGetDefinition: handle(d, func(_ context.Context, p query.DefinitionParams) (any, error) {
			return svc.GetDefinition(p)
		}),
		MethodFindReferences: handle(d, func(_ context.Context, p query.ReferencesParams) (any, error) {
			return svc.FindReferences(p)
		}),
		MethodSearchMembers: handle(d, func(_ context.Context, p query.MembersParams) (any, error) {
			return svc.SearchMembers(p)
		}),
		MethodGetSummary: handle(d, func(_ context.Context, p query.SummaryParams) (any, error) {
			return svc.GetSummary(p)
		}),
		MethodPackages: d.packages,
	}
	return d
}

// Methods lists the served method names
func (d *Dispatcher) Methods() []string {
	names := make([]string, 0, len(d.methods))
	for name := range d.methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dispatch decodes params and runs method
func (d *Dispatcher) Dispatch(ctx context.Context, method string, params []byte) (any, error) {
	h, ok := d.methods[method]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMethod, method)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	result, err := h(ctx, params)
	if err != nil {
		d.logger.Debug("request failed", zap.String("method", method), zap.Error(err))
	}
	return result, err
}

// handle decodes typed params and waits for the initial package load first
func handle[P any](d *Dispatcher, fn func(context.Context, P) (any, error)) handlerFunc {
	return func(ctx context.Context, raw []byte) (any, error) {
		var p P
		if err := decodeParams(raw, &p); err != nil {
			return nil, err
		}
		d.ensure(ctx)
		return fn(ctx, p)
	}
}

func (d *Dispatcher) packages(ctx context.Context, raw []byte) (any, error) {
	var p query.PackagesParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	// an explicit load always runs, even after a failed initial load
	if p.Action != query.ActionLoad {
		d.ensure(ctx)
	}
	return d.ws.Query.Packages(ctx, p)
}

// ensure runs the initial load. A failure leaves the store as it is and
// queries answer from whatever is loaded.
func (d *Dispatcher) ensure(ctx context.Context) {
	if err := d.ws.Ensure(ctx); err != nil {
		d.logger.Warn("serving without initial packages", zap.Error(err))
	}
}

func decodeParams(raw []byte, v any) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return apperrors.InvalidRequest("invalid params: %v", err)
	}
	return nil
}
