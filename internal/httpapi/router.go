package httpapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"go.uber.org/zap"

	apperrors "github.com/alsym/alsym/internal/errors"
	"github.com/alsym/alsym/internal/rpc"
	"github.com/alsym/alsym/internal/workspace"
)

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// HealthResponse reports the initialization state of the workspace
type HealthResponse struct {
	Status     string          `json:"status"`
	State      workspace.State `json:"state"`
	InitError  string          `json:"initError,omitempty"`
	Version    string          `json:"version,omitempty"`
	Generation uint64          `json:"generation"`
}

type api struct {
	ws           *workspace.Workspace
	dispatcher   *rpc.Dispatcher
	maxBodyBytes int64
	version      string
	logger       *zap.Logger
}

// NewRouter builds the routes:
//
//	POST /v1/{method}  run a query method with a JSON params body
//	GET  /v1/methods   list the method names
//	GET  /healthz      initialization state
//	GET  /stats        store statistics
func NewRouter(ws *workspace.Workspace, maxBodyBytes int64, version string, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &api{
		ws:           ws,
		dispatcher:   rpc.NewDispatcher(ws, logger),
		maxBodyBytes: maxBodyBytes,
		version:      version,
		logger:       logger.Named("http"),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(a.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", a.health)
	r.Get("/stats", a.stats)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/methods", a.methods)
		r.Post("/{method}", a.call)
	})
	return r
}

func (a *api) call(w http.ResponseWriter, r *http.Request) {
	method := chi.URLParam(r, "method")

	body := io.Reader(r.Body)
	if a.maxBodyBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, a.maxBodyBytes)
	}
	params, err := io.ReadAll(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			renderError(w, http.StatusRequestEntityTooLarge, err, "")
			return
		}
		renderError(w, http.StatusBadRequest, fmt.Errorf("read request body: %w", err), "")
		return
	}

	result, err := a.dispatcher.Dispatch(r.Context(), method, params)
	switch {
	case err == nil:
		renderJSON(w, http.StatusOK, result)
	case errors.Is(err, rpc.ErrUnknownMethod):
		renderError(w, http.StatusNotFound, err, "")
	case apperrors.IsInvalidRequest(err):
		renderError(w, http.StatusBadRequest, err, codeOf(err))
	default:
		a.logger.Error("request failed", zap.String("method", method), zap.Error(err))
		renderError(w, http.StatusInternalServerError, err, codeOf(err))
	}
}

func (a *api) methods(w http.ResponseWriter, _ *http.Request) {
	renderJSON(w, http.StatusOK, map[string][]string{"methods": a.dispatcher.Methods()})
}

func (a *api) health(w http.ResponseWriter, _ *http.Request) {
	state, err := a.ws.State()
	resp := HealthResponse{
		Status:     "ok",
		State:      state,
		Version:    a.version,
		Generation: a.ws.Store.Generation(),
	}
	if err != nil {
		resp.Status = "degraded"
		resp.InitError = err.Error()
	}
	renderJSON(w, http.StatusOK, resp)
}

func (a *api) stats(w http.ResponseWriter, _ *http.Request) {
	renderJSON(w, http.StatusOK, a.ws.Store.Stats())
}

// logRequests logs one line per request after it completes
func (a *api) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		a.logger.Info("request",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func codeOf(err error) string {
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		return string(appErr.Code)
	}
	return ""
}

func renderJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func renderError(w http.ResponseWriter, status int, err error, code string) {
	if code == "" {
		code = errorCodeFromStatus(status)
	}
	renderJSON(w, status, &ErrorResponse{
		Error:   "error",
		Message: err.Error(),
		Code:    code,
	})
}

func errorCodeFromStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusRequestEntityTooLarge:
		return "payload_too_large"
	default:
		return "internal_error"
	}
}
