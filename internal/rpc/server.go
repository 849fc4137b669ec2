package rpc

import (
	"context"
	"errors"
	"io"
	"os"
	"sync"

	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"
	"go.uber.org/zap"

	apperrors "github.com/alsym/alsym/internal/errors"
	"github.com/alsym/alsym/internal/workspace"
)

// ServerName is reported in the initialize handshake
const ServerName = "alsym"

// Server serves the dispatcher over a JSON-RPC stream
type Server struct {
	ws         *workspace.Workspace
	dispatcher *Dispatcher
	version    string
	logger     *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewServer creates a server for ws
func NewServer(ws *workspace.Workspace, version string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		ws:         ws,
		dispatcher: NewDispatcher(ws, logger),
		version:    version,
		logger:     logger.Named("server"),
	}
}

// Run serves on stdin/stdout until exit or ctx is done
func (s *Server) Run(ctx context.Context) error {
	return s.Serve(ctx, stdrwc{})
}

// Serve serves on rwc until exit, the peer closes the stream, or ctx is done
func (s *Server) Serve(ctx context.Context, rwc io.ReadWriteCloser) error {
	s.logger.Info("starting server", zap.String("version", s.version))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	conn := jsonrpc2.NewConn(jsonrpc2.NewStream(rwc))
	conn.Go(ctx, s.handler())

	select {
	case <-ctx.Done():
	case <-conn.Done():
	}

	s.logger.Info("shutting down server")
	if err := conn.Close(); err != nil && !errors.Is(err, io.ErrClosedPipe) {
		return err
	}
	return nil
}

func (s *Server) handler() jsonrpc2.Handler {
	return func(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
		s.logger.Debug("received", zap.String("method", req.Method()))

		switch req.Method() {
		case protocol.MethodInitialize:
			return s.handleInitialize(ctx, reply, req)
		case protocol.MethodInitialized:
			return reply(ctx, nil, nil)
		case protocol.MethodShutdown:
			s.logger.Info("shutdown requested")
			return reply(ctx, nil, nil)
		case protocol.MethodExit:
			return s.handleExit(ctx, reply)
		}

		result, err := s.dispatcher.Dispatch(ctx, req.Method(), req.Params())
		if err != nil {
			return s.replyError(ctx, reply, err)
		}
		return reply(ctx, result, nil)
	}
}

// handleInitialize adopts the client's workspace folder as the default
// package path
func (s *Server) handleInitialize(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params protocol.InitializeParams
	if err := decodeParams(req.Params(), &params); err != nil {
		return s.replyWithError(ctx, reply, jsonrpc2.InvalidParams, "failed to parse initialize params")
	}

	var root string
	switch {
	case len(params.WorkspaceFolders) > 0:
		root = uri.URI(params.WorkspaceFolders[0].URI).Filename()
	case params.RootURI != "":
		root = params.RootURI.Filename()
	case params.RootPath != "":
		root = params.RootPath
	}
	if root != "" && s.ws.SetRoot(root) {
		s.logger.Info("workspace root set", zap.String("root", root))
	}

	return reply(ctx, protocol.InitializeResult{
		ServerInfo: &protocol.ServerInfo{
			Name:    ServerName,
			Version: s.version,
		},
	}, nil)
}

func (s *Server) handleExit(ctx context.Context, reply jsonrpc2.Replier) error {
	s.logger.Info("exit requested")
	if err := reply(ctx, nil, nil); err != nil {
		s.logger.Warn("error replying to exit", zap.Error(err))
	}
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	return nil
}

func (s *Server) replyError(ctx context.Context, reply jsonrpc2.Replier, err error) error {
	switch {
	case errors.Is(err, ErrUnknownMethod):
		return reply(ctx, nil, jsonrpc2.ErrMethodNotFound)
	case apperrors.IsInvalidRequest(err):
		return s.replyWithError(ctx, reply, jsonrpc2.InvalidParams, err.Error())
	default:
		s.logger.Error("request failed", zap.Error(err))
		return s.replyWithError(ctx, reply, jsonrpc2.InternalError, err.Error())
	}
}

func (s *Server) replyWithError(ctx context.Context, reply jsonrpc2.Replier, code jsonrpc2.Code, message string) error {
	return reply(ctx, nil, &jsonrpc2.Error{
		Code:    code,
		Message: message,
	})
}

// stdrwc implements io.ReadWriteCloser for stdin/stdout
type stdrwc struct{}

func (stdrwc) Read(p []byte) (int, error) {
	return os.Stdin.Read(p)
}

func (stdrwc) Write(p []byte) (int, error) {
	return os.Stdout.Write(p)
}

func (stdrwc) Close() error {
	if err := os.Stdin.Close(); err != nil {
		return err
	}
	return os.Stdout.Close()
}
