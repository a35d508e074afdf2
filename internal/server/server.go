package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"docshell/internal/blobstore"
	"docshell/internal/intercept"
	"docshell/internal/logging"
	"docshell/internal/recent"
	"docshell/internal/session"
)

// Options configures a Server.
type Options struct {
	Bind         string
	LockPath     string
	AllowOrigins []string
	Logger       *slog.Logger
}

// Server serves the editor API.
type Server struct {
	ctrl     *session.Controller
	registry *intercept.Registry
	blobs    *blobstore.Store
	recent   *recent.Store
	logger   *slog.Logger
	bind     string
	lock     *flock.Flock
	handler  http.Handler

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
}

// New builds a server. recentStore may be nil, which disables the recent
// routes.
func New(ctrl *session.Controller, registry *intercept.Registry, blobs *blobstore.Store, recentStore *recent.Store, opts Options) (*Server, error) {
	if ctrl == nil || registry == nil || blobs == nil {
		return nil, errors.New("server requires a controller, registry and blob store")
	}
	s := &Server{
		ctrl:     ctrl,
		registry: registry,
		blobs:    blobs,
		recent:   recentStore,
		logger:   logging.NewComponentLogger(opts.Logger, "server"),
		bind:     strings.TrimSpace(opts.Bind),
	}
	if path := strings.TrimSpace(opts.LockPath); path != "" {
		s.lock = flock.New(path)
	}
	s.handler = s.routes(opts.AllowOrigins)
	return s, nil
}

// Handler returns the routed, CORS-wrapped handler.
func (s *Server) Handler() http.Handler { return s.handler }

// Start acquires the instance lock, binds the listener and serves until ctx
// is cancelled or Stop is called.
func (s *Server) Start(ctx context.Context) error {
	if s.bind == "" {
		return errors.New("server bind address is empty")
	}
	if s.lock != nil {
		ok, err := s.lock.TryLock()
		if err != nil {
			return fmt.Errorf("acquire lock: %w", err)
		}
		if !ok {
			return fmt.Errorf("another docshell instance holds %s", s.lock.Path())
		}
	}

	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		s.unlock()
		return fmt.Errorf("api listen: %w", err)
	}
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	s.mu.Lock()
	s.listener = listener
	s.server = srv
	s.mu.Unlock()

	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop shuts the server down and releases the lock. It is safe to call more
// than once.
func (s *Server) Stop() {
	s.mu.Lock()
	srv := s.server
	s.server = nil
	s.listener = nil
	s.mu.Unlock()
	if srv == nil {
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("api server shutdown", logging.Error(err))
	}
	s.unlock()
	s.logger.Info("api server stopped")
}

func (s *Server) unlock() {
	if s.lock == nil {
		return
	}
	if err := s.lock.Unlock(); err != nil {
		s.logger.Warn("failed to release instance lock", logging.Error(err))
	}
}
