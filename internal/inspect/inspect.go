// Package inspect exposes a local HTTP server for examining persisted
// state: session metadata, transcripts, memory search, and Prometheus
// metrics. It is read-only and intended to bind loopback only.
package inspect

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mnemo-ai/mnemo/internal/memory"
	"github.com/mnemo-ai/mnemo/internal/session"
	"github.com/mnemo-ai/mnemo/internal/transcript"
)

const (
	defaultReadTimeout     = 10 * time.Second
	defaultWriteTimeout    = 30 * time.Second
	defaultShutdownTimeout = 5 * time.Second
)

// Server is the inspection HTTP server.
type Server struct {
	addr        string
	logger      *slog.Logger
	sessions    *session.Repository
	transcripts *transcript.Store
	memories    memory.Searcher
	registry    *prometheus.Registry
	server      *http.Server
	startedAt   time.Time
}

// Options configures a Server. Memories and Registry are optional; the
// corresponding endpoints respond 404 when absent.
type Options struct {
	Addr        string
	Logger      *slog.Logger
	Sessions    *session.Repository
	Transcripts *transcript.Store
	Memories    memory.Searcher
	Registry    *prometheus.Registry
}

// NewServer creates an inspection server. It does not listen until Start.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		addr:        opts.Addr,
		logger:      logger.With("component", "inspect"),
		sessions:    opts.Sessions,
		transcripts: opts.Transcripts,
		memories:    opts.Memories,
		registry:    opts.Registry,
	}
}

// Start binds the listen address and serves in the background.
func (s *Server) Start() error {
	s.startedAt = time.Now()

	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.buildRouter(),
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(context.Background(), "tcp", s.addr)
	if err != nil {
		return errors.New("inspect: listen failed: " + err.Error())
	}
	// Addr may have been ":0"; remember what we actually bound.
	s.addr = ln.Addr().String()

	go func() {
		s.logger.Info("inspector listening", "addr", s.addr)
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("inspector serve error", "error", err)
		}
	}()

	return nil
}

// Addr returns the bound address once Start has succeeded.
func (s *Server) Addr() string {
	return s.addr
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, defaultShutdownTimeout)
	defer cancel()

	s.logger.Info("inspector shutting down")
	return s.server.Shutdown(shutdownCtx)
}
