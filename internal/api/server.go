package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/heimdex/heimdex-trim/internal/ffmpeg"
	"github.com/heimdex/heimdex-trim/internal/library"
	"github.com/heimdex/heimdex-trim/internal/metrics"
	"github.com/heimdex/heimdex-trim/internal/picker"
	"github.com/heimdex/heimdex-trim/internal/playback"
	"github.com/heimdex/heimdex-trim/internal/store"
	"github.com/heimdex/heimdex-trim/internal/workflow"
)

type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

type ServerConfig struct {
	Port           int
	Version        string
	Workflow       *workflow.Orchestrator
	Picker         *picker.Picker
	Library        library.LibraryService
	Repository     store.Repository
	PlaybackServer playback.PlaybackService
	Doctor         *ffmpeg.CachedDoctor
	Metrics        *metrics.Collector
	Logger         *slog.Logger
	StartTime      time.Time
	// BaseContext outlives requests; thumbnail generation started by
	// POST /session runs under it.
	BaseContext context.Context
}

func NewServer(cfg ServerConfig) *Server {
	router := NewRouter(cfg)

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf("127.0.0.1:%d", cfg.Port),
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 0,
			IdleTimeout:  60 * time.Second,
		},
		logger: cfg.Logger,
	}
}

func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) Addr() string {
	return s.httpServer.Addr
}
