package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/corpus-kb/corpus/internal/api"
	"github.com/corpus-kb/corpus/internal/config"
	"github.com/corpus-kb/corpus/internal/entities"
	"github.com/corpus-kb/corpus/internal/extsvc"
	"github.com/corpus-kb/corpus/internal/home"
	"github.com/corpus-kb/corpus/internal/jobs"
	"github.com/corpus-kb/corpus/internal/notify"
	"github.com/corpus-kb/corpus/internal/pipeline"
	"github.com/corpus-kb/corpus/internal/server/endpoints"
	"github.com/corpus-kb/corpus/internal/store"
	"github.com/corpus-kb/corpus/internal/svcctx"
	"github.com/corpus-kb/corpus/internal/upload"
)

// Server is the main Corpus HTTP server. Starting it opens the store,
// wires the pipeline, and runs the dispatcher and inbox watcher
// alongside the HTTP listener.
type Server struct {
	cfg        *config.Config
	home       *home.Dir
	logger     *slog.Logger
	httpServer *http.Server

	store      *store.Store
	entities   *entities.Service
	generator  extsvc.Generator
	hub        *notify.Hub
	uploader   *upload.Service
	dispatcher *jobs.Dispatcher

	// services holds all core services for context enrichment
	services *svcctx.Services

	// endpoints registry for HTTP routes
	endpointRegistry *api.Registry

	mu      sync.RWMutex
	running bool
}

// New creates a new Server with the given configuration.
func New(cfg *config.Config, h *home.Dir, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	if h == nil {
		var err error
		if h, err = home.New(""); err != nil {
			return nil, err
		}
	}

	s := &Server{
		cfg:    cfg,
		home:   h,
		logger: logger,
	}

	s.endpointRegistry = api.NewRegistry()
	for _, ep := range endpoints.All() {
		s.endpointRegistry.Register(ep)
	}

	mux := http.NewServeMux()
	s.endpointRegistry.RegisterRoutes(mux, s.requireInit)

	s.httpServer = &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      s.withServices(mux),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s, nil
}

// Start starts the server. It blocks until the context is cancelled or
// an error occurs.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("server already running")
	}
	s.running = true
	s.mu.Unlock()

	if err := s.home.EnsureExists(); err != nil {
		s.setNotRunning()
		return err
	}

	dsn := s.cfg.Database.DSN
	if dsn == "" && s.cfg.Database.Driver == "sqlite" {
		dsn = s.home.DatabasePath()
	}
	st, err := store.Open(s.cfg.Database.Driver, dsn, s.logger)
	if err != nil {
		s.setNotRunning()
		return fmt.Errorf("failed to open store: %w", err)
	}
	s.store = st
	s.logger.Info("store ready", "driver", s.cfg.Database.Driver)

	s.hub = notify.NewHub(s.logger)
	s.entities = entities.NewService(st, s.logger)
	s.generator, err = extsvc.NewGenerator(s.cfg.Services.RAG, s.logger)
	if err != nil {
		_ = st.Close()
		s.setNotRunning()
		return fmt.Errorf("failed to create generator: %w", err)
	}
	s.uploader = upload.NewService(st, s.home, s.logger)

	deps := jobs.Dependencies{
		Store:     st,
		Entities:  s.entities,
		Generator: s.generator,
		Notifier:  s.hub,
		Config:    s.cfg,
		Logger:    s.logger,
	}
	registry := jobs.NewRegistry()
	pipeline.RegisterAll(registry)
	s.dispatcher = jobs.NewDispatcher(st, registry, deps, jobs.DispatcherConfig{
		Interval:      s.cfg.Dispatcher.Interval,
		SweepInterval: s.cfg.Dispatcher.SweepInterval,
		LoadThreshold: s.cfg.Dispatcher.LoadThreshold,
	}, s.logger)

	s.services = &svcctx.Services{
		Store:     st,
		Entities:  s.entities,
		Generator: s.generator,
		Hub:       s.hub,
		Uploader:  s.uploader,
		Config:    s.cfg,
		Logger:    s.logger,
		Home:      s.home,
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.dispatcher.Run(runCtx)
	}()

	if s.cfg.Inbox.Enabled {
		watcher := upload.NewWatcher(s.uploader, s.home.InboxPath(), s.logger)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := watcher.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Error("inbox watcher stopped", "error", err)
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			cancel()
			wg.Wait()
			_ = s.shutdown()
			return fmt.Errorf("HTTP server error: %w", err)
		}
	}

	cancel()
	wg.Wait()
	return s.shutdown()
}

// shutdown performs graceful shutdown of the HTTP server and the store.
func (s *Server) shutdown() error {
	s.logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
	}

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Error("store close error", "error", err)
		}
	}

	s.setNotRunning()
	s.logger.Info("server stopped")
	return nil
}

func (s *Server) setNotRunning() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// IsRunning returns whether the server is currently running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Addr returns the server's listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Handler returns the root HTTP handler with service enrichment.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Store returns the data store. Nil before Start.
func (s *Server) Store() *store.Store {
	return s.store
}

// withServices wraps a handler to enrich the request context with services.
func (s *Server) withServices(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if s.services != nil {
			ctx = svcctx.WithServices(ctx, s.services)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireInit is middleware that ensures the server is fully initialized.
// Returns 503 Service Unavailable until the store and dispatcher are ready.
func (s *Server) requireInit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.store == nil || s.dispatcher == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"error":"server not fully initialized"}`))
			return
		}
		next(w, r)
	}
}
