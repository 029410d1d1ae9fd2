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

	_ "storyteller/docs/swagger"
	"storyteller/internal/api"
	"storyteller/internal/config"
	"storyteller/internal/enginectl"
	"storyteller/internal/home"
	"storyteller/internal/jobs"
	"storyteller/internal/llmcall"
	"storyteller/internal/persist"
	"storyteller/internal/prompts"
	"storyteller/internal/prompts/characters"
	"storyteller/internal/prompts/dialogs"
	"storyteller/internal/prompts/foreshadow"
	"storyteller/internal/prompts/plotpoints"
	"storyteller/internal/prompts/themes"
	"storyteller/internal/prompts/voices"
	"storyteller/internal/providers"
	"storyteller/internal/server/endpoints"
	"storyteller/internal/store"
	"storyteller/internal/svcctx"
)

// Server is the main Storyteller HTTP server. It owns the SQLite store,
// the engine registry, and the analysis job runner. When ManageEngine is
// set it also manages the llama-server container, starting it on server
// start and stopping it on shutdown.
type Server struct {
	httpServer *http.Server
	homeDir    *home.Dir
	configMgr  *config.Manager
	registry   *providers.Registry
	engineMgr  *enginectl.Manager
	resolver   *prompts.Resolver
	logger     *slog.Logger

	// Created during Start, once the store is open.
	store  *store.Store
	runner *jobs.Runner

	// services holds all core services for context enrichment
	services *svcctx.Services

	// endpoints registry for HTTP routes
	endpointRegistry *api.Registry

	mu      sync.RWMutex
	running bool
}

// Config holds server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1)
	Host string
	// Port is the port to listen on (default: 9170)
	Port string
	// Home is the storyteller home directory
	Home *home.Dir
	// ConfigManager provides configuration with hot-reload support
	ConfigManager *config.Manager
	// ManageEngine starts and stops the llama-server container with the server
	ManageEngine bool
	// Logger is the structured logger to use
	Logger *slog.Logger
}

// New creates a new Server with the given configuration.
func New(cfg Config) (*Server, error) {
	if cfg.Home == nil {
		return nil, errors.New("home directory is required")
	}
	if cfg.ConfigManager == nil {
		return nil, errors.New("config manager is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	conf := cfg.ConfigManager.Get()
	if cfg.Host == "" {
		cfg.Host = conf.Server.Host
	}
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == "" {
		cfg.Port = conf.Server.Port
	}
	if cfg.Port == "" {
		cfg.Port = "9170"
	}

	// Engine registry with hot reload from config
	registry := providers.NewRegistry()
	registry.SetLogger(cfg.Logger)
	registry.Reload(conf.ToRegistryConfig())
	cfg.ConfigManager.OnChange(func(c *config.Config) {
		registry.Reload(c.ToRegistryConfig())
		cfg.Logger.Info("engine registry reloaded from config")
	})

	// Prompt resolver with per-book overrides under the home directory
	resolver := prompts.NewResolver(cfg.Home.PromptsPath(), cfg.Logger)
	registerPrompts(resolver)

	var engineMgr *enginectl.Manager
	if cfg.ManageEngine {
		mgr, err := enginectl.NewManager(enginectl.Config{
			ContainerName: conf.Container.ContainerName,
			Image:         conf.Container.Image,
			ModelsPath:    cfg.Home.ModelsPath(),
			ModelFile:     conf.Container.ModelFile,
			HostPort:      conf.Container.Port,
			CtxSize:       conf.Container.CtxSize,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create engine manager: %w", err)
		}
		engineMgr = mgr
	}

	s := &Server{
		homeDir:   cfg.Home,
		configMgr: cfg.ConfigManager,
		registry:  registry,
		engineMgr: engineMgr,
		resolver:  resolver,
		logger:    cfg.Logger,
	}

	// Create endpoint registry and register all endpoints
	s.endpointRegistry = api.NewRegistry()
	for _, ep := range endpoints.All(endpoints.Config{
		EngineManager:   engineMgr,
		SwaggerSpecPath: endpoints.GetSwaggerSpecPath(),
	}) {
		s.endpointRegistry.Register(ep)
	}

	// Set up HTTP server
	mux := http.NewServeMux()
	s.endpointRegistry.RegisterRoutes(mux, s.requireInit)

	s.httpServer = &http.Server{
		Addr:         net.JoinHostPort(cfg.Host, cfg.Port),
		Handler:      s.withServices(mux),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s, nil
}

// registerPrompts registers the embedded prompts of every analysis kind.
func registerPrompts(r *prompts.Resolver) {
	characters.RegisterPrompts(r)
	dialogs.RegisterPrompts(r)
	voices.RegisterPrompts(r)
	plotpoints.RegisterPrompts(r)
	foreshadow.RegisterPrompts(r)
	themes.RegisterPrompts(r)
}

// Start starts the server, opening the store and optionally the
// llama-server container. It blocks until the context is cancelled or
// an error occurs.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("server already running")
	}
	s.running = true
	s.mu.Unlock()

	if err := s.homeDir.EnsureExists(); err != nil {
		s.setNotRunning()
		return fmt.Errorf("failed to prepare home directory: %w", err)
	}

	// Start the llama-server container when we manage it
	if s.engineMgr != nil {
		if err := s.engineMgr.ValidateExisting(ctx); err != nil {
			s.setNotRunning()
			return fmt.Errorf("existing llama-server container incompatible: %w", err)
		}
		s.logger.Info("starting llama-server container")
		if err := s.engineMgr.Start(ctx); err != nil {
			s.setNotRunning()
			return fmt.Errorf("failed to start llama-server: %w", err)
		}
		s.logger.Info("llama-server is ready", "url", s.engineMgr.URL())
	}

	// Open the SQLite store
	conf := s.configMgr.Get()
	dbPath := conf.Store.Path
	if dbPath == "" {
		dbPath = s.homeDir.DBPath()
	}
	st, err := store.Open(dbPath)
	if err != nil {
		_ = s.shutdown()
		return fmt.Errorf("failed to open store: %w", err)
	}
	s.store = st
	s.logger.Info("store opened", "path", dbPath)

	// Wire the analysis job runner
	s.runner = jobs.NewRunner(jobs.Deps{
		Store:      s.store,
		Engines:    s.registry,
		Config:     conf,
		Home:       s.homeDir,
		Persisters: persist.NewDefault(s.store, s.logger),
		Resolver:   s.resolver,
		Recorder:   llmcall.NewRecorder(s.store, s.logger),
		Logger:     s.logger,
	})

	// Create services struct for context enrichment
	s.services = &svcctx.Services{
		Store:     s.store,
		Config:    s.configMgr,
		Registry:  s.registry,
		Runner:    s.runner,
		Resolver:  s.resolver,
		EngineCtl: s.engineMgr,
		Logger:    s.logger,
		Home:      s.homeDir,
	}

	// Start HTTP server in goroutine
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for context cancellation or error
	select {
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			_ = s.shutdown()
			return fmt.Errorf("HTTP server error: %w", err)
		}
	}

	return s.shutdown()
}

// shutdown performs graceful shutdown of the HTTP server, the store and
// the llama-server container.
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
		s.store = nil
	}

	if s.engineMgr != nil {
		s.logger.Info("stopping llama-server container")
		if err := s.engineMgr.Stop(shutdownCtx); err != nil {
			s.logger.Error("llama-server stop error", "error", err)
		}
		if err := s.engineMgr.Close(); err != nil {
			s.logger.Error("engine manager close error", "error", err)
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

// Registry returns the engine registry.
func (s *Server) Registry() *providers.Registry {
	return s.registry
}

// Runner returns the analysis job runner.
// Returns nil if the server hasn't started yet.
func (s *Server) Runner() *jobs.Runner {
	return s.runner
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
// Returns 503 Service Unavailable if the store or job runner aren't ready.
func (s *Server) requireInit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.store == nil || s.runner == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"error":"server not fully initialized"}`))
			return
		}
		next(w, r)
	}
}
