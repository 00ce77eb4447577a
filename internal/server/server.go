package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/mkandasamy/deedflow/internal/api"
	"github.com/mkandasamy/deedflow/internal/bus"
	"github.com/mkandasamy/deedflow/internal/config"
	"github.com/mkandasamy/deedflow/internal/extract"
	"github.com/mkandasamy/deedflow/internal/home"
	"github.com/mkandasamy/deedflow/internal/mongo"
	"github.com/mkandasamy/deedflow/internal/pipeline"
	"github.com/mkandasamy/deedflow/internal/server/endpoints"
	"github.com/mkandasamy/deedflow/internal/store"
	"github.com/mkandasamy/deedflow/internal/svcctx"
	"github.com/mkandasamy/deedflow/internal/transform"
)

// Server is the main deedflow HTTP server.
// Unless configured with an external store, it manages the MongoDB container
// lifecycle - starting it on server start and stopping it on shutdown.
type Server struct {
	httpServer       *http.Server
	mongoManager     *mongo.DockerManager
	gateway          store.Gateway
	mongoStore       *mongo.Store
	eventBus         *bus.Bus
	orchestrator     *pipeline.Orchestrator
	configMgr        *config.Manager
	logger           *slog.Logger
	homeDir          *home.Dir
	extractor        extract.Extractor
	transformer      transform.Transformer
	mongoURI         string
	mongoDatabase    string
	pageWorkers      int
	retryAttempts    int

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
	// Port is the port to listen on (default: 8000)
	Port int
	// Store overrides MongoDB with a pre-built gateway (tests, --store memory)
	Store store.Gateway
	// MongoConfig holds MongoDB container settings
	MongoConfig mongo.DockerConfig
	// MongoURI connects to an external MongoDB instead of a managed container
	MongoURI string
	// MongoDatabase is the database name (default: deedflow)
	MongoDatabase string
	// Home is the deedflow home directory
	Home *home.Dir
	// Extractor performs OCR text extraction
	Extractor extract.Extractor
	// Transformer performs the staged model calls
	Transformer transform.Transformer
	// Bus is the progress event bus; created with defaults when nil
	Bus *bus.Bus
	// PageWorkers bounds concurrent model calls per document
	PageWorkers int
	// RetryAttempts is the per-call retry budget
	RetryAttempts int
	// ConfigManager provides configuration with hot-reload support
	ConfigManager *config.Manager
	// SwaggerSpecPath points at the generated OpenAPI spec
	SwaggerSpecPath string
	// Logger is the structured logger to use
	Logger *slog.Logger
}

// New creates a new Server with the given configuration.
func New(cfg Config) (*Server, error) {
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == 0 {
		cfg.Port = 8000
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.MongoDatabase == "" {
		cfg.MongoDatabase = mongo.DefaultDatabase
	}
	if cfg.Extractor == nil {
		return nil, errors.New("extractor is required")
	}
	if cfg.Transformer == nil {
		return nil, errors.New("transformer is required")
	}
	if cfg.Bus == nil {
		cfg.Bus = bus.New(bus.Config{Logger: cfg.Logger})
	}

	s := &Server{
		gateway:       cfg.Store,
		eventBus:      cfg.Bus,
		configMgr:     cfg.ConfigManager,
		logger:        cfg.Logger,
		homeDir:       cfg.Home,
		extractor:     cfg.Extractor,
		transformer:   cfg.Transformer,
		mongoURI:      cfg.MongoURI,
		mongoDatabase: cfg.MongoDatabase,
		pageWorkers:   cfg.PageWorkers,
		retryAttempts: cfg.RetryAttempts,
	}

	// A container is only managed when no store or external URI is given.
	if cfg.Store == nil && cfg.MongoURI == "" {
		mongoManager, err := mongo.NewDockerManager(cfg.MongoConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to create mongo manager: %w", err)
		}
		s.mongoManager = mongoManager
	}

	if cfg.ConfigManager != nil {
		cfg.ConfigManager.OnChange(func(c *config.Config) {
			cfg.Logger.Info("configuration reloaded")
		})
	}

	// Create endpoint registry and register all endpoints
	s.endpointRegistry = api.NewRegistry()
	for _, ep := range endpoints.All(endpoints.Config{
		MongoManager:    s.mongoManager,
		SwaggerSpecPath: cfg.SwaggerSpecPath,
	}) {
		s.endpointRegistry.Register(ep)
	}

	// Set up HTTP server. WriteTimeout stays zero: progress streams hold
	// their response open indefinitely.
	mux := http.NewServeMux()
	s.endpointRegistry.RegisterRoutes(mux, s.requireInit)

	s.httpServer = &http.Server{
		Addr:        net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Handler:     s.withServices(mux),
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	return s, nil
}

// Start starts the server and, when managed, MongoDB.
// It blocks until the context is cancelled or an error occurs.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("server already running")
	}
	s.running = true
	s.mu.Unlock()

	if err := s.initStore(ctx); err != nil {
		s.setNotRunning()
		return err
	}

	s.orchestrator = pipeline.New(pipeline.Config{
		Store:       s.gateway,
		Extractor:   s.extractor,
		Transformer: s.transformer,
		Bus:         s.eventBus,
		Logger:      s.logger,
		PageWorkers: s.pageWorkers,
		Attempts:    uint(s.retryAttempts),
	})

	// Create services struct for context enrichment
	s.services = &svcctx.Services{
		Store:         s.gateway,
		Bus:           s.eventBus,
		Orchestrator:  s.orchestrator,
		ConfigManager: s.configMgr,
		Logger:        s.logger,
		Home:          s.homeDir,
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

// initStore resolves the persistence gateway: a pre-built store, an external
// MongoDB URI, or a managed container.
func (s *Server) initStore(ctx context.Context) error {
	if s.gateway != nil {
		return nil
	}

	uri := s.mongoURI
	if s.mongoManager != nil {
		// Validate any existing container matches our config
		if err := s.mongoManager.ValidateExisting(ctx); err != nil {
			return fmt.Errorf("existing MongoDB container incompatible: %w", err)
		}

		s.logger.Info("starting MongoDB")
		if err := s.mongoManager.Start(ctx); err != nil {
			return fmt.Errorf("failed to start MongoDB: %w", err)
		}
		uri = s.mongoManager.URI()
	}

	mongoStore, err := mongo.Connect(ctx, uri, s.mongoDatabase)
	if err != nil {
		s.stopMongo()
		return fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	s.mongoStore = mongoStore
	s.gateway = mongoStore
	s.logger.Info("MongoDB is ready", "uri", uri, "database", s.mongoDatabase)
	return nil
}

// shutdown performs graceful shutdown of the HTTP server and MongoDB.
func (s *Server) shutdown() error {
	s.logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
	}

	if s.mongoStore != nil {
		if err := s.mongoStore.Close(shutdownCtx); err != nil {
			s.logger.Error("MongoDB client close error", "error", err)
		}
	}
	s.stopMongo()

	s.setNotRunning()
	s.logger.Info("server stopped")
	return nil
}

func (s *Server) stopMongo() {
	if s.mongoManager == nil {
		return
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s.logger.Info("stopping MongoDB")
	if err := s.mongoManager.Stop(stopCtx); err != nil {
		s.logger.Error("MongoDB stop error", "error", err)
	}
	if err := s.mongoManager.Close(); err != nil {
		s.logger.Error("MongoDB manager close error", "error", err)
	}
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

// Store returns the persistence gateway.
// Returns nil if the server hasn't started yet.
func (s *Server) Store() store.Gateway {
	return s.gateway
}

// Orchestrator returns the pipeline orchestrator.
// Returns nil if the server hasn't started yet.
func (s *Server) Orchestrator() *pipeline.Orchestrator {
	return s.orchestrator
}

// Bus returns the progress event bus.
func (s *Server) Bus() *bus.Bus {
	return s.eventBus
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
// Returns 503 Service Unavailable if the store or orchestrator aren't ready.
func (s *Server) requireInit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.gateway == nil || s.orchestrator == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"error":"server not fully initialized"}`))
			return
		}
		next(w, r)
	}
}
