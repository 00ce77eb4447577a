package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mkandasamy/deedflow/internal/bus"
	"github.com/mkandasamy/deedflow/internal/config"
	"github.com/mkandasamy/deedflow/internal/extract"
	"github.com/mkandasamy/deedflow/internal/home"
	"github.com/mkandasamy/deedflow/internal/mongo"
	"github.com/mkandasamy/deedflow/internal/server"
	"github.com/mkandasamy/deedflow/internal/store"
	"github.com/mkandasamy/deedflow/internal/transform"
)

var (
	serveHost  string
	servePort  int
	serveStore string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the deedflow server",
	Long: `Start the deedflow HTTP server.

This starts the HTTP API server and, unless an external MongoDB URI is
configured, the MongoDB container. When the server shuts down (via Ctrl+C
or SIGTERM), the container is also stopped.

The server provides:
  - /api/v1/process          - Upload a document for processing
  - /api/v1/stream/{id}      - Live progress stream
  - /api/v1/status/{id}      - Processing status
  - /health, /ready, /status - Health checks

Examples:
  deedflow serve                    # Start on default port 8000
  deedflow serve --port 3000        # Start on custom port
  deedflow serve --store memory     # In-memory store, no MongoDB`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		// Set up logger
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))

		// Get home directory
		h, err := home.New(homeDir)
		if err != nil {
			return err
		}
		if err := h.EnsureExists(); err != nil {
			return err
		}

		// Seed a default config on first run
		configPath := cfgFile
		if configPath == "" && h.ConfigExists() {
			configPath = h.ConfigPath()
		}
		if configPath == "" && !h.ConfigExists() {
			if err := config.WriteDefault(h.ConfigPath()); err != nil {
				return fmt.Errorf("failed to write default config: %w", err)
			}
			logger.Info("wrote default config", "path", h.ConfigPath())
			configPath = h.ConfigPath()
		}

		cm, err := config.NewManager(configPath)
		if err != nil {
			return err
		}
		cm.WatchConfig()
		cfg := cm.Get()

		if serveHost == "" {
			serveHost = cfg.Server.Host
		}
		if servePort == 0 {
			servePort = cfg.Server.Port
		}

		extractor := extract.NewTesseract(extract.TesseractConfig{
			Language: cfg.OCR.Language,
			DPI:      cfg.OCR.DPI,
		})

		transformer := transform.NewOpenAI(transform.OpenAIConfig{
			APIKey:    cfg.ResolveAPIKey(),
			Model:     cfg.OpenAI.Model,
			RateLimit: cfg.OpenAI.RateLimit,
		})

		eventBus := bus.New(bus.Config{
			KeepAlive: time.Duration(cfg.Stream.KeepAliveSeconds) * time.Second,
			Buffer:    cfg.Stream.Buffer,
			Logger:    logger,
		})

		serverCfg := server.Config{
			Host:          serveHost,
			Port:          servePort,
			Home:          h,
			Extractor:     extractor,
			Transformer:   transformer,
			Bus:           eventBus,
			PageWorkers:   cfg.Pipeline.PageWorkers,
			RetryAttempts: cfg.Pipeline.RetryAttempts,
			ConfigManager: cm,
			MongoDatabase: cfg.Mongo.Database,
			Logger:        logger,
		}

		switch serveStore {
		case "memory":
			serverCfg.Store = store.NewMemory()
		case "", "mongo":
			if cfg.Mongo.URI != "" {
				serverCfg.MongoURI = cfg.Mongo.URI
			} else {
				serverCfg.MongoConfig = mongo.DockerConfig{
					ContainerName: cfg.Mongo.ContainerName,
					Image:         cfg.Mongo.Image,
					HostPort:      cfg.Mongo.Port,
					DataPath:      h.MongoDataPath(),
				}
			}
		default:
			return fmt.Errorf("unknown store %q: use mongo or memory", serveStore)
		}

		srv, err := server.New(serverCfg)
		if err != nil {
			return err
		}

		// Start server (blocks until shutdown)
		return srv.Start(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Host to bind to (default from config)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (default from config)")
	serveCmd.Flags().StringVar(&serveStore, "store", "mongo", "Document store: mongo or memory")

	rootCmd.AddCommand(serveCmd)
}
