// Package main is the entry point for the fine-tuning backend: PTY-backed
// agent terminal sessions over WebSocket, plus the JSON API for settings and
// session management.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/swiftprosyssfdev3-star/Finetune-LLM-Using-CLI/internal/common/config"
	"github.com/swiftprosyssfdev3-star/Finetune-LLM-Using-CLI/internal/common/logger"
	"github.com/swiftprosyssfdev3-star/Finetune-LLM-Using-CLI/internal/events/bus"
	"github.com/swiftprosyssfdev3-star/Finetune-LLM-Using-CLI/internal/gateway/rest"
	gatewayws "github.com/swiftprosyssfdev3-star/Finetune-LLM-Using-CLI/internal/gateway/websocket"
	"github.com/swiftprosyssfdev3-star/Finetune-LLM-Using-CLI/internal/project"
	settingsstore "github.com/swiftprosyssfdev3-star/Finetune-LLM-Using-CLI/internal/settings/store"
	"github.com/swiftprosyssfdev3-star/Finetune-LLM-Using-CLI/internal/terminal"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		OutputPath: cfg.Logging.OutputPath,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting finetune backend...")

	// Event bus: NATS when configured, in-memory otherwise.
	var eventBus bus.EventBus
	if cfg.NATS.URL != "" {
		natsBus, err := bus.NewNATSEventBus(cfg.NATS, log)
		if err != nil {
			log.Fatal("Failed to connect to NATS", zap.Error(err))
		}
		eventBus = natsBus
		log.Info("Connected to NATS", zap.String("url", cfg.NATS.URL))
	} else {
		eventBus = bus.NewMemoryEventBus(log)
		log.Info("Using in-memory event bus")
	}
	defer eventBus.Close()

	// Settings store: sqlite when a path is configured, memory otherwise.
	var store settingsstore.Repository
	if cfg.Settings.DBPath != "" {
		sqliteStore, err := settingsstore.NewSQLiteRepository(cfg.Settings.DBPath)
		if err != nil {
			log.Fatal("Failed to open settings database", zap.Error(err))
		}
		store = sqliteStore
	} else {
		store = settingsstore.NewMemoryRepository()
		log.Warn("No settings database configured, settings will not persist")
	}
	defer store.Close()

	projects, err := project.NewManager(cfg.Terminal.ProjectsDir)
	if err != nil {
		log.Fatal("Failed to prepare projects directory", zap.Error(err))
	}

	catalog := terminal.NewCatalog()
	registry := terminal.NewRegistry(terminal.RegistryOptions{
		Catalog:    catalog,
		Workspaces: projects,
		EventBus:   eventBus,
		Logger:     log,
		Timings: terminal.Timings{
			PollInterval: cfg.Terminal.PollInterval(),
			IdleSleep:    cfg.Terminal.IdleSleep(),
			KillGrace:    cfg.Terminal.KillGrace(),
			ChunkSize:    cfg.Terminal.OutputChunkSize,
		},
		DefaultCols: uint16(cfg.Terminal.DefaultCols),
		DefaultRows: uint16(cfg.Terminal.DefaultRows),
	})

	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	gatewayws.NewHandler(registry, catalog, store, cfg.Terminal, log).RegisterRoutes(router)
	rest.NewHandler(registry, projects, store, log).RegisterRoutes(router)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeoutDuration(),
		WriteTimeout: cfg.Server.WriteTimeoutDuration(),
	}

	go func() {
		log.Info("Server listening",
			zap.String("addr", server.Addr),
			zap.String("websocket", "/ws/terminal/:projectId/:agent"),
			zap.String("api", "/api"))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	}

	registry.Shutdown(shutdownCtx)

	log.Info("Shutdown complete")
}

// corsMiddleware allows the development frontend on a different port to reach
// the API and upgrade websocket connections.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PATCH, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version, Sec-WebSocket-Protocol")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
