package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"

	"fitcheck-ingest/internal/api/handlers"
	"fitcheck-ingest/internal/api/routes"
	"fitcheck-ingest/internal/config"
	"fitcheck-ingest/internal/document"
	"fitcheck-ingest/internal/grpc/server"
	"fitcheck-ingest/internal/ingest"
	"fitcheck-ingest/internal/llm"
	"fitcheck-ingest/internal/logging"
	"fitcheck-ingest/internal/mux"
	"fitcheck-ingest/internal/resilience"
	"fitcheck-ingest/internal/scraper"
	"fitcheck-ingest/pkg/utils"
)

const shutdownTimeout = 30 * time.Second

func main() {
	// Load configuration
	cfg, err := config.LoadConfig(utils.GetStringOrDefault(os.Getenv("CONFIG_PATH"), "configs/config.yaml"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logging
	if err := logging.InitializeLogging(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logging: %v\n", err)
		os.Exit(1)
	}
	defer logging.CloseLogging()

	logger := logging.GetGlobalLogger()
	logger.Info("Starting FitCheck Ingest", map[string]interface{}{
		"llm_provider":  cfg.LLM.Provider,
		"render_engine": cfg.Renderer.Engine,
	})

	for _, problem := range cfg.Validate() {
		logger.Warn("Configuration problem", map[string]interface{}{"problem": problem})
	}

	ctx := context.Background()

	// Resilience guards shared by every outbound call
	renderGuard, llmGuard, err := resilience.NewGuards(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize rate limiting", map[string]interface{}{"error": err.Error()})
	}
	defer renderGuard.Close()

	// Initialize LLM manager
	llmManager := llm.NewManager(cfg, llmGuard)
	if err := llmManager.Start(ctx); err != nil {
		logger.Fatal("Failed to start LLM manager", map[string]interface{}{"error": err.Error()})
	}

	// Initialize rendering engine
	renderer, err := scraper.New(cfg, renderGuard)
	if err != nil {
		logger.Fatal("Failed to create rendering engine", map[string]interface{}{"error": err.Error()})
	}

	extractor := document.NewExtractor(cfg)
	ingestor := ingest.NewIngestor(cfg, renderer, llmManager)

	// gRPC surface, served on the HTTP port
	grpcServer := server.NewServer(cfg, extractor, ingestor)

	// HTTP surface
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	routes.SetupRoutes(e, cfg, routes.Services{
		Extractor: extractor,
		Ingestor:  ingestor,
		Health: handlers.Dependencies{
			LLM:      llmManager,
			Renderer: renderer,
			Engine:   cfg.Renderer.Engine,
			Stats: map[string]func() interface{}{
				"render_breakers": func() interface{} { return renderGuard.Stats() },
				"llm_breakers":    func() interface{} { return llmManager.Stats() },
				"grpc":            func() interface{} { return grpcServer.Metrics() },
			},
		},
	})

	multiplexer := mux.NewMultiplexer(cfg, grpcServer, e)

	address := cfg.Address()
	if err := multiplexer.Start(address); err != nil {
		logger.Fatal("Server failed to start", map[string]interface{}{"error": err.Error()})
	}
	logger.Info("Server started", map[string]interface{}{"address": address})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down server...")
	grpcServer.SetServing(false)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := multiplexer.Stop(shutdownCtx); err != nil {
		logger.Error("Error shutting down servers", map[string]interface{}{"error": err.Error()})
	}

	logger.Info("Stopping rendering engine...")
	renderer.Cleanup()

	logger.Info("Stopping LLM manager...")
	if err := llmManager.Stop(); err != nil {
		logger.Error("Error stopping LLM manager", map[string]interface{}{"error": err.Error()})
	}

	logger.Info("Server shutdown complete")
}
