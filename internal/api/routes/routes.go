package routes

import (
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"

	"fitcheck-ingest/internal/api/handlers"
	"fitcheck-ingest/internal/api/middleware"
	"fitcheck-ingest/internal/config"
)

// Services are the pipelines and collaborators the routes serve
type Services struct {
	Extractor handlers.ResumeExtractor
	Ingestor  handlers.JobIngestor
	Health    handlers.Dependencies
}

// SetupRoutes configures all API routes
func SetupRoutes(e *echo.Echo, cfg *config.Config, services Services) {
	e.HTTPErrorHandler = handlers.HTTPErrorHandler

	// Global middleware
	e.Use(echomiddleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLogger())
	e.Use(middleware.CORSConfig(cfg.Server.AllowOrigins))
	e.Use(echomiddleware.BodyLimit(cfg.Server.MaxBodySize))
	e.Use(middleware.TimeoutConfig(cfg.Server.RequestTimeout))

	// Health check routes
	health := e.Group("/health")
	{
		health.GET("", handlers.HealthHandler)
		health.GET("/ready", handlers.ReadinessHandler(services.Health))
		health.GET("/live", handlers.LivenessHandler)
	}

	// Status route
	e.GET("/status", handlers.StatusHandler(services.Health))

	// Ingestion routes
	e.POST("/extract-resume", handlers.ExtractResumeHandler(services.Extractor))
	e.POST("/fetch-job", handlers.FetchJobHandler(services.Ingestor))

	// Root route
	e.GET("/", handlers.RootHandler)
}
