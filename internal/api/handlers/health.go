package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"fitcheck-ingest/internal/logging"
	"fitcheck-ingest/pkg/models"
)

// Version is the service version reported by the health endpoints
const Version = "1.0.0"

var startTime = time.Now()

const readinessCheckTimeout = 10 * time.Second

// LLMStatus reports the cached state of the generative model
type LLMStatus interface {
	IsHealthy() bool
	GetProviderName() string
}

// LLMChecker re-checks an unhealthy model on demand
type LLMChecker interface {
	Recheck(ctx context.Context) bool
}

// RendererStatus reports the state of the rendering engine
type RendererStatus interface {
	IsHealthy() bool
}

// Dependencies are the shared collaborators the health endpoints inspect
type Dependencies struct {
	LLM      LLMStatus
	Renderer RendererStatus
	Engine   string

	// Stats are reported under their key by the status endpoint
	Stats map[string]func() interface{}
}

func (d Dependencies) checks() (map[string]string, bool) {
	checks := map[string]string{"api": "ok"}
	ready := true

	if d.LLM != nil && d.LLM.IsHealthy() {
		checks["llm"] = "ok"
	} else {
		checks["llm"] = "unavailable"
		ready = false
	}

	if d.Renderer != nil && d.Renderer.IsHealthy() {
		checks["renderer"] = "ok"
	} else {
		checks["renderer"] = "unavailable"
		ready = false
	}

	return checks, ready
}

// HealthHandler handles health check requests
func HealthHandler(c echo.Context) error {
	logging.GetGlobalLogger().WithContext(c.Request().Context()).Debug("Health check requested")

	return c.JSON(http.StatusOK, models.HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
		Version:   Version,
		Uptime:    time.Since(startTime),
		Checks: map[string]string{
			"api": "ok",
		},
	})
}

// ReadinessHandler answers 503 until both the model and the renderer are usable.
// An unhealthy model that supports it is re-checked first.
func ReadinessHandler(deps Dependencies) echo.HandlerFunc {
	return func(c echo.Context) error {
		logger := logging.GetGlobalLogger().WithContext(c.Request().Context())

		if checker, ok := deps.LLM.(LLMChecker); ok {
			checkCtx, cancel := context.WithTimeout(c.Request().Context(), readinessCheckTimeout)
			checker.Recheck(checkCtx)
			cancel()
		}

		checks, ready := deps.checks()

		response := models.HealthResponse{
			Status:    "ready",
			Timestamp: time.Now(),
			Version:   Version,
			Uptime:    time.Since(startTime),
			Checks:    checks,
		}

		if !ready {
			logger.Warn("Readiness check failed", map[string]interface{}{"checks": checks})
			response.Status = "not_ready"
			return c.JSON(http.StatusServiceUnavailable, response)
		}

		logger.Debug("Readiness check requested")
		return c.JSON(http.StatusOK, response)
	}
}

// LivenessHandler handles liveness requests
func LivenessHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, models.HealthResponse{
		Status:    "alive",
		Timestamp: time.Now(),
		Version:   Version,
		Uptime:    time.Since(startTime),
	})
}

// StatusHandler provides detailed service status
func StatusHandler(deps Dependencies) echo.HandlerFunc {
	return func(c echo.Context) error {
		checks, ready := deps.checks()

		if deps.LLM != nil {
			checks["llm_provider"] = deps.LLM.GetProviderName()
		}
		if deps.Engine != "" {
			checks["render_engine"] = deps.Engine
		}
		for name, err := range logging.GlobalHealth() {
			if err != nil {
				checks["log_"+name] = err.Error()
			} else {
				checks["log_"+name] = "ok"
			}
		}

		status := "operational"
		if !ready {
			status = "degraded"
		}

		var stats map[string]interface{}
		if len(deps.Stats) > 0 {
			stats = make(map[string]interface{}, len(deps.Stats))
			for name, collect := range deps.Stats {
				stats[name] = collect()
			}
		}

		return c.JSON(http.StatusOK, models.HealthResponse{
			Status:    status,
			Timestamp: time.Now(),
			Version:   Version,
			Uptime:    time.Since(startTime),
			Checks:    checks,
			Stats:     stats,
		})
	}
}

// RootHandler returns the service banner
func RootHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"service": "FitCheck Ingest",
		"version": Version,
		"status":  "running",
	})
}
