package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"fitcheck-ingest/internal/logging"
	"fitcheck-ingest/internal/validation"
	"fitcheck-ingest/pkg/models"
)

// ResumeExtractor turns an uploaded resume into plain text
type ResumeExtractor interface {
	Extract(ctx context.Context, req models.ExtractionRequest) (*models.ExtractedText, error)
}

// ExtractResumeHandler handles the POST /extract-resume endpoint
func ExtractResumeHandler(extractor ResumeExtractor) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		logger := logging.GetGlobalLogger().WithContext(ctx)
		start := time.Now()

		var req models.ExtractionRequest
		if err := c.Bind(&req); err != nil {
			logger.Warn("Failed to parse request body", map[string]interface{}{
				"endpoint": "/extract-resume",
				"error":    err.Error(),
			})
			return c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: validation.MsgInvalidBody})
		}

		result, err := extractor.Extract(ctx, req)
		if err != nil {
			status, body := ResumeError(err)
			logger.Error("Resume extraction request failed", map[string]interface{}{
				"endpoint":    "/extract-resume",
				"status_code": status,
				"error":       err.Error(),
				"duration":    time.Since(start).String(),
			})
			return c.JSON(status, body)
		}

		logger.Info("Resume extraction request completed", map[string]interface{}{
			"endpoint":    "/extract-resume",
			"text_length": len(result.Text),
			"duration":    time.Since(start).String(),
		})
		return c.JSON(http.StatusOK, result)
	}
}
