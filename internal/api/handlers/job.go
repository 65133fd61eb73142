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

// JobIngestor turns a job posting URL into a structured posting
type JobIngestor interface {
	Ingest(ctx context.Context, req models.JobFetchRequest) (*models.JobPosting, error)
}

// FetchJobHandler handles the POST /fetch-job endpoint
func FetchJobHandler(ingestor JobIngestor) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		logger := logging.GetGlobalLogger().WithContext(ctx)
		start := time.Now()

		var req models.JobFetchRequest
		if err := c.Bind(&req); err != nil {
			logger.Warn("Failed to parse request body", map[string]interface{}{
				"endpoint": "/fetch-job",
				"error":    err.Error(),
			})
			return c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: validation.MsgInvalidBody})
		}

		job, err := ingestor.Ingest(ctx, req)
		if err != nil {
			status, body := JobError(err)
			logger.Error("Job fetch request failed", map[string]interface{}{
				"endpoint":    "/fetch-job",
				"job_url":     req.JobURL,
				"status_code": status,
				"error":       err.Error(),
				"duration":    time.Since(start).String(),
			})
			return c.JSON(status, body)
		}

		logger.Info("Job fetch request completed", map[string]interface{}{
			"endpoint": "/fetch-job",
			"job_url":  req.JobURL,
			"title":    job.Title,
			"company":  job.Company,
			"duration": time.Since(start).String(),
		})
		return c.JSON(http.StatusOK, job)
	}
}
