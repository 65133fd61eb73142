package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"fitcheck-ingest/internal/logging"
	"fitcheck-ingest/pkg/models"
	"fitcheck-ingest/pkg/utils"
)

// User-facing failure messages; clients branch on status code and key presence only
const (
	MsgResumeFailed = "Failed to extract text from resume"
	MsgJobFailed    = "Failed to fetch job posting. Please check the URL and try again."
)

// ResumeError maps a resume extraction failure onto its status and body.
// Server-side failures carry the cause in details.
func ResumeError(err error) (int, models.ErrorResponse) {
	ce := utils.AsCustomError(err)
	if ce.IsClientError() {
		return http.StatusBadRequest, models.ErrorResponse{Error: ce.Message}
	}

	details := ce.Detail
	if details == "" {
		details = ce.Error()
	}
	return http.StatusInternalServerError, models.ErrorResponse{Error: MsgResumeFailed, Details: details}
}

// JobError maps a job ingestion failure onto its status and body
func JobError(err error) (int, models.ErrorResponse) {
	ce := utils.AsCustomError(err)
	if ce.IsClientError() {
		return http.StatusBadRequest, models.ErrorResponse{Error: ce.Message}
	}
	return http.StatusInternalServerError, models.ErrorResponse{Error: MsgJobFailed}
}

// HTTPErrorHandler writes errors that escape the handlers (panics, body limit,
// unknown routes) in the same envelope the endpoints use
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	message := http.StatusText(code)

	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if m, ok := he.Message.(string); ok && m != "" {
			message = m
		} else {
			message = http.StatusText(code)
		}
	}

	if code >= http.StatusInternalServerError {
		switch c.Path() {
		case "/extract-resume":
			message = MsgResumeFailed
		case "/fetch-job":
			message = MsgJobFailed
		}
	}

	logging.GetGlobalLogger().WithContext(c.Request().Context()).Error("Request failed", map[string]interface{}{
		"status": code,
		"path":   c.Request().URL.Path,
		"error":  fmt.Sprint(err),
	})

	var writeErr error
	if c.Request().Method == http.MethodHead {
		writeErr = c.NoContent(code)
	} else {
		writeErr = c.JSON(code, models.ErrorResponse{Error: message})
	}
	if writeErr != nil {
		logging.GetGlobalLogger().Error("Failed to write error response", map[string]interface{}{"error": writeErr.Error()})
	}
}
