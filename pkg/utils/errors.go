package utils

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies a failure for the boundary that converts it into a response
type ErrorKind string

const (
	KindClientInput      ErrorKind = "client_input"
	KindUpstreamFetch    ErrorKind = "upstream_fetch"
	KindExtraction       ErrorKind = "extraction"
	KindQualityThreshold ErrorKind = "quality_threshold"
)

// CustomError represents a custom application error
type CustomError struct {
	Code    int       `json:"code"`
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
	Detail  string    `json:"detail,omitempty"`
	Cause   error     `json:"-"`
}

func (e *CustomError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s", e.Message, e.Detail)
	}
	return e.Message
}

func (e *CustomError) Unwrap() error {
	return e.Cause
}

// IsClientError reports whether the error should be answered with a 4xx
func (e *CustomError) IsClientError() bool {
	return e.Code >= 400 && e.Code < 500
}

// NewClientInputError is returned for missing or malformed request fields
func NewClientInputError(message string) *CustomError {
	return &CustomError{
		Code:    http.StatusBadRequest,
		Kind:    KindClientInput,
		Message: message,
	}
}

// NewUpstreamFetchError is returned when the rendering proxy is unreachable or answers non-2xx
func NewUpstreamFetchError(cause error) *CustomError {
	return &CustomError{
		Code:    http.StatusInternalServerError,
		Kind:    KindUpstreamFetch,
		Message: "Upstream fetch failed",
		Detail:  causeText(cause),
		Cause:   cause,
	}
}

// NewExtractionError is returned when a document cannot be decoded or the
// model response cannot be parsed into the expected JSON shape
func NewExtractionError(detail string, cause error) *CustomError {
	if cause != nil {
		detail = fmt.Sprintf("%s: %v", detail, cause)
	}
	return &CustomError{
		Code:    http.StatusInternalServerError,
		Kind:    KindExtraction,
		Message: "Extraction failed",
		Detail:  detail,
		Cause:   cause,
	}
}

// NewQualityThresholdError is returned when decoded text is too short to be meaningful.
// Callers see it exactly like an extraction error.
func NewQualityThresholdError(length, minimum int) *CustomError {
	return &CustomError{
		Code:    http.StatusInternalServerError,
		Kind:    KindQualityThreshold,
		Message: "Extraction failed",
		Detail:  fmt.Sprintf("extracted text too short (%d < %d characters)", length, minimum),
	}
}

// AsCustomError unwraps err into a CustomError, treating unknown errors as extraction failures
func AsCustomError(err error) *CustomError {
	var ce *CustomError
	if errors.As(err, &ce) {
		return ce
	}
	return NewExtractionError("unexpected failure", err)
}

func causeText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
