package validation

import (
	"encoding/base64"
	"errors"
	"net/url"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"fitcheck-ingest/pkg/models"
	"fitcheck-ingest/pkg/utils"
)

// Client-facing messages for rejected input
const (
	MsgMissingFileData  = "Missing fileData parameter"
	MsgInvalidFileData  = "Invalid fileData encoding"
	MsgMissingJobURL    = "Missing jobUrl parameter"
	MsgInvalidURLFormat = "Invalid URL format"
	MsgInvalidBody      = "Invalid request body"
)

var (
	instance *validator.Validate
	once     sync.Once
)

// Validator returns the shared validator with custom tags registered
func Validator() *validator.Validate {
	once.Do(func() {
		instance = validator.New()
		RegisterIngestValidators(instance)
	})
	return instance
}

// RegisterIngestValidators registers all ingestion-related custom validators
func RegisterIngestValidators(v *validator.Validate) {
	v.RegisterValidation("absolute_url", ValidateAbsoluteURL)
}

// ValidateAbsoluteURL accepts only http(s) URLs with a host
func ValidateAbsoluteURL(fl validator.FieldLevel) bool {
	return IsAbsoluteURL(fl.Field().String())
}

// IsAbsoluteURL reports whether raw parses as an absolute http or https URL with a host
func IsAbsoluteURL(raw string) bool {
	if raw == "" || strings.ContainsAny(raw, " \t\r\n") {
		return false
	}

	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() {
		return false
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return false
	}

	return u.Hostname() != ""
}

// JobFetch normalizes and validates a job fetch request in place
func JobFetch(req *models.JobFetchRequest) error {
	req.JobURL = strings.TrimSpace(req.JobURL)

	if err := Validator().Struct(req); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 && fieldErrs[0].Tag() == "required" {
			return utils.NewClientInputError(MsgMissingJobURL)
		}
		return utils.NewClientInputError(MsgInvalidURLFormat)
	}

	return nil
}

// Extraction validates an extraction request and returns the decoded document bytes
func Extraction(req *models.ExtractionRequest) ([]byte, error) {
	req.FileData = strings.TrimSpace(req.FileData)

	if err := Validator().Struct(req); err != nil {
		return nil, utils.NewClientInputError(MsgMissingFileData)
	}

	data, err := DecodeFileData(req.FileData)
	if err != nil || len(data) == 0 {
		return nil, utils.NewClientInputError(MsgInvalidFileData)
	}

	return data, nil
}

// DecodeFileData decodes standard base64, tolerating a data URL prefix and line breaks
func DecodeFileData(payload string) ([]byte, error) {
	if strings.HasPrefix(payload, "data:") {
		idx := strings.Index(payload, ";base64,")
		if idx < 0 {
			return nil, errors.New("data URL is not base64 encoded")
		}
		payload = payload[idx+len(";base64,"):]
	}

	payload = strings.NewReplacer("\n", "", "\r", "").Replace(payload)
	return base64.StdEncoding.DecodeString(payload)
}
