package document

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"fitcheck-ingest/internal/config"
	"fitcheck-ingest/internal/logging"
	"fitcheck-ingest/internal/validation"
	"fitcheck-ingest/pkg/models"
	"fitcheck-ingest/pkg/utils"
)

// Extractor turns an uploaded resume into plain text
type Extractor struct {
	registry      *Registry
	minTextLength int
}

// NewExtractor creates an extractor using the default decoder table
func NewExtractor(cfg *config.Config) *Extractor {
	return NewExtractorWithRegistry(DefaultRegistry(int64(cfg.Ingest.MaxDocBytes)), cfg.Ingest.MinTextLength)
}

// NewExtractorWithRegistry creates an extractor with an explicit decoder table
func NewExtractorWithRegistry(registry *Registry, minTextLength int) *Extractor {
	return &Extractor{
		registry:      registry,
		minTextLength: minTextLength,
	}
}

// Extract validates the request, decodes the document and enforces the minimum text length.
// The decoded buffer does not outlive the call.
func (e *Extractor) Extract(ctx context.Context, req models.ExtractionRequest) (*models.ExtractedText, error) {
	start := time.Now()
	logger := logging.GetGlobalLogger().WithContext(ctx).WithFields(map[string]interface{}{
		"pipeline":  "resume",
		"file_name": req.FileName,
		"mime_type": req.MimeType,
	})

	stage := func(s models.Stage, fields ...map[string]interface{}) {
		logger.Info("Resume extraction stage", append([]map[string]interface{}{{"stage": string(s)}}, fields...)...)
	}
	fail := func(err error) (*models.ExtractedText, error) {
		ce := utils.AsCustomError(err)
		logger.Warn("Resume extraction failed", map[string]interface{}{
			"stage":    string(models.StageFailed),
			"kind":     string(ce.Kind),
			"error":    ce.Error(),
			"duration": time.Since(start).String(),
		})
		return nil, ce
	}

	stage(models.StageReceived)
	stage(models.StageValidating)

	data, err := validation.Extraction(&req)
	if err != nil {
		return fail(err)
	}

	contentType, decoder, ok := e.registry.Resolve(req.MimeType, req.FileName, data)
	if !ok {
		return fail(utils.NewExtractionError(
			"unsupported document format",
			fmt.Errorf("supported types: %s", strings.Join(e.SupportedTypes(), ", ")),
		))
	}

	if err := ctx.Err(); err != nil {
		return fail(utils.NewExtractionError("request cancelled", err))
	}

	stage(models.StageProcessing, map[string]interface{}{
		"content_type": contentType,
		"size_bytes":   len(data),
	})

	raw, err := decoder.Decode(data)
	if err != nil {
		return fail(utils.NewExtractionError("failed to decode document", err))
	}

	text := strings.TrimSpace(raw)
	if length := utf8.RuneCountInString(text); length < e.minTextLength {
		return fail(utils.NewQualityThresholdError(length, e.minTextLength))
	}

	stage(models.StageParsed, map[string]interface{}{
		"text_length": utf8.RuneCountInString(text),
		"duration":    time.Since(start).String(),
	})

	return &models.ExtractedText{Text: text}, nil
}

// SupportedTypes lists the content types the extractor can decode
func (e *Extractor) SupportedTypes() []string {
	return e.registry.Types()
}
