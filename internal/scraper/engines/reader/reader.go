package reader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"fitcheck-ingest/internal/config"
	"fitcheck-ingest/internal/llm/processors"
	"fitcheck-ingest/internal/logging"
	"fitcheck-ingest/internal/logging/types"
	"fitcheck-ingest/internal/resilience"
	"fitcheck-ingest/pkg/models"
	"fitcheck-ingest/pkg/utils"
)

// maxResponseBytes caps how much of a proxy response is read
const maxResponseBytes = 8 << 20

// ErrEmptySnapshot is returned when the proxy answers 2xx with no usable text
var ErrEmptySnapshot = errors.New("rendering proxy returned an empty snapshot")

// ReaderEngine renders pages through a reader-style proxy: GET <base_url>/<target url>
// returns the rendered page as text, markdown or HTML
type ReaderEngine struct {
	config  *config.Config
	guard   *resilience.Guard
	client  *http.Client
	cleaner *processors.HTMLCleaner
	logger  types.Logger
}

// NewReaderEngine creates a reader proxy engine
func NewReaderEngine(cfg *config.Config, guard *resilience.Guard) *ReaderEngine {
	return &ReaderEngine{
		config:  cfg,
		guard:   guard,
		client:  &http.Client{},
		cleaner: processors.NewHTMLCleaner(),
		logger:  logging.GetGlobalLogger().WithField("engine", config.EngineReader),
	}
}

// Render fetches the rendered snapshot of url
func (r *ReaderEngine) Render(ctx context.Context, url string) (*models.RenderedPage, error) {
	var text string
	err := r.guard.Do(ctx, utils.HostOf(url), func(ctx context.Context) error {
		var err error
		text, err = r.fetch(ctx, url)
		return err
	})
	if err != nil {
		return nil, err
	}

	return &models.RenderedPage{
		URL:     url,
		RawText: text,
		Engine:  config.EngineReader,
	}, nil
}

func (r *ReaderEngine) fetch(ctx context.Context, url string) (string, error) {
	endpoint := strings.TrimRight(r.config.Renderer.Reader.BaseURL, "/") + "/" + url
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", resilience.Permanent(fmt.Errorf("failed to build proxy request: %w", err))
	}

	req.Header.Set("Accept", "text/plain")
	req.Header.Set("X-Return-Format", "text")
	if key := r.config.Renderer.Reader.APIKey; key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}
	if ua := r.config.Renderer.UserAgent; ua != "" {
		req.Header.Set("User-Agent", ua)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("rendering proxy request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read proxy response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", resilience.NewStatusError(config.EngineReader, resp.StatusCode, utils.TruncateForLog(string(body), 200))
	}

	text := string(body)
	if processors.LooksLikeHTML(text) {
		cleaned, err := r.cleaner.ExtractJobContent(text)
		if err != nil {
			return "", resilience.Permanent(fmt.Errorf("failed to clean proxy markup: %w", err))
		}
		text = cleaned
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", resilience.Permanent(ErrEmptySnapshot)
	}

	r.logger.Debug("Rendered page via proxy", map[string]interface{}{
		"url":            url,
		"status":         resp.StatusCode,
		"content_length": len(text),
	})
	return text, nil
}

// Cleanup releases idle proxy connections
func (r *ReaderEngine) Cleanup() {
	r.client.CloseIdleConnections()
}

// IsHealthy reports whether a proxy endpoint is configured
func (r *ReaderEngine) IsHealthy() bool {
	return strings.TrimSpace(r.config.Renderer.Reader.BaseURL) != ""
}
