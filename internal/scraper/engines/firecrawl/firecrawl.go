package firecrawl

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/mendableai/firecrawl-go"

	"fitcheck-ingest/internal/config"
	"fitcheck-ingest/internal/llm/processors"
	"fitcheck-ingest/internal/logging"
	"fitcheck-ingest/internal/logging/types"
	"fitcheck-ingest/internal/resilience"
	"fitcheck-ingest/pkg/models"
	"fitcheck-ingest/pkg/utils"
)

var (
	// the SDK reports unexpected statuses as "... Status code 503. ..."
	statusCodeRegex = regexp.MustCompile(`Status code (\d{3})`)

	// prefixes the SDK uses for the statuses it names explicitly
	namedStatuses = map[string]int{
		"Payment Required":      402,
		"Conflict":              409,
		"Internal Server Error": 500,
	}
)

// FirecrawlEngine renders pages through the Firecrawl scrape API
type FirecrawlEngine struct {
	config  *config.Config
	guard   *resilience.Guard
	app     *firecrawl.FirecrawlApp
	cleaner *processors.HTMLCleaner
	logger  types.Logger
}

// NewFirecrawlEngine creates a new Firecrawl engine instance
func NewFirecrawlEngine(cfg *config.Config, guard *resilience.Guard) (*FirecrawlEngine, error) {
	logger := logging.GetGlobalLogger().WithField("engine", config.EngineFirecrawl)

	app, err := firecrawl.NewFirecrawlApp(
		cfg.Renderer.Firecrawl.APIKey,
		cfg.Renderer.Firecrawl.APIURL,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firecrawl: %w", err)
	}

	logger.Info("Firecrawl engine initialized", map[string]interface{}{
		"api_url": cfg.Renderer.Firecrawl.APIURL,
		"formats": cfg.Renderer.Firecrawl.Formats,
	})

	return &FirecrawlEngine{
		config:  cfg,
		guard:   guard,
		app:     app,
		cleaner: processors.NewHTMLCleaner(),
		logger:  logger,
	}, nil
}

// Render scrapes url and returns its markdown, or cleaned HTML when no markdown came back
func (f *FirecrawlEngine) Render(ctx context.Context, url string) (*models.RenderedPage, error) {
	var content string
	err := f.guard.Do(ctx, utils.HostOf(url), func(ctx context.Context) error {
		var err error
		content, err = f.scrapeContent(ctx, url)
		return err
	})
	if err != nil {
		return nil, err
	}

	return &models.RenderedPage{
		URL:     url,
		RawText: content,
		Engine:  config.EngineFirecrawl,
	}, nil
}

type scrapeOutcome struct {
	doc *firecrawl.FirecrawlDocument
	err error
}

// scrapeContent performs one Firecrawl scrape. The SDK call takes no context,
// so it runs in its own goroutine and is abandoned when ctx ends.
func (f *FirecrawlEngine) scrapeContent(ctx context.Context, url string) (string, error) {
	params := &firecrawl.ScrapeParams{
		Formats: f.formats(),
	}

	done := make(chan scrapeOutcome, 1)
	go func() {
		doc, err := f.app.ScrapeURL(url, params)
		done <- scrapeOutcome{doc: doc, err: err}
	}()

	var outcome scrapeOutcome
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("firecrawl scrape interrupted: %w", ctx.Err())
	case outcome = <-done:
	}

	if outcome.err != nil {
		return "", classifyError(outcome.err)
	}
	if outcome.doc == nil {
		return "", resilience.Permanent(fmt.Errorf("no result returned from Firecrawl"))
	}

	var content string
	switch {
	case strings.TrimSpace(outcome.doc.Markdown) != "":
		content = outcome.doc.Markdown
	case strings.TrimSpace(outcome.doc.HTML) != "":
		cleaned, err := f.cleaner.ExtractJobContent(outcome.doc.HTML)
		if err != nil {
			return "", resilience.Permanent(fmt.Errorf("failed to clean Firecrawl HTML: %w", err))
		}
		content = cleaned
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return "", resilience.Permanent(fmt.Errorf("no content found in Firecrawl response"))
	}

	f.logger.Debug("Firecrawl scrape succeeded", map[string]interface{}{
		"url":            url,
		"content_length": len(content),
	})
	return content, nil
}

func (f *FirecrawlEngine) formats() []string {
	if len(f.config.Renderer.Firecrawl.Formats) > 0 {
		return f.config.Renderer.Firecrawl.Formats
	}
	return []string{"markdown"}
}

// classifyError maps SDK error text onto resilience status errors
func classifyError(err error) error {
	msg := err.Error()

	if m := statusCodeRegex.FindStringSubmatch(msg); m != nil {
		if code, convErr := strconv.Atoi(m[1]); convErr == nil {
			return fmt.Errorf("firecrawl scrape failed: %w", resilience.NewStatusError(config.EngineFirecrawl, code, msg))
		}
	}

	for prefix, code := range namedStatuses {
		if strings.HasPrefix(msg, prefix) {
			return fmt.Errorf("firecrawl scrape failed: %w", resilience.NewStatusError(config.EngineFirecrawl, code, msg))
		}
	}

	return fmt.Errorf("firecrawl scrape failed: %w", err)
}

// Cleanup releases any resources used by the engine
func (f *FirecrawlEngine) Cleanup() {
	f.logger.Info("Cleaning up Firecrawl engine resources")
}

// IsHealthy checks if the engine is ready to process requests
func (f *FirecrawlEngine) IsHealthy() bool {
	return f.app != nil && f.config.Renderer.Firecrawl.APIKey != ""
}
