package scraper

import (
	"fmt"
	"strings"

	"fitcheck-ingest/internal/config"
	"fitcheck-ingest/internal/resilience"
	"fitcheck-ingest/internal/scraper/engines/browser"
	"fitcheck-ingest/internal/scraper/engines/firecrawl"
	"fitcheck-ingest/internal/scraper/engines/reader"
)

// DefaultScraperFactory implements ScraperFactory
type DefaultScraperFactory struct {
	config *config.Config
	guard  *resilience.Guard
}

// NewScraperFactory creates a new engine factory; every engine it builds renders through guard
func NewScraperFactory(cfg *config.Config, guard *resilience.Guard) ScraperFactory {
	if guard == nil {
		guard = resilience.NewGuard("render", resilience.RenderPolicy(cfg), nil, nil)
	}
	return &DefaultScraperFactory{
		config: cfg,
		guard:  guard,
	}
}

// CreateScraper creates a new engine instance for the given name
func (f *DefaultScraperFactory) CreateScraper(engine string) (Scraper, error) {
	switch strings.ToLower(strings.TrimSpace(engine)) {
	case config.EngineReader, "":
		return reader.NewReaderEngine(f.config, f.guard), nil
	case config.EngineFirecrawl:
		return firecrawl.NewFirecrawlEngine(f.config, f.guard)
	case config.EngineBrowser:
		return browser.NewBrowserEngine(f.config, f.guard), nil
	default:
		return nil, fmt.Errorf("unsupported rendering engine: %s", engine)
	}
}

// GetSupportedEngines returns the engine names CreateScraper accepts
func (f *DefaultScraperFactory) GetSupportedEngines() []string {
	return []string{config.EngineReader, config.EngineFirecrawl, config.EngineBrowser}
}

// New creates the engine named by renderer.engine
func New(cfg *config.Config, guard *resilience.Guard) (Scraper, error) {
	return NewScraperFactory(cfg, guard).CreateScraper(cfg.Renderer.Engine)
}
