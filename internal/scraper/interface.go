package scraper

import (
	"context"

	"fitcheck-ingest/pkg/models"
)

// Scraper defines the interface for all rendering engines
type Scraper interface {
	// Render returns a text snapshot of the page at url as a browser would see it
	Render(ctx context.Context, url string) (*models.RenderedPage, error)

	// Cleanup releases any resources used by the engine
	Cleanup()

	// IsHealthy returns true if the engine is ready to render
	IsHealthy() bool
}

// ScraperFactory creates rendering engines by name
type ScraperFactory interface {
	// CreateScraper creates a new engine instance for the given name
	CreateScraper(engine string) (Scraper, error)

	// GetSupportedEngines returns the engine names CreateScraper accepts
	GetSupportedEngines() []string
}
