package scraper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fitcheck-ingest/internal/config"
	"fitcheck-ingest/internal/scraper/engines/browser"
	"fitcheck-ingest/internal/scraper/engines/firecrawl"
	"fitcheck-ingest/internal/scraper/engines/reader"
)

func TestScraperFactory_CreateScraper(t *testing.T) {
	cfg := config.Default()
	cfg.Renderer.Firecrawl.APIKey = "fc-test"
	factory := NewScraperFactory(cfg, nil)

	s, err := factory.CreateScraper(config.EngineReader)
	require.NoError(t, err)
	assert.IsType(t, &reader.ReaderEngine{}, s)

	s, err = factory.CreateScraper(" Firecrawl ")
	require.NoError(t, err)
	assert.IsType(t, &firecrawl.FirecrawlEngine{}, s)

	s, err = factory.CreateScraper(config.EngineBrowser)
	require.NoError(t, err)
	assert.IsType(t, &browser.BrowserEngine{}, s)
	s.Cleanup()

	_, err = factory.CreateScraper("headed")
	assert.Error(t, err)
	assert.ElementsMatch(t, []string{"reader", "firecrawl", "browser"}, factory.GetSupportedEngines())
}

func TestNew_UsesConfiguredEngine(t *testing.T) {
	cfg := config.Default()
	cfg.Renderer.Engine = ""

	s, err := New(cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &reader.ReaderEngine{}, s)
}
