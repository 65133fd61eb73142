package browser

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"fitcheck-ingest/internal/config"
	"fitcheck-ingest/internal/llm/processors"
	"fitcheck-ingest/internal/logging"
	"fitcheck-ingest/internal/logging/types"
	"fitcheck-ingest/internal/resilience"
	"fitcheck-ingest/pkg/models"
	"fitcheck-ingest/pkg/utils"
)

// BrowserEngine renders pages in a self-hosted headless Chrome.
// One browser is launched on first use and shared; every render gets its own page.
type BrowserEngine struct {
	config  *config.Config
	guard   *resilience.Guard
	cleaner *processors.HTMLCleaner
	logger  types.Logger

	mu       sync.Mutex
	launcher *launcher.Launcher
	browser  *rod.Browser
}

// NewBrowserEngine creates a browser engine; Chrome is not started until the first render
func NewBrowserEngine(cfg *config.Config, guard *resilience.Guard) *BrowserEngine {
	return &BrowserEngine{
		config:  cfg,
		guard:   guard,
		cleaner: processors.NewHTMLCleaner(),
		logger:  logging.GetGlobalLogger().WithField("engine", config.EngineBrowser),
	}
}

// Render navigates a fresh page to url and returns the cleaned text of the loaded DOM
func (b *BrowserEngine) Render(ctx context.Context, url string) (*models.RenderedPage, error) {
	var text string
	err := b.guard.Do(ctx, utils.HostOf(url), func(ctx context.Context) error {
		var err error
		text, err = b.renderOnce(ctx, url)
		return err
	})
	if err != nil {
		return nil, err
	}

	return &models.RenderedPage{
		URL:     url,
		RawText: text,
		Engine:  config.EngineBrowser,
	}, nil
}

func (b *BrowserEngine) renderOnce(ctx context.Context, url string) (string, error) {
	browser, err := b.getBrowser()
	if err != nil {
		return "", err
	}

	page, err := b.newPage(browser)
	if err != nil {
		return "", err
	}
	defer func() {
		if closeErr := page.Close(); closeErr != nil {
			b.logger.Debug("Failed to close page", map[string]interface{}{"error": closeErr.Error()})
		}
	}()

	eventCtx, stopEvents := context.WithCancel(ctx)
	defer stopEvents()

	// status of the first document response, which is the main frame
	statusCh := make(chan int, 1)
	waitDocument := page.Context(eventCtx).EachEvent(func(e *proto.NetworkResponseReceived) bool {
		if e.Type != proto.NetworkResourceTypeDocument || e.Response == nil {
			return false
		}
		statusCh <- e.Response.Status
		return true
	})
	go waitDocument()

	err = rod.Try(func() {
		page.Context(ctx).MustNavigate(url).MustWaitLoad()
	})
	if err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("navigation to %s interrupted: %w", url, ctx.Err())
		}
		return "", fmt.Errorf("failed to navigate to %s: %w", url, err)
	}

	select {
	case status := <-statusCh:
		if err := checkDocumentStatus(status); err != nil {
			return "", err
		}
	default:
		b.logger.Debug("No document response observed", map[string]interface{}{"url": url})
	}

	// let client-side rendering settle
	if wait := b.config.Renderer.Browser.WaitAfter; wait > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(wait):
		}
	}

	html, err := page.Context(ctx).HTML()
	if err != nil {
		return "", fmt.Errorf("failed to get page HTML: %w", err)
	}

	text, err := b.cleaner.ExtractJobContent(html)
	if err != nil {
		return "", resilience.Permanent(fmt.Errorf("failed to clean page HTML: %w", err))
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", resilience.Permanent(fmt.Errorf("rendered page %s has no text", url))
	}

	b.logger.Debug("Rendered page in browser", map[string]interface{}{
		"url":            url,
		"content_length": len(text),
	})
	return text, nil
}

// checkDocumentStatus treats a non-2xx/3xx target page like a failed proxy fetch
func checkDocumentStatus(status int) error {
	if status == 0 || (status >= 200 && status < 400) {
		return nil
	}
	return resilience.NewStatusError("target page", status, "")
}

func (b *BrowserEngine) newPage(browser *rod.Browser) (*rod.Page, error) {
	if b.config.Renderer.Browser.Stealth {
		page, err := stealth.Page(browser)
		if err != nil {
			return nil, fmt.Errorf("failed to create stealth page: %w", err)
		}
		return page, nil
	}

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	return page, nil
}

// getBrowser returns the shared browser, launching or relaunching it when needed
func (b *BrowserEngine) getBrowser() (*rod.Browser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.browser != nil {
		if isBrowserHealthy(b.browser) {
			return b.browser, nil
		}
		b.logger.Warn("Shared browser is unresponsive, relaunching")
		b.closeLocked()
	}

	l := b.newLauncher()
	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Cleanup()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	b.launcher = l
	b.browser = browser
	b.logger.Info("Browser launched", map[string]interface{}{
		"headless": b.config.Renderer.Browser.Headless,
		"stealth":  b.config.Renderer.Browser.Stealth,
	})
	return browser, nil
}

func (b *BrowserEngine) newLauncher() *launcher.Launcher {
	cfg := b.config.Renderer.Browser

	l := launcher.New().
		Headless(cfg.Headless).
		NoSandbox(true).
		Set("disable-blink-features", "AutomationControlled").
		Set("disable-background-timer-throttling").
		Set("disable-renderer-backgrounding").
		Set("disable-gpu").
		Set("disable-dev-shm-usage")

	if bin := chromePath(cfg.Bin); bin != "" {
		l = l.Bin(bin)
	} else {
		b.logger.Warn("System Chrome not found, rod will download a browser")
	}

	if ua := b.config.Renderer.UserAgent; ua != "" {
		l = l.Set("user-agent", ua)
	}
	return l
}

func (b *BrowserEngine) closeLocked() {
	if b.browser != nil {
		if err := b.browser.Close(); err != nil {
			b.logger.Debug("Failed to close browser", map[string]interface{}{"error": err.Error()})
		}
		b.browser = nil
	}
	if b.launcher != nil {
		b.launcher.Cleanup()
		b.launcher = nil
	}
}

// Cleanup closes the shared browser
func (b *BrowserEngine) Cleanup() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closeLocked()
	b.logger.Info("Browser engine cleanup completed")
}

// IsHealthy reports whether the shared browser responds. An engine that has
// not launched yet is healthy; the browser starts on the first render.
func (b *BrowserEngine) IsHealthy() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.browser == nil || isBrowserHealthy(b.browser)
}

func isBrowserHealthy(browser *rod.Browser) bool {
	_, err := browser.Pages()
	return err == nil
}

// chromePath resolves the Chrome binary: explicit config, then CHROME_BIN/CHROME_PATH,
// then well-known install locations
func chromePath(configured string) string {
	candidates := []string{configured, os.Getenv("CHROME_BIN"), os.Getenv("CHROME_PATH")}
	candidates = append(candidates,
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/usr/bin/google-chrome",
		"/usr/bin/google-chrome-stable",
		"/opt/google/chrome/chrome",
		"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
	)

	for _, path := range candidates {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
