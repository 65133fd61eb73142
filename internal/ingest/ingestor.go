package ingest

import (
	"context"
	"time"
	"unicode/utf8"

	"fitcheck-ingest/internal/config"
	"fitcheck-ingest/internal/llm"
	"fitcheck-ingest/internal/logging"
	"fitcheck-ingest/internal/logging/types"
	"fitcheck-ingest/internal/validation"
	"fitcheck-ingest/pkg/models"
	"fitcheck-ingest/pkg/utils"
)

// Renderer fetches a rendered text snapshot of a page
type Renderer interface {
	Render(ctx context.Context, url string) (*models.RenderedPage, error)
}

// Ingestor turns a job posting URL into a structured JobPosting
type Ingestor struct {
	renderer     Renderer
	generator    llm.Generator
	maxPageChars int
}

// NewIngestor creates an ingestor around a renderer and a generative model
func NewIngestor(cfg *config.Config, renderer Renderer, generator llm.Generator) *Ingestor {
	return &Ingestor{
		renderer:     renderer,
		generator:    generator,
		maxPageChars: cfg.Ingest.MaxPageChars,
	}
}

// Ingest validates the request, renders the page and extracts the posting.
// Rendering and extraction run strictly one after the other.
func (i *Ingestor) Ingest(ctx context.Context, req models.JobFetchRequest) (*models.JobPosting, error) {
	t := newTracker(ctx, req.JobURL)
	t.stage(models.StageReceived)

	page, err := i.fetchRendered(ctx, req.JobURL, t)
	if err != nil {
		return nil, t.fail(err)
	}

	job, err := i.extractJobInfo(ctx, page.RawText, t)
	if err != nil {
		return nil, t.fail(err)
	}

	t.stage(models.StageParsed, map[string]interface{}{
		"engine":    page.Engine,
		"truncated": page.Truncated,
		"duration":  time.Since(t.start).String(),
	})
	return job, nil
}

// FetchRendered validates url and returns its rendered snapshot, truncated to the page window
func (i *Ingestor) FetchRendered(ctx context.Context, url string) (*models.RenderedPage, error) {
	t := newTracker(ctx, url)
	page, err := i.fetchRendered(ctx, url, t)
	if err != nil {
		return nil, t.fail(err)
	}
	return page, nil
}

// ExtractJobInfo prompts the model with rawText and parses its reply
func (i *Ingestor) ExtractJobInfo(ctx context.Context, rawText string) (*models.JobPosting, error) {
	t := newTracker(ctx, "")
	job, err := i.extractJobInfo(ctx, rawText, t)
	if err != nil {
		return nil, t.fail(err)
	}
	return job, nil
}

func (i *Ingestor) fetchRendered(ctx context.Context, url string, t *tracker) (*models.RenderedPage, error) {
	t.stage(models.StageValidating)

	req := models.JobFetchRequest{JobURL: url}
	if err := validation.JobFetch(&req); err != nil {
		return nil, err
	}

	t.stage(models.StageFetching)
	page, err := i.renderer.Render(ctx, req.JobURL)
	if err != nil {
		return nil, utils.NewUpstreamFetchError(err)
	}

	var truncated bool
	page.RawText, truncated = utils.TruncateRunes(page.RawText, i.maxPageChars)
	page.Truncated = page.Truncated || truncated
	return page, nil
}

func (i *Ingestor) extractJobInfo(ctx context.Context, rawText string, t *tracker) (*models.JobPosting, error) {
	text, truncated := utils.TruncateRunes(rawText, i.maxPageChars)
	t.stage(models.StageProcessing, map[string]interface{}{
		"page_chars": utf8.RuneCountInString(text),
		"truncated":  truncated,
	})

	reply, err := i.generator.Generate(ctx, BuildJobExtractionPrompt(text))
	if err != nil {
		return nil, utils.NewExtractionError("generative model call failed", err)
	}

	job, err := ParseJobPosting(reply)
	if err != nil {
		t.logger.Debug("Unparseable model reply", map[string]interface{}{
			"reply": utils.TruncateForLog(reply, 500),
		})
		return nil, err
	}
	return job, nil
}

// tracker logs the per-request stage transitions
type tracker struct {
	logger types.Logger
	start  time.Time
}

func newTracker(ctx context.Context, url string) *tracker {
	fields := map[string]interface{}{"pipeline": "job"}
	if url != "" {
		fields["job_url"] = url
	}
	return &tracker{
		logger: logging.GetGlobalLogger().WithContext(ctx).WithFields(fields),
		start:  time.Now(),
	}
}

func (t *tracker) stage(s models.Stage, fields ...map[string]interface{}) {
	t.logger.Info("Job ingestion stage", append([]map[string]interface{}{{"stage": string(s)}}, fields...)...)
}

func (t *tracker) fail(err error) error {
	ce := utils.AsCustomError(err)
	t.logger.Warn("Job ingestion failed", map[string]interface{}{
		"stage":    string(models.StageFailed),
		"kind":     string(ce.Kind),
		"error":    ce.Error(),
		"duration": time.Since(t.start).String(),
	})
	return ce
}
