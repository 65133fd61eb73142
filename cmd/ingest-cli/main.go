package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fatih/color"

	"fitcheck-ingest/internal/config"
	"fitcheck-ingest/internal/document"
	"fitcheck-ingest/internal/ingest"
	"fitcheck-ingest/internal/llm"
	"fitcheck-ingest/internal/logging"
	"fitcheck-ingest/internal/resilience"
	"fitcheck-ingest/internal/scraper"
	"fitcheck-ingest/pkg/models"
	"fitcheck-ingest/pkg/utils"
)

var (
	errColor   = color.New(color.FgRed, color.Bold)
	okColor    = color.New(color.FgGreen, color.Bold)
	labelColor = color.New(color.FgCyan)
)

const usage = `Usage:
  ingest-cli resume <file.docx>   extract plain text from a resume
  ingest-cli job <url>            fetch and structure a job posting
`

func main() {
	if len(os.Args) != 3 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.LoadConfig(utils.GetStringOrDefault(os.Getenv("CONFIG_PATH"), "configs/config.yaml"))
	if err != nil {
		fail(fmt.Errorf("failed to load configuration: %w", err))
	}

	// stdout carries results; logs go to stderr
	logging.UseWriter(os.Stderr, logging.ParseLogLevel(utils.GetStringOrDefault(os.Getenv("LOG_LEVEL"), "warn")))
	defer logging.CloseLogging()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logging.ContextWithRequestID(ctx, utils.GenerateRequestID())

	switch os.Args[1] {
	case "resume":
		err = runResume(ctx, cfg, os.Args[2], os.Stdout)
	case "job":
		err = runJob(ctx, cfg, os.Args[2], os.Stdout)
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	if err != nil {
		fail(err)
	}
}

func runResume(ctx context.Context, cfg *config.Config, path string, out io.Writer) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	result, err := document.NewExtractor(cfg).Extract(ctx, models.ExtractionRequest{
		FileData: base64.StdEncoding.EncodeToString(data),
		FileName: filepath.Base(path),
	})
	if err != nil {
		return err
	}

	okColor.Fprintf(out, "Extracted %d characters from %s\n\n", len([]rune(result.Text)), filepath.Base(path))
	fmt.Fprintln(out, result.Text)
	return nil
}

func runJob(ctx context.Context, cfg *config.Config, url string, out io.Writer) error {
	renderGuard, llmGuard, err := resilience.NewGuards(ctx, cfg)
	if err != nil {
		return err
	}
	defer renderGuard.Close()

	llmManager := llm.NewManager(cfg, llmGuard)
	if err := llmManager.Start(ctx); err != nil {
		return err
	}
	defer llmManager.Stop()

	renderer, err := scraper.New(cfg, renderGuard)
	if err != nil {
		return err
	}
	defer renderer.Cleanup()

	job, err := ingest.NewIngestor(cfg, renderer, llmManager).Ingest(ctx, models.JobFetchRequest{JobURL: url})
	if err != nil {
		return err
	}

	labelColor.Fprint(out, "Title:   ")
	fmt.Fprintln(out, job.Title)
	labelColor.Fprint(out, "Company: ")
	fmt.Fprintln(out, job.Company)
	labelColor.Fprintln(out, "Description:")
	fmt.Fprintln(out, job.Description)
	return nil
}

func fail(err error) {
	ce := utils.AsCustomError(err)
	errColor.Fprintf(os.Stderr, "Error: %s\n", ce.Message)
	if ce.Detail != "" {
		fmt.Fprintf(os.Stderr, "  %s\n", ce.Detail)
	}
	os.Exit(1)
}
