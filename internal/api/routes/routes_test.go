package routes

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fitcheck-ingest/internal/api/handlers"
	"fitcheck-ingest/internal/config"
	"fitcheck-ingest/internal/document"
	"fitcheck-ingest/pkg/models"
)

type stubIngestor struct {
	calls int
}

func (s *stubIngestor) Ingest(ctx context.Context, req models.JobFetchRequest) (*models.JobPosting, error) {
	s.calls++
	return &models.JobPosting{Title: "Backend Engineer", Company: "Acme Co", Description: "Build APIs."}, nil
}

type healthy struct{}

func (healthy) IsHealthy() bool         { return true }
func (healthy) GetProviderName() string { return "stub" }

func docx(t *testing.T, text string) string {
	t.Helper()

	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body><w:p><w:r><w:t>` + text + `</w:t></w:r></w:p></w:body></w:document>`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func newTestServer(t *testing.T, maxBody string) (*echo.Echo, *stubIngestor) {
	t.Helper()

	cfg := config.Default()
	if maxBody != "" {
		cfg.Server.MaxBodySize = maxBody
	}

	ingestor := &stubIngestor{}
	e := echo.New()
	SetupRoutes(e, cfg, Services{
		Extractor: document.NewExtractor(cfg),
		Ingestor:  ingestor,
		Health:    handlers.Dependencies{LLM: healthy{}, Renderer: healthy{}, Engine: "reader"},
	})
	return e, ingestor
}

func serve(e *echo.Echo, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestExtractResumeRoute_DOCX(t *testing.T) {
	e, _ := newTestServer(t, "")
	text := "Jane Doe, Senior Go Engineer with a decade of distributed systems experience."

	body := `{"fileData":"` + docx(t, text) + `","fileName":"resume.docx","mimeType":"` + document.MimeDOCX + `"}`
	rec := serve(e, http.MethodPost, "/extract-resume", body, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var out map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, text, out["text"])
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
}

func TestExtractResumeRoute_NearEmptyDOCX(t *testing.T) {
	e, _ := newTestServer(t, "")

	body := `{"fileData":"` + docx(t, "Jane") + `","fileName":"resume.docx"}`
	rec := serve(e, http.MethodPost, "/extract-resume", body, nil)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var out map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, handlers.MsgResumeFailed, out["error"])
	assert.NotContains(t, out, "text")
}

func TestFetchJobRoute(t *testing.T) {
	e, ingestor := newTestServer(t, "")

	rec := serve(e, http.MethodPost, "/fetch-job", `{"jobUrl":"https://jobs.example.com/42"}`, map[string]string{
		echo.HeaderXRequestID: "client-supplied-id",
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "client-supplied-id", rec.Header().Get(echo.HeaderXRequestID))
	assert.Equal(t, 1, ingestor.calls)
}

type panicIngestor struct{}

func (panicIngestor) Ingest(ctx context.Context, req models.JobFetchRequest) (*models.JobPosting, error) {
	panic("renderer exploded")
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()

	var out map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	require.Contains(t, out, "error")
	assert.NotContains(t, out, "message")
	return out
}

func TestBodyLimit(t *testing.T) {
	e, _ := newTestServer(t, "1K")

	body := `{"fileData":"` + strings.Repeat("A", 4096) + `"}`
	rec := serve(e, http.MethodPost, "/extract-resume", body, nil)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.NotEmpty(t, decodeError(t, rec)["error"])
}

func TestPanicUsesErrorEnvelope(t *testing.T) {
	cfg := config.Default()
	e := echo.New()
	SetupRoutes(e, cfg, Services{
		Extractor: document.NewExtractor(cfg),
		Ingestor:  panicIngestor{},
		Health:    handlers.Dependencies{LLM: healthy{}, Renderer: healthy{}},
	})

	rec := serve(e, http.MethodPost, "/fetch-job", `{"jobUrl":"https://jobs.example.com/42"}`, nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, map[string]string{"error": handlers.MsgJobFailed}, decodeError(t, rec))
}

func TestUnknownRoutesUseErrorEnvelope(t *testing.T) {
	e, _ := newTestServer(t, "")

	rec := serve(e, http.MethodGet, "/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NotEmpty(t, decodeError(t, rec)["error"])

	rec = serve(e, http.MethodGet, "/fetch-job", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.NotEmpty(t, decodeError(t, rec)["error"])
}

func TestOperationalRoutes(t *testing.T) {
	e, _ := newTestServer(t, "")

	for _, path := range []string{"/", "/health", "/health/ready", "/health/live", "/status"} {
		rec := serve(e, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}
