package browser

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fitcheck-ingest/internal/config"
	"fitcheck-ingest/internal/resilience"
)

func TestChromePath_PrefersConfiguredBinary(t *testing.T) {
	bin := filepath.Join(t.TempDir(), "chrome")
	require.NoError(t, os.WriteFile(bin, []byte("#!/bin/sh\n"), 0o755))

	assert.Equal(t, bin, chromePath(bin))
}

func TestChromePath_FallsBackToEnvironment(t *testing.T) {
	bin := filepath.Join(t.TempDir(), "chromium")
	require.NoError(t, os.WriteFile(bin, []byte("#!/bin/sh\n"), 0o755))
	t.Setenv("CHROME_BIN", bin)

	assert.Equal(t, bin, chromePath(filepath.Join(t.TempDir(), "missing")))
}

func TestBrowserEngine_LazyLaunch(t *testing.T) {
	engine := NewBrowserEngine(config.Default(), resilience.NewGuard("render", resilience.NoRetry, nil, nil))

	assert.True(t, engine.IsHealthy())
	assert.Nil(t, engine.browser)

	engine.Cleanup()
	assert.Nil(t, engine.browser)
}

func TestCheckDocumentStatus(t *testing.T) {
	for _, status := range []int{0, 200, 204, 301} {
		assert.NoError(t, checkDocumentStatus(status), status)
	}

	err := checkDocumentStatus(404)
	var statusErr *resilience.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, 404, statusErr.StatusCode)
	assert.True(t, resilience.IsPermanent(err))

	err = checkDocumentStatus(503)
	require.ErrorAs(t, err, &statusErr)
	assert.True(t, resilience.Retryable(err))
}
