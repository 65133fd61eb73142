package logging

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fitcheck-ingest/internal/config"
	"fitcheck-ingest/internal/logging/adapters"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()

	var lines []map[string]interface{}
	scanner := bufio.NewScanner(buf)
	for scanner.Scan() {
		var line map[string]interface{}
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &line))
		lines = append(lines, line)
	}
	return lines
}

func newBufferedLogger(t *testing.T, level LogLevel) (*MultiLogger, *bytes.Buffer) {
	t.Helper()

	buf := &bytes.Buffer{}
	logger := NewMultiLogger()
	logger.SetLevel(level)
	require.NoError(t, logger.AddAdapter(adapters.NewWriterAdapter("buffer", adapters.ZapConfig{Format: "json"}, buf)))
	return logger, buf
}

func TestMultiLogger_WritesFields(t *testing.T) {
	logger, buf := newBufferedLogger(t, DebugLevel)

	logger.WithField("component", "ingest").Info("stage transition", map[string]interface{}{
		"stage": "FETCHING",
	})

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "info", lines[0]["level"])
	assert.Equal(t, "stage transition", lines[0]["message"])
	assert.Equal(t, "ingest", lines[0]["component"])
	assert.Equal(t, "FETCHING", lines[0]["stage"])
}

func TestMultiLogger_LevelFiltering(t *testing.T) {
	logger, buf := newBufferedLogger(t, WarnLevel)

	logger.Debug("hidden")
	logger.Info("hidden")
	logger.Warn("shown")
	logger.Error("shown too")

	assert.Len(t, decodeLines(t, buf), 2)
}

func TestMultiLogger_WithContextCarriesRequestID(t *testing.T) {
	logger, buf := newBufferedLogger(t, InfoLevel)

	ctx := ContextWithRequestID(context.Background(), "req-123")
	logger.WithContext(ctx).Info("handled")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "req-123", lines[0]["request_id"])
}

func TestMultiLogger_DerivedLoggersDoNotLeakFields(t *testing.T) {
	logger, buf := newBufferedLogger(t, InfoLevel)

	_ = logger.WithField("leak", true)
	logger.Info("plain")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	_, present := lines[0]["leak"]
	assert.False(t, present)
}

func TestMultiLogger_FatalUsesExitHook(t *testing.T) {
	logger, buf := newBufferedLogger(t, InfoLevel)

	code := -1
	logger.exit = func(c int) { code = c }
	logger.Fatal("boom")

	assert.Equal(t, 1, code)
	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "fatal", lines[0]["level"])
}

func TestMultiLogger_DuplicateAdapter(t *testing.T) {
	logger, _ := newBufferedLogger(t, InfoLevel)

	err := logger.AddAdapter(adapters.NewWriterAdapter("buffer", adapters.ZapConfig{}, &bytes.Buffer{}))
	assert.Error(t, err)
	assert.Error(t, logger.RemoveAdapter("missing"))
	assert.NoError(t, logger.RemoveAdapter("buffer"))
}

func TestManager_FileAdapterFromConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "ingest.log")

	cfg := config.Default()
	cfg.Logging.Level = "debug"
	cfg.Logging.Adapters = []config.AdapterConfig{
		{Name: "disk", Type: "file", Enabled: true, Options: map[string]interface{}{"file_path": path}},
		{Name: "off", Type: "stdout", Enabled: false},
	}

	manager := NewManager()
	require.NoError(t, manager.Initialize(cfg))

	manager.GetLogger().Debug("written to disk")
	health := manager.Health()
	assert.Contains(t, health, "disk")
	assert.NotContains(t, health, "off")
	require.NoError(t, manager.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "written to disk")
}

func TestManager_UnknownAdapterType(t *testing.T) {
	cfg := config.Default()
	cfg.Logging.Adapters = []config.AdapterConfig{{Name: "x", Type: "betterstack", Enabled: true}}

	assert.Error(t, NewManager().Initialize(cfg))
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, DebugLevel, ParseLogLevel("DEBUG"))
	assert.Equal(t, WarnLevel, ParseLogLevel("warning"))
	assert.Equal(t, InfoLevel, ParseLogLevel("nonsense"))
}
