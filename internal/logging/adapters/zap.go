package adapters

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"fitcheck-ingest/internal/logging/types"
)

// ZapConfig represents configuration for a zap-backed adapter
type ZapConfig struct {
	Format    string `yaml:"format"`    // json or text
	Colorized bool   `yaml:"colorized"` // colored levels in text format
}

// FileConfig represents configuration for the file adapter
type FileConfig struct {
	ZapConfig  `yaml:",inline"`
	FilePath   string `yaml:"file_path"`
	CreateDirs bool   `yaml:"create_dirs"`
}

// ZapAdapter writes log entries through a zap core.
// Levels are filtered by the MultiLogger, so the core accepts everything.
type ZapAdapter struct {
	name   string
	core   zapcore.Core
	closer io.Closer
	mu     sync.Mutex
	closed bool
}

// NewStdoutAdapter creates an adapter writing to stdout
func NewStdoutAdapter(name string, config ZapConfig) *ZapAdapter {
	return NewWriterAdapter(name, config, os.Stdout)
}

// NewWriterAdapter creates an adapter writing to an arbitrary writer
func NewWriterAdapter(name string, config ZapConfig, w io.Writer) *ZapAdapter {
	return &ZapAdapter{
		name: name,
		core: zapcore.NewCore(newEncoder(config), zapcore.AddSync(w), zapcore.DebugLevel),
	}
}

// NewFileAdapter creates an adapter appending to a file
func NewFileAdapter(name string, config FileConfig) (*ZapAdapter, error) {
	if config.FilePath == "" {
		return nil, fmt.Errorf("file_path is required for file adapter")
	}

	if config.CreateDirs {
		if err := os.MkdirAll(filepath.Dir(config.FilePath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create directories: %w", err)
		}
	}

	f, err := os.OpenFile(config.FilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	return &ZapAdapter{
		name:   name,
		core:   zapcore.NewCore(newEncoder(config.ZapConfig), zapcore.AddSync(f), zapcore.DebugLevel),
		closer: f,
	}, nil
}

// Write writes a log entry to the adapter's destination
func (a *ZapAdapter) Write(entry *types.LogEntry) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return fmt.Errorf("adapter %s is closed", a.name)
	}

	zapEntry := zapcore.Entry{
		Level:   toZapLevel(entry.Level),
		Time:    entry.Timestamp,
		Message: entry.Message,
	}

	// core.Write never triggers zap's fatal exit hook; MultiLogger owns that
	return a.core.Write(zapEntry, toZapFields(entry.Fields))
}

// Close flushes and closes the adapter
func (a *ZapAdapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return nil
	}
	a.closed = true

	_ = a.core.Sync()
	if a.closer != nil {
		return a.closer.Close()
	}
	return nil
}

// Health returns the health status of the adapter
func (a *ZapAdapter) Health() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return fmt.Errorf("adapter %s is closed", a.name)
	}
	return nil
}

// Name returns the name of the adapter
func (a *ZapAdapter) Name() string {
	return a.name
}

func newEncoder(config ZapConfig) zapcore.Encoder {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "time"
	encCfg.MessageKey = "message"
	encCfg.EncodeTime = zapcore.RFC3339TimeEncoder

	if strings.ToLower(config.Format) == "text" {
		if config.Colorized {
			encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		} else {
			encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		}
		return zapcore.NewConsoleEncoder(encCfg)
	}

	return zapcore.NewJSONEncoder(encCfg)
}

func toZapLevel(level types.LogLevel) zapcore.Level {
	switch level {
	case types.DebugLevel:
		return zapcore.DebugLevel
	case types.WarnLevel:
		return zapcore.WarnLevel
	case types.ErrorLevel:
		return zapcore.ErrorLevel
	case types.FatalLevel:
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

// toZapFields converts fields in key order so output is stable
func toZapFields(fields map[string]interface{}) []zapcore.Field {
	if len(fields) == 0 {
		return nil
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]zapcore.Field, 0, len(keys))
	for _, k := range keys {
		if err, ok := fields[k].(error); ok {
			out = append(out, zap.String(k, err.Error()))
			continue
		}
		out = append(out, zap.Any(k, fields[k]))
	}
	return out
}
