package logging

import (
	"fmt"
	"io"
	"sync"

	"fitcheck-ingest/internal/config"
	"fitcheck-ingest/internal/logging/adapters"
)

// Manager manages the logging system initialization and configuration
type Manager struct {
	factory *AdapterFactory
	logger  *MultiLogger
}

// NewManager creates a new logging manager
func NewManager() *Manager {
	return &Manager{
		factory: NewAdapterFactory(),
		logger:  NewMultiLogger(),
	}
}

// Initialize initializes the logging system from configuration
func (m *Manager) Initialize(cfg *config.Config) error {
	m.logger.SetLevel(ParseLogLevel(cfg.Logging.Level))

	if len(cfg.Logging.Adapters) > 0 {
		return m.initializeFromAdapters(cfg.Logging.Adapters)
	}

	return m.initializeFromLegacyConfig(cfg)
}

// initializeFromAdapters initializes every enabled adapter
func (m *Manager) initializeFromAdapters(adapterConfigs []config.AdapterConfig) error {
	for _, adapterConfig := range adapterConfigs {
		if !adapterConfig.Enabled {
			continue
		}

		adapter, err := m.factory.CreateAdapter(AdapterConfig{
			Name:    adapterConfig.Name,
			Type:    adapterConfig.Type,
			Enabled: adapterConfig.Enabled,
			Options: adapterConfig.Options,
		})
		if err != nil {
			return fmt.Errorf("failed to create adapter %s: %w", adapterConfig.Name, err)
		}

		if err := m.logger.AddAdapter(adapter); err != nil {
			return fmt.Errorf("failed to add adapter %s: %w", adapterConfig.Name, err)
		}
	}

	return nil
}

// initializeFromLegacyConfig builds a single sink from logging.format and logging.output
func (m *Manager) initializeFromLegacyConfig(cfg *config.Config) error {
	zapConfig := adapters.ZapConfig{Format: cfg.Logging.Format}

	var adapter LogAdapter
	switch cfg.Logging.Output {
	case "", "stdout":
		adapter = adapters.NewStdoutAdapter("stdout", zapConfig)
	default:
		fileAdapter, err := adapters.NewFileAdapter("file", adapters.FileConfig{
			ZapConfig:  zapConfig,
			FilePath:   cfg.Logging.Output,
			CreateDirs: true,
		})
		if err != nil {
			return err
		}
		adapter = fileAdapter
	}

	if err := m.logger.AddAdapter(adapter); err != nil {
		return fmt.Errorf("failed to add %s adapter: %w", adapter.Name(), err)
	}

	return nil
}

// GetLogger returns the initialized logger
func (m *Manager) GetLogger() Logger {
	return m.logger
}

// Health reports the status of each adapter
func (m *Manager) Health() map[string]error {
	return m.logger.Health()
}

// Close closes the logging system
func (m *Manager) Close() error {
	if m.logger != nil {
		return m.logger.Close()
	}
	return nil
}

var (
	globalManager *Manager
	globalMu      sync.Mutex
)

// InitializeLogging initializes the global logging system
func InitializeLogging(cfg *config.Config) error {
	manager := NewManager()
	if err := manager.Initialize(cfg); err != nil {
		return err
	}

	globalMu.Lock()
	globalManager = manager
	globalMu.Unlock()
	return nil
}

// UseWriter replaces the global logger with one writing JSON to w.
// Intended for tests and for the CLI, which keeps stdout for results.
func UseWriter(w io.Writer, level LogLevel) {
	manager := NewManager()
	manager.logger.SetLevel(level)
	_ = manager.logger.AddAdapter(adapters.NewWriterAdapter("writer", adapters.ZapConfig{Format: "json"}, w))

	globalMu.Lock()
	globalManager = manager
	globalMu.Unlock()
}

// GetGlobalLogger returns the global logger instance
func GetGlobalLogger() Logger {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalManager == nil {
		manager := NewManager()
		_ = manager.logger.AddAdapter(adapters.NewStdoutAdapter("fallback_stdout", adapters.ZapConfig{Format: "json"}))
		globalManager = manager
	}
	return globalManager.GetLogger()
}

// GlobalHealth reports adapter status of the global logger
func GlobalHealth() map[string]error {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalManager == nil {
		return nil
	}
	return globalManager.Health()
}

// CloseLogging closes the global logging system
func CloseLogging() error {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalManager != nil {
		return globalManager.Close()
	}
	return nil
}

func Debug(message string, fields ...map[string]interface{}) {
	GetGlobalLogger().Debug(message, fields...)
}

func Info(message string, fields ...map[string]interface{}) {
	GetGlobalLogger().Info(message, fields...)
}

func Warn(message string, fields ...map[string]interface{}) {
	GetGlobalLogger().Warn(message, fields...)
}

func Error(message string, fields ...map[string]interface{}) {
	GetGlobalLogger().Error(message, fields...)
}

func Fatal(message string, fields ...map[string]interface{}) {
	GetGlobalLogger().Fatal(message, fields...)
}
