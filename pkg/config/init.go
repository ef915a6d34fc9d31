package config

import (
	"fmt"

	"github.com/danghamo/stride/pkg/logger"
)

// Initialize loads configuration and sets up global logger
func Initialize() (*Config, *logger.Logger, error) {
	cfg, err := Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := NewLogger(cfg.Log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}

	logger.SetGlobalLogger(appLogger)

	fields := map[string]interface{}{
		"environment":   cfg.Server.Environment,
		"server_port":   cfg.Server.Port,
		"tick_interval": cfg.Tracking.TickInterval.String(),
		"topic_prefix":  cfg.Events.TopicPrefix,
		"log_level":     cfg.Log.Level,
		"log_encoding":  cfg.Log.Encoding,
	}
	appLogger.WithFields(fields).Info("Configuration and logger initialized successfully")

	return cfg, appLogger, nil
}

// NewLogger builds a logger from the log section
func NewLogger(cfg LogConfig) (*logger.Logger, error) {
	return logger.New(logger.Config{
		Level:       logger.ParseLevel(cfg.Level),
		Environment: cfg.Environment,
		Encoding:    cfg.Encoding,
	})
}
