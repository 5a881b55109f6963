// Package logging builds the structured logger every component
// records through.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/rohmanhakim/image-cache/internal/config"
)

// InitLogger creates a JSON structured logger from the configuration.
// When a log file path is configured the output rotates through
// lumberjack; otherwise logs go to stderr.
func InitLogger(cfg config.Config) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(cfg.LogLevel())
	if err != nil {
		return nil, fmt.Errorf("cannot parse log level: %w", err)
	}

	output, outErr := buildOutput(cfg)
	if outErr != nil {
		fmt.Fprintf(os.Stderr, "logger_fallback: %v\n", outErr)
	}

	logger := logrus.New()
	logger.SetLevel(level)
	logger.SetOutput(output)
	logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})

	if outErr != nil {
		logger.WithFields(logrus.Fields{
			"action": "logger_fallback",
			"path":   cfg.LogFilePath(),
		}).Warn(outErr.Error())
	}

	return logger, nil
}

// buildOutput creates the log writer; on failure it degrades to
// stderr and returns the error for the caller to surface.
func buildOutput(cfg config.Config) (io.Writer, error) {
	if cfg.LogFilePath() == "" {
		return os.Stderr, nil
	}

	dir := filepath.Dir(cfg.LogFilePath())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return os.Stderr, fmt.Errorf("failed to create log directory: %w", err)
	}

	rotator := &lumberjack.Logger{
		Filename:   cfg.LogFilePath(),
		MaxSize:    cfg.LogMaxSizeMB(),
		MaxBackups: cfg.LogMaxBackups(),
		Compress:   cfg.LogCompress(),
		LocalTime:  true,
	}
	return rotator, nil
}
