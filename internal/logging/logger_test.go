package logging_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/rohmanhakim/image-cache/internal/config"
	"github.com/rohmanhakim/image-cache/internal/logging"
)

func TestInitLogger_InvalidLevel(t *testing.T) {
	cfg, err := config.WithDefault().WithLogLevel("noisy").Build()
	if err != nil {
		t.Fatalf("unexpected config error: %v", err)
	}

	_, err = logging.InitLogger(cfg)
	if err == nil {
		t.Fatal("expected an error for an unknown log level")
	}
}

func TestInitLogger_WritesJSONToFile(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "logs", "cache.log")
	cfg, err := config.WithDefault().
		WithLogLevel("debug").
		WithLogFilePath(logPath).
		Build()
	if err != nil {
		t.Fatalf("unexpected config error: %v", err)
	}

	logger, err := logging.InitLogger(cfg)
	if err != nil {
		t.Fatalf("unexpected logger error: %v", err)
	}
	if logger.GetLevel() != logrus.DebugLevel {
		t.Errorf("expected debug level, got %v", logger.GetLevel())
	}

	logger.WithField("url", "http://example.com/a.jpg").Info("fetch completed")

	content, readErr := os.ReadFile(logPath)
	if readErr != nil {
		t.Fatalf("failed to read log file: %v", readErr)
	}

	var entry map[string]any
	if jsonErr := json.Unmarshal(content, &entry); jsonErr != nil {
		t.Fatalf("log line is not JSON: %v", jsonErr)
	}
	if entry["url"] != "http://example.com/a.jpg" {
		t.Errorf("expected url field, got %v", entry)
	}
	if entry["msg"] != "fetch completed" {
		t.Errorf("expected msg field, got %v", entry)
	}
}
