package logger_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vuongmanhnghia/playlist-bot/pkg/logger"
)

func TestLoggerLevelFallback(t *testing.T) {
	log := logger.New(logger.Config{Level: "not-a-level", Output: &bytes.Buffer{}})

	if log.GetLevel().String() != "info" {
		t.Errorf("Expected fallback level info, got %s", log.GetLevel())
	}
}

func TestLoggerJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(logger.Config{Level: "debug", Format: "json", Output: &buf})

	log.WithGuild("123").Info("hello")

	out := buf.String()
	if !strings.Contains(out, `"guild":"123"`) {
		t.Errorf("Expected guild field in JSON output, got %s", out)
	}
	if !strings.Contains(out, `"msg":"hello"`) {
		t.Errorf("Expected message in JSON output, got %s", out)
	}
}

func TestLoggerFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bot.log")
	var buf bytes.Buffer

	log := logger.New(logger.Config{Level: "info", Output: &buf, File: path})
	log.Info("written twice")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	if !strings.Contains(string(data), "written twice") {
		t.Error("Expected log file to contain the entry")
	}
	if !strings.Contains(buf.String(), "written twice") {
		t.Error("Expected primary output to contain the entry")
	}
}
