package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"feedrelay/internal/logging"
	"feedrelay/internal/services"
	"feedrelay/internal/testsupport"
)

func TestConsoleFormatIncludesSubjectAndFields(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "info", Format: "console", Writer: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx := services.WithBatchID(context.Background(), "batch-1")
	ctx = services.WithPostIndex(ctx, 2)
	ctx = services.WithStage(ctx, "resolving")
	logging.WithContext(ctx, logging.NewComponentLogger(logger, "pipeline")).Info("fetched media", logging.Int64("bytes", 42))

	line := buf.String()
	for _, fragment := range []string{"INFO", "pipeline: ", "Post #2 (resolving)", "fetched media", "bytes=42"} {
		if !strings.Contains(line, fragment) {
			t.Fatalf("expected %q in %q", fragment, line)
		}
	}
	if strings.Contains(line, "batch-1") {
		t.Fatalf("expected batch id to be hidden on console, got %q", line)
	}
}

func TestJSONFormatRenamesKeys(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "debug", Format: "json", Writer: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := services.WithBatchID(context.Background(), "batch-9")
	logging.WithContext(ctx, logger).Warn("too large", logging.String("url", "https://v.redd.it/x"))

	var payload map[string]any
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		t.Fatalf("decode json log: %v (%q)", err, buf.String())
	}
	if payload["level"] != "warn" || payload["msg"] != "too large" || payload["batch_id"] != "batch-9" {
		t.Fatalf("unexpected payload %#v", payload)
	}
	if _, ok := payload["ts"]; !ok {
		t.Fatalf("expected ts key, got %#v", payload)
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "warn", Format: "console", Writer: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("expected info to be filtered, got %q", buf.String())
	}
}

func TestUnsupportedFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml", Writer: &bytes.Buffer{}}); err == nil {
		t.Fatal("expected unsupported format to fail")
	}
}

func TestResolveFormatAutoWithoutTerminal(t *testing.T) {
	if got := logging.ResolveFormat("auto", &bytes.Buffer{}); got != "json" {
		t.Fatalf("ResolveFormat(auto, buffer) = %q, want json", got)
	}
	if got := logging.ResolveFormat("Console", &bytes.Buffer{}); got != "console" {
		t.Fatalf("ResolveFormat(Console) = %q", got)
	}
}

func TestFileOutputIsJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "logs", "feedrelay-test.log")
	var console bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "console", Writer: &console, FilePath: path})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Info("batch started")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), `"msg":"batch started"`) {
		t.Fatalf("expected json line in file, got %q", data)
	}
	if !strings.Contains(console.String(), "batch started") {
		t.Fatalf("expected console line, got %q", console.String())
	}
}

func TestPruneLogs(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "feedrelay-2020-01-01.log")
	current := logging.LogFilePath(dir, time.Now())
	unrelated := filepath.Join(dir, "notes.txt")
	for _, p := range []string{old, current, unrelated} {
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", p, err)
		}
	}
	stale := time.Now().AddDate(0, 0, -30)
	for _, p := range []string{old, current, unrelated} {
		if err := os.Chtimes(p, stale, stale); err != nil {
			t.Fatalf("chtimes: %v", err)
		}
	}

	if removed := logging.PruneLogs(logging.NewNop(), dir, 7, current); removed != 1 {
		t.Fatalf("expected 1 file removed, got %d", removed)
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Fatalf("expected old log removed, stat err=%v", err)
	}
	for _, p := range []string{current, unrelated} {
		if _, err := os.Stat(p); err != nil {
			t.Fatalf("expected %s kept: %v", p, err)
		}
	}
	if removed := logging.PruneLogs(nil, dir, 0, ""); removed != 0 {
		t.Fatalf("expected retention 0 to disable pruning, got %d", removed)
	}
}

func TestNewFromConfigWritesDatedFile(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Logging.Format = "json"
	var buf bytes.Buffer
	logger, err := logging.NewFromConfig(cfg, &buf)
	if err != nil {
		t.Fatalf("NewFromConfig: %v", err)
	}
	logger.Info("batch started", logging.String("source", "pics"))

	if !strings.Contains(buf.String(), `"source":"pics"`) {
		t.Fatalf("expected json line on writer, got %q", buf.String())
	}
	data, err := os.ReadFile(logging.LogFilePath(cfg.Paths.LogDir, time.Now()))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "batch started") {
		t.Fatalf("expected log file to contain the message, got %q", data)
	}
}
