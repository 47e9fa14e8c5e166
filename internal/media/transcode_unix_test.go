//go:build unix

package media_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"feedrelay/internal/media"
	"feedrelay/internal/services"
)

func TestTranscodeTimeoutKillsProcess(t *testing.T) {
	dir := t.TempDir()
	stub := filepath.Join(dir, "ffmpeg")
	script := "#!/bin/sh\nsleep 30 &\nwait\n"
	if err := os.WriteFile(stub, []byte(script), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}

	tr, err := media.NewTranscoder(stub, 25, media.WithTimeout(200*time.Millisecond))
	if err != nil {
		t.Fatalf("NewTranscoder: %v", err)
	}
	out := filepath.Join(dir, "clip.mp4")

	start := time.Now()
	_, err = tr.Transcode(context.Background(), "src", out)
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 4*time.Second {
		t.Fatalf("expected prompt kill, took %s", elapsed)
	}
	if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
		t.Fatalf("expected output removed, stat err=%v", statErr)
	}
}
