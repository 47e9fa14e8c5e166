package media_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"feedrelay/internal/media"
	"feedrelay/internal/services"
)

type fakeExecutor struct {
	RunFunc func(ctx context.Context, binary string, args []string) ([]byte, error)
	calls   int
}

func (f *fakeExecutor) Run(ctx context.Context, binary string, args []string) ([]byte, error) {
	f.calls++
	return f.RunFunc(ctx, binary, args)
}

func writeOutput(size int64) func(context.Context, string, []string) ([]byte, error) {
	return func(_ context.Context, _ string, args []string) ([]byte, error) {
		out := args[len(args)-1]
		f, err := os.Create(out)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return nil, f.Truncate(size)
	}
}

func newTranscoder(t *testing.T, exec media.Executor) *media.Transcoder {
	t.Helper()
	tr, err := media.NewTranscoder("ffmpeg", 0, media.WithExecutor(exec))
	if err != nil {
		t.Fatalf("NewTranscoder: %v", err)
	}
	return tr
}

func TestTranscodeArgs(t *testing.T) {
	got := media.TranscodeArgs("https://v.redd.it/x/HLSPlaylist.m3u8", "/tmp/out.mp4", 25)
	want := []string{
		"-hide_banner", "-nostdin", "-y",
		"-i", "https://v.redd.it/x/HLSPlaylist.m3u8",
		"-c:v", "libx264", "-crf", "25", "-preset", "veryfast",
		"-max_muxing_queue_size", "1024",
		"-c:a", "aac", "-b:a", "128k", "-bsf:a", "aac_adtstoasc",
		"/tmp/out.mp4",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected args:\n got %v\nwant %v", got, want)
	}
}

func TestNewTranscoderValidatesInputs(t *testing.T) {
	if _, err := media.NewTranscoder("", 25); err == nil {
		t.Fatal("expected missing binary to fail")
	}
	if _, err := media.NewTranscoder("ffmpeg", 51); err == nil {
		t.Fatal("expected out of range crf to fail")
	}
	if _, err := media.NewTranscoder("ffmpeg", 45); err != nil {
		t.Fatalf("expected crf 45 to be accepted: %v", err)
	}
}

func TestTranscodeSuccess(t *testing.T) {
	exec := &fakeExecutor{RunFunc: writeOutput(2048)}
	tr := newTranscoder(t, exec)
	out := filepath.Join(t.TempDir(), "clip.mp4")

	result, err := tr.Transcode(context.Background(), "https://v.redd.it/x/HLSPlaylist.m3u8", out)
	if err != nil {
		t.Fatalf("Transcode: %v", err)
	}
	if result.Path != out || result.Size != 2048 {
		t.Fatalf("unexpected result %#v", result)
	}
	result.Release()
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Fatalf("expected release to remove output, stat err=%v", err)
	}
}

func TestTranscodeOneByteOverLimitIsTooLarge(t *testing.T) {
	exec := &fakeExecutor{RunFunc: writeOutput(media.MaxPayloadBytes + 1)}
	tr := newTranscoder(t, exec)
	out := filepath.Join(t.TempDir(), "clip.mp4")

	_, err := tr.Transcode(context.Background(), "https://v.redd.it/x/HLSPlaylist.m3u8", out)
	if !errors.Is(err, services.ErrTooLarge) {
		t.Fatalf("expected too large, got %v", err)
	}
	if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
		t.Fatalf("expected oversize output removed, stat err=%v", statErr)
	}
}

func TestTranscodeExactLimitIsAccepted(t *testing.T) {
	exec := &fakeExecutor{RunFunc: writeOutput(media.MaxPayloadBytes)}
	tr := newTranscoder(t, exec)
	out := filepath.Join(t.TempDir(), "clip.mp4")

	result, err := tr.Transcode(context.Background(), "src", out)
	if err != nil {
		t.Fatalf("expected exact limit to pass: %v", err)
	}
	result.Release()
}

func TestTranscodeEmptyOutput(t *testing.T) {
	exec := &fakeExecutor{RunFunc: writeOutput(0)}
	tr := newTranscoder(t, exec)
	out := filepath.Join(t.TempDir(), "clip.mp4")

	_, err := tr.Transcode(context.Background(), "src", out)
	if !errors.Is(err, services.ErrEmptyOutput) {
		t.Fatalf("expected empty output, got %v", err)
	}
	if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
		t.Fatalf("expected empty output removed, stat err=%v", statErr)
	}
}

func TestTranscodeMissingOutputIsEmpty(t *testing.T) {
	exec := &fakeExecutor{RunFunc: func(context.Context, string, []string) ([]byte, error) { return nil, nil }}
	tr := newTranscoder(t, exec)

	_, err := tr.Transcode(context.Background(), "src", filepath.Join(t.TempDir(), "clip.mp4"))
	if !errors.Is(err, services.ErrEmptyOutput) {
		t.Fatalf("expected empty output, got %v", err)
	}
}

func TestTranscodeProcessFailureCarriesDiagnostics(t *testing.T) {
	exec := &fakeExecutor{RunFunc: func(_ context.Context, _ string, args []string) ([]byte, error) {
		_ = os.WriteFile(args[len(args)-1], []byte("partial"), 0o644)
		return []byte("Input #0\nServer returned 403 Forbidden"), errors.New("exit status 1")
	}}
	tr := newTranscoder(t, exec)
	out := filepath.Join(t.TempDir(), "clip.mp4")

	_, err := tr.Transcode(context.Background(), "src", out)
	if !errors.Is(err, services.ErrProcessFailed) {
		t.Fatalf("expected process failure, got %v", err)
	}
	if !strings.Contains(err.Error(), "403 Forbidden") {
		t.Fatalf("expected diagnostics in error, got %v", err)
	}
	if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
		t.Fatalf("expected partial output removed, stat err=%v", statErr)
	}
}
