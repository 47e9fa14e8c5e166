package media

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"feedrelay/internal/services"
)

const (
	// DefaultCRF is the constant rate factor used when none is configured.
	DefaultCRF = 25
	// MinCRF and MaxCRF bound the configurable quality range.
	MinCRF = 25
	MaxCRF = 45

	processWaitDelay = 5 * time.Second
	diagnosticBytes  = 4096
	diagnosticLines  = 8
)

// Executor runs an external command and returns its diagnostic (stderr)
// output.
type Executor interface {
	Run(ctx context.Context, binary string, args []string) ([]byte, error)
}

// TranscodeResult is a transcoded file ready for delivery.
type TranscodeResult struct {
	Path string
	Size int64
}

// Release removes the output file. It is safe to call more than once.
func (r *TranscodeResult) Release() {
	if r == nil || r.Path == "" {
		return
	}
	_ = os.Remove(r.Path)
}

// TranscoderOption configures a Transcoder.
type TranscoderOption func(*Transcoder)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) TranscoderOption {
	return func(t *Transcoder) {
		if exec != nil {
			t.exec = exec
		}
	}
}

// WithTimeout shortens the wall clock (tests only).
func WithTimeout(timeout time.Duration) TranscoderOption {
	return func(t *Transcoder) {
		if timeout > 0 {
			t.timeout = timeout
		}
	}
}

// Transcoder flattens a streaming source into an H.264/AAC MP4 via ffmpeg.
type Transcoder struct {
	binary  string
	crf     int
	timeout time.Duration
	exec    Executor
}

// NewTranscoder constructs a transcoder for the given ffmpeg binary.
func NewTranscoder(binary string, crf int, opts ...TranscoderOption) (*Transcoder, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("ffmpeg binary required")
	}
	if crf == 0 {
		crf = DefaultCRF
	}
	if crf < MinCRF || crf > MaxCRF {
		return nil, fmt.Errorf("crf %d outside %d..%d", crf, MinCRF, MaxCRF)
	}
	t := &Transcoder{
		binary:  binary,
		crf:     crf,
		timeout: TranscodeTimeout,
		exec:    commandExecutor{},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// TranscodeArgs returns the fixed ffmpeg argument template.
func TranscodeArgs(sourceURL, outputPath string, crf int) []string {
	return []string{
		"-hide_banner", "-nostdin", "-y",
		"-i", sourceURL,
		"-c:v", "libx264",
		"-crf", strconv.Itoa(crf),
		"-preset", "veryfast",
		"-max_muxing_queue_size", "1024",
		"-c:a", "aac",
		"-b:a", "128k",
		"-bsf:a", "aac_adtstoasc",
		outputPath,
	}
}

// Transcode runs ffmpeg against sourceURL and validates the output. Every
// error path removes outputPath; on success the caller releases the result.
func (t *Transcoder) Transcode(ctx context.Context, sourceURL, outputPath string) (*TranscodeResult, error) {
	if strings.TrimSpace(outputPath) == "" {
		return nil, services.Wrap(services.ErrValidation, "transcode", "prepare", "output path required", nil)
	}

	runCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	diagnostics, err := t.exec.Run(runCtx, t.binary, TranscodeArgs(sourceURL, outputPath, t.crf))
	if err != nil {
		removeOutput(outputPath)
		if ctx.Err() == nil && errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return nil, services.Wrap(services.ErrTimeout, "transcode", "ffmpeg",
				fmt.Sprintf("killed after %s", t.timeout), err)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, services.Wrap(services.ErrProcessFailed, "transcode", "ffmpeg", "cancelled", ctxErr)
		}
		return nil, services.Wrap(services.ErrProcessFailed, "transcode", "ffmpeg", diagnosticTail(diagnostics), err)
	}

	info, err := os.Stat(outputPath)
	if err != nil {
		removeOutput(outputPath)
		return nil, services.Wrap(services.ErrEmptyOutput, "transcode", "stat output", outputPath, err)
	}
	switch size := info.Size(); {
	case size == 0:
		removeOutput(outputPath)
		return nil, services.Wrap(services.ErrEmptyOutput, "transcode", "stat output", "zero-byte output", nil)
	case size > MaxPayloadBytes:
		removeOutput(outputPath)
		return nil, services.Wrap(services.ErrTooLarge, "transcode", "stat output",
			fmt.Sprintf("%d bytes, limit %d", size, MaxPayloadBytes), nil)
	default:
		return &TranscodeResult{Path: outputPath, Size: size}, nil
	}
}

func removeOutput(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		_ = os.RemoveAll(path)
	}
}

func diagnosticTail(output []byte) string {
	text := strings.TrimSpace(string(output))
	if text == "" {
		return ""
	}
	lines := strings.Split(text, "\n")
	if len(lines) > diagnosticLines {
		lines = lines[len(lines)-diagnosticLines:]
	}
	return strings.Join(lines, " | ")
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	stderr := &tailBuffer{limit: diagnosticBytes}
	cmd.Stderr = stderr
	configureProcess(cmd)
	if err := cmd.Run(); err != nil {
		return stderr.Bytes(), err
	}
	return stderr.Bytes(), nil
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	limit int
	buf   []byte
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.buf = append(b.buf, p...)
	if over := len(b.buf) - b.limit; over > 0 {
		b.buf = append(b.buf[:0], b.buf[over:]...)
	}
	return len(p), nil
}

func (b *tailBuffer) Bytes() []byte {
	return append([]byte(nil), b.buf...)
}
