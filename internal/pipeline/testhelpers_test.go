package pipeline_test

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"feedrelay/internal/history"
	"feedrelay/internal/media"
	"feedrelay/internal/pipeline"
	"feedrelay/internal/workspace"
)

type sentFile struct {
	Name string
	Body string
}

type recordingChannel struct {
	mu      sync.Mutex
	texts   []string
	files   []sentFile
	textErr error
	fileErr error
}

func (c *recordingChannel) SendText(_ context.Context, content string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.texts = append(c.texts, content)
	return c.textErr
}

func (c *recordingChannel) SendFile(_ context.Context, r io.Reader, filename string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.files = append(c.files, sentFile{Name: filename, Body: string(data)})
	return c.fileErr
}

func (c *recordingChannel) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.texts) + len(c.files)
}

type fakeFetcher struct {
	FetchFunc func(ctx context.Context, url, dir string, maxBytes int64) (*media.FetchResult, error)
	ProbeFunc func(ctx context.Context, url string) (string, error)

	fetched []string
	probed  []string
}

func (f *fakeFetcher) Fetch(ctx context.Context, url, dir string, maxBytes int64) (*media.FetchResult, error) {
	f.fetched = append(f.fetched, url)
	if f.FetchFunc == nil {
		return nil, io.ErrUnexpectedEOF
	}
	return f.FetchFunc(ctx, url, dir, maxBytes)
}

func (f *fakeFetcher) Probe(ctx context.Context, url string) (string, error) {
	f.probed = append(f.probed, url)
	if f.ProbeFunc == nil {
		return "video/mp4", nil
	}
	return f.ProbeFunc(ctx, url)
}

// serveBody returns a FetchFunc that writes body into the post directory.
func serveBody(t *testing.T, body string) func(context.Context, string, string, int64) (*media.FetchResult, error) {
	t.Helper()
	return func(_ context.Context, _ string, dir string, _ int64) (*media.FetchResult, error) {
		path := filepath.Join(dir, "fetch-test")
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			return nil, err
		}
		return &media.FetchResult{Path: path, ContentType: "application/octet-stream", Size: int64(len(body))}, nil
	}
}

type fakeExecutor struct {
	RunFunc func(ctx context.Context, binary string, args []string) ([]byte, error)
	calls   int
}

func (f *fakeExecutor) Run(ctx context.Context, binary string, args []string) ([]byte, error) {
	f.calls++
	return f.RunFunc(ctx, binary, args)
}

// writeSparseOutput creates the ffmpeg output file at the requested size.
func writeSparseOutput(size int64) func(context.Context, string, []string) ([]byte, error) {
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

type fakeRecorder struct {
	batches  []history.Batch
	records  []history.Record
	finished []string
}

func (r *fakeRecorder) BeginBatch(_ context.Context, b history.Batch) error {
	r.batches = append(r.batches, b)
	return nil
}

func (r *fakeRecorder) Record(_ context.Context, rec history.Record) error {
	r.records = append(r.records, rec)
	return nil
}

func (r *fakeRecorder) FinishBatch(_ context.Context, id string, _ time.Time) error {
	r.finished = append(r.finished, id)
	return nil
}

type harness struct {
	pipeline   *pipeline.Pipeline
	fetcher    *fakeFetcher
	executor   *fakeExecutor
	channel    *recordingChannel
	workspace  *workspace.Workspace
	transcoder *media.Transcoder
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ws, err := workspace.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })

	h := &harness{
		fetcher:   &fakeFetcher{},
		executor:  &fakeExecutor{RunFunc: writeSparseOutput(1024)},
		channel:   &recordingChannel{},
		workspace: ws,
	}
	h.transcoder, err = media.NewTranscoder("ffmpeg", 0, media.WithExecutor(h.executor))
	require.NoError(t, err)

	h.pipeline, err = pipeline.New(pipeline.Deps{
		Fetcher:    h.fetcher,
		Transcoder: h.transcoder,
		Channel:    h.channel,
		Workspace:  ws,
	})
	require.NoError(t, err)
	return h
}

// requireWorkspaceEmpty asserts that every post directory was released.
func (h *harness) requireWorkspaceEmpty(t *testing.T) {
	t.Helper()
	entries, err := os.ReadDir(h.workspace.Root())
	require.NoError(t, err)
	for _, entry := range entries {
		require.False(t, strings.HasPrefix(entry.Name(), "post-"), "leftover post directory %s", entry.Name())
	}
}
