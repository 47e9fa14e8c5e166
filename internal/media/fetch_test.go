package media_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"feedrelay/internal/media"
	"feedrelay/internal/services"
)

func assertEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected temp files to be removed, found %d entries", len(entries))
	}
}

func TestFetchRejectsDeclaredLengthBeforeBody(t *testing.T) {
	var written atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "video/mp4")
		w.Header().Set("Content-Length", strconv.FormatInt(media.MaxPayloadBytes*2, 10))
		w.WriteHeader(http.StatusOK)
		n, _ := w.Write(make([]byte, 1024))
		written.Add(int64(n))
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	dir := t.TempDir()
	fetcher := media.NewFetcher(5 * time.Second)
	start := time.Now()
	_, err := fetcher.Fetch(context.Background(), server.URL+"/video.mp4", dir, media.MaxPayloadBytes)
	if !errors.Is(err, services.ErrTooLarge) {
		t.Fatalf("expected too large error, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("expected fail-fast, took %s", elapsed)
	}
	if written.Load() >= media.MaxPayloadBytes {
		t.Fatalf("server wrote the full body")
	}
	assertEmptyDir(t, dir)
}

func TestFetchStopsStreamingPastLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		flusher, _ := w.(http.Flusher)
		chunk := make([]byte, 1024)
		for i := 0; i < 8; i++ {
			if _, err := w.Write(chunk); err != nil {
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
	}))
	defer server.Close()

	dir := t.TempDir()
	fetcher := media.NewFetcher(5 * time.Second)
	_, err := fetcher.Fetch(context.Background(), server.URL, dir, 4096)
	if !errors.Is(err, services.ErrTooLarge) {
		t.Fatalf("expected too large error, got %v", err)
	}
	assertEmptyDir(t, dir)
}

func TestFetchWritesBody(t *testing.T) {
	var userAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userAgent = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("pngbytes"))
	}))
	defer server.Close()

	dir := t.TempDir()
	fetcher := media.NewFetcher(5*time.Second, media.WithUserAgent("feedrelay-test"))
	result, err := fetcher.Fetch(context.Background(), server.URL+"/a.png", dir, media.MaxPayloadBytes)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if result.Size != 8 || result.ContentType != "image/png" {
		t.Fatalf("unexpected result: %#v", result)
	}
	data, err := os.ReadFile(result.Path)
	if err != nil || string(data) != "pngbytes" {
		t.Fatalf("unexpected body %q (%v)", data, err)
	}
	if userAgent != "feedrelay-test" {
		t.Fatalf("expected user agent to be sent, got %q", userAgent)
	}
	result.Release()
	result.Release()
	assertEmptyDir(t, dir)
}

func TestFetchPlaylistSignalsTranscode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/vnd.apple.mpegURL")
		_, _ = w.Write([]byte("#EXTM3U\n"))
	}))
	defer server.Close()

	dir := t.TempDir()
	fetcher := media.NewFetcher(5 * time.Second)
	_, err := fetcher.Fetch(context.Background(), server.URL+"/HLSPlaylist.m3u8", dir, media.MaxPayloadBytes)
	if !errors.Is(err, media.ErrPlaylist) {
		t.Fatalf("expected playlist signal, got %v", err)
	}
	assertEmptyDir(t, dir)
}

func TestFetchNonSuccessStatusIsNetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer server.Close()

	fetcher := media.NewFetcher(5 * time.Second)
	_, err := fetcher.Fetch(context.Background(), server.URL, t.TempDir(), media.MaxPayloadBytes)
	if !errors.Is(err, services.ErrNetwork) {
		t.Fatalf("expected network failure, got %v", err)
	}
	if !strings.Contains(err.Error(), "404") {
		t.Fatalf("expected status in error, got %v", err)
	}
}

func TestFetchTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	fetcher := media.NewFetcher(50 * time.Millisecond)
	_, err := fetcher.Fetch(context.Background(), server.URL, t.TempDir(), media.MaxPayloadBytes)
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}
}

func TestFetchUnreachableHostIsNetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	fetcher := media.NewFetcher(time.Second)
	_, err := fetcher.Fetch(context.Background(), url, t.TempDir(), media.MaxPayloadBytes)
	if !errors.Is(err, services.ErrNetwork) {
		t.Fatalf("expected network failure, got %v", err)
	}
}

func TestProbeReturnsContentType(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-mpegURL")
		_, _ = w.Write([]byte("#EXTM3U\n"))
	}))
	defer server.Close()

	fetcher := media.NewFetcher(5 * time.Second)
	ct, err := fetcher.Probe(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if !media.IsPlaylistContentType(ct) {
		t.Fatalf("expected playlist content type, got %q", ct)
	}
}
