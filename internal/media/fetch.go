package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"feedrelay/internal/services"
)

// ErrPlaylist reports that a URL serves an adaptive playlist rather than a
// file; the caller routes it to the Transcoder.
var ErrPlaylist = errors.New("adaptive playlist")

const defaultFetchTimeout = 120 * time.Second

// FetchResult is a downloaded body held in a temp file.
type FetchResult struct {
	Path        string
	ContentType string
	Size        int64
}

// Release removes the temp file. It is safe to call more than once.
func (r *FetchResult) Release() {
	if r == nil || r.Path == "" {
		return
	}
	_ = os.Remove(r.Path)
}

// Fetcher downloads post media over HTTP without retries.
type Fetcher struct {
	client    *http.Client
	timeout   time.Duration
	userAgent string
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithHTTPClient swaps the underlying HTTP client.
func WithHTTPClient(client *http.Client) FetcherOption {
	return func(f *Fetcher) {
		if client != nil {
			f.client = client
		}
	}
}

// WithUserAgent sets the User-Agent header on every request.
func WithUserAgent(ua string) FetcherOption {
	return func(f *Fetcher) {
		f.userAgent = strings.TrimSpace(ua)
	}
}

// NewFetcher builds a fetcher with a per-request timeout.
func NewFetcher(timeout time.Duration, opts ...FetcherOption) *Fetcher {
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	f := &Fetcher{client: http.DefaultClient, timeout: timeout}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch streams rawURL into a temp file under dir. A declared Content-Length
// above maxBytes fails before the body is read; otherwise the body is copied in
// FetchChunkSize reads and fails as soon as the running total exceeds maxBytes.
func (f *Fetcher) Fetch(ctx context.Context, rawURL, dir string, maxBytes int64) (*FetchResult, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	resp, err := f.get(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	contentType := resp.Header.Get("Content-Type")
	if IsPlaylistContentType(contentType) {
		return nil, fmt.Errorf("%w: %s", ErrPlaylist, rawURL)
	}
	if resp.ContentLength > maxBytes {
		return nil, services.Wrap(services.ErrTooLarge, "fetch", "content-length",
			fmt.Sprintf("%d bytes declared, limit %d", resp.ContentLength, maxBytes), nil)
	}

	file, err := os.CreateTemp(dir, "fetch-*")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	size, copyErr := copyBounded(file, resp.Body, maxBytes)
	closeErr := file.Close()
	if copyErr == nil && closeErr != nil {
		copyErr = fmt.Errorf("close temp file: %w", closeErr)
	}
	if copyErr != nil {
		_ = os.Remove(file.Name())
		if errors.Is(copyErr, services.ErrTooLarge) {
			return nil, copyErr
		}
		return nil, classifyTransportError(ctx, "read body", copyErr)
	}

	return &FetchResult{Path: file.Name(), ContentType: contentType, Size: size}, nil
}

// Probe issues a GET and returns the Content-Type without reading the body.
func (f *Fetcher) Probe(ctx context.Context, rawURL string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	resp, err := f.get(ctx, rawURL)
	if err != nil {
		return "", err
	}
	_ = resp.Body.Close()
	return resp.Header.Get("Content-Type"), nil
}

func (f *Fetcher) get(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, services.Wrap(services.ErrNetwork, "fetch", "build request", rawURL, err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, classifyTransportError(ctx, "request", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_ = resp.Body.Close()
		return nil, services.Wrap(services.ErrNetwork, "fetch", "request",
			fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}
	return resp, nil
}

func copyBounded(dst io.Writer, src io.Reader, maxBytes int64) (int64, error) {
	buf := make([]byte, FetchChunkSize)
	var total int64
	for {
		n, err := src.Read(buf)
		if n > 0 {
			total += int64(n)
			if total > maxBytes {
				return total, services.Wrap(services.ErrTooLarge, "fetch", "stream",
					fmt.Sprintf("body exceeded %d bytes", maxBytes), nil)
			}
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return total, werr
			}
		}
		if errors.Is(err, io.EOF) {
			return total, nil
		}
		if err != nil {
			return total, err
		}
	}
}

func classifyTransportError(ctx context.Context, op string, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return services.Wrap(services.ErrTimeout, "fetch", op, "deadline exceeded", err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return services.Wrap(services.ErrTimeout, "fetch", op, "deadline exceeded", err)
	}
	return services.Wrap(services.ErrNetwork, "fetch", op, "", err)
}

// IsPlaylistContentType reports whether a Content-Type names an HLS playlist.
func IsPlaylistContentType(contentType string) bool {
	ct := strings.ToLower(contentType)
	return strings.Contains(ct, "application/vnd.apple.mpegurl") ||
		strings.Contains(ct, "application/x-mpegurl")
}
