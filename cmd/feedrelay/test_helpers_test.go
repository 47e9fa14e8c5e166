package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"feedrelay/internal/config"
	"feedrelay/internal/delivery"
	"feedrelay/internal/media"
	"feedrelay/internal/testsupport"
)

type sentFile struct {
	name string
	size int
}

type recordingChannel struct {
	mu    sync.Mutex
	texts []string
	files []sentFile
}

func (c *recordingChannel) SendText(_ context.Context, content string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.texts = append(c.texts, content)
	return nil
}

func (c *recordingChannel) SendFile(_ context.Context, r io.Reader, filename string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.files = append(c.files, sentFile{name: filename, size: len(data)})
	return nil
}

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	channel    *recordingChannel
	feed       *httptest.Server
	media      *httptest.Server
}

// setupCLITestEnv starts a fake feed API and media host, writes a config
// pointing at them, and stubs ffmpeg on PATH.
func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	mediaDir := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(mediaDir, "cat.jpg"), 2048)
	testsupport.WriteFile(t, filepath.Join(mediaDir, "big.mp4"), media.MaxPayloadBytes+1)
	mediaSrv := httptest.NewServer(http.FileServer(http.Dir(mediaDir)))
	t.Cleanup(mediaSrv.Close)

	feedSrv := httptest.NewServer(fakeFeedHandler(mediaSrv.URL))
	t.Cleanup(feedSrv.Close)

	cfg := testsupport.NewConfig(t,
		testsupport.WithStubbedBinaries(),
		testsupport.WithRedditEndpoints(feedSrv.URL),
	)
	cfg.Feed.Sources = []string{"pics", "earthporn"}
	cfg.Metrics.TextfilePath = filepath.Join(testsupport.BaseDir(cfg), "metrics", "feedrelay.prom")
	cfg.Logging.Format = "json"

	homeDir := filepath.Join(testsupport.BaseDir(cfg), "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)

	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{
		cfg:        cfg,
		configPath: configPath,
		channel:    &recordingChannel{},
		feed:       feedSrv,
		media:      mediaSrv,
	}
}

func fakeFeedHandler(mediaURL string) http.Handler {
	listing := map[string]any{
		"kind": "Listing",
		"data": map[string]any{
			"children": []any{
				map[string]any{"kind": "t3", "data": map[string]any{
					"title":     "Cat",
					"permalink": "/r/pics/comments/a/cat/",
					"url":       mediaURL + "/cat.jpg",
				}},
				map[string]any{"kind": "t3", "data": map[string]any{
					"title":     "Big clip",
					"permalink": "/r/pics/comments/b/big_clip/",
					"url":       "https://v.redd.it/big",
					"media": map[string]any{"reddit_video": map[string]any{
						"fallback_url": mediaURL + "/big.mp4",
					}},
				}},
				map[string]any{"kind": "t3", "data": map[string]any{
					"title":     "Discussion",
					"permalink": "/r/pics/comments/c/discussion/",
					"url":       "https://www.reddit.com/r/pics/comments/c/discussion/",
				}},
			},
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/access_token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "tok",
			"token_type":   "bearer",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("/r/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/r/pics/hot", "/r/pics/top", "/r/earthporn/hot":
			_ = json.NewEncoder(w).Encode(listing)
		case "/r/pics/about", "/r/earthporn/about", "/r/golang/about":
			name := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/r/"), "/about")
			_, _ = fmt.Fprintf(w, `{"kind":"t5","data":{"display_name":%q}}`, name)
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"message":"Not Found","error":404}`))
		}
	})
	return mux
}

func runCLI(t *testing.T, env *cliTestEnv, args ...string) (string, string, error) {
	t.Helper()
	configFlag := ""
	ctx := newCommandContext(&configFlag)
	ctx.newChannel = func(config.Discord) (delivery.Channel, error) {
		return env.channel, nil
	}
	cmd := buildRootCommand(ctx)
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", env.configPath}, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
