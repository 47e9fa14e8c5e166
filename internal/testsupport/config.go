package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"feedrelay/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Credentials and a webhook are filled with placeholders so validation passes.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.WorkDir = filepath.Join(base, "work")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Reddit.ClientID = "test-client"
	cfgVal.Reddit.ClientSecret = "test-secret"
	cfgVal.Discord.WebhookURL = "https://discord.com/api/webhooks/1/test-token"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithRedditEndpoints points the feed client at a test server.
func WithRedditEndpoints(baseURL string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Reddit.BaseURL = baseURL
		b.cfg.Reddit.TokenURL = baseURL + "/api/v1/access_token"
	}
}

// WithNtfyTopic enables notifications against the given topic URL.
func WithNtfyTopic(topic string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Notifications.NtfyTopic = topic
	}
}

// EncoderListing mimics `ffmpeg -encoders` output for a build that satisfies
// the transcode template.
const EncoderListing = ` V....D libx264              libx264 H.264 / AVC / MPEG-4 AVC (codec h264)
 A....D aac                  AAC (Advanced Audio Coding)`

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, an ffmpeg stub that reports the
// required encoders is installed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		scripts := map[string]string{}
		if len(names) == 0 {
			scripts["ffmpeg"] = "#!/bin/sh\ncat <<'LISTING'\n" + EncoderListing + "\nLISTING\n"
		}
		for _, name := range names {
			scripts[name] = "#!/bin/sh\nexit 0\n"
		}
		for name, script := range scripts {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, []byte(script), 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}

		oldPath := os.Getenv("PATH")
		if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
			b.t.Fatalf("set PATH: %v", err)
		}
		b.t.Cleanup(func() {
			_ = os.Setenv("PATH", oldPath)
		})
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.WorkDir)
}
