package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"feedrelay/internal/config"
)

var credentialEnv = []string{
	"REDDIT_CLIENT_ID", "REDDIT_CLIENT_SECRET", "REDDIT_USERNAME", "REDDIT_PASSWORD",
	"REDDIT_USER_AGENT", "WEBHOOK", "DISCORD_TOKEN", "DISCORD_CHANNEL_ID",
}

func isolateEnv(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, key := range credentialEnv {
		t.Setenv(key, "")
	}
	return home
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaultsExpandPaths(t *testing.T) {
	home := isolateEnv(t)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}
	if resolved != filepath.Join(home, ".config", "feedrelay", "config.toml") {
		t.Fatalf("unexpected resolved path %q", resolved)
	}
	if cfg.Paths.WorkDir != filepath.Join(home, ".cache", "feedrelay", "work") {
		t.Fatalf("unexpected work dir %q", cfg.Paths.WorkDir)
	}
	if cfg.HistoryPath() != filepath.Join(home, ".local", "share", "feedrelay", "history.db") {
		t.Fatalf("unexpected history path %q", cfg.HistoryPath())
	}
	if cfg.Feed.MaxPosts != 5 || cfg.Feed.DefaultFilter != "hot" {
		t.Fatalf("unexpected feed defaults %#v", cfg.Feed)
	}
	if cfg.Transcode.CRF != 25 || cfg.FFmpegBinary() != "ffmpeg" {
		t.Fatalf("unexpected transcode defaults %#v", cfg.Transcode)
	}
	if cfg.FetchTimeout().Seconds() != 120 {
		t.Fatalf("unexpected fetch timeout %s", cfg.FetchTimeout())
	}
	catalog, err := cfg.Catalog()
	if err != nil || catalog.Len() != 5 {
		t.Fatalf("unexpected catalog: %v %v", catalog, err)
	}
	if err := cfg.ValidateFeedAccess(); err == nil {
		t.Fatal("expected missing credentials to fail feed access validation")
	}
	if err := cfg.ValidateDelivery(); err == nil {
		t.Fatal("expected missing channel to fail delivery validation")
	}
}

func TestLoadEnvFallbacks(t *testing.T) {
	isolateEnv(t)
	t.Setenv("REDDIT_CLIENT_ID", "id")
	t.Setenv("REDDIT_CLIENT_SECRET", "secret")
	t.Setenv("REDDIT_USER_AGENT", "relay-bot/1.0")
	t.Setenv("DISCORD_TOKEN", "Bot abc")
	t.Setenv("DISCORD_CHANNEL_ID", "12345")

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Reddit.ClientID != "id" || cfg.Reddit.ClientSecret != "secret" {
		t.Fatalf("expected reddit credentials from env, got %#v", cfg.Reddit)
	}
	if cfg.Reddit.UserAgent != "relay-bot/1.0" {
		t.Fatalf("expected user agent from env, got %q", cfg.Reddit.UserAgent)
	}
	if cfg.Discord.BotToken != "abc" {
		t.Fatalf("expected bot prefix stripped, got %q", cfg.Discord.BotToken)
	}
	if err := cfg.ValidateFeedAccess(); err != nil {
		t.Fatalf("ValidateFeedAccess: %v", err)
	}
	if err := cfg.ValidateDelivery(); err != nil {
		t.Fatalf("ValidateDelivery: %v", err)
	}
}

func TestLoadFileOverridesEnv(t *testing.T) {
	isolateEnv(t)
	t.Setenv("WEBHOOK", "https://discord.com/api/webhooks/1/env")
	path := writeConfig(t, `
[discord]
webhook_url = "https://discord.com/api/webhooks/2/file"

[feed]
sources = ["r/pics", "aww"]
max_posts = 3
default_filter = "TOP"
default_time_range = "Week"
`)

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected explicit path to be used, got %q exists=%v", resolved, exists)
	}
	if cfg.Discord.WebhookURL != "https://discord.com/api/webhooks/2/file" {
		t.Fatalf("expected file value to win, got %q", cfg.Discord.WebhookURL)
	}
	if strings.Join(cfg.Feed.Sources, ",") != "pics,aww" {
		t.Fatalf("unexpected sources %v", cfg.Feed.Sources)
	}
	if cfg.Feed.DefaultFilter != "top" || cfg.Feed.DefaultTimeRange != "week" {
		t.Fatalf("expected normalized filter settings, got %#v", cfg.Feed)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]struct {
		body string
		want string
	}{
		"crf":      {"[transcode]\ncrf = 60\n", "transcode.crf"},
		"source":   {"[feed]\nsources = [\"bad name\"]\n", "feed.sources"},
		"filter":   {"[feed]\ndefault_filter = \"best\"\n", "feed.default_filter"},
		"timeout":  {"[fetch]\ntimeout_seconds = -1\n", "fetch.timeout_seconds"},
		"format":   {"[logging]\nformat = \"xml\"\n", "logging.format"},
		"channel":  {"[discord]\nbot_token = \"abc\"\n", "discord.channel_id"},
		"webhook":  {"[discord]\nwebhook_url = \"http://insecure\"\n", "discord.webhook_url"},
		"maxposts": {"[feed]\nmax_posts = 0\n", "feed.max_posts"},
		"unknown":  {"[feed]\nsubreddits = [\"pics\"]\n", "parse config"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			isolateEnv(t)
			_, _, _, err := config.Load(writeConfig(t, tc.body))
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestLoadRequiresPairedRedditLogin(t *testing.T) {
	isolateEnv(t)
	t.Setenv("REDDIT_CLIENT_ID", "id")
	t.Setenv("REDDIT_CLIENT_SECRET", "secret")
	t.Setenv("REDDIT_USERNAME", "someone")

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := cfg.ValidateFeedAccess(); err == nil {
		t.Fatal("expected username without password to fail")
	}
}

func TestSampleConfigDecodesAndValidates(t *testing.T) {
	isolateEnv(t)
	cfg := config.Default()
	if err := toml.Unmarshal([]byte(config.SampleConfig()), &cfg); err != nil {
		t.Fatalf("decode sample: %v", err)
	}

	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	loaded, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample: %v", err)
	}
	if !exists {
		t.Fatal("expected sample file to exist")
	}
	if loaded.Feed.MaxPosts != 5 || loaded.Logging.Format != "auto" {
		t.Fatalf("unexpected sample values %#v", loaded)
	}
}

func TestEnsureDirectories(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.WorkDir = filepath.Join(base, "work")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.StateDir = filepath.Join(base, "state")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	for _, dir := range []string{cfg.Paths.WorkDir, cfg.Paths.LogDir, cfg.Paths.StateDir} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("expected %s to exist: %v", dir, err)
		}
	}
}
