package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"feedrelay/internal/feed"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	WorkDir  string `toml:"work_dir"`
	LogDir   string `toml:"log_dir"`
	StateDir string `toml:"state_dir"`
}

// Reddit contains feed API credentials and endpoints.
type Reddit struct {
	ClientID       string `toml:"client_id"`
	ClientSecret   string `toml:"client_secret"`
	Username       string `toml:"username"`
	Password       string `toml:"password"`
	UserAgent      string `toml:"user_agent"`
	BaseURL        string `toml:"base_url"`
	TokenURL       string `toml:"token_url"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Discord contains delivery channel settings. Either a webhook URL or a bot
// token plus channel id must be supplied before a run.
type Discord struct {
	WebhookURL string `toml:"webhook_url"`
	BotToken   string `toml:"bot_token"`
	ChannelID  string `toml:"channel_id"`
}

// Feed contains the source catalog and listing defaults.
type Feed struct {
	Sources          []string `toml:"sources"`
	MaxPosts         int      `toml:"max_posts"`
	DefaultFilter    string   `toml:"default_filter"`
	DefaultTimeRange string   `toml:"default_time_range"`
}

// Fetch contains media download settings.
type Fetch struct {
	TimeoutSeconds int `toml:"timeout_seconds"`
}

// Transcode contains ffmpeg settings.
type Transcode struct {
	FFmpegBinary string `toml:"ffmpeg_binary"`
	CRF          int    `toml:"crf"`
}

// History controls the per-post outcome ledger.
type History struct {
	Enabled bool `toml:"enabled"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Batch          bool   `toml:"batch"`
	Errors         bool   `toml:"errors"`
}

// Metrics controls the Prometheus textfile export.
type Metrics struct {
	TextfilePath string `toml:"textfile_path"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for feedrelay.
type Config struct {
	Paths         Paths         `toml:"paths"`
	Reddit        Reddit        `toml:"reddit"`
	Discord       Discord       `toml:"discord"`
	Feed          Feed          `toml:"feed"`
	Fetch         Fetch         `toml:"fetch"`
	Transcode     Transcode     `toml:"transcode"`
	History       History       `toml:"history"`
	Notifications Notifications `toml:"notifications"`
	Metrics       Metrics       `toml:"metrics"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config %s: %w", resolvedPath, err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("feedrelay.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the work, log, and state directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.WorkDir, c.Paths.LogDir, c.Paths.StateDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// HistoryPath returns the SQLite ledger location.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Paths.StateDir, historyFileName)
}

// FFmpegBinary returns the ffmpeg executable used by the transcoder.
func (c *Config) FFmpegBinary() string {
	if binary := strings.TrimSpace(c.Transcode.FFmpegBinary); binary != "" {
		return binary
	}
	return defaultFFmpegBinary
}

// FetchTimeout returns the per-request media download timeout.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.Fetch.TimeoutSeconds) * time.Second
}

// RedditTimeout returns the feed API request timeout.
func (c *Config) RedditTimeout() time.Duration {
	return time.Duration(c.Reddit.RequestTimeout) * time.Second
}

// Catalog builds the numbered source catalog from feed.sources.
func (c *Config) Catalog() (*feed.Catalog, error) {
	return feed.NewCatalog(c.Feed.Sources)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// SampleConfig returns the embedded sample configuration.
func SampleConfig() string {
	return sampleConfig
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o600); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
