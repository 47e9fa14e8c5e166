package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeReddit()
	c.normalizeDiscord()
	c.normalizeFeed()
	c.normalizeTranscode()
	c.normalizeLogging()
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if path := strings.TrimSpace(c.Metrics.TextfilePath); path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return fmt.Errorf("metrics.textfile_path: %w", err)
		}
		c.Metrics.TextfilePath = expanded
	}
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		c.Paths.WorkDir = defaultWorkDir
	}
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeReddit() {
	envFallback(&c.Reddit.ClientID, "REDDIT_CLIENT_ID")
	envFallback(&c.Reddit.ClientSecret, "REDDIT_CLIENT_SECRET")
	envFallback(&c.Reddit.Username, "REDDIT_USERNAME")
	envFallback(&c.Reddit.Password, "REDDIT_PASSWORD")
	if value, ok := os.LookupEnv("REDDIT_USER_AGENT"); ok && strings.TrimSpace(value) != "" && c.Reddit.UserAgent == defaultUserAgent {
		c.Reddit.UserAgent = strings.TrimSpace(value)
	}
	c.Reddit.UserAgent = strings.TrimSpace(c.Reddit.UserAgent)
	if c.Reddit.UserAgent == "" {
		c.Reddit.UserAgent = defaultUserAgent
	}
	c.Reddit.BaseURL = strings.TrimRight(strings.TrimSpace(c.Reddit.BaseURL), "/")
	if c.Reddit.BaseURL == "" {
		c.Reddit.BaseURL = defaultRedditBaseURL
	}
	c.Reddit.TokenURL = strings.TrimSpace(c.Reddit.TokenURL)
	if c.Reddit.TokenURL == "" {
		c.Reddit.TokenURL = defaultRedditTokenURL
	}
}

func (c *Config) normalizeDiscord() {
	envFallback(&c.Discord.WebhookURL, "WEBHOOK")
	envFallback(&c.Discord.BotToken, "DISCORD_TOKEN")
	envFallback(&c.Discord.ChannelID, "DISCORD_CHANNEL_ID")
	c.Discord.BotToken = strings.TrimPrefix(c.Discord.BotToken, "Bot ")
}

func (c *Config) normalizeFeed() {
	sources := make([]string, 0, len(c.Feed.Sources))
	for _, name := range c.Feed.Sources {
		name = strings.TrimPrefix(strings.TrimSpace(name), "r/")
		if name != "" {
			sources = append(sources, name)
		}
	}
	c.Feed.Sources = sources
	c.Feed.DefaultFilter = strings.ToLower(strings.TrimSpace(c.Feed.DefaultFilter))
	if c.Feed.DefaultFilter == "" {
		c.Feed.DefaultFilter = defaultFilter
	}
	c.Feed.DefaultTimeRange = strings.ToLower(strings.TrimSpace(c.Feed.DefaultTimeRange))
	if c.Feed.DefaultTimeRange == "" {
		c.Feed.DefaultTimeRange = defaultTimeRange
	}
}

func (c *Config) normalizeTranscode() {
	c.Transcode.FFmpegBinary = strings.TrimSpace(c.Transcode.FFmpegBinary)
	if c.Transcode.FFmpegBinary == "" {
		c.Transcode.FFmpegBinary = defaultFFmpegBinary
	}
	if c.Transcode.CRF == 0 {
		c.Transcode.CRF = defaultCRF
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func envFallback(target *string, key string) {
	*target = strings.TrimSpace(*target)
	if *target != "" {
		return
	}
	if value, ok := os.LookupEnv(key); ok {
		*target = strings.TrimSpace(value)
	}
}
