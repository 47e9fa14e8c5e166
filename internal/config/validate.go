package config

import (
	"errors"
	"fmt"
	"strings"

	"feedrelay/internal/feed"
	"feedrelay/internal/media"
)

// Validate ensures the configuration is structurally usable. Credentials are
// checked separately by ValidateFeedAccess and ValidateDelivery so commands
// that never touch the network work without them.
func (c *Config) Validate() error {
	if err := c.validateFeed(); err != nil {
		return err
	}
	if err := c.validateDiscordShape(); err != nil {
		return err
	}
	if err := ensurePositiveMap(map[string]int{
		"fetch.timeout_seconds":         c.Fetch.TimeoutSeconds,
		"reddit.request_timeout":        c.Reddit.RequestTimeout,
		"notifications.request_timeout": c.Notifications.RequestTimeout,
	}); err != nil {
		return err
	}
	if c.Transcode.CRF < media.MinCRF || c.Transcode.CRF > media.MaxCRF {
		return fmt.Errorf("transcode.crf must be between %d and %d", media.MinCRF, media.MaxCRF)
	}
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must be >= 0")
	}
	switch c.Logging.Format {
	case "auto", "console", "json":
	default:
		return fmt.Errorf("logging.format must be auto, console, or json (got %q)", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error (got %q)", c.Logging.Level)
	}
	return nil
}

func (c *Config) validateFeed() error {
	if _, err := feed.NewCatalog(c.Feed.Sources); err != nil {
		return fmt.Errorf("feed.sources: %w", err)
	}
	if c.Feed.MaxPosts < 1 || c.Feed.MaxPosts > 100 {
		return errors.New("feed.max_posts must be between 1 and 100")
	}
	if _, err := feed.ParseFilter(c.Feed.DefaultFilter); err != nil {
		return fmt.Errorf("feed.default_filter: %w", err)
	}
	if _, err := feed.ParseTimeRange(c.Feed.DefaultTimeRange); err != nil {
		return fmt.Errorf("feed.default_time_range: %w", err)
	}
	return nil
}

func (c *Config) validateDiscordShape() error {
	if c.Discord.BotToken != "" && c.Discord.WebhookURL == "" && c.Discord.ChannelID == "" {
		return errors.New("discord.channel_id is required when discord.bot_token is set")
	}
	if c.Discord.WebhookURL != "" && !strings.HasPrefix(c.Discord.WebhookURL, "https://") {
		return errors.New("discord.webhook_url must be an https URL")
	}
	return nil
}

// ValidateFeedAccess checks the credentials needed to query the feed.
func (c *Config) ValidateFeedAccess() error {
	if c.Reddit.ClientID == "" || c.Reddit.ClientSecret == "" {
		return fmt.Errorf("reddit.client_id and reddit.client_secret are required. Set REDDIT_CLIENT_ID/REDDIT_CLIENT_SECRET or edit %s (create with 'feedrelay config init')", displayConfigPath())
	}
	if (c.Reddit.Username == "") != (c.Reddit.Password == "") {
		return errors.New("reddit.username and reddit.password must be set together")
	}
	return nil
}

// ValidateDelivery checks that a delivery channel is configured.
func (c *Config) ValidateDelivery() error {
	if c.Discord.WebhookURL != "" {
		return nil
	}
	if c.Discord.BotToken != "" && c.Discord.ChannelID != "" {
		return nil
	}
	return fmt.Errorf("discord.webhook_url or discord.bot_token with discord.channel_id is required. Set WEBHOOK or DISCORD_TOKEN/DISCORD_CHANNEL_ID or edit %s", displayConfigPath())
}

func displayConfigPath() string {
	path, err := DefaultConfigPath()
	if err != nil {
		return defaultConfigPath
	}
	return path
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
