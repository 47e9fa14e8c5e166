package discord

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/url"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"

	"feedrelay/internal/config"
	"feedrelay/internal/delivery"
	"feedrelay/internal/services"
)

// MaxContentRunes is the message length Discord accepts.
const MaxContentRunes = 2000

// Session is the subset of *discordgo.Session used for delivery.
type Session interface {
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelFileSend(channelID, name string, r io.Reader, options ...discordgo.RequestOption) (*discordgo.Message, error)
	WebhookExecute(webhookID, token string, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Option configures a channel.
type Option func(*options)

type options struct {
	session   Session
	userAgent string
}

// WithSession replaces the discordgo session, mainly for tests.
func WithSession(s Session) Option {
	return func(o *options) {
		o.session = s
	}
}

// WithUserAgent overrides the REST user agent of the default session.
func WithUserAgent(ua string) Option {
	return func(o *options) {
		o.userAgent = strings.TrimSpace(ua)
	}
}

// New picks the webhook channel when a webhook URL is configured and the bot
// channel otherwise.
func New(cfg config.Discord, opts ...Option) (delivery.Channel, error) {
	if strings.TrimSpace(cfg.WebhookURL) != "" {
		return NewWebhook(cfg.WebhookURL, opts...)
	}
	if strings.TrimSpace(cfg.BotToken) != "" {
		return NewBot(cfg.BotToken, cfg.ChannelID, opts...)
	}
	return nil, services.Wrap(services.ErrConfiguration, "discord", "new channel", "webhook_url or bot_token is required", nil)
}

// WebhookChannel posts through an incoming webhook.
type WebhookChannel struct {
	session Session
	id      string
	token   string
}

// NewWebhook parses a https://discord.com/api/webhooks/{id}/{token} URL.
func NewWebhook(rawURL string, opts ...Option) (*WebhookChannel, error) {
	id, token, err := ParseWebhookURL(rawURL)
	if err != nil {
		return nil, err
	}
	session, err := resolveSession("", opts)
	if err != nil {
		return nil, err
	}
	return &WebhookChannel{session: session, id: id, token: token}, nil
}

// SendText posts a message with no attachment.
func (c *WebhookChannel) SendText(ctx context.Context, content string) error {
	params := &discordgo.WebhookParams{Content: truncateContent(content)}
	_, err := c.session.WebhookExecute(c.id, c.token, true, params, discordgo.WithContext(ctx))
	return describe("webhook text", err)
}

// SendFile posts r as a single attachment.
func (c *WebhookChannel) SendFile(ctx context.Context, r io.Reader, filename string) error {
	params := &discordgo.WebhookParams{
		Files: []*discordgo.File{{
			Name:        filename,
			ContentType: contentType(filename),
			Reader:      r,
		}},
	}
	_, err := c.session.WebhookExecute(c.id, c.token, true, params, discordgo.WithContext(ctx))
	return describe("webhook file", err)
}

// BotChannel posts as a bot user into one channel.
type BotChannel struct {
	session   Session
	channelID string
}

// NewBot builds a bot channel. A leading "Bot " on the token is tolerated.
func NewBot(token, channelID string, opts ...Option) (*BotChannel, error) {
	token = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(token), "Bot "))
	channelID = strings.TrimSpace(channelID)
	if token == "" {
		return nil, services.Wrap(services.ErrConfiguration, "discord", "new bot", "bot token is empty", nil)
	}
	if channelID == "" {
		return nil, services.Wrap(services.ErrConfiguration, "discord", "new bot", "channel_id is required with bot_token", nil)
	}
	session, err := resolveSession(token, opts)
	if err != nil {
		return nil, err
	}
	return &BotChannel{session: session, channelID: channelID}, nil
}

// SendText posts a message with no attachment.
func (c *BotChannel) SendText(ctx context.Context, content string) error {
	_, err := c.session.ChannelMessageSend(c.channelID, truncateContent(content), discordgo.WithContext(ctx))
	return describe("bot text", err)
}

// SendFile posts r as a single attachment.
func (c *BotChannel) SendFile(ctx context.Context, r io.Reader, filename string) error {
	_, err := c.session.ChannelFileSend(c.channelID, filename, r, discordgo.WithContext(ctx))
	return describe("bot file", err)
}

func resolveSession(token string, opts []Option) (Session, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.session != nil {
		return o.session, nil
	}
	auth := ""
	if token != "" {
		auth = "Bot " + token
	}
	s, err := discordgo.New(auth)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "discord", "new session", "", err)
	}
	s.MaxRestRetries = 0
	if o.userAgent != "" {
		s.UserAgent = o.userAgent
	}
	return s, nil
}

// ParseWebhookURL extracts the webhook id and token.
func ParseWebhookURL(rawURL string) (string, string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", "", services.Wrap(services.ErrConfiguration, "discord", "parse webhook", "invalid url", err)
	}
	if u.Scheme != "https" || u.Host == "" {
		return "", "", services.Wrap(services.ErrConfiguration, "discord", "parse webhook", "webhook url must be https", nil)
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i, seg := range segments {
		if seg != "webhooks" {
			continue
		}
		if i+2 < len(segments) && segments[i+1] != "" && segments[i+2] != "" {
			return segments[i+1], segments[i+2], nil
		}
		break
	}
	return "", "", services.Wrap(services.ErrConfiguration, "discord", "parse webhook", "expected /api/webhooks/{id}/{token}", nil)
}

func describe(op string, err error) error {
	if err == nil {
		return nil
	}
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Response != nil {
		detail := restErr.Response.Status
		if restErr.Message != nil && restErr.Message.Message != "" {
			detail = fmt.Sprintf("%s: %s", detail, restErr.Message.Message)
		}
		return fmt.Errorf("discord %s: %s: %w", op, detail, err)
	}
	return fmt.Errorf("discord %s: %w", op, err)
}

// truncateContent shortens content to MaxContentRunes, cutting the text
// before the last line so a trailing link survives.
func truncateContent(content string) string {
	if utf8.RuneCountInString(content) <= MaxContentRunes {
		return content
	}
	head, tail := content, ""
	if idx := strings.LastIndex(content, "\n"); idx >= 0 {
		head, tail = content[:idx], content[idx:]
	}
	budget := MaxContentRunes - utf8.RuneCountInString(tail) - 1
	if budget <= 0 {
		head, tail = content, ""
		budget = MaxContentRunes - 1
	}
	return string([]rune(head)[:budget]) + "…" + tail
}

func contentType(filename string) string {
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename))); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
