package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"feedrelay/internal/config"
)

const userAgent = "feedrelay/0.1.0"

// BatchSummary is the completion report for one feed run.
type BatchSummary struct {
	Source    string
	Delivered int
	LinkOnly  int
	Skipped   int
	Failed    int
	Duration  time.Duration
}

// Total returns the number of posts the batch processed.
func (s BatchSummary) Total() int {
	return s.Delivered + s.LinkOnly + s.Skipped + s.Failed
}

// Service defines the notification surface exposed to the batch runner.
type Service interface {
	NotifyBatchStarted(ctx context.Context, source string, posts int) error
	NotifyBatchCompleted(ctx context.Context, summary BatchSummary) error
	NotifyError(ctx context.Context, err error, context string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		batch:    cfg.Notifications.Batch,
		errors:   cfg.Notifications.Errors,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	batch    bool
	errors   bool
}

func (n *ntfyService) NotifyBatchStarted(ctx context.Context, source string, posts int) error {
	if !n.batch {
		return nil
	}
	data := payload{
		title:   "feedrelay - Batch Started",
		message: fmt.Sprintf("Relaying %d posts from r/%s", posts, strings.TrimSpace(source)),
		tags:    []string{"feedrelay", "batch", "started"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyBatchCompleted(ctx context.Context, summary BatchSummary) error {
	if !n.batch {
		return nil
	}
	duration := summary.Duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}

	title := "feedrelay - Batch Complete"
	priority := ""
	if summary.Failed > 0 {
		title = "feedrelay - Batch Complete (with errors)"
		priority = "high"
	}
	message := fmt.Sprintf("r/%s: %d delivered, %d link only, %d skipped, %d failed in %s",
		strings.TrimSpace(summary.Source), summary.Delivered, summary.LinkOnly, summary.Skipped, summary.Failed, duration)

	data := payload{
		title:    title,
		message:  message,
		tags:     []string{"feedrelay", "batch", "completed"},
		priority: priority,
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !n.errors {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "feedrelay - Error",
		message:  builder.String(),
		tags:     []string{"feedrelay", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "feedrelay - Test",
		message:  "Notification system test",
		tags:     []string{"feedrelay", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyBatchStarted(context.Context, string, int) error    { return nil }
func (noopService) NotifyBatchCompleted(context.Context, BatchSummary) error { return nil }
func (noopService) NotifyError(context.Context, error, string) error         { return nil }
func (noopService) TestNotification(context.Context) error                   { return nil }
