package pipeline

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"feedrelay/internal/feed"
	"feedrelay/internal/history"
	"feedrelay/internal/logging"
	"feedrelay/internal/media"
	"feedrelay/internal/metrics"
	"feedrelay/internal/notifications"
	"feedrelay/internal/services"
)

// Processor handles a single post.
type Processor interface {
	Process(ctx context.Context, index int, post media.Post) Outcome
}

// Recorder persists batch outcomes. *history.Store satisfies it.
type Recorder interface {
	BeginBatch(ctx context.Context, b history.Batch) error
	Record(ctx context.Context, r history.Record) error
	FinishBatch(ctx context.Context, id string, at time.Time) error
}

// RunnerConfig wires a Runner.
type RunnerConfig struct {
	Processor Processor
	Query     feed.Query
	Notifier  notifications.Service
	Recorder  Recorder
	Logger    *slog.Logger
	// NewBatchID overrides batch id generation in tests.
	NewBatchID func() string
}

// Runner processes a batch of posts sequentially.
type Runner struct {
	processor  Processor
	query      feed.Query
	notifier   notifications.Service
	recorder   Recorder
	logger     *slog.Logger
	newBatchID func() string
	now        func() time.Time
}

// NewRunner builds a runner. Notifier and Recorder are optional.
func NewRunner(cfg RunnerConfig) (*Runner, error) {
	if cfg.Processor == nil {
		return nil, services.Wrap(services.ErrConfiguration, "runner", "new", "processor is required", nil)
	}
	r := &Runner{
		processor:  cfg.Processor,
		query:      cfg.Query,
		notifier:   cfg.Notifier,
		recorder:   cfg.Recorder,
		logger:     cfg.Logger,
		newBatchID: cfg.NewBatchID,
		now:        time.Now,
	}
	if r.notifier == nil {
		r.notifier = notifications.NewService(nil)
	}
	if r.logger == nil {
		r.logger = logging.NewNop()
	}
	r.logger = logging.NewComponentLogger(r.logger, "runner")
	if r.newBatchID == nil {
		r.newBatchID = uuid.NewString
	}
	return r, nil
}

// Run processes posts in feed order and returns one outcome per post. A
// failed post never stops the batch; once ctx is cancelled the remaining
// posts are reported as cancelled without being attempted.
func (r *Runner) Run(ctx context.Context, posts []media.Post) []Outcome {
	batchID := r.newBatchID()
	ctx = services.WithBatchID(ctx, batchID)
	logger := logging.WithContext(ctx, r.logger)
	started := r.now()
	source := r.query.Source

	logger.Info("batch started",
		logging.String(logging.FieldEventType, "batch_start"),
		logging.String("source", source),
		logging.String("filter", string(r.query.Filter)),
		logging.String("time_range", string(r.query.TimeRange)),
		logging.Int("posts", len(posts)),
	)
	if err := r.notifier.NotifyBatchStarted(ctx, source, len(posts)); err != nil {
		logger.Debug("batch start notification failed", logging.Error(err))
	}
	r.beginBatch(ctx, logger, batchID, started)

	outcomes := make([]Outcome, 0, len(posts))
	for i, post := range posts {
		index := i + 1
		var outcome Outcome
		if err := ctx.Err(); err != nil {
			outcome = cancelledOutcome(index, post, err)
		} else {
			outcome = r.processor.Process(ctx, index, post)
		}
		outcomes = append(outcomes, outcome)
		observe(outcome)
		r.record(ctx, logger, batchID, outcome)
		logger.Info(outcome.StatusLine(),
			logging.String(logging.FieldEventType, "post_outcome"),
			logging.Int(logging.FieldPostIndex, index),
			logging.String("status", string(outcome.Status)),
			logging.String("reason", outcome.Reason),
			logging.Duration("elapsed", outcome.Elapsed),
		)
	}

	finished := r.now()
	summary := Summarize(source, outcomes, finished.Sub(started))
	r.finishBatch(ctx, logger, batchID, finished)
	metrics.BatchesTotal.WithLabelValues(source).Inc()
	metrics.LastBatchTimestamp.Set(float64(finished.Unix()))

	logger.Info("batch completed",
		logging.String(logging.FieldEventType, "batch_complete"),
		logging.Int("delivered", summary.Delivered),
		logging.Int("link_only", summary.LinkOnly),
		logging.Int("skipped", summary.Skipped),
		logging.Int("failed", summary.Failed),
		logging.Duration("elapsed", summary.Duration),
	)
	// The completion notification outlives a cancelled batch context.
	notifyCtx := context.WithoutCancel(ctx)
	if err := r.notifier.NotifyBatchCompleted(notifyCtx, summary); err != nil {
		logger.Debug("batch completion notification failed", logging.Error(err))
	}
	return outcomes
}

func (r *Runner) beginBatch(ctx context.Context, logger *slog.Logger, id string, started time.Time) {
	if r.recorder == nil {
		return
	}
	err := r.recorder.BeginBatch(ctx, history.Batch{
		ID:        id,
		Source:    r.query.Source,
		Filter:    string(r.query.Filter),
		TimeRange: string(r.query.TimeRange),
		Requested: r.query.Limit,
		StartedAt: started,
	})
	if err != nil {
		logging.WarnWithContext(logger, "history batch start not recorded", "history_write_failed",
			logging.String(logging.FieldImpact, "batch missing from history"),
			logging.String(logging.FieldErrorHint, "check state_dir permissions and disk space"),
			logging.Error(err),
		)
	}
}

func (r *Runner) record(ctx context.Context, logger *slog.Logger, batchID string, o Outcome) {
	if r.recorder == nil {
		return
	}
	detail := ""
	if o.Err != nil {
		detail = o.Err.Error()
	}
	err := r.recorder.Record(context.WithoutCancel(ctx), history.Record{
		BatchID:    batchID,
		PostIndex:  o.Index,
		Title:      o.Post.Title,
		Permalink:  o.Post.Permalink,
		MediaKind:  o.Media.Kind.String(),
		Status:     string(o.Status),
		Reason:     o.Reason,
		Detail:     detail,
		Bytes:      o.Bytes,
		RecordedAt: r.now(),
	})
	if err != nil {
		logging.WarnWithContext(logger, "history outcome not recorded", "history_write_failed",
			logging.Int(logging.FieldPostIndex, o.Index),
			logging.String(logging.FieldImpact, "outcome missing from history"),
			logging.String(logging.FieldErrorHint, "check state_dir permissions and disk space"),
			logging.Error(err),
		)
	}
}

func (r *Runner) finishBatch(ctx context.Context, logger *slog.Logger, id string, finished time.Time) {
	if r.recorder == nil {
		return
	}
	if err := r.recorder.FinishBatch(context.WithoutCancel(ctx), id, finished); err != nil {
		logging.WarnWithContext(logger, "history batch finish not recorded", "history_write_failed",
			logging.String(logging.FieldImpact, "batch shows as unfinished in history"),
			logging.Error(err),
		)
	}
}

func cancelledOutcome(index int, post media.Post, err error) Outcome {
	return Outcome{
		Index:    index,
		Post:     post,
		Media:    media.Classify(post),
		State:    StateFailed,
		Status:   StatusFailed,
		FailedIn: StateClassifying,
		Reason:   ReasonCancelled,
		Err:      err,
	}
}

func observe(o Outcome) {
	kind := o.Media.Kind.String()
	metrics.PostsTotal.WithLabelValues(kind, string(o.Status)).Inc()
	if o.Status == StatusFailed {
		metrics.PostFailuresTotal.WithLabelValues(strings.ToLower(o.Reason)).Inc()
	}
	if o.Status == StatusDelivered || o.Status == StatusLinkOnly {
		metrics.PostDuration.WithLabelValues(kind).Observe(o.Elapsed.Seconds())
	}
}

// Summarize counts outcomes by status.
func Summarize(source string, outcomes []Outcome, elapsed time.Duration) notifications.BatchSummary {
	summary := notifications.BatchSummary{Source: source, Duration: elapsed}
	for _, o := range outcomes {
		switch o.Status {
		case StatusDelivered:
			summary.Delivered++
		case StatusLinkOnly:
			summary.LinkOnly++
		case StatusNoMedia:
			summary.Skipped++
		default:
			summary.Failed++
		}
	}
	return summary
}
