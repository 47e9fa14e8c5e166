package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"feedrelay/internal/delivery"
	"feedrelay/internal/logging"
	"feedrelay/internal/media"
	"feedrelay/internal/metrics"
	"feedrelay/internal/services"
	"feedrelay/internal/workspace"
)

// transcodeFileName is the ffmpeg output inside a post directory. The
// directory is unique per post and the attachment name comes from the title,
// so the file itself never needs a title-derived name.
const transcodeFileName = "transcode.mp4"

// Fetcher downloads media into a post directory.
type Fetcher interface {
	Fetch(ctx context.Context, url, dir string, maxBytes int64) (*media.FetchResult, error)
	Probe(ctx context.Context, url string) (string, error)
}

// Transcoder converts an adaptive stream into one attachable file.
type Transcoder interface {
	Transcode(ctx context.Context, sourceURL, outputPath string) (*media.TranscodeResult, error)
}

// Workspace hands out per-post scratch directories.
type Workspace interface {
	NewPostDir(index int) (*workspace.PostDir, error)
}

// Deps are the collaborators a Pipeline needs.
type Deps struct {
	Fetcher    Fetcher
	Transcoder Transcoder
	Channel    delivery.Channel
	Workspace  Workspace
	Logger     *slog.Logger
}

// Pipeline processes one post at a time.
type Pipeline struct {
	fetcher    Fetcher
	transcoder Transcoder
	channel    delivery.Channel
	workspace  Workspace
	logger     *slog.Logger
}

// New validates deps and builds a pipeline.
func New(deps Deps) (*Pipeline, error) {
	switch {
	case deps.Fetcher == nil:
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "new", "fetcher is required", nil)
	case deps.Transcoder == nil:
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "new", "transcoder is required", nil)
	case deps.Channel == nil:
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "new", "delivery channel is required", nil)
	case deps.Workspace == nil:
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "new", "workspace is required", nil)
	}
	logger := deps.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Pipeline{
		fetcher:    deps.Fetcher,
		transcoder: deps.Transcoder,
		channel:    deps.Channel,
		workspace:  deps.Workspace,
		logger:     logging.NewComponentLogger(logger, "pipeline"),
	}, nil
}

// Process runs the state machine for one post. It never panics on post data
// and always returns an outcome; temp files are released before it returns.
func (p *Pipeline) Process(ctx context.Context, index int, post media.Post) Outcome {
	run := &postRun{
		p:       p,
		ctx:     services.WithPostIndex(ctx, index),
		outcome: Outcome{Index: index, Post: post},
	}
	start := time.Now()
	defer run.release()

	state := StateClassifying
	for !state.Terminal() {
		run.outcome.State = state
		switch state {
		case StateClassifying:
			state = run.classify()
		case StateResolving:
			state = run.resolve()
		case StateDelivering:
			state = run.deliver()
		default:
			state = run.fail(services.Wrap(services.ErrValidation, string(state), "advance", "unknown state", nil))
		}
	}
	run.outcome.State = state
	run.outcome.Elapsed = time.Since(start)
	return run.outcome
}

// postRun holds the mutable state of a single Process call.
type postRun struct {
	p       *Pipeline
	ctx     context.Context
	outcome Outcome

	dir      *workspace.PostDir
	path     string
	size     int64
	tooLarge bool
	cleanup  []func()
}

func (r *postRun) logger(state State) *slog.Logger {
	return logging.WithContext(services.WithStage(r.ctx, string(state)), r.p.logger)
}

func (r *postRun) classify() State {
	m := media.Classify(r.outcome.Post)
	r.outcome.Media = m
	if m.Resolved().Kind == media.KindNone {
		r.outcome.Status = StatusNoMedia
		r.outcome.Reason = services.Reason(services.ErrNoMedia)
		r.outcome.FailedIn = StateClassifying
		logging.WarnWithContext(r.logger(StateClassifying), "no deliverable media", "no_media",
			logging.String("title", r.outcome.Post.Title),
			logging.String("url", r.outcome.Post.URL),
			logging.String("media_kind", m.Kind.String()),
			logging.String(logging.FieldErrorHint, "post has no image, video, gif, or gallery item"),
		)
		return StateFailed
	}
	r.logger(StateClassifying).Debug("post classified",
		logging.String("title", r.outcome.Post.Title),
		logging.String("media_kind", m.Kind.String()),
		logging.String("url", m.Resolved().URL),
	)
	return StateResolving
}

func (r *postRun) resolve() State {
	dir, err := r.p.workspace.NewPostDir(r.outcome.Index)
	if err != nil {
		return r.fail(services.Wrap(services.ErrProcessFailed, string(StateResolving), "workspace", "", err))
	}
	r.dir = dir
	r.cleanup = append(r.cleanup, func() { _ = dir.Release() })

	target := r.outcome.Media.Resolved()
	switch target.Kind {
	case media.KindImage, media.KindGif, media.KindDirectVideo:
		err = r.fetch(target.URL)
	case media.KindAdaptiveVideo:
		err = r.resolveAdaptive(target)
	default:
		err = services.Wrap(services.ErrNoMedia, string(StateResolving), "resolve", target.Kind.String(), nil)
	}

	switch {
	case err == nil:
		return StateDelivering
	case errors.Is(err, services.ErrTooLarge):
		r.tooLarge = true
		r.logger(StateResolving).Info("media exceeds payload limit, delivering link only",
			logging.String(logging.FieldEventType, "link_only"),
			logging.String("title", r.outcome.Post.Title),
			logging.String("url", target.URL),
			logging.Error(err),
		)
		return StateDelivering
	default:
		return r.fail(err)
	}
}

func (r *postRun) resolveAdaptive(target media.Media) error {
	contentType, err := r.p.fetcher.Probe(r.ctx, target.URL)
	if err != nil {
		if target.FallbackURL == "" {
			return err
		}
		logging.WarnWithContext(r.logger(StateResolving), "adaptive probe failed, using fallback", "probe_failed",
			logging.String("url", target.URL),
			logging.String("fallback_url", target.FallbackURL),
			logging.String(logging.FieldImpact, "video delivered from fallback rendition"),
			logging.Error(err),
		)
		return r.fetch(target.FallbackURL)
	}
	if media.IsPlaylistContentType(contentType) {
		return r.transcode(target.URL)
	}
	if target.FallbackURL != "" {
		return r.fetch(target.FallbackURL)
	}
	return r.fetch(target.URL)
}

func (r *postRun) fetch(url string) error {
	result, err := r.p.fetcher.Fetch(r.ctx, url, r.dir.Path, media.MaxPayloadBytes)
	if errors.Is(err, media.ErrPlaylist) {
		return r.transcode(url)
	}
	if err != nil {
		return err
	}
	r.cleanup = append(r.cleanup, result.Release)
	r.path = result.Path
	r.size = result.Size
	metrics.FetchedBytesTotal.Add(float64(result.Size))
	r.logger(StateResolving).Debug("media fetched",
		logging.String("url", url),
		logging.String("content_type", result.ContentType),
		logging.Int64("bytes", result.Size),
	)
	return nil
}

func (r *postRun) transcode(sourceURL string) error {
	output := r.dir.Join(transcodeFileName)
	start := time.Now()
	result, err := r.p.transcoder.Transcode(r.ctx, sourceURL, output)
	metrics.TranscodeDuration.WithLabelValues(transcodeResultLabel(err)).Observe(time.Since(start).Seconds())
	if err != nil {
		return err
	}
	r.cleanup = append(r.cleanup, result.Release)
	r.path = result.Path
	r.size = result.Size
	r.logger(StateResolving).Info("transcode completed",
		logging.String(logging.FieldEventType, "transcode_complete"),
		logging.String("source_url", sourceURL),
		logging.Int64("bytes", result.Size),
		logging.Duration("elapsed", time.Since(start)),
	)
	return nil
}

func (r *postRun) deliver() State {
	payload, err := delivery.Build(delivery.Request{
		Post:     r.outcome.Post,
		Media:    r.outcome.Media,
		Path:     r.path,
		Size:     r.size,
		TooLarge: r.tooLarge,
	})
	if err != nil {
		return r.fail(err)
	}
	if err := delivery.Send(r.ctx, r.p.channel, payload); err != nil {
		return r.fail(err)
	}

	if payload.LinkOnly() {
		r.outcome.Status = StatusLinkOnly
		r.outcome.Reason = services.Reason(services.ErrTooLarge)
	} else {
		r.outcome.Status = StatusDelivered
		r.outcome.Bytes = payload.Attachment.Size
	}
	r.logger(StateDelivering).Info("post delivered",
		logging.String(logging.FieldEventType, "post_delivered"),
		logging.String("title", r.outcome.Post.Title),
		logging.Bool("link_only", payload.LinkOnly()),
		logging.Int64("bytes", r.outcome.Bytes),
	)
	return StateDone
}

func (r *postRun) fail(err error) State {
	failedIn := r.outcome.State
	r.outcome.Status = StatusFailed
	r.outcome.FailedIn = failedIn
	r.outcome.Err = err
	if errors.Is(err, context.Canceled) || errors.Is(r.ctx.Err(), context.Canceled) {
		r.outcome.Reason = ReasonCancelled
	} else {
		r.outcome.Reason = services.Reason(err)
	}

	logging.WarnWithContext(r.logger(failedIn), "post failed", "post_failed",
		logging.String("title", r.outcome.Post.Title),
		logging.String("url", r.outcome.Media.Resolved().URL),
		logging.String("reason", r.outcome.Reason),
		logging.String(logging.FieldErrorHint, failureHint(err)),
		logging.String(logging.FieldImpact, "post skipped, batch continues"),
		logging.Error(err),
	)
	return StateFailed
}

// release runs cleanups in reverse so files go before their directory.
func (r *postRun) release() {
	for i := len(r.cleanup) - 1; i >= 0; i-- {
		r.cleanup[i]()
	}
	r.cleanup = nil
}

func transcodeResultLabel(err error) string {
	if err == nil {
		return "ok"
	}
	return strings.ToLower(services.Reason(err))
}

func failureHint(err error) string {
	switch {
	case errors.Is(err, services.ErrTimeout):
		return "source was slow to respond or ffmpeg exceeded its wall clock"
	case errors.Is(err, services.ErrProcessFailed), errors.Is(err, services.ErrEmptyOutput):
		return "check ffmpeg output in the error detail"
	case errors.Is(err, services.ErrDelivery):
		return "check the Discord webhook or bot permissions"
	case errors.Is(err, services.ErrNetwork):
		return "media host unreachable or returned an error status"
	default:
		return "see error detail"
	}
}
