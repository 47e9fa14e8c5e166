package services

import "context"

type contextKey string

const (
	batchIDKey   contextKey = "batch_id"
	postIndexKey contextKey = "post_index"
	stageKey     contextKey = "stage"
)

// WithBatchID annotates context with the batch correlation identifier.
func WithBatchID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, batchIDKey, id)
}

// BatchIDFromContext extracts the batch correlation identifier if present.
func BatchIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(batchIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithPostIndex annotates context with the 1-based feed position of a post.
func WithPostIndex(ctx context.Context, index int) context.Context {
	return context.WithValue(ctx, postIndexKey, index)
}

// PostIndexFromContext extracts the feed position if present.
func PostIndexFromContext(ctx context.Context) (int, bool) {
	v := ctx.Value(postIndexKey)
	if v == nil {
		return 0, false
	}
	switch val := v.(type) {
	case int:
		return val, true
	case int64:
		return int(val), true
	default:
		return 0, false
	}
}

// WithStage annotates context with the pipeline stage name.
func WithStage(ctx context.Context, stage string) context.Context {
	if stage == "" {
		return ctx
	}
	return context.WithValue(ctx, stageKey, stage)
}

// StageFromContext returns the stage name if present.
func StageFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(stageKey)
	if str, ok := v.(string); ok && str != "" {
		return str, true
	}
	return "", false
}
