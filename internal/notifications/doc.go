// Package notifications sends ntfy push notifications about feed runs.
//
// Only batch-level events are published (start, completion summary, and
// errors); per-post chatter stays in the logs. When no topic is configured a
// no-op implementation is returned so callers never need nil checks.
package notifications
