// Package history persists per-post outcomes of each feed run in SQLite.
//
// The ledger is write-mostly: the batch runner records one row per post and
// the CLI reads recent rows back for the history command. It is never
// consulted to skip or deduplicate posts.
package history
