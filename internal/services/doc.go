// Package services defines shared utilities consumed by the pipeline stages
// and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp batch IDs, feed positions, and stage names
//     for logging.
//   - Structured error markers plus the Wrap helper that translate failures
//     into the per-post outcome taxonomy (no media, too large, timeout, ...).
//
// Use these helpers when wiring new stage logic so operational behaviour (error
// handling, observability) stays uniform across the pipeline.
package services
