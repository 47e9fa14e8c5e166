// Package pipeline moves posts from classification to delivery.
//
// Pipeline.Process drives one post through the Classifying, Resolving,
// Delivering and Done states, landing in Failed with a taxonomy reason when
// any step cannot continue. Runner.Run processes a batch sequentially in feed
// order and never lets one post abort the rest; it also owns batch-level
// concerns such as history records, notifications, and metrics.
package pipeline
