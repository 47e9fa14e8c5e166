// Package logs reads the daily feedrelay log files for `feedrelay logs`.
//
// Tail returns the last N lines of a file with bounded memory, and Follow
// polls from an offset so a follow session picks up lines appended by a run
// in another terminal. The newest file is located with Latest.
package logs
