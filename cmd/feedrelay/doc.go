// Package main hosts the feedrelay CLI entrypoint and command graph.
//
// The Cobra command tree resolves configuration once, builds the feed client,
// media pipeline, and Discord channel, and prints one status line per post.
// Subcommands for the source catalog, the history ledger, readiness checks,
// and configuration scaffolding share the same wiring.
//
// Keep this package lean: behaviour belongs in the internal packages, and the
// commands here only translate flags into calls against them.
package main
