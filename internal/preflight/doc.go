// Package preflight provides readiness checks for the binaries, directories,
// and remote services a feed run depends on.
//
// The "feedrelay check" command prints every result; "feedrelay run" calls
// RunAll before fetching the listing and refuses to start when a required
// check fails, so a broken ffmpeg or webhook is reported once instead of once
// per post.
package preflight
