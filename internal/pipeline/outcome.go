package pipeline

import (
	"time"

	"feedrelay/internal/media"
)

// State is a step of the per-post state machine.
type State string

const (
	StateClassifying State = "classifying"
	StateResolving   State = "resolving"
	StateDelivering  State = "delivering"
	StateDone        State = "done"
	StateFailed      State = "failed"
)

// Terminal reports whether the machine stops in this state.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// Status is the user-facing result of one post.
type Status string

const (
	StatusDelivered Status = "delivered"
	StatusLinkOnly  Status = "link_only"
	StatusNoMedia   Status = "no_media"
	StatusFailed    Status = "failed"
)

// ReasonCancelled marks posts that never ran because the batch was interrupted.
const ReasonCancelled = "Cancelled"

// Outcome is the result of processing one post. FailedIn records the state
// the machine left when it failed.
type Outcome struct {
	Index    int
	Post     media.Post
	Media    media.Media
	State    State
	Status   Status
	FailedIn State
	Reason   string
	Err      error
	Bytes    int64
	Elapsed  time.Duration
}

// StatusLine renders the one-line report printed per post.
func (o Outcome) StatusLine() string {
	switch o.Status {
	case StatusDelivered:
		return "delivered"
	case StatusLinkOnly:
		return "skipped: too large, link only"
	case StatusNoMedia:
		return "skipped: no media"
	default:
		reason := o.Reason
		if reason == "" {
			reason = "unknown"
		}
		return "failed: " + reason
	}
}
