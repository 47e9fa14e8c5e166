package services

import (
	"errors"
	"fmt"
	"strings"
)

// Pipeline error taxonomy. Every failure surfaced by a stage carries exactly
// one of these markers so the batch runner can classify it with errors.Is.
var (
	ErrNoMedia       = errors.New("no media")
	ErrNetwork       = errors.New("network failure")
	ErrTooLarge      = errors.New("too large")
	ErrTimeout       = errors.New("timeout")
	ErrProcessFailed = errors.New("process failed")
	ErrEmptyOutput   = errors.New("empty output")
	ErrDelivery      = errors.New("delivery error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of
// the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrNetwork
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Reason maps an error to the short taxonomy name used in per-post status
// lines and the history ledger. Unclassified errors report "unknown".
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNoMedia):
		return "NoMedia"
	case errors.Is(err, ErrTooLarge):
		return "TooLarge"
	case errors.Is(err, ErrTimeout):
		return "Timeout"
	case errors.Is(err, ErrProcessFailed):
		return "ProcessFailed"
	case errors.Is(err, ErrEmptyOutput):
		return "EmptyOutput"
	case errors.Is(err, ErrDelivery):
		return "DeliveryError"
	case errors.Is(err, ErrNetwork):
		return "NetworkFailure"
	case errors.Is(err, ErrValidation):
		return "ValidationError"
	case errors.Is(err, ErrConfiguration):
		return "ConfigurationError"
	default:
		return "unknown"
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
