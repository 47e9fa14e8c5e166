package logging

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// Console lines only carry the time of day; the dated log file name and the
// JSON ts field hold the full timestamp.
const consoleTimeLayout = "15:04:05"

func consoleTime(ts time.Time) string {
	return ts.In(time.Local).Format(consoleTimeLayout)
}

// plainValue renders v without quoting, for subject fields.
func plainValue(v slog.Value) string {
	v = v.Resolve()
	if v.Kind() == slog.KindAny {
		if err, ok := v.Any().(error); ok {
			return err.Error()
		}
		return fmt.Sprint(v.Any())
	}
	return v.String()
}

// consoleValue renders the value half of a key=value pair. Byte counts of
// 1 KiB or more gain a binary-unit size and durations are rounded to
// milliseconds.
func consoleValue(key string, v slog.Value) string {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindInt64:
		n := v.Int64()
		if isByteKey(key) && n >= 1024 {
			return strconv.FormatInt(n, 10) + "(" + humanBytes(n) + ")"
		}
		return strconv.FormatInt(n, 10)
	case slog.KindDuration:
		return v.Duration().Round(time.Millisecond).String()
	case slog.KindTime:
		return v.Time().In(time.Local).Format(time.RFC3339)
	default:
		return quoteIfNeeded(plainValue(v))
	}
}

func isByteKey(key string) bool {
	return key == "bytes" || strings.HasSuffix(key, "_bytes")
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return strconv.FormatInt(n, 10) + "B"
	}
	value := float64(n)
	suffixes := []string{"KiB", "MiB", "GiB"}
	i := -1
	for value >= unit && i < len(suffixes)-1 {
		value /= unit
		i++
	}
	return strconv.FormatFloat(value, 'f', 1, 64) + suffixes[i]
}

func quoteIfNeeded(s string) string {
	if s == "" {
		return `""`
	}
	for _, r := range s {
		if r <= ' ' || r == '=' || r == '"' {
			return strconv.Quote(s)
		}
	}
	return s
}
