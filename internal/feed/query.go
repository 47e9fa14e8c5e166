package feed

import (
	"fmt"
	"strings"
)

// Filter is a Reddit listing order.
type Filter string

const (
	FilterHot           Filter = "hot"
	FilterNew           Filter = "new"
	FilterTop           Filter = "top"
	FilterRising        Filter = "rising"
	FilterControversial Filter = "controversial"
)

// Filters lists every supported listing order.
var Filters = []Filter{FilterHot, FilterNew, FilterTop, FilterRising, FilterControversial}

// NeedsTimeRange reports whether the listing requires a time window.
func (f Filter) NeedsTimeRange() bool {
	return f == FilterTop || f == FilterControversial
}

// ParseFilter normalizes and validates a filter name.
func ParseFilter(value string) (Filter, error) {
	normalized := Filter(strings.ToLower(strings.TrimSpace(value)))
	for _, f := range Filters {
		if f == normalized {
			return f, nil
		}
	}
	return "", fmt.Errorf("unsupported filter %q (want one of %s)", value, joinFilters())
}

// TimeRange is the window applied to top and controversial listings.
type TimeRange string

const (
	TimeHour  TimeRange = "hour"
	TimeDay   TimeRange = "day"
	TimeWeek  TimeRange = "week"
	TimeMonth TimeRange = "month"
	TimeYear  TimeRange = "year"
	TimeAll   TimeRange = "all"
)

// TimeRanges lists every supported time window.
var TimeRanges = []TimeRange{TimeHour, TimeDay, TimeWeek, TimeMonth, TimeYear, TimeAll}

// ParseTimeRange normalizes and validates a time window. An empty value is
// accepted and returned unchanged.
func ParseTimeRange(value string) (TimeRange, error) {
	normalized := TimeRange(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", nil
	}
	for _, tr := range TimeRanges {
		if tr == normalized {
			return tr, nil
		}
	}
	return "", fmt.Errorf("unsupported time range %q (want one of hour, day, week, month, year, all)", value)
}

// Query selects the posts a batch processes.
type Query struct {
	Source    string
	Limit     int
	Filter    Filter
	TimeRange TimeRange
}

// Validate checks the query against the listing contract.
func (q Query) Validate() error {
	if !ValidSourceName(q.Source) {
		return fmt.Errorf("invalid source name %q", q.Source)
	}
	if q.Limit < 1 {
		return fmt.Errorf("limit must be at least 1, got %d", q.Limit)
	}
	if _, err := ParseFilter(string(q.Filter)); err != nil {
		return err
	}
	if q.Filter.NeedsTimeRange() {
		if q.TimeRange == "" {
			return fmt.Errorf("time range is required for the %s filter", q.Filter)
		}
		if _, err := ParseTimeRange(string(q.TimeRange)); err != nil {
			return err
		}
	}
	return nil
}

// ClampLimit bounds a requested post count to 1..max.
func ClampLimit(requested, max int) int {
	if max < 1 {
		max = 1
	}
	switch {
	case requested < 1:
		return 1
	case requested > max:
		return max
	default:
		return requested
	}
}

func joinFilters() string {
	names := make([]string, len(Filters))
	for i, f := range Filters {
		names[i] = string(f)
	}
	return strings.Join(names, ", ")
}
