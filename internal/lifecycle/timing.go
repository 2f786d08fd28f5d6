package lifecycle

import (
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

const secondsPerDay = 24 * 60 * 60

// ParseTimestamp parses a loosely formatted timestamp. Empty input means absent and
// yields nil without error. Values without a zone are read as UTC; the result is
// always normalized to UTC.
func ParseTimestamp(value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" || strings.EqualFold(value, "null") {
		return nil, nil
	}

	parsed, err := dateparse.ParseIn(value, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("parse timestamp %q: %w", value, err)
	}

	utc := parsed.UTC()
	return &utc, nil
}

// ApprovalTimeDays returns days from creation to the terminal event. Merge wins over
// close. Negative deltas from skewed data are returned as-is.
func ApprovalTimeDays(created, merged, closed *time.Time) *float64 {
	if created == nil {
		return nil
	}

	terminal := merged
	if terminal == nil {
		terminal = closed
	}
	if terminal == nil {
		return nil
	}

	days := terminal.UTC().Sub(created.UTC()).Seconds() / secondsPerDay
	return &days
}
