package ui

import (
	"fmt"
	"time"

	"github.com/amonks/ledger/internal/age"
)

// FormatTimeAgo returns a compact age string like "2m ago".
func FormatTimeAgo(then time.Time, now time.Time) string {
	duration, ok := age.AgeData(then, now)
	if !ok {
		return "-"
	}
	return FormatDurationShort(duration) + " ago"
}

// FormatRemaining describes how long a lease has left, like "1h left" or
// "expired".
func FormatRemaining(grantedAt time.Time, ttl time.Duration, now time.Time) string {
	left, expired := age.Remaining(grantedAt, ttl, now)
	if expired {
		return "expired"
	}
	return FormatDurationShort(left) + " left"
}

// FormatDurationShort formats a duration using short units (s/m/h/d).
func FormatDurationShort(duration time.Duration) string {
	if duration < 0 {
		duration = 0
	}

	duration = duration.Truncate(time.Second)
	seconds := int64(duration.Seconds())
	if seconds < 60 {
		return fmt.Sprintf("%ds", seconds)
	}

	minutes := seconds / 60
	if minutes < 60 {
		return fmt.Sprintf("%dm", minutes)
	}

	hours := minutes / 60
	if hours < 24 {
		return fmt.Sprintf("%dh", hours)
	}

	days := hours / 24
	return fmt.Sprintf("%dd", days)
}
