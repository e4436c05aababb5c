// Package age computes display durations for claims.
package age

import "time"

// AgeData returns how long ago startedAt was, clamped at zero, and whether
// a start time exists.
func AgeData(startedAt time.Time, now time.Time) (time.Duration, bool) {
	if startedAt.IsZero() {
		return 0, false
	}
	return max(now.Sub(startedAt), 0), true
}

// Remaining returns the time left before a lease granted at grantedAt runs
// out. expired is true once more than ttl has elapsed; a
// lease exactly ttl old is still live.
func Remaining(grantedAt time.Time, ttl time.Duration, now time.Time) (left time.Duration, expired bool) {
	elapsed := max(now.Sub(grantedAt), 0)
	if elapsed > ttl {
		return 0, true
	}
	return ttl - elapsed, false
}
