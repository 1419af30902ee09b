// utils/timeutil.go
package utils

import "time"

// All timestamps are stored as unix seconds; these helpers keep the
// conversions in one place.

func NowUnixSeconds() int64 { return time.Now().Unix() }

// Returns zero time if t<=0 to let callers decide how to render.
func FromUnixSeconds(t int64) time.Time {
	if t <= 0 {
		return time.Time{}
	}
	return time.Unix(t, 0).UTC()
}

func FormatRFC3339(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
