package util

import "time"

// SecondsPerDay is the prediction horizon used for next-day estimates.
const SecondsPerDay int64 = 86400

// FromUnixMilli converts an exchange millisecond timestamp to UTC time.
func FromUnixMilli(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
