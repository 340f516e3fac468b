package utils

import (
	"fmt"
	"math"
)

// FormatSRTTimestamp formats milliseconds to SRT timestamp format (HH:MM:SS,mmm)
func FormatSRTTimestamp(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	h := ms / 3_600_000
	m := (ms % 3_600_000) / 60_000
	s := (ms % 60_000) / 1000

	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms%1000)
}

// SecondsToMs converts fractional seconds to whole milliseconds.
func SecondsToMs(seconds float64) int64 {
	return int64(math.Round(seconds * 1000))
}
