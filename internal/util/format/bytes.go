// Package format renders byte counts for CLI tables and TUI status lines.
package format

import (
	"math"
	"strconv"
)

var units = [...]string{"KB", "MB", "GB", "TB", "PB", "EB"}

// HumanizeBytes renders b in binary units with one decimal, e.g. "1.5 MB".
// Negative counts keep their sign so size deltas read naturally.
func HumanizeBytes(b int64) string {
	if b < 0 {
		if b == math.MinInt64 {
			return "-8.0 EB"
		}
		return "-" + HumanizeBytes(-b)
	}
	if b < 1024 {
		return strconv.FormatInt(b, 10) + " B"
	}
	v := float64(b)
	exp := -1
	for v >= 1024 && exp < len(units)-1 {
		v /= 1024
		exp++
	}
	// 1023.95 KB rounds to "1024.0 KB"; promote it.
	if v >= 1023.95 && exp < len(units)-1 {
		v /= 1024
		exp++
	}
	return strconv.FormatFloat(v, 'f', 1, 64) + " " + units[exp]
}

// Size renders a rendition or deliverable size. Zero and negative sizes
// mean the size is not known up front and render as "?".
func Size(n int64) string {
	if n <= 0 {
		return "?"
	}
	return HumanizeBytes(n)
}

// Saved renders the bytes saved going from original to compressed, signed
// so a larger output shows as a negative saving.
func Saved(original, compressed int64) string {
	return HumanizeBytes(original - compressed)
}
