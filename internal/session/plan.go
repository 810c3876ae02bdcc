package session

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
)

// Kind-specific fallbacks when a plan label carries no parsable minutes.
const (
	DefaultCallSeconds = 300
	DefaultChatSeconds = 900
)

// Plan labels are free text ("10 min Call", "15 min Chat Plan – ₹15"). The
// duration is the first integer directly followed by "min", case-insensitive.
var planMinutesRe = regexp.MustCompile(`(?i)(\d+)\s*min`)

// PlanMinutes extracts the minute count from a plan label. Returns 0 when the
// label has no parsable "N min" part.
func PlanMinutes(label string) int {
	m := planMinutesRe.FindStringSubmatch(label)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}

// PlanSeconds converts a plan label to a duration in seconds, falling back to
// the kind default when the label is unparsable.
func PlanSeconds(label string, kind Kind) int {
	if m := PlanMinutes(label); m > 0 {
		return m * 60
	}
	if kind == Chat {
		return DefaultChatSeconds
	}
	return DefaultCallSeconds
}

// FormatDuration renders total seconds as mm:ss. Minutes are not capped at
// 59, so a 65-minute session reads "65:00".
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

// minuteLabel rebuilds a plan label from a duration, e.g. "15 min Call".
// History entries carry this recomputed label rather than the original free
// text.
func minuteLabel(planDuration int, kind Kind) string {
	minutes := int(math.Round(float64(planDuration) / 60.0))
	if kind == Chat {
		return fmt.Sprintf("%d min Chat", minutes)
	}
	return fmt.Sprintf("%d min Call", minutes)
}
