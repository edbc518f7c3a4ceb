package notifications

import (
	"time"

	"github.com/albapepper/courtwatch/internal/rules"
)

// LocalHour returns the hour of now in the rule's fixed UTC offset.
// Fractional offsets such as +5.5 are honoured.
func LocalHour(now time.Time, offsetHours float64) int {
	offset := time.Duration(offsetHours * float64(time.Hour))
	return now.UTC().Add(offset).Hour()
}

// InQuietHours reports whether now falls inside the rule's quiet window.
// The window is [start, end) in local hours and wraps past midnight when
// start > end. start == end means no window.
func InQuietHours(rule *rules.Rule, now time.Time) bool {
	if !rule.QuietHoursEnabled {
		return false
	}
	start, end := rule.QuietStartHour, rule.QuietEndHour
	if start == end {
		return false
	}
	h := LocalHour(now, rule.TimezoneOffset)
	if start < end {
		return h >= start && h < end
	}
	return h >= start || h < end
}
