package utils

import "time"

// FormatRelativeDate maps t to the display label used for day buckets:
// "Today", "Yesterday", the weekday name when t falls 2 to 6 calendar
// days before now, and "January 2, 2006" for anything older or in the
// future. Both t and now are read in their own locations; only the
// calendar date matters, never time of day or elapsed hours.
func FormatRelativeDate(t, now time.Time) string {
	switch d := daysBetween(t, now); {
	case d == 0:
		return "Today"
	case d == 1:
		return "Yesterday"
	case d >= 2 && d <= 6:
		return t.Weekday().String()
	default:
		return t.Format("January 2, 2006")
	}
}

// daysBetween returns how many calendar days now is ahead of t (negative
// when t is in the future). Dates are re-anchored to UTC midnight before
// subtracting so DST transitions can't shift the count.
func daysBetween(t, now time.Time) int {
	a := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	b := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a) / (24 * time.Hour))
}
