package marketdata

import "time"

// Business-day helpers: pure Monday-to-Friday calendar math, no holiday
// calendar. Exchange holidays show up as data gaps and are absorbed by the
// nearby-price fallback instead.

// IsBusinessDay reports whether t falls on a weekday.
func IsBusinessDay(t time.Time) bool {
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	return true
}

// NextBusinessDay returns the first weekday strictly after t.
func NextBusinessDay(t time.Time) time.Time {
	d := t.AddDate(0, 0, 1)
	for !IsBusinessDay(d) {
		d = d.AddDate(0, 0, 1)
	}
	return d
}

// PreviousBusinessDay returns the last weekday strictly before t.
func PreviousBusinessDay(t time.Time) time.Time {
	d := t.AddDate(0, 0, -1)
	for !IsBusinessDay(d) {
		d = d.AddDate(0, 0, -1)
	}
	return d
}

// BusinessDaysCount returns the number of weekdays in [start, end] inclusive.
// Returns 0 when start is after end.
func BusinessDaysCount(start, end time.Time) int {
	start = normalizeDay(start)
	end = normalizeDay(end)

	count := 0
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if IsBusinessDay(d) {
			count++
		}
	}
	return count
}

// normalizeDay truncates t to midnight UTC so that date comparisons ignore
// the time-of-day component.
func normalizeDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
