// Package calendar holds the day and week arithmetic shared by the
// scheduler, the experience ledger and the league job.
package calendar

import "time"

// StartOfDay truncates t to midnight in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// AddDays moves a midnight-normalized date by n calendar days.
func AddDays(t time.Time, n int) time.Time {
	return StartOfDay(t).AddDate(0, 0, n)
}

// StartOfWeek returns Monday 00:00 of the week containing t.
func StartOfWeek(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	return AddDays(t, -offset)
}

// PreviousWeek returns the Monday 00:00 to Sunday 23:59:59.999999999 window
// of the week before the one containing now.
func PreviousWeek(now time.Time) (start, end time.Time) {
	thisMonday := StartOfWeek(now)
	return thisMonday.AddDate(0, 0, -7), thisMonday.Add(-time.Nanosecond)
}
