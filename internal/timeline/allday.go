package timeline

import "time"

// DayBounds returns the whole-day boundaries of the calendar day containing
// t in the viewer's zone. All-day events are stored with these instants, not
// UTC day boundaries; the end sits at the last representable millisecond of
// the day since the wire format carries millisecond precision.
func DayBounds(t time.Time, loc *time.Location) (start, end time.Time) {
	local := t.In(loc)
	start = time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	end = start.AddDate(0, 0, 1).Add(-time.Millisecond)
	return start, end
}

// DayOf maps a stored all-day start back to its calendar date in the
// viewer's zone, so reopening an all-day event reproduces the day the user
// originally picked.
func DayOf(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}
