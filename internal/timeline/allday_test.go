package timeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDayBounds(t *testing.T) {
	zone := time.FixedZone("UTC+3", 3*60*60)

	t.Run("whole day boundaries in the viewer zone", func(t *testing.T) {
		picked := time.Date(2024, 3, 10, 14, 45, 0, 0, zone)
		start, end := DayBounds(picked, zone)

		require.Equal(t, time.Date(2024, 3, 10, 0, 0, 0, 0, zone), start)
		require.Equal(t, time.Date(2024, 3, 10, 23, 59, 59, 999000000, zone), end)
	})

	t.Run("instant from another zone snaps to the viewer day", func(t *testing.T) {
		// 23:00 UTC is already 02:00 next day in UTC+3.
		picked := time.Date(2024, 3, 10, 23, 0, 0, 0, time.UTC)
		start, _ := DayBounds(picked, zone)

		require.Equal(t, time.Date(2024, 3, 11, 0, 0, 0, 0, zone), start)
	})

	t.Run("round trip reproduces the calendar date", func(t *testing.T) {
		picked := time.Date(2024, 3, 10, 9, 30, 0, 0, zone)
		start, end := DayBounds(picked, zone)

		// Stored instants travel over the wire as UTC; mapping back must
		// reproduce the day the user picked.
		day := DayOf(start.UTC(), zone)
		require.Equal(t, 2024, day.Year())
		require.Equal(t, time.March, day.Month())
		require.Equal(t, 10, day.Day())
		require.Equal(t, day, DayOf(end.UTC(), zone))
	})
}
