// Package ledger records which reminders have already been delivered. Keys
// are only ever added, never removed or flipped back, so a reminder for a
// given (event, start) occurrence can fire at most once per profile.
package ledger

import (
	"fmt"
	"time"
)

const keyPrefix = "reminder_delivered"

// Key builds the composite occurrence key. The start instant participates so
// that rescheduling an event produces a fresh occurrence with its own
// delivery record.
func Key(eventID string, start time.Time) string {
	return fmt.Sprintf("%s:%s:%s", keyPrefix, eventID, start.UTC().Format(time.RFC3339))
}
