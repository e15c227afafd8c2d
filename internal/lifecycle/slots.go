// internal/lifecycle/slots.go
package lifecycle

import (
	"fmt"
	"time"
)

// ReminderSlot returns the latest periodic boundary (start + n*period, n >= 1)
// at or before now, provided now is within tolerance of it and the boundary
// is strictly before end. Older boundaries are never returned, so an outage
// longer than the tolerance skips the reminders it missed.
func ReminderSlot(start, end, now time.Time, period, tolerance time.Duration) (time.Time, bool) {
	if period <= 0 || now.Before(start) {
		return time.Time{}, false
	}
	n := int64(now.Sub(start) / period)
	if n < 1 {
		return time.Time{}, false
	}
	boundary := start.Add(time.Duration(n) * period)
	if !boundary.Before(end) {
		return time.Time{}, false
	}
	if now.Sub(boundary) > tolerance {
		return time.Time{}, false
	}
	return boundary, true
}

// SlotKey derives the ledger key for a periodic boundary, e.g.
// "4h:2026-10-16T18:00:00Z". It depends only on its inputs.
func SlotKey(period time.Duration, boundary time.Time) string {
	return fmt.Sprintf("%s:%s", periodLabel(period), boundary.UTC().Truncate(time.Minute).Format(time.RFC3339))
}

func periodLabel(period time.Duration) string {
	switch {
	case period%time.Hour == 0:
		return fmt.Sprintf("%dh", int64(period/time.Hour))
	case period%time.Minute == 0:
		return fmt.Sprintf("%dm", int64(period/time.Minute))
	default:
		return period.String()
	}
}
