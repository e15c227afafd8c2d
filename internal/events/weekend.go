// internal/events/weekend.go
package events

import (
	"errors"
	"time"
)

// WeeklyWindow is a recurring wall-clock window anchored to a named zone, so
// daylight-saving changes never move the advertised hours.
type WeeklyWindow struct {
	Location    *time.Location
	StartDay    time.Weekday
	StartHour   int
	StartMinute int
	EndDay      time.Weekday
	EndHour     int
	EndMinute   int
	// Grace keeps this week's window selectable for a short time after it opened.
	Grace time.Duration
}

func (w WeeklyWindow) Validate() error {
	if w.Location == nil {
		return errors.New("weekly window requires a location")
	}
	if w.StartHour < 0 || w.StartHour > 23 || w.EndHour < 0 || w.EndHour > 23 {
		return errors.New("weekly window hours must be within 0-23")
	}
	if w.StartMinute < 0 || w.StartMinute > 59 || w.EndMinute < 0 || w.EndMinute > 59 {
		return errors.New("weekly window minutes must be within 0-59")
	}
	if w.Grace < 0 {
		return errors.New("weekly window grace must not be negative")
	}
	return nil
}

// Next returns the next occurrence of the window relative to now. This week's
// window is chosen until now passes its start by more than Grace.
func (w WeeklyWindow) Next(now time.Time) (time.Time, time.Time) {
	local := now.In(w.Location)
	delta := (int(w.StartDay) - int(local.Weekday()) + 7) % 7

	start := w.startOn(local, delta)
	if delta == 0 && !now.Before(start.Add(w.Grace)) {
		start = w.startOn(local, 7)
	}
	return start.UTC(), w.endAfter(start).UTC()
}

func (w WeeklyWindow) startOn(local time.Time, days int) time.Time {
	return time.Date(local.Year(), local.Month(), local.Day()+days, w.StartHour, w.StartMinute, 0, 0, w.Location)
}

func (w WeeklyWindow) endAfter(start time.Time) time.Time {
	days := (int(w.EndDay) - int(w.StartDay) + 7) % 7
	if days == 0 && w.EndHour*60+w.EndMinute <= w.StartHour*60+w.StartMinute {
		days = 7
	}
	return time.Date(start.Year(), start.Month(), start.Day()+days, w.EndHour, w.EndMinute, 0, 0, w.Location)
}
