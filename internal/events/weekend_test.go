package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newYorkWeekend(t *testing.T) WeeklyWindow {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	w := WeeklyWindow{
		Location:  loc,
		StartDay:  time.Friday,
		StartHour: 10,
		EndDay:    time.Sunday,
		EndHour:   21,
		Grace:     5 * time.Minute,
	}
	require.NoError(t, w.Validate())
	return w
}

func utc(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestWeeklyWindowNext(t *testing.T) {
	w := newYorkWeekend(t)

	tests := []struct {
		name      string
		now       string
		wantStart string
		wantEnd   string
	}{
		{
			name:      "monday picks this friday",
			now:       "2026-10-12T12:00:00Z",
			wantStart: "2026-10-16T14:00:00Z",
			wantEnd:   "2026-10-19T01:00:00Z",
		},
		{
			name:      "saturday rolls to next week",
			now:       "2026-10-17T12:00:00Z",
			wantStart: "2026-10-23T14:00:00Z",
			wantEnd:   "2026-10-26T01:00:00Z",
		},
		{
			name:      "just before the boundary",
			now:       "2026-10-16T13:59:00Z",
			wantStart: "2026-10-16T14:00:00Z",
			wantEnd:   "2026-10-19T01:00:00Z",
		},
		{
			name:      "inside the grace period",
			now:       "2026-10-16T14:03:00Z",
			wantStart: "2026-10-16T14:00:00Z",
			wantEnd:   "2026-10-19T01:00:00Z",
		},
		{
			name:      "grace elapsed",
			now:       "2026-10-16T14:05:00Z",
			wantStart: "2026-10-23T14:00:00Z",
			wantEnd:   "2026-10-26T01:00:00Z",
		},
		{
			name:      "friday evening local is saturday in utc",
			now:       "2026-10-17T02:00:00Z",
			wantStart: "2026-10-23T14:00:00Z",
			wantEnd:   "2026-10-26T01:00:00Z",
		},
		{
			name:      "window spanning the end of daylight saving",
			now:       "2026-10-26T12:00:00Z",
			wantStart: "2026-10-30T14:00:00Z",
			wantEnd:   "2026-11-02T02:00:00Z",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := w.Next(utc(tt.now))
			assert.Equal(t, utc(tt.wantStart), start)
			assert.Equal(t, utc(tt.wantEnd), end)
			assert.Equal(t, time.UTC, start.Location())
		})
	}
}

func TestWeeklyWindowKeepsWallClockHours(t *testing.T) {
	w := newYorkWeekend(t)
	now := utc("2026-09-01T00:00:00Z")
	for i := 0; i < 20; i++ {
		start, end := w.Next(now)
		ls, le := start.In(w.Location), end.In(w.Location)
		assert.Equal(t, time.Friday, ls.Weekday())
		assert.Equal(t, 10, ls.Hour())
		assert.Equal(t, time.Sunday, le.Weekday())
		assert.Equal(t, 21, le.Hour())
		now = start.Add(w.Grace)
	}
}

func TestWeeklyWindowValidate(t *testing.T) {
	w := newYorkWeekend(t)

	bad := w
	bad.Location = nil
	assert.Error(t, bad.Validate())

	bad = w
	bad.EndHour = 24
	assert.Error(t, bad.Validate())

	bad = w
	bad.Grace = -time.Minute
	assert.Error(t, bad.Validate())
}

func TestWeeklyWindowSameDay(t *testing.T) {
	w := newYorkWeekend(t)
	w.EndDay = time.Friday
	w.EndHour = 9

	start, end := w.Next(utc("2026-10-12T12:00:00Z"))
	assert.Equal(t, utc("2026-10-16T14:00:00Z"), start)
	assert.Equal(t, utc("2026-10-23T13:00:00Z"), end)
}
