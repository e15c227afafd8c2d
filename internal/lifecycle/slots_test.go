package lifecycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

var (
	slotStart = time.Date(2026, 10, 16, 14, 0, 0, 0, time.UTC)
	slotEnd   = slotStart.Add(59 * time.Hour)
)

const (
	period    = 4 * time.Hour
	tolerance = 5 * time.Minute
)

func TestReminderSlot(t *testing.T) {
	tests := []struct {
		name   string
		now    time.Time
		want   time.Time
		wantOK bool
	}{
		{"before start", slotStart.Add(-time.Minute), time.Time{}, false},
		{"first period not elapsed", slotStart.Add(3 * time.Hour), time.Time{}, false},
		{"on the boundary", slotStart.Add(4 * time.Hour), slotStart.Add(4 * time.Hour), true},
		{"inside tolerance", slotStart.Add(4*time.Hour + 2*time.Minute), slotStart.Add(4 * time.Hour), true},
		{"edge of tolerance", slotStart.Add(4*time.Hour + 5*time.Minute), slotStart.Add(4 * time.Hour), true},
		{"past tolerance", slotStart.Add(4*time.Hour + 6*time.Minute), time.Time{}, false},
		{"backlog only returns the latest boundary", slotStart.Add(12*time.Hour + 3*time.Minute), slotStart.Add(12 * time.Hour), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ReminderSlot(slotStart, slotEnd, tt.now, period, tolerance)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReminderSlotNeverAtOrPastEnd(t *testing.T) {
	end := slotStart.Add(8 * time.Hour)
	_, ok := ReminderSlot(slotStart, end, end.Add(time.Minute), period, tolerance)
	assert.False(t, ok)

	got, ok := ReminderSlot(slotStart, end, slotStart.Add(4*time.Hour+time.Minute), period, tolerance)
	assert.True(t, ok)
	assert.Equal(t, slotStart.Add(4*time.Hour), got)
}

func TestSlotKey(t *testing.T) {
	assert.Equal(t, "4h:2026-10-16T18:00:00Z", SlotKey(4*time.Hour, slotStart.Add(4*time.Hour)))
	assert.Equal(t, "90m:2026-10-16T15:30:00Z", SlotKey(90*time.Minute, slotStart.Add(90*time.Minute)))
	assert.Equal(t, "4h:2026-10-16T18:00:00Z", SlotKey(4*time.Hour, slotStart.Add(4*time.Hour+30*time.Second)))

	ny, err := time.LoadLocation("America/New_York")
	if assert.NoError(t, err) {
		assert.Equal(t, "4h:2026-10-16T18:00:00Z", SlotKey(4*time.Hour, slotStart.Add(4*time.Hour).In(ny)))
	}
}

// Every sweep inside one tolerance window must derive the same key.
func TestReminderSlotDeterministic(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 14).Draw(t, "n")
		a := rapid.Int64Range(0, int64(tolerance)).Draw(t, "a")
		b := rapid.Int64Range(0, int64(tolerance)).Draw(t, "b")
		boundary := slotStart.Add(time.Duration(n) * period)

		ba, okA := ReminderSlot(slotStart, slotEnd, boundary.Add(time.Duration(a)), period, tolerance)
		bb, okB := ReminderSlot(slotStart, slotEnd, boundary.Add(time.Duration(b)), period, tolerance)
		if !okA || !okB {
			t.Fatalf("boundary %d not observed: %v %v", n, okA, okB)
		}
		if SlotKey(period, ba) != SlotKey(period, bb) {
			t.Fatalf("keys differ: %s vs %s", SlotKey(period, ba), SlotKey(period, bb))
		}
	})
}

func TestConfigValidate(t *testing.T) {
	ok := Config{TickInterval: 5 * time.Minute, ReminderPeriod: 4 * time.Hour, ReminderTolerance: 5 * time.Minute}
	assert.NoError(t, ok.Validate())

	short := ok
	short.ReminderTolerance = 4 * time.Minute
	assert.ErrorIs(t, short.Validate(), ErrInvalidConfig)

	zero := ok
	zero.ReminderPeriod = 0
	assert.ErrorIs(t, zero.Validate(), ErrInvalidConfig)
}
