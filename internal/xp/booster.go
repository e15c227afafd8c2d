// Package xp applies the active Double-XP multiplier to XP awards.
package xp

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"

	"guildpulse/internal/clock"
	"guildpulse/internal/events"
)

// Booster reads the current multiplier from the active double_xp events.
type Booster struct {
	events events.Store
	clock  clock.Clock
}

func NewBooster(store events.Store, clk clock.Clock) *Booster {
	return &Booster{events: store, clock: clk}
}

// Multiplier returns the modifier of the active double_xp event, or 1 when
// none is running. Overlapping events do not stack; the largest wins.
func (b *Booster) Multiplier(ctx context.Context) (float64, error) {
	active, err := b.events.ListActive(ctx, b.clock.Now())
	if err != nil {
		return 1, fmt.Errorf("failed to load active events: %w", err)
	}
	multiplier := 1.0
	for _, e := range active {
		if e.Kind == events.KindDoubleXP && e.Modifier > multiplier {
			multiplier = e.Modifier
		}
	}
	return multiplier, nil
}

// Apply boosts base XP, rounding to the nearest whole point.
func (b *Booster) Apply(ctx context.Context, base int64) (int64, error) {
	multiplier, err := b.Multiplier(ctx)
	if err != nil {
		return base, err
	}
	return int64(math.Round(float64(base) * multiplier)), nil
}

// HandleMultiplier reports the current multiplier.
func (b *Booster) HandleMultiplier(w http.ResponseWriter, r *http.Request) {
	multiplier, err := b.Multiplier(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]float64{"multiplier": multiplier})
}
