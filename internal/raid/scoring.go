// internal/raid/scoring.go
package raid

import (
	"fmt"
	"math"
)

// Scorer converts raw activity values to points with per-category weights.
type Scorer map[string]int64

func (s Scorer) Points(category string, rawValue int64) (int64, error) {
	weight, ok := s[category]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownCategory, category)
	}
	if rawValue < 0 || weight < 0 {
		return 0, ErrInvalidValue
	}
	if weight > 0 && rawValue > math.MaxInt64/weight {
		return 0, fmt.Errorf("%w: %d %s at weight %d overflows", ErrInvalidValue, rawValue, category, weight)
	}
	return rawValue * weight, nil
}
