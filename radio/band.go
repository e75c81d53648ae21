package radio

import (
	"math"
)

// HzBand is a capture window: center frequency and width in Hz.
type HzBand struct {
	Center uint64 `json:"center_hz"`
	Width  uint64 `json:"width_hz"`
}

// RoundToSpacing quantizes an RF frequency onto the channel spacing grid.
// Spacing applies to the absolute frequency, not the baseband offset, so
// the grid stays aligned when the capture window moves.
func RoundToSpacing(hz int64, spacingHz int64) int64 {
	if spacingHz <= 0 {
		return hz
	}
	return int64(math.Round(float64(hz)/float64(spacingHz))) * spacingHz
}
