package scanner

import (
	"math"
	"sort"

	"github.com/john-/ham2mon/radio"
)

// Candidate is a detected spectral peak mapped onto the channel grid for
// one cycle. Candidates are rebuilt from scratch every cycle.
type Candidate struct {
	FreqHz  int64
	PowerDB float64
}

// MinWidthPolicy controls whether single-bin clusters are treated as noise
// spikes when the channel spacing is wider than one bin.
type MinWidthPolicy int

const (
	DiscardNarrowSpikes MinWidthPolicy = iota
	KeepNarrowSpikes
)

// Estimate extracts channel candidates from one power spectrum. Contiguous
// runs of bins above thresholdDB form clusters; each cluster's centroid is
// computed with linear power weights to avoid log-domain bias, then rounded
// onto the spacing grid. Result is ordered by peak power descending with
// frequency ascending as the tie-break, which seeds scheduler preference
// among equal-priority candidates.
func Estimate(s radio.SpectrumSample, thresholdDB float64, spacingHz int64, policy MinWidthPolicy) []Candidate {
	if !s.Valid() {
		return nil
	}
	binHz := s.BinHz()
	var cands []Candidate
	var wsum, fsum, peak float64
	width := 0
	flush := func() {
		if width == 0 {
			return
		}
		if width == 1 && policy == DiscardNarrowSpikes && float64(spacingHz) > binHz {
			wsum, fsum, peak, width = 0, 0, 0, 0
			return
		}
		hz := radio.RoundToSpacing(int64(math.Round(fsum/wsum)), spacingHz)
		// The capture center doubles as the parked sentinel, so a signal
		// rounding exactly onto it is not usable as a channel.
		if hz != int64(s.CenterHz) {
			cands = append(cands, Candidate{FreqHz: hz, PowerDB: peak})
		}
		wsum, fsum, peak, width = 0, 0, 0, 0
	}
	for i, db := range s.DB {
		if db <= thresholdDB {
			flush()
			continue
		}
		w := math.Pow(10, db/10)
		wsum += w
		fsum += w * s.BinFreq(i)
		if width == 0 || db > peak {
			peak = db
		}
		width++
	}
	flush()

	sort.Slice(cands, func(i, j int) bool {
		if cands[i].PowerDB != cands[j].PowerDB {
			return cands[i].PowerDB > cands[j].PowerDB
		}
		return cands[i].FreqHz < cands[j].FreqHz
	})
	// Clusters can round onto the same grid point; keep the stronger one.
	dedup := cands[:0]
	seen := make(map[int64]bool, len(cands))
	for _, c := range cands {
		if !seen[c.FreqHz] {
			seen[c.FreqHz] = true
			dedup = append(dedup, c)
		}
	}
	return dedup
}
