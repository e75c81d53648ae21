package scanner

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var ErrNoSteps = errors.New("no scan frequencies configured")

// FreqSpec is one -f argument: a single frequency or a lo-hi range in MHz.
type FreqSpec struct {
	LoHz uint64
	HiHz uint64 // 0 for a single frequency
}

// ParseFreqSpec accepts "146.55" or "450.0-459.0" (MHz).
func ParseFreqSpec(s string) (FreqSpec, error) {
	if lo, hi, ok := strings.Cut(s, "-"); ok {
		loMHz, err := strconv.ParseFloat(strings.TrimSpace(lo), 64)
		if err != nil {
			return FreqSpec{}, fmt.Errorf("bad frequency range %q: %w", s, err)
		}
		hiMHz, err := strconv.ParseFloat(strings.TrimSpace(hi), 64)
		if err != nil {
			return FreqSpec{}, fmt.Errorf("bad frequency range %q: %w", s, err)
		}
		if loMHz >= hiMHz {
			return FreqSpec{}, fmt.Errorf("bad frequency range %q: upper must exceed lower", s)
		}
		return FreqSpec{LoHz: uint64(loMHz * 1e6), HiHz: uint64(hiMHz * 1e6)}, nil
	}
	mhz, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return FreqSpec{}, fmt.Errorf("bad frequency %q: %w", s, err)
	}
	return FreqSpec{LoHz: uint64(mhz * 1e6)}, nil
}

// RangeSteps expands the configured frequencies into capture-window center
// steps. Singles are their own centers. A range narrower than the sample
// rate collapses to its midpoint; wider ranges place the first and last
// centers half a window inside the edges and divide the interior evenly.
func RangeSteps(specs []FreqSpec, sampleRate uint32) ([]uint64, error) {
	var steps []uint64
	rate := uint64(sampleRate)
	for _, sp := range specs {
		if sp.HiHz == 0 {
			steps = append(steps, sp.LoHz)
			continue
		}
		if sp.HiHz-sp.LoHz <= rate {
			steps = append(steps, sp.LoHz+(sp.HiHz-sp.LoHz)/2)
			continue
		}
		start := sp.LoHz + rate/2
		end := sp.HiHz - rate/2
		moves := int((end-start)/rate) + 2
		dist := (end - start) / uint64(moves-1)
		c := start
		for i := 0; i < moves; i++ {
			steps = append(steps, c)
			c += dist
		}
	}
	if len(steps) == 0 {
		return nil, ErrNoSteps
	}
	return steps, nil
}

// RangeScanner steps the capture window across the configured spans,
// holding on a span while it shows qualifying activity and advancing after
// quiet, with a hard cap so one busy span cannot stall the sweep.
type RangeScanner struct {
	steps        []uint64
	idx          int
	entered      time.Time
	lastActivity time.Time
	quiet        time.Duration
	active       time.Duration
}

type RangeProgress struct {
	Index   int     `json:"index"`
	Total   int     `json:"total"`
	Percent float64 `json:"percent"`
}

func NewRangeScanner(steps []uint64, quiet, active time.Duration, now time.Time) *RangeScanner {
	return &RangeScanner{
		steps:        steps,
		entered:      now,
		lastActivity: now,
		quiet:        quiet,
		active:       active,
	}
}

// Current is the center frequency of the current step.
func (r *RangeScanner) Current() uint64 { return r.steps[r.idx] }

// Stepping reports whether there is more than one step to visit.
func (r *RangeScanner) Stepping() bool { return len(r.steps) > 1 }

// Observe records whether the just-completed cycle produced qualifying
// activity and decides advancement. It returns true when the window moved;
// the caller issues the retune.
func (r *RangeScanner) Observe(activity bool, now time.Time) bool {
	if !r.Stepping() {
		return false
	}
	if activity {
		r.lastActivity = now
	}
	// Force-advance at the active timeout regardless of continued
	// activity; otherwise advance only once the span has been quiet.
	if now.Sub(r.entered) < r.active && now.Sub(r.lastActivity) < r.quiet {
		return false
	}
	r.idx = (r.idx + 1) % len(r.steps)
	r.entered, r.lastActivity = now, now
	return true
}

func (r *RangeScanner) Progress() RangeProgress {
	return RangeProgress{
		Index:   r.idx,
		Total:   len(r.steps),
		Percent: float64(r.idx) / float64(len(r.steps)),
	}
}
