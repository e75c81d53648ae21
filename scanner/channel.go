package scanner

import (
	"sort"
	"time"
)

type ChannelState int

const (
	Idle ChannelState = iota
	Active
)

func (s ChannelState) String() string {
	if s == Active {
		return "active"
	}
	return "idle"
}

// ChannelEntry is the persistent record for one frequency bucket. Entries
// are created the first time a candidate maps to the bucket and collected
// after prolonged inactivity; nothing depends on unbounded retention since
// the state is rebuilt idempotently from candidates.
type ChannelEntry struct {
	FreqHz   int64
	PowerDB  float64
	LastSeen time.Time
	State    ChannelState

	Priority       bool
	Locked         bool
	UnsavedLockout bool
}

// Retention multiple of the quiet timeout before an idle entry is dropped.
const retentionFactor = 30

// Tracker maintains per-bucket activity state across cycles.
type Tracker struct {
	entries map[int64]*ChannelEntry
	quiet   time.Duration
}

func NewTracker(quiet time.Duration) *Tracker {
	return &Tracker{
		entries: make(map[int64]*ChannelEntry),
		quiet:   quiet,
	}
}

// Update applies one cycle's candidates at time now and returns the
// frequencies that transitioned idle to active this cycle. Locked-out
// candidates still update bookkeeping so the spectrum display can show
// them; they are filtered before the scheduler by Eligible.
func (t *Tracker) Update(cands []Candidate, lock *LockoutSet, prio *PriorityList, now time.Time) (opened []int64) {
	seen := make(map[int64]bool, len(cands))
	for _, c := range cands {
		seen[c.FreqHz] = true
		e, ok := t.entries[c.FreqHz]
		if !ok {
			e = &ChannelEntry{FreqHz: c.FreqHz}
			t.entries[c.FreqHz] = e
		}
		if e.State == Idle {
			e.State = Active
			opened = append(opened, c.FreqHz)
		}
		e.LastSeen = now
		e.PowerDB = c.PowerDB
	}
	for hz, e := range t.entries {
		if !seen[hz] && e.State == Active && now.Sub(e.LastSeen) > t.quiet {
			e.State = Idle
		}
		// Flags are cheap membership tests recomputed every cycle so
		// runtime edits to the sets take effect immediately.
		e.Locked = lock.Contains(hz)
		e.UnsavedLockout = lock.freqs[hz]
		_, e.Priority = prio.Rank(hz)
		if e.State == Idle && now.Sub(e.LastSeen) > time.Duration(retentionFactor)*t.quiet {
			delete(t.entries, hz)
		}
	}
	sort.Slice(opened, func(i, j int) bool { return opened[i] < opened[j] })
	return opened
}

// Eligible filters locked-out candidates out of the scheduler's view.
func (t *Tracker) Eligible(cands []Candidate, lock *LockoutSet) []Candidate {
	out := make([]Candidate, 0, len(cands))
	for _, c := range cands {
		if !lock.Contains(c.FreqHz) {
			out = append(out, c)
		}
	}
	return out
}

// Lookup returns the entry for hz, or nil.
func (t *Tracker) Lookup(hz int64) *ChannelEntry {
	return t.entries[hz]
}

// StillActive reports whether a held frequency is inside its quiet window.
func (t *Tracker) StillActive(hz int64, now time.Time) bool {
	e, ok := t.entries[hz]
	if !ok {
		return false
	}
	return now.Sub(e.LastSeen) <= t.quiet
}

// Entries snapshots all tracked channels sorted by frequency.
func (t *Tracker) Entries() []ChannelEntry {
	out := make([]ChannelEntry, 0, len(t.entries))
	for _, e := range t.entries {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FreqHz < out[j].FreqHz })
	return out
}
