package scanner

import (
	"sort"
	"time"
)

// Slot is one demodulator resource. FreqHz 0 is the parked sentinel: a
// parked slot sits at baseband where local-oscillator leakage gives a
// characteristic low-amplitude carrier distinguishable from real signal.
type Slot struct {
	ID         int       `json:"id"`
	FreqHz     int64     `json:"freq_hz"`
	TunedSince time.Time `json:"tuned_since"`
	Recording  bool      `json:"recording"`
}

// TuneCmd is a fire-and-forget retune decision for one slot.
type TuneCmd struct {
	Slot   int
	FreqHz int64 // 0 parks the slot
	PrevHz int64
}

// Scheduler owns the fixed demodulator pool and decides each cycle which
// candidates occupy which slots. It raises no errors: more eligible
// candidates than slots simply leaves the extras unassigned this cycle.
type Scheduler struct {
	slots        []*Slot
	writeMode    bool
	maxRecording time.Duration
}

func NewScheduler(n int, writeMode bool, maxRecording time.Duration) *Scheduler {
	s := &Scheduler{writeMode: writeMode, maxRecording: maxRecording}
	for i := 0; i < n; i++ {
		s.slots = append(s.slots, &Slot{ID: i})
	}
	return s
}

// Slots snapshots the pool.
func (s *Scheduler) Slots() []Slot {
	out := make([]Slot, len(s.slots))
	for i, sl := range s.slots {
		out[i] = *sl
	}
	return out
}

// ParkAll releases every held slot, used when the capture window moves
// and all held channels fall outside the new window.
func (s *Scheduler) ParkAll() []TuneCmd {
	var cmds []TuneCmd
	for _, sl := range s.slots {
		if sl.FreqHz == 0 {
			continue
		}
		cmds = append(cmds, TuneCmd{Slot: sl.ID, FreqHz: 0, PrevHz: sl.FreqHz})
		sl.FreqHz, sl.Recording, sl.TunedSince = 0, false, time.Time{}
	}
	return cmds
}

// Held reports the slot currently holding hz, or nil.
func (s *Scheduler) held(hz int64) *Slot {
	if hz == 0 {
		return nil
	}
	for _, sl := range s.slots {
		if sl.FreqHz == hz {
			return sl
		}
	}
	return nil
}

// Cycle runs the per-cycle allocation. cands must already be filtered to
// eligible (non-locked-out, in-window) candidates. The decision is a pure
// function of the snapshot: identical inputs produce identical commands,
// and re-running on an unchanged pool emits nothing.
func (s *Scheduler) Cycle(cands []Candidate, tr *Tracker, lock *LockoutSet, prio *PriorityList, now time.Time) []TuneCmd {
	var cmds []TuneCmd
	park := func(sl *Slot) {
		cmds = append(cmds, TuneCmd{Slot: sl.ID, FreqHz: 0, PrevHz: sl.FreqHz})
		sl.FreqHz, sl.Recording, sl.TunedSince = 0, false, time.Time{}
	}
	tune := func(sl *Slot, hz int64) {
		cmds = append(cmds, TuneCmd{Slot: sl.ID, FreqHz: hz, PrevHz: sl.FreqHz})
		sl.FreqHz, sl.TunedSince = hz, now
		sl.Recording = s.writeMode
	}

	// Release slots whose channel is locked out, has gone quiet, or whose
	// recording hit the maximum length (parking rolls the file over).
	for _, sl := range s.slots {
		if sl.FreqHz == 0 {
			continue
		}
		if lock.Contains(sl.FreqHz) {
			park(sl)
			continue
		}
		if !tr.StillActive(sl.FreqHz, now) {
			park(sl)
			continue
		}
		if s.writeMode && s.maxRecording > 0 && now.Sub(sl.TunedSince) >= s.maxRecording {
			park(sl)
		}
	}

	// Assign unheld candidates: idle slots first, then priority preemption.
	ordered := make([]Candidate, len(cands))
	copy(ordered, cands)
	sort.Slice(ordered, func(i, j int) bool {
		return candidateLess(ordered[i], ordered[j], prio)
	})
	for _, c := range ordered {
		if s.held(c.FreqHz) != nil {
			continue
		}
		if sl := s.idleSlot(); sl != nil {
			tune(sl, c.FreqHz)
			continue
		}
		rank, listed := prio.Rank(c.FreqHz)
		if !listed {
			continue
		}
		if sl := s.victim(rank, tr, prio); sl != nil {
			tune(sl, c.FreqHz)
		}
	}
	return cmds
}

func (s *Scheduler) idleSlot() *Slot {
	for _, sl := range s.slots {
		if sl.FreqHz == 0 {
			return sl
		}
	}
	return nil
}

// victim picks the preemption target for a listed candidate of the given
// rank: the worst-standing held slot that is strictly lower priority.
// A slot mid-recording is busy until its file is finalized and is never
// preempted, so recordings are not truncated.
func (s *Scheduler) victim(rank int, tr *Tracker, prio *PriorityList) *Slot {
	var worst *Slot
	for _, sl := range s.slots {
		if sl.FreqHz == 0 || (s.writeMode && sl.Recording) {
			continue
		}
		r, listed := prio.Rank(sl.FreqHz)
		if listed && r <= rank {
			continue
		}
		if worst == nil || heldWorse(sl, worst, tr, prio) {
			worst = sl
		}
	}
	return worst
}

// heldWorse orders held slots from most to least preemptable: unlisted
// before listed, then worse rank, then weaker last-seen power, then higher
// frequency. Total ordering keeps the decision deterministic.
func heldWorse(a, b *Slot, tr *Tracker, prio *PriorityList) bool {
	ra, la := prio.Rank(a.FreqHz)
	rb, lb := prio.Rank(b.FreqHz)
	if la != lb {
		return !la
	}
	if la && lb && ra != rb {
		return ra > rb
	}
	pa, pb := heldPower(a, tr), heldPower(b, tr)
	if pa != pb {
		return pa < pb
	}
	return a.FreqHz > b.FreqHz
}

func heldPower(sl *Slot, tr *Tracker) float64 {
	if e := tr.Lookup(sl.FreqHz); e != nil {
		return e.PowerDB
	}
	return -999
}

// candidateLess is the total assignment preference order: listed priority
// rank first, then power descending, then frequency ascending.
func candidateLess(a, b Candidate, prio *PriorityList) bool {
	ra, la := prio.Rank(a.FreqHz)
	rb, lb := prio.Rank(b.FreqHz)
	if la != lb {
		return la
	}
	if la && lb && ra != rb {
		return ra < rb
	}
	if a.PowerDB != b.PowerDB {
		return a.PowerDB > b.PowerDB
	}
	return a.FreqHz < b.FreqHz
}
