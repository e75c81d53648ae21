package scanner

import (
	"sort"

	"github.com/john-/ham2mon/radio"
)

// ChannelInfo is one row of the enriched channel list: tracked activity
// joined with slot assignment and set membership for display.
type ChannelInfo struct {
	FreqHz         int64   `json:"freq_hz"`
	FreqMHz        float64 `json:"freq_mhz"`
	PowerDB        float64 `json:"power_db"`
	Active         bool    `json:"active"`
	Hanging        bool    `json:"hanging"`
	Slot           int     `json:"slot"` // -1 when unassigned
	Priority       bool    `json:"priority"`
	Locked         bool    `json:"locked"`
	UnsavedLockout bool    `json:"unsaved_lockout"`
}

// Status is a consistent snapshot of the scanner for the HTTP boundary.
type Status struct {
	CenterHz      uint64         `json:"center_hz"`
	ThresholdDB   float64        `json:"threshold_db"`
	SquelchDB     float64        `json:"squelch_db"`
	Record        bool           `json:"record"`
	Slots         []Slot         `json:"slots"`
	Channels      []ChannelInfo  `json:"channels"`
	Lockouts      []LockoutEntry `json:"lockouts"`
	LockoutRanges []LockoutRange `json:"lockout_ranges"`
	PriorityMHz   []float64      `json:"priority_mhz"`
	Range         RangeProgress  `json:"range"`
}

// enrich joins this cycle's candidates with held slots. A held frequency
// absent from the candidates is hanging: kept tuned inside its quiet
// window. Priority channels sort to the front, then power descending.
func (s *Scanner) enrich(cands []Candidate) []ChannelInfo {
	held := make(map[int64]int)
	for _, sl := range s.sched.Slots() {
		if sl.FreqHz != 0 {
			held[sl.FreqHz] = sl.ID
		}
	}
	var out []ChannelInfo
	seen := make(map[int64]bool, len(cands))
	add := func(hz int64, power float64, active bool) {
		seen[hz] = true
		ci := ChannelInfo{
			FreqHz:  hz,
			FreqMHz: float64(hz) / 1e6,
			PowerDB: power,
			Active:  active,
			Hanging: !active,
			Slot:    -1,
			Locked:  s.lockout.Contains(hz),
		}
		ci.UnsavedLockout = s.lockout.freqs[hz]
		_, ci.Priority = s.priority.Rank(hz)
		if id, ok := held[hz]; ok {
			ci.Slot = id
		}
		out = append(out, ci)
	}
	for _, c := range cands {
		add(c.FreqHz, c.PowerDB, true)
	}
	for hz := range held {
		if !seen[hz] {
			var power float64
			if e := s.tracker.Lookup(hz); e != nil {
				power = e.PowerDB
			}
			add(hz, power, false)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Priority != b.Priority {
			return a.Priority
		}
		if a.Priority && b.Priority {
			ra, _ := s.priority.Rank(a.FreqHz)
			rb, _ := s.priority.Rank(b.FreqHz)
			if ra != rb {
				return ra < rb
			}
		}
		if a.PowerDB != b.PowerDB {
			return a.PowerDB > b.PowerDB
		}
		return a.FreqHz < b.FreqHz
	})
	return out
}

// Status snapshots everything the HTTP boundary displays.
func (s *Scanner) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	locks, ranges := s.lockout.Entries()
	var prio []float64
	for _, hz := range s.priority.Frequencies() {
		prio = append(prio, float64(hz)/1e6)
	}
	chans := make([]ChannelInfo, len(s.lastChannels))
	copy(chans, s.lastChannels)
	return Status{
		CenterHz:      s.centerHz,
		ThresholdDB:   s.thresholdDB,
		SquelchDB:     s.squelchDB,
		Record:        s.cfg.Record,
		Slots:         s.sched.Slots(),
		Channels:      chans,
		Lockouts:      locks,
		LockoutRanges: ranges,
		PriorityMHz:   prio,
		Range:         s.ranges.Progress(),
	}
}

// LockoutSlot locks out the frequency currently held by slot id. The slot
// itself is released on the next cycle. Parked and unknown slots are a
// no-op.
func (s *Scanner) LockoutSlot(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sl := range s.sched.Slots() {
		if sl.ID == id && sl.FreqHz != 0 {
			s.lockout.Add(sl.FreqHz)
			return
		}
	}
}

// LockoutFreq locks out hz, quantized to the channel spacing.
func (s *Scanner) LockoutFreq(hz int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lockout.Add(radio.RoundToSpacing(hz, s.cfg.ChannelSpacingHz))
}

// ClearLockouts drops runtime entries and reloads the lockout file.
func (s *Scanner) ClearLockouts() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lockout.Clear()
	if s.cfg.LockoutFile == "" {
		return nil
	}
	return s.lockout.LoadFile(s.cfg.LockoutFile, s.cfg.ChannelSpacingHz)
}

// AdjustThreshold shifts the detection threshold by delta dB.
func (s *Scanner) AdjustThreshold(delta float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.thresholdDB += delta
	return s.thresholdDB
}

// AdjustSquelch shifts the audio squelch by delta dB.
func (s *Scanner) AdjustSquelch(delta float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.squelchDB += delta
	return s.squelchDB
}

// SquelchDB is read by the demodulator chain per audio block.
func (s *Scanner) SquelchDB() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.squelchDB
}
