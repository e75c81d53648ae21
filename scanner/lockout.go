package scanner

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/john-/ham2mon/radio"
)

// LockoutSet holds frequencies and ranges excluded from demodulation.
// Entries loaded from the lockout file are "saved"; entries added at
// runtime from the UI boundary are flagged unsaved. The set has no lock of
// its own; the scanner's mutex is the single guard for all shared state.
type LockoutSet struct {
	freqs  map[int64]bool // value true when the entry is unsaved
	ranges []LockoutRange
}

type LockoutRange struct {
	LoHz    int64 `json:"lo_hz"`
	HiHz    int64 `json:"hi_hz"`
	Unsaved bool  `json:"unsaved"`
}

type LockoutEntry struct {
	FreqHz  int64 `json:"freq_hz"`
	Unsaved bool  `json:"unsaved"`
}

func NewLockoutSet() *LockoutSet {
	return &LockoutSet{freqs: make(map[int64]bool)}
}

func (l *LockoutSet) Contains(hz int64) bool {
	if _, ok := l.freqs[hz]; ok {
		return true
	}
	for _, r := range l.ranges {
		if hz >= r.LoHz && hz <= r.HiHz {
			return true
		}
	}
	return false
}

// Add registers a runtime lockout. Runtime entries are never written back
// to the lockout file.
func (l *LockoutSet) Add(hz int64) {
	if hz == 0 {
		return
	}
	if _, ok := l.freqs[hz]; !ok {
		l.freqs[hz] = true
	}
}

func (l *LockoutSet) Clear() {
	l.freqs = make(map[int64]bool)
	l.ranges = nil
}

// lockoutFile mirrors the on-disk format: frequencies and ranges in MHz.
type lockoutFile struct {
	Frequencies []float64 `yaml:"frequencies"`
	Ranges      []struct {
		Min float64 `yaml:"min"`
		Max float64 `yaml:"max"`
	} `yaml:"ranges"`
}

// LoadFile replaces saved entries with the file contents. Parse errors are
// fatal at startup; frequencies are quantized to the channel spacing so
// membership tests line up with candidate rounding.
func (l *LockoutSet) LoadFile(path string, spacingHz int64) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var lf lockoutFile
	if err := yaml.Unmarshal(b, &lf); err != nil {
		return fmt.Errorf("lockout file %s: %w", path, err)
	}
	for _, mhz := range lf.Frequencies {
		l.freqs[radio.RoundToSpacing(int64(mhz*1e6), spacingHz)] = false
	}
	for _, r := range lf.Ranges {
		lo, hi := int64(r.Min*1e6), int64(r.Max*1e6)
		if lo >= hi {
			return fmt.Errorf("lockout file %s: range %v-%v inverted", path, r.Min, r.Max)
		}
		l.ranges = append(l.ranges, LockoutRange{LoHz: lo, HiHz: hi})
	}
	return nil
}

// Entries snapshots the set for display.
func (l *LockoutSet) Entries() ([]LockoutEntry, []LockoutRange) {
	fs := make([]LockoutEntry, 0, len(l.freqs))
	for hz, unsaved := range l.freqs {
		fs = append(fs, LockoutEntry{FreqHz: hz, Unsaved: unsaved})
	}
	sort.Slice(fs, func(i, j int) bool { return fs[i].FreqHz < fs[j].FreqHz })
	rs := make([]LockoutRange, len(l.ranges))
	copy(rs, l.ranges)
	return fs, rs
}
