package scanner

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/john-/ham2mon/radio"
)

// PriorityList is an ordered list of frequencies, highest priority first.
// Rank is position in the list; unlisted frequencies have no priority.
// Ordering is append-only: runtime promotion adds to the tail.
type PriorityList struct {
	order []int64
	rank  map[int64]int
}

func NewPriorityList() *PriorityList {
	return &PriorityList{rank: make(map[int64]int)}
}

// Rank returns the list index of hz and whether it is listed at all.
func (p *PriorityList) Rank(hz int64) (int, bool) {
	r, ok := p.rank[hz]
	return r, ok
}

// Append adds hz at the lowest priority position unless already listed.
func (p *PriorityList) Append(hz int64) bool {
	if _, ok := p.rank[hz]; ok {
		return false
	}
	p.rank[hz] = len(p.order)
	p.order = append(p.order, hz)
	return true
}

func (p *PriorityList) Len() int { return len(p.order) }

func (p *PriorityList) Frequencies() []int64 {
	out := make([]int64, len(p.order))
	copy(out, p.order)
	return out
}

// LoadFile reads one frequency in Hz per line, descending priority order.
// Blank lines are skipped; anything unparsable is a fatal config error.
func (p *PriorityList) LoadFile(path string, spacingHz int64) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	for lineno := 1; sc.Scan(); lineno++ {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		hz, err := strconv.ParseFloat(line, 64)
		if err != nil {
			return fmt.Errorf("priority file %s:%d: %w", path, lineno, err)
		}
		p.Append(radio.RoundToSpacing(int64(hz), spacingHz))
	}
	return sc.Err()
}

// AutoPromoter counts classification outcomes per frequency and promotes a
// frequency into the priority list once voice results outnumber non-voice
// and clear a minimum sample floor. Promotion is monotonic; nothing is
// ever demoted automatically.
type AutoPromoter struct {
	minVoice int
	counts   map[int64]*voteCount
}

type voteCount struct {
	voice    int
	nonVoice int
}

func NewAutoPromoter(minVoice int) *AutoPromoter {
	if minVoice < 1 {
		minVoice = 1
	}
	return &AutoPromoter{minVoice: minVoice, counts: make(map[int64]*voteCount)}
}

// Observe records one classification result and reports whether the
// frequency was promoted this call.
func (a *AutoPromoter) Observe(p *PriorityList, hz int64, voice bool) bool {
	vc, ok := a.counts[hz]
	if !ok {
		vc = &voteCount{}
		a.counts[hz] = vc
	}
	if voice {
		vc.voice++
	} else {
		vc.nonVoice++
	}
	if vc.voice > vc.nonVoice && vc.voice >= a.minVoice {
		return p.Append(hz)
	}
	return false
}
