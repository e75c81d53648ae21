package scanner

import (
	"testing"
	"time"
)

func TestTrackerOpenClose(t *testing.T) {
	tr := NewTracker(20 * time.Second)
	lock, prio := NewLockoutSet(), NewPriorityList()
	now := time.Unix(1000, 0)

	opened := tr.Update([]Candidate{{FreqHz: 146200000, PowerDB: -40}}, lock, prio, now)
	if len(opened) != 1 || opened[0] != 146200000 {
		t.Fatalf("expected channel open, got %v", opened)
	}
	// Reappearing is not a new open.
	if opened := tr.Update([]Candidate{{FreqHz: 146200000, PowerDB: -42}}, lock, prio, now.Add(time.Second)); len(opened) != 0 {
		t.Fatalf("already-active channel reported open: %v", opened)
	}

	// Inside the quiet window the channel stays active.
	tr.Update(nil, lock, prio, now.Add(20*time.Second))
	if e := tr.Lookup(146200000); e == nil || e.State != Active {
		t.Fatalf("expected active at quiet boundary, got %+v", e)
	}
	tr.Update(nil, lock, prio, now.Add(22*time.Second))
	if e := tr.Lookup(146200000); e == nil || e.State != Idle {
		t.Fatalf("expected idle past quiet timeout, got %+v", e)
	}
	// Closing then reappearing opens again.
	opened = tr.Update([]Candidate{{FreqHz: 146200000, PowerDB: -40}}, lock, prio, now.Add(30*time.Second))
	if len(opened) != 1 {
		t.Fatalf("expected reopen, got %v", opened)
	}
}

func TestTrackerOpenedSorted(t *testing.T) {
	tr := NewTracker(20 * time.Second)
	lock, prio := NewLockoutSet(), NewPriorityList()
	opened := tr.Update([]Candidate{
		{FreqHz: 146300000, PowerDB: -40},
		{FreqHz: 146100000, PowerDB: -50},
	}, lock, prio, time.Unix(1000, 0))
	if len(opened) != 2 || opened[0] != 146100000 || opened[1] != 146300000 {
		t.Fatalf("expected opened frequencies ascending, got %v", opened)
	}
}

func TestTrackerFlags(t *testing.T) {
	tr := NewTracker(20 * time.Second)
	lock, prio := NewLockoutSet(), NewPriorityList()
	prio.Append(146200000)
	lock.Add(146300000)
	now := time.Unix(1000, 0)

	cands := []Candidate{{FreqHz: 146200000, PowerDB: -40}, {FreqHz: 146300000, PowerDB: -45}}
	tr.Update(cands, lock, prio, now)
	if e := tr.Lookup(146200000); e == nil || !e.Priority || e.Locked {
		t.Fatalf("priority flags wrong: %+v", e)
	}
	e := tr.Lookup(146300000)
	if e == nil || !e.Locked || !e.UnsavedLockout {
		t.Fatalf("lockout flags wrong: %+v", e)
	}
	if got := tr.Eligible(cands, lock); len(got) != 1 || got[0].FreqHz != 146200000 {
		t.Fatalf("expected locked-out candidate filtered, got %+v", got)
	}
}

func TestTrackerRetention(t *testing.T) {
	quiet := time.Second
	tr := NewTracker(quiet)
	lock, prio := NewLockoutSet(), NewPriorityList()
	now := time.Unix(1000, 0)

	tr.Update([]Candidate{{FreqHz: 146200000, PowerDB: -40}}, lock, prio, now)
	tr.Update(nil, lock, prio, now.Add(time.Duration(retentionFactor+1)*quiet))
	if e := tr.Lookup(146200000); e != nil {
		t.Fatalf("expected entry collected, got %+v", e)
	}
}
