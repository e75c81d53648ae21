package scanner

import (
	"testing"
	"time"
)

func tuneState(t *testing.T, tr *Tracker, lock *LockoutSet, prio *PriorityList, sch *Scheduler, cands []Candidate, now time.Time) []TuneCmd {
	t.Helper()
	tr.Update(cands, lock, prio, now)
	return sch.Cycle(tr.Eligible(cands, lock), tr, lock, prio, now)
}

func TestSchedulerFillsIdleSlots(t *testing.T) {
	tr := NewTracker(10 * time.Second)
	lock, prio := NewLockoutSet(), NewPriorityList()
	sch := NewScheduler(2, false, 0)
	now := time.Unix(1000, 0)

	cands := []Candidate{{FreqHz: 151000000, PowerDB: -40}, {FreqHz: 152000000, PowerDB: -45}}
	cmds := tuneState(t, tr, lock, prio, sch, cands, now)
	if len(cmds) != 2 {
		t.Fatalf("expected 2 assignments, got %+v", cmds)
	}
	if cmds[0].FreqHz != 151000000 || cmds[0].Slot != 0 {
		t.Fatalf("strongest candidate should fill slot 0: %+v", cmds[0])
	}
	if cmds[1].FreqHz != 152000000 || cmds[1].Slot != 1 {
		t.Fatalf("next candidate should fill slot 1: %+v", cmds[1])
	}

	// Unchanged snapshot produces no commands.
	if cmds := tuneState(t, tr, lock, prio, sch, cands, now.Add(time.Second)); len(cmds) != 0 {
		t.Fatalf("idempotent cycle emitted %+v", cmds)
	}
}

func TestSchedulerPriorityThenPowerFill(t *testing.T) {
	tr := NewTracker(10 * time.Second)
	lock, prio := NewLockoutSet(), NewPriorityList()
	prio.Append(150000000)
	sch := NewScheduler(3, false, 0)
	now := time.Unix(1000, 0)

	// Listed channel first regardless of power, then the rest by power.
	cands := []Candidate{
		{FreqHz: 150000000, PowerDB: -40},
		{FreqHz: 151000000, PowerDB: -50},
		{FreqHz: 152000000, PowerDB: -45},
	}
	cmds := tuneState(t, tr, lock, prio, sch, cands, now)
	want := []int64{150000000, 152000000, 151000000}
	if len(cmds) != len(want) {
		t.Fatalf("expected %d assignments, got %+v", len(want), cmds)
	}
	for i, hz := range want {
		if cmds[i].Slot != i || cmds[i].FreqHz != hz {
			t.Fatalf("slot %d: expected %d, got %+v", i, hz, cmds[i])
		}
	}
}

func TestSchedulerPriorityPreemption(t *testing.T) {
	tr := NewTracker(10 * time.Second)
	lock, prio := NewLockoutSet(), NewPriorityList()
	prio.Append(150000000)
	sch := NewScheduler(2, false, 0)
	now := time.Unix(1000, 0)

	held := []Candidate{{FreqHz: 151000000, PowerDB: -40}, {FreqHz: 152000000, PowerDB: -45}}
	tuneState(t, tr, lock, prio, sch, held, now)

	// Priority channel appears with no idle slot: the weaker held channel
	// is displaced.
	cands := append(held, Candidate{FreqHz: 150000000, PowerDB: -50})
	cmds := tuneState(t, tr, lock, prio, sch, cands, now.Add(time.Second))
	if len(cmds) != 1 {
		t.Fatalf("expected a single preemption, got %+v", cmds)
	}
	if cmds[0].Slot != 1 || cmds[0].FreqHz != 150000000 || cmds[0].PrevHz != 152000000 {
		t.Fatalf("expected slot 1 to swap 152 MHz for 150 MHz, got %+v", cmds[0])
	}
}

func TestSchedulerNoPreemptionAmongUnlisted(t *testing.T) {
	tr := NewTracker(10 * time.Second)
	lock, prio := NewLockoutSet(), NewPriorityList()
	sch := NewScheduler(1, false, 0)
	now := time.Unix(1000, 0)

	tuneState(t, tr, lock, prio, sch, []Candidate{{FreqHz: 151000000, PowerDB: -60}}, now)
	// A stronger unlisted candidate does not displace a held channel.
	cmds := tuneState(t, tr, lock, prio, sch,
		[]Candidate{{FreqHz: 151000000, PowerDB: -60}, {FreqHz: 152000000, PowerDB: -30}},
		now.Add(time.Second))
	if len(cmds) != 0 {
		t.Fatalf("unlisted candidate preempted: %+v", cmds)
	}
}

func TestSchedulerLockoutParks(t *testing.T) {
	tr := NewTracker(10 * time.Second)
	lock, prio := NewLockoutSet(), NewPriorityList()
	sch := NewScheduler(1, false, 0)
	now := time.Unix(1000, 0)

	cands := []Candidate{{FreqHz: 151000000, PowerDB: -40}}
	tuneState(t, tr, lock, prio, sch, cands, now)
	lock.Add(151000000)
	cmds := tuneState(t, tr, lock, prio, sch, cands, now.Add(time.Second))
	if len(cmds) != 1 || cmds[0].FreqHz != 0 || cmds[0].PrevHz != 151000000 {
		t.Fatalf("expected lockout to park the slot, got %+v", cmds)
	}
	for _, sl := range sch.Slots() {
		if lock.Contains(sl.FreqHz) {
			t.Fatalf("locked-out frequency still held: %+v", sl)
		}
	}
}

func TestSchedulerQuietTimeoutParks(t *testing.T) {
	tr := NewTracker(10 * time.Second)
	lock, prio := NewLockoutSet(), NewPriorityList()
	sch := NewScheduler(1, false, 0)
	now := time.Unix(1000, 0)

	tuneState(t, tr, lock, prio, sch, []Candidate{{FreqHz: 151000000, PowerDB: -40}}, now)
	// Inside the quiet window the slot hangs on.
	if cmds := tuneState(t, tr, lock, prio, sch, nil, now.Add(9*time.Second)); len(cmds) != 0 {
		t.Fatalf("hanging channel parked early: %+v", cmds)
	}
	cmds := tuneState(t, tr, lock, prio, sch, nil, now.Add(11*time.Second))
	if len(cmds) != 1 || cmds[0].FreqHz != 0 {
		t.Fatalf("expected quiet timeout park, got %+v", cmds)
	}
}

func TestSchedulerRecordingNotPreempted(t *testing.T) {
	tr := NewTracker(10 * time.Second)
	lock, prio := NewLockoutSet(), NewPriorityList()
	prio.Append(150000000)
	sch := NewScheduler(1, true, 0)
	now := time.Unix(1000, 0)

	held := []Candidate{{FreqHz: 151000000, PowerDB: -40}}
	tuneState(t, tr, lock, prio, sch, held, now)
	cands := append(held, Candidate{FreqHz: 150000000, PowerDB: -50})
	if cmds := tuneState(t, tr, lock, prio, sch, cands, now.Add(time.Second)); len(cmds) != 0 {
		t.Fatalf("recording slot was preempted: %+v", cmds)
	}
}

func TestSchedulerMaxRecordingRollsOver(t *testing.T) {
	tr := NewTracker(30 * time.Second)
	lock, prio := NewLockoutSet(), NewPriorityList()
	sch := NewScheduler(1, true, 5*time.Second)
	now := time.Unix(1000, 0)

	cands := []Candidate{{FreqHz: 151000000, PowerDB: -40}}
	tuneState(t, tr, lock, prio, sch, cands, now)
	cmds := tuneState(t, tr, lock, prio, sch, cands, now.Add(6*time.Second))
	if len(cmds) != 2 {
		t.Fatalf("expected park then retune, got %+v", cmds)
	}
	if cmds[0].FreqHz != 0 || cmds[1].FreqHz != 151000000 {
		t.Fatalf("expected rollover to reopen the channel, got %+v", cmds)
	}
}

func TestSchedulerParkAll(t *testing.T) {
	tr := NewTracker(10 * time.Second)
	lock, prio := NewLockoutSet(), NewPriorityList()
	sch := NewScheduler(2, false, 0)
	now := time.Unix(1000, 0)
	tuneState(t, tr, lock, prio, sch, []Candidate{{FreqHz: 151000000, PowerDB: -40}}, now)

	cmds := sch.ParkAll()
	if len(cmds) != 1 || cmds[0].PrevHz != 151000000 {
		t.Fatalf("expected one park, got %+v", cmds)
	}
	for _, sl := range sch.Slots() {
		if sl.FreqHz != 0 {
			t.Fatalf("slot still tuned after ParkAll: %+v", sl)
		}
	}
}
