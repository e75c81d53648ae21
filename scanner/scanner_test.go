package scanner

import (
	"testing"
	"time"

	"github.com/john-/ham2mon/radio"
)

func sampleAt(center uint64, rate uint32, db []float64) radio.SpectrumSample {
	return radio.SpectrumSample{CenterHz: center, SampleRate: rate, DB: db}
}

type tuneCall struct {
	slot int
	bb   int64
	rf   int64
}

type fakeTuner struct {
	calls []tuneCall
}

func (f *fakeTuner) Retune(slot int, bb, rf int64) {
	f.calls = append(f.calls, tuneCall{slot, bb, rf})
}

type fakeRetuner struct {
	centers []uint64
}

func (f *fakeRetuner) SetCenter(hz uint64) error {
	f.centers = append(f.centers, hz)
	return nil
}

func testConfig() Config {
	return Config{
		NumDemod:         2,
		Frequencies:      []FreqSpec{{LoHz: 146000000}},
		SampleRate:       1024000,
		ThresholdDB:      -70,
		SquelchDB:        -60,
		ChannelSpacingHz: 5000,
		QuietTimeout:     10 * time.Second,
		ActiveTimeout:    30 * time.Second,
		MinVoiceCount:    3,
	}
}

func TestScanCycleAssignsSlot(t *testing.T) {
	tuner, ret := &fakeTuner{}, &fakeRetuner{}
	now := time.Unix(1000, 0)
	s, err := New(testConfig(), Deps{SlotTuner: tuner, Retuner: ret}, now)
	if err != nil {
		t.Fatal(err)
	}

	sample := makeSample(146000000, -100)
	addTone(sample, 146200000, -40)
	s.ScanCycle(sample, now)

	if len(tuner.calls) != 1 {
		t.Fatalf("expected one retune, got %+v", tuner.calls)
	}
	c := tuner.calls[0]
	if c.slot != 0 || c.bb != 200000 || c.rf != 146200000 {
		t.Fatalf("bad retune %+v", c)
	}

	// Same spectrum again: nothing to do.
	s.ScanCycle(sample, now.Add(time.Second))
	if len(tuner.calls) != 1 {
		t.Fatalf("stable spectrum caused retunes: %+v", tuner.calls)
	}

	st := s.Status()
	if len(st.Channels) != 1 || !st.Channels[0].Active || st.Channels[0].Slot != 0 {
		t.Fatalf("status channels wrong: %+v", st.Channels)
	}
}

func TestScanCycleLockoutSlot(t *testing.T) {
	tuner := &fakeTuner{}
	now := time.Unix(1000, 0)
	s, err := New(testConfig(), Deps{SlotTuner: tuner}, now)
	if err != nil {
		t.Fatal(err)
	}

	sample := makeSample(146000000, -100)
	addTone(sample, 146200000, -40)
	s.ScanCycle(sample, now)
	s.LockoutSlot(0)
	s.ScanCycle(sample, now.Add(time.Second))

	last := tuner.calls[len(tuner.calls)-1]
	if last.slot != 0 || last.bb != 0 {
		t.Fatalf("expected lockout park, got %+v", tuner.calls)
	}
	st := s.Status()
	if len(st.Lockouts) != 1 || st.Lockouts[0].FreqHz != 146200000 || !st.Lockouts[0].Unsaved {
		t.Fatalf("lockout list wrong: %+v", st.Lockouts)
	}

	// Clearing without a lockout file drops the runtime entry.
	if err := s.ClearLockouts(); err != nil {
		t.Fatal(err)
	}
	if st := s.Status(); len(st.Lockouts) != 0 {
		t.Fatalf("lockouts survived clear: %+v", st.Lockouts)
	}
}

func TestScanCycleSkipsInvalidSample(t *testing.T) {
	tuner := &fakeTuner{}
	now := time.Unix(1000, 0)
	s, err := New(testConfig(), Deps{SlotTuner: tuner}, now)
	if err != nil {
		t.Fatal(err)
	}
	sample := makeSample(146000000, -100)
	addTone(sample, 146200000, -40)
	s.ScanCycle(sample, now)

	// A truncated sample must not disturb held slots.
	s.ScanCycle(sampleAt(146000000, 0, nil), now.Add(time.Second))
	if len(tuner.calls) != 1 {
		t.Fatalf("invalid sample changed slots: %+v", tuner.calls)
	}
}

func TestScanCycleAdaptiveThreshold(t *testing.T) {
	cfg := testConfig()
	cfg.ThresholdDB = 20
	cfg.AdaptiveThreshold = true
	tuner := &fakeTuner{}
	now := time.Unix(1000, 0)
	s, err := New(cfg, Deps{SlotTuner: tuner}, now)
	if err != nil {
		t.Fatal(err)
	}

	// A tone 30 dB over the floor clears floor+20; one at 10 dB does not.
	sample := makeSample(146000000, -100)
	addTone(sample, 146200000, -70)
	sample.DB[312] = -90
	s.ScanCycle(sample, now)
	if len(tuner.calls) != 1 || tuner.calls[0].rf != 146200000 {
		t.Fatalf("adaptive threshold picks: %+v", tuner.calls)
	}
}

func TestRangeAdvanceRetunes(t *testing.T) {
	cfg := testConfig()
	cfg.Frequencies = []FreqSpec{{LoHz: 450000000, HiHz: 459000000}}
	cfg.SampleRate = 3000000
	tuner, ret := &fakeTuner{}, &fakeRetuner{}
	now := time.Unix(1000, 0)
	s, err := New(cfg, Deps{SlotTuner: tuner, Retuner: ret}, now)
	if err != nil {
		t.Fatal(err)
	}
	if s.CenterHz() != 451500000 {
		t.Fatalf("expected first step center, got %d", s.CenterHz())
	}

	empty := make([]float64, 64)
	for i := range empty {
		empty[i] = -100
	}
	s.ScanCycle(sampleAt(451500000, 3000000, empty), now.Add(time.Second))
	if len(ret.centers) != 0 {
		t.Fatalf("advanced before quiet timeout: %v", ret.centers)
	}
	s.ScanCycle(sampleAt(451500000, 3000000, empty), now.Add(11*time.Second))
	if len(ret.centers) != 1 || ret.centers[0] != 453500000 {
		t.Fatalf("expected retune to second step, got %v", ret.centers)
	}
	if s.CenterHz() != 453500000 {
		t.Fatalf("center not updated, got %d", s.CenterHz())
	}
	if st := s.Status(); st.Range.Index != 1 || st.Range.Total != 4 {
		t.Fatalf("range progress wrong: %+v", st.Range)
	}
}

func TestRangeAdvanceIgnoresLockedChannels(t *testing.T) {
	cfg := testConfig()
	cfg.Frequencies = []FreqSpec{{LoHz: 450000000, HiHz: 459000000}}
	cfg.SampleRate = 3000000
	tuner, ret := &fakeTuner{}, &fakeRetuner{}
	now := time.Unix(1000, 0)
	s, err := New(cfg, Deps{SlotTuner: tuner, Retuner: ret}, now)
	if err != nil {
		t.Fatal(err)
	}
	s.LockoutFreq(451605000)

	// 1000 bins over 3 Msps gives exact 3 kHz bins in the first window.
	lockedTone := func() radio.SpectrumSample {
		db := make([]float64, 1000)
		for i := range db {
			db[i] = -100
		}
		sm := sampleAt(451500000, 3000000, db)
		addTone(sm, 451605000, -40)
		return sm
	}

	// A bursty carrier on a locked-out channel re-opens its tracker entry
	// each cycle but never tunes, so it must not hold the sweep.
	s.ScanCycle(lockedTone(), now)
	s.ScanCycle(lockedTone(), now.Add(12*time.Second))
	if len(tuner.calls) != 0 {
		t.Fatalf("locked-out channel tuned: %+v", tuner.calls)
	}
	if len(ret.centers) != 1 || ret.centers[0] != 453500000 {
		t.Fatalf("expected advance past locked-out carrier, got %v", ret.centers)
	}
}

func TestOnFinalizePromotes(t *testing.T) {
	cfg := testConfig()
	cfg.AutoPriority = true
	cfg.MinVoiceCount = 2
	now := time.Unix(1000, 0)
	s, err := New(cfg, Deps{}, now)
	if err != nil {
		t.Fatal(err)
	}
	res := FinalizeResult{Slot: 0, FreqHz: 146200000, Classification: "V", Kept: true}
	s.OnFinalize(res)
	s.OnFinalize(res)
	if st := s.Status(); len(st.PriorityMHz) != 1 || st.PriorityMHz[0] != 146.2 {
		t.Fatalf("expected auto-promotion, got %+v", st.PriorityMHz)
	}
}
