package scanner

import (
	"log"
	"sync"
	"time"

	"github.com/john-/ham2mon/chanlog"
	"github.com/john-/ham2mon/radio"
)

// SlotTuner receives fire-and-forget retune commands for demodulator
// slots. Baseband 0 parks the slot; rfHz carries the absolute channel
// frequency for recording names and finalize callbacks.
type SlotTuner interface {
	Retune(slot int, basebandHz, rfHz int64)
}

// Retuner moves the capture window when the range scanner advances.
type Retuner interface {
	SetCenter(hz uint64) error
}

// FinalizeResult is reported back by the demodulator pool once a
// recording closes and classification, if any, has run.
type FinalizeResult struct {
	Slot           int
	FreqHz         int64
	File           string
	Classification string
	Detail         string
	Kept           bool
	ID             string
}

// Deps are the external collaborators; any may be nil for headless use.
type Deps struct {
	SlotTuner SlotTuner
	Retuner   Retuner
	Logger    chanlog.Logger
	Metrics   *Metrics
}

// Scanner runs the control core: per-cycle estimation, channel tracking,
// slot scheduling, and range stepping. One mutex guards all shared state
// so the cycle never observes a partially-updated set while the UI or
// finalize callbacks mutate lockouts, priorities, or thresholds.
type Scanner struct {
	mu sync.Mutex

	cfg      Config
	lockout  *LockoutSet
	priority *PriorityList
	promoter *AutoPromoter
	tracker  *Tracker
	sched    *Scheduler
	ranges   *RangeScanner

	deps    Deps
	logger  chanlog.Logger
	hb      *chanlog.Heartbeat
	metrics *Metrics

	centerHz    uint64
	thresholdDB float64
	squelchDB   float64

	// write-mode qualifying activity between cycles
	finalized int

	lastChannels []ChannelInfo
}

func New(cfg Config, deps Deps, now time.Time) (*Scanner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	steps, err := RangeSteps(cfg.Frequencies, cfg.SampleRate)
	if err != nil {
		return nil, err
	}
	lockout := NewLockoutSet()
	if cfg.LockoutFile != "" {
		if err := lockout.LoadFile(cfg.LockoutFile, cfg.ChannelSpacingHz); err != nil {
			return nil, err
		}
	}
	priority := NewPriorityList()
	if cfg.PriorityFile != "" {
		if err := priority.LoadFile(cfg.PriorityFile, cfg.ChannelSpacingHz); err != nil {
			return nil, err
		}
	}
	logger := deps.Logger
	if logger == nil {
		logger, _ = chanlog.New("none", "")
	}
	metrics := deps.Metrics
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	s := &Scanner{
		cfg:         cfg,
		lockout:     lockout,
		priority:    priority,
		promoter:    NewAutoPromoter(cfg.MinVoiceCount),
		tracker:     NewTracker(cfg.QuietTimeout),
		sched:       NewScheduler(cfg.NumDemod, cfg.Record, cfg.MaxRecording),
		ranges:      NewRangeScanner(steps, cfg.QuietTimeout, cfg.ActiveTimeout, now),
		deps:        deps,
		logger:      logger,
		hb:          chanlog.NewHeartbeat(cfg.LogInterval, logger),
		metrics:     metrics,
		centerHz:    steps[0],
		thresholdDB: cfg.ThresholdDB,
		squelchDB:   cfg.SquelchDB,
	}
	return s, nil
}

// CenterHz is the capture window center the core expects next cycle.
func (s *Scanner) CenterHz() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.centerHz
}

// ScanCycle executes one scan cycle against a fresh spectrum sample.
// It is synchronous and never blocks on external collaborators.
func (s *Scanner) ScanCycle(sample radio.SpectrumSample, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.metrics.Cycles.Inc()
	if !sample.Valid() {
		// Transient data error: skip estimation, retain prior state.
		s.metrics.CyclesSkipped.Inc()
		return
	}
	s.centerHz = sample.CenterHz

	threshold := s.thresholdDB
	if s.cfg.AdaptiveThreshold {
		threshold += sample.NoiseFloorDB()
	}
	cands := Estimate(sample, threshold, s.cfg.ChannelSpacingHz, s.cfg.MinWidth)
	s.metrics.Candidates.Set(float64(len(cands)))

	s.tracker.Update(cands, s.lockout, s.priority, now)
	eligible := s.tracker.Eligible(cands, s.lockout)
	cmds := s.sched.Cycle(eligible, s.tracker, s.lockout, s.priority, now)
	s.applyCmds(cmds, now)

	// Qualifying activity: recording completion in write mode, a slot
	// tuning onto a channel otherwise. Locked-out carriers open tracker
	// entries but never tune, so they cannot hold the sweep on a step.
	var activity bool
	if s.cfg.Record {
		activity = s.finalized > 0
		s.finalized = 0
	} else {
		for _, cmd := range cmds {
			if cmd.FreqHz != 0 {
				activity = true
				break
			}
		}
	}
	if s.ranges.Observe(activity, now) {
		s.metrics.RangeAdvances.Inc()
		s.advanceWindow(now)
	}
	s.metrics.RangeStep.Set(float64(s.ranges.Progress().Index))

	s.lastChannels = s.enrich(cands)
	s.hb.Tick(s.openChannels(), now)

	active := 0
	for _, e := range s.tracker.Entries() {
		if e.State == Active {
			active++
		}
	}
	s.metrics.Active.Set(float64(active))
}

func (s *Scanner) applyCmds(cmds []TuneCmd, now time.Time) {
	for _, cmd := range cmds {
		if s.deps.SlotTuner != nil {
			var bb int64
			if cmd.FreqHz != 0 {
				bb = cmd.FreqHz - int64(s.centerHz)
			}
			s.deps.SlotTuner.Retune(cmd.Slot, bb, cmd.FreqHz)
		}
		s.metrics.Assignments.Inc()
		if cmd.FreqHz == 0 {
			s.metrics.Parks.Inc()
		} else if cmd.PrevHz != 0 {
			s.metrics.Preemptions.Inc()
		}
		// Off events for recordings arrive via OnFinalize with the file
		// attached; without recording they are immediate.
		if cmd.PrevHz != 0 && !s.cfg.Record {
			s.logger.Log(&chanlog.Message{
				State:   chanlog.StateOff,
				FreqMHz: float64(cmd.PrevHz) / 1e6,
				Channel: cmd.Slot,
				Time:    now,
			})
		}
		if cmd.FreqHz != 0 {
			s.logger.Log(&chanlog.Message{
				State:   chanlog.StateOn,
				FreqMHz: float64(cmd.FreqHz) / 1e6,
				Channel: cmd.Slot,
				Time:    now,
			})
		}
	}
}

// advanceWindow retunes the hardware to the new step and parks every slot:
// held channels are outside the new window by construction.
func (s *Scanner) advanceWindow(now time.Time) {
	s.centerHz = s.ranges.Current()
	s.applyCmds(s.sched.ParkAll(), now)
	if s.deps.Retuner != nil {
		if err := s.deps.Retuner.SetCenter(s.centerHz); err != nil {
			// External-dependency failure: log and let the next cycle's
			// spectrum drive recovery.
			log.Printf("scanner: retune to %d Hz failed: %v", s.centerHz, err)
		}
	}
}

// OnFinalize is called by the demodulator pool when a recording closes.
func (s *Scanner) OnFinalize(res FinalizeResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if res.Kept {
		s.metrics.Finalized.Inc()
		s.finalized++
	} else {
		s.metrics.Discarded.Inc()
	}
	s.logger.Log(&chanlog.Message{
		State:          chanlog.StateOff,
		FreqMHz:        float64(res.FreqHz) / 1e6,
		Channel:        res.Slot,
		File:           res.File,
		Classification: res.Classification,
		Detail:         res.Detail,
		ID:             res.ID,
		Time:           time.Now(),
	})
	if s.cfg.AutoPriority && res.Classification != "" {
		if s.promoter.Observe(s.priority, res.FreqHz, res.Classification == "V") {
			log.Printf("scanner: auto-promoted %.4f MHz to priority", float64(res.FreqHz)/1e6)
		}
	}
}

func (s *Scanner) openChannels() []chanlog.ActiveChannel {
	var open []chanlog.ActiveChannel
	for _, sl := range s.sched.Slots() {
		if sl.FreqHz != 0 {
			open = append(open, chanlog.ActiveChannel{
				FreqHz:  sl.FreqHz,
				FreqMHz: float64(sl.FreqHz) / 1e6,
				Channel: sl.ID,
			})
		}
	}
	return open
}
