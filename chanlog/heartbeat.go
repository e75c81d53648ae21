package chanlog

import (
	"time"
)

// Heartbeat emits periodic "act" events for channels that stay open across
// cycles. It is driven from the scan cycle with explicit timestamps rather
// than timers, so behavior is deterministic under test.
type Heartbeat struct {
	interval time.Duration
	logger   Logger
	last     map[int64]time.Time
}

// ActiveChannel identifies one open channel for heartbeat purposes.
type ActiveChannel struct {
	FreqHz  int64
	FreqMHz float64
	Channel int
}

// NewHeartbeat with interval 0 disables the heartbeat entirely.
func NewHeartbeat(interval time.Duration, logger Logger) *Heartbeat {
	return &Heartbeat{
		interval: interval,
		logger:   logger,
		last:     make(map[int64]time.Time),
	}
}

// Tick logs an act event for each channel open longer than the interval
// since its last beat, and forgets channels that have closed.
func (h *Heartbeat) Tick(open []ActiveChannel, now time.Time) {
	if h.interval <= 0 {
		return
	}
	seen := make(map[int64]bool, len(open))
	for _, ch := range open {
		seen[ch.FreqHz] = true
		at, ok := h.last[ch.FreqHz]
		if !ok {
			h.last[ch.FreqHz] = now
			continue
		}
		if now.Sub(at) >= h.interval {
			h.last[ch.FreqHz] = now
			h.logger.Log(&Message{
				State:   StateAct,
				FreqMHz: ch.FreqMHz,
				Channel: ch.Channel,
				Time:    now,
			})
		}
	}
	for hz := range h.last {
		if !seen[hz] {
			delete(h.last, hz)
		}
	}
}
