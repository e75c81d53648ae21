package scanner

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the scanner's prometheus collectors. A registerer is passed
// in so tests can use private registries.
type Metrics struct {
	Cycles        prometheus.Counter
	CyclesSkipped prometheus.Counter
	Candidates    prometheus.Gauge
	Active        prometheus.Gauge
	Assignments   prometheus.Counter
	Preemptions   prometheus.Counter
	Parks         prometheus.Counter
	RangeStep     prometheus.Gauge
	RangeAdvances prometheus.Counter
	Finalized     prometheus.Counter
	Discarded     prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Cycles: f.NewCounter(prometheus.CounterOpts{
			Namespace: "ham2mon", Name: "cycles_total",
			Help: "Scan cycles executed.",
		}),
		CyclesSkipped: f.NewCounter(prometheus.CounterOpts{
			Namespace: "ham2mon", Name: "cycles_skipped_total",
			Help: "Cycles skipped for malformed spectrum samples.",
		}),
		Candidates: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "ham2mon", Name: "candidates",
			Help: "Channel candidates in the last cycle.",
		}),
		Active: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "ham2mon", Name: "channels_active",
			Help: "Channels currently in the active state.",
		}),
		Assignments: f.NewCounter(prometheus.CounterOpts{
			Namespace: "ham2mon", Name: "slot_assignments_total",
			Help: "Demodulator slot tune commands issued.",
		}),
		Preemptions: f.NewCounter(prometheus.CounterOpts{
			Namespace: "ham2mon", Name: "slot_preemptions_total",
			Help: "Assignments that displaced a lower-priority channel.",
		}),
		Parks: f.NewCounter(prometheus.CounterOpts{
			Namespace: "ham2mon", Name: "slot_parks_total",
			Help: "Slots parked at baseband.",
		}),
		RangeStep: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "ham2mon", Name: "range_step",
			Help: "Current range scan step index.",
		}),
		RangeAdvances: f.NewCounter(prometheus.CounterOpts{
			Namespace: "ham2mon", Name: "range_advances_total",
			Help: "Capture window advances, including wraparounds.",
		}),
		Finalized: f.NewCounter(prometheus.CounterOpts{
			Namespace: "ham2mon", Name: "recordings_finalized_total",
			Help: "Recordings kept after finalization.",
		}),
		Discarded: f.NewCounter(prometheus.CounterOpts{
			Namespace: "ham2mon", Name: "recordings_discarded_total",
			Help: "Recordings dropped as short or unwanted.",
		}),
	}
}
