package scanner

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNoDemodulators = errors.New("need at least one demodulator")
	ErrBadSpacing     = errors.New("channel spacing must be positive")
	ErrBadTimeout     = errors.New("timeouts must be positive")
	ErrBadRecording   = errors.New("max recording must exceed min recording")
)

// Config carries the already-parsed operator settings the core consumes.
// Validation failures are fatal at startup; the cycle loop is never
// entered with a bad configuration.
type Config struct {
	NumDemod    int
	DemodKind   string // nbfm, am, wbfm
	Frequencies []FreqSpec
	SampleRate  uint32

	ThresholdDB       float64
	AdaptiveThreshold bool // threshold relative to measured noise floor
	SquelchDB         float64
	ChannelSpacingHz  int64
	MinWidth          MinWidthPolicy

	QuietTimeout  time.Duration
	ActiveTimeout time.Duration

	PriorityFile  string
	LockoutFile   string
	AutoPriority  bool
	MinVoiceCount int

	Record       bool
	MinRecording time.Duration
	MaxRecording time.Duration

	// Channel log sink settings; interval 0 disables the heartbeat.
	LogInterval time.Duration
}

func (c *Config) Validate() error {
	if c.NumDemod < 1 {
		return ErrNoDemodulators
	}
	if c.ChannelSpacingHz <= 0 {
		return ErrBadSpacing
	}
	if c.QuietTimeout <= 0 || c.ActiveTimeout <= 0 {
		return ErrBadTimeout
	}
	if len(c.Frequencies) == 0 {
		return ErrNoSteps
	}
	if c.SampleRate == 0 {
		return fmt.Errorf("sample rate unset")
	}
	if c.MaxRecording > 0 && c.MaxRecording <= c.MinRecording {
		return ErrBadRecording
	}
	switch c.DemodKind {
	case "", "nbfm", "am", "wbfm":
	default:
		return fmt.Errorf("unknown demodulator kind %q", c.DemodKind)
	}
	return nil
}
