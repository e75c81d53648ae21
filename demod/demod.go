// Package demod runs the per-slot demodulator chains: mix the assigned
// channel offset to 0 Hz, channelize, squelch, demodulate, and record.
package demod

import "fmt"

type Kind string

const (
	NBFM Kind = "nbfm"
	AM   Kind = "am"
	WBFM Kind = "wbfm"
)

// chainParams fix the channelizer and audio geometry per modulation.
type chainParams struct {
	cutoffHz  float64 // lowpass cutoff, half the occupied bandwidth
	chanRate  int     // decimated channel rate
	audioRate int
	modIndex  float32 // freqdem h; unused for AM
}

func paramsFor(k Kind) (chainParams, error) {
	switch k {
	case NBFM, "":
		return chainParams{cutoffHz: 6250, chanRate: 25000, audioRate: 16000, modIndex: 0.4}, nil
	case AM:
		return chainParams{cutoffHz: 5000, chanRate: 20000, audioRate: 16000}, nil
	case WBFM:
		return chainParams{cutoffHz: 100000, chanRate: 250000, audioRate: 48000, modIndex: 0.75}, nil
	}
	return chainParams{}, fmt.Errorf("unknown demodulator kind %q", k)
}
