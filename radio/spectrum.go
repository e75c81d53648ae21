package radio

import (
	"io"
	"math"
	"math/cmplx"
	"sort"

	"github.com/runningwild/go-fftw/fftw32"
	"gonum.org/v1/gonum/stat"
)

// SpectrumSample is one cycle's power spectrum. Bins are fftshifted so
// index 0 is the low edge of the capture window. Samples are read-only to
// the scanner and discarded after one cycle.
type SpectrumSample struct {
	CenterHz   uint64
	SampleRate uint32
	DB         []float64
}

// BinHz is the width of one bin in Hz.
func (s SpectrumSample) BinHz() float64 {
	return float64(s.SampleRate) / float64(len(s.DB))
}

// BinFreq maps a bin index to the RF frequency of the bin center in Hz.
func (s SpectrumSample) BinFreq(i int) float64 {
	return float64(s.CenterHz) + (float64(i)-float64(len(s.DB))/2)*s.BinHz()
}

// Valid reports whether the sample is usable for estimation. A short or
// empty sample skips the cycle; prior scanner state is retained.
func (s SpectrumSample) Valid() bool {
	return len(s.DB) >= 2 && s.SampleRate > 0
}

// NoiseFloorDB estimates the noise floor as the median bin power.
func (s SpectrumSample) NoiseFloorDB() float64 {
	db := make([]float64, len(s.DB))
	copy(db, s.DB)
	sort.Float64s(db)
	return stat.Quantile(0.5, stat.Empirical, db, nil)
}

// SpectralPower accumulates averaged FFT power over a window of IQ batches.
type SpectralPower struct {
	band    HzBand
	fftBins *fftw32.Array
	ffts    int
	avg     []float64
}

func NewSpectralPower(band HzBand, bins, ffts int) *SpectralPower {
	return &SpectralPower{
		band:    band,
		fftBins: fftw32.NewArray(bins),
		ffts:    ffts,
	}
}

// SetBand follows a capture window retune so later samples carry the new
// center.
func (sp *SpectralPower) SetBand(band HzBand) { sp.band = band }

// Measure consumes ffts batches from ch and averages their dB power.
func (sp *SpectralPower) Measure(ch <-chan []complex64) error {
	bins := len(sp.fftBins.Elems)
	sp.avg = make([]float64, bins)
	arr := &fftw32.Array{}
	for n := 0; n < sp.ffts; n++ {
		samps, ok := <-ch
		if !ok {
			return io.EOF
		}
		arr.Elems = samps
		sp.fftBins = fftw32.FFT(arr)
		for i, v := range sp.fftBins.Elems {
			idx := i + bins/2
			if i >= bins/2 {
				idx = i - bins/2
			}
			db := 20 * math.Log10(cmplx.Abs(complex128(v)))
			sp.avg[idx] += db / float64(sp.ffts)
		}
	}
	return nil
}

// Sample snapshots the measurement as one scanner cycle input.
func (sp *SpectralPower) Sample() SpectrumSample {
	db := make([]float64, len(sp.avg))
	copy(db, sp.avg)
	return SpectrumSample{
		CenterHz:   sp.band.Center,
		SampleRate: uint32(sp.band.Width),
		DB:         db,
	}
}
