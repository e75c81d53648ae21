package dsp

/*
#cgo LDFLAGS: -lliquid
#include <liquid/liquid.h>
static void firfilt_crcf_block(
	firfilt_crcf q,
	complex float *in, complex float *out,
	unsigned n, unsigned dec)
{
	unsigned j = 0, k = 0;
	for (unsigned i = 0; i < n; i++) {
		firfilt_crcf_push(q, in[i]);
		k++;
		firfilt_crcf_execute(q, &out[j]);
		if (k == dec) {
			k = 0;
			j++;
		}
	}
}
*/
import "C"

import (
	"context"
	"math"
	"math/cmplx"
	"unsafe"
)

// MixDownCtx shifts a baseband offset down to 0 Hz. Each demodulator slot
// owns one mixer tuned to its assigned channel offset.
func MixDownCtx(ctx context.Context, mixHz float64, sampHz int, sigc <-chan []complex64) <-chan []complex64 {
	q := C.nco_crcf_create(C.LIQUID_NCO)
	C.nco_crcf_set_phase(q, C.float(0))
	outc := make(chan []complex64, 1)
	go func() {
		defer func() {
			C.nco_crcf_destroy(q)
			close(outc)
		}()
		radiansPerSample := mixHz * (2.0 * math.Pi / float64(sampHz))
		if radiansPerSample < 0 {
			radiansPerSample += 2.0 * math.Pi
		}
		C.nco_crcf_set_frequency(q, C.float(radiansPerSample))
		for samp := range sigc {
			outsamp := make([]complex64, len(samp))
			C.nco_crcf_mix_block_down(
				q,
				(*C.complexfloat)(unsafe.Pointer(&samp[0])),
				(*C.complexfloat)(unsafe.Pointer(&outsamp[0])),
				C.uint(len(samp)))
			select {
			case outc <- outsamp:
			case <-ctx.Done():
				return
			}
		}
	}()
	return outc
}

// LowpassCtx channelizes the mixed-down stream: kaiser FIR at cutoffHz
// then decimation by decRate.
func LowpassCtx(
	ctx context.Context,
	cutoffHz float64,
	sampHz int,
	decRate int,
	sigc <-chan []complex64) <-chan []complex64 {
	As := 70.0
	cutoffFreq := cutoffHz / float64(sampHz)

	if decRate <= 0 {
		panic("bad decimation")
	}

	q := C.firfilt_crcf_create_kaiser(
		64,
		C.float(cutoffFreq),
		C.float(As),
		C.float(0.0))
	C.firfilt_crcf_set_scale(q, C.float(2.0*cutoffFreq))
	outc := make(chan []complex64, 1)
	go func() {
		defer func() {
			C.firfilt_crcf_destroy(q)
			close(outc)
		}()
		for samp := range sigc {
			outsamp := make([]complex64, len(samp)/decRate)
			C.firfilt_crcf_block(q,
				(*C.complexfloat)(unsafe.Pointer(&samp[0])),
				(*C.complexfloat)(unsafe.Pointer(&outsamp[0])),
				C.uint(len(samp)),
				C.uint(decRate))
			select {
			case outc <- outsamp:
			case <-ctx.Done():
				return
			}
		}
	}()
	return outc
}

// Resample converts demodulated audio to the recording rate.
func Resample(r float32, sigc <-chan []float32) <-chan []float32 {
	outc := make(chan []float32, 1)
	q := C.resamp_rrrf_create_default(C.float(r))
	go func() {
		defer func() {
			close(outc)
			C.resamp_rrrf_destroy(q)
		}()
		for samps := range sigc {
			outsamp := make([]float32, int(math.Ceil(float64(r)*float64(len(samps)))))
			var outlen uint
			C.resamp_rrrf_execute_block(q,
				(*C.float)(unsafe.Pointer(&samps[0])),
				C.uint(len(samps)),
				(*C.float)(unsafe.Pointer(&outsamp[0])),
				(*C.uint)(unsafe.Pointer(&outlen)))
			outsamp = outsamp[:outlen]
			outc <- outsamp
		}
	}()
	return outc
}

// DemodFM discriminates narrowband or wideband FM.
func DemodFM(h float32, sigc <-chan []complex64) <-chan []float32 {
	// h = modulation index = (delta f)/(delta modulation)
	outc := make(chan []float32, 1)
	q := C.freqdem_create(C.float(h))
	go func() {
		defer func() {
			close(outc)
			C.freqdem_destroy(q)
		}()
		for samps := range sigc {
			outsamp := make([]float32, len(samps))
			C.freqdem_demodulate_block(
				q,
				(*C.complexfloat)(unsafe.Pointer(&samps[0])),
				C.uint(len(samps)),
				(*C.float)(unsafe.Pointer(&outsamp[0])))
			outc <- outsamp
		}
	}()
	return outc
}

// DemodAM is envelope detection with automatic gain leveling.
func DemodAM(sigc <-chan []complex64) <-chan []float32 {
	outc := make(chan []float32, 1)
	q := C.agc_crcf_create()
	C.agc_crcf_set_bandwidth(q, C.float(0.01))
	go func() {
		defer func() {
			close(outc)
			C.agc_crcf_destroy(q)
		}()
		for samps := range sigc {
			leveled := make([]complex64, len(samps))
			C.agc_crcf_execute_block(q,
				(*C.complexfloat)(unsafe.Pointer(&samps[0])),
				C.uint(len(samps)),
				(*C.complexfloat)(unsafe.Pointer(&leveled[0])))
			outsamp := make([]float32, len(samps))
			for i, v := range leveled {
				outsamp[i] = float32(cmplx.Abs(complex128(v))) - 1.0
			}
			outc <- outsamp
		}
	}()
	return outc
}

// PowerDB measures mean power of a batch in dB, used by the squelch gate.
func PowerDB(samps []complex64) float64 {
	if len(samps) == 0 {
		return math.Inf(-1)
	}
	sum := 0.0
	for _, v := range samps {
		re, im := float64(real(v)), float64(imag(v))
		sum += re*re + im*im
	}
	return 10 * math.Log10(sum/float64(len(samps)))
}
