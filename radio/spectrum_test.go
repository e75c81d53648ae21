package radio

import (
	"math"
	"testing"
)

func TestBinFreqMapping(t *testing.T) {
	s := SpectrumSample{CenterHz: 146000000, SampleRate: 1024000, DB: make([]float64, 1024)}
	if got := s.BinHz(); got != 1000.0 {
		t.Fatalf("expected 1000 Hz bins, got %v", got)
	}
	if got := s.BinFreq(512); got != 146000000 {
		t.Fatalf("expected center bin at center freq, got %v", got)
	}
	if got := s.BinFreq(0); got != 146000000-512000 {
		t.Fatalf("expected low edge bin at %v, got %v", 146000000-512000, got)
	}
}

func TestNoiseFloor(t *testing.T) {
	db := make([]float64, 100)
	for i := range db {
		db[i] = -90.0
	}
	db[40] = -30.0 // lone carrier should not move the median
	s := SpectrumSample{CenterHz: 146000000, SampleRate: 100000, DB: db}
	if nf := s.NoiseFloorDB(); math.Abs(nf-(-90.0)) > 0.5 {
		t.Fatalf("expected floor near -90, got %v", nf)
	}
}

func TestSampleValid(t *testing.T) {
	if (SpectrumSample{}).Valid() {
		t.Fatal("empty sample should be invalid")
	}
	if !(SpectrumSample{SampleRate: 1000, DB: make([]float64, 16)}).Valid() {
		t.Fatal("populated sample should be valid")
	}
}
