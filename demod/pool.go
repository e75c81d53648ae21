package demod

import (
	"context"
	"encoding/binary"
	"log"
	"sync"
	"time"

	"github.com/john-/ham2mon/classify"
	"github.com/john-/ham2mon/dsp"
	"github.com/john-/ham2mon/radio/wav"
	"github.com/john-/ham2mon/scanner"
	"github.com/john-/ham2mon/store"
)

const classifyTimeout = 30 * time.Second

type Config struct {
	Kind       Kind
	SampleRate int
	NumTuners  int

	Record       bool
	MinRecording time.Duration

	// Squelch reads the live squelch threshold in dB per block.
	Squelch func() float64
}

// Pool owns one demodulator chain per slot and implements the scanner's
// slot tuner. Feed fans the capture stream out to all tuned chains;
// a chain that falls behind drops blocks rather than stalling the cycle.
type Pool struct {
	cfg    Config
	params chainParams
	store  *store.RecordingStore
	cls    classify.Classifier
	notify func(scanner.FinalizeResult)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	tuners []*tuner
}

type tuner struct {
	id int
	in chan []complex64
}

func NewPool(cfg Config, st *store.RecordingStore, cls classify.Classifier, notify func(scanner.FinalizeResult)) (*Pool, error) {
	params, err := paramsFor(cfg.Kind)
	if err != nil {
		return nil, err
	}
	if cls == nil {
		cls = classify.Nop{}
	}
	if cfg.Squelch == nil {
		cfg.Squelch = func() float64 { return -200 }
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		cfg:    cfg,
		params: params,
		store:  st,
		cls:    cls,
		notify: notify,
		ctx:    ctx,
		cancel: cancel,
	}
	for i := 0; i < cfg.NumTuners; i++ {
		p.tuners = append(p.tuners, &tuner{id: i})
	}
	return p, nil
}

// Feed distributes one capture batch to every tuned chain. Batches are
// shared read-only; chains allocate their own output blocks.
func (p *Pool) Feed(batch []complex64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, t := range p.tuners {
		if t.in == nil {
			continue
		}
		select {
		case t.in <- batch:
		default:
		}
	}
}

// Retune points a slot's chain at a new channel. Baseband 0 parks the
// slot. The old chain drains and finalizes its recording in the
// background; a replacement chain starts immediately.
func (p *Pool) Retune(slot int, basebandHz, rfHz int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if slot < 0 || slot >= len(p.tuners) {
		return
	}
	t := p.tuners[slot]
	if t.in != nil {
		close(t.in)
		t.in = nil
	}
	if basebandHz == 0 {
		return
	}
	in := make(chan []complex64, 4)
	t.in = in
	p.wg.Add(1)
	go p.run(slot, basebandHz, rfHz, in)
}

// Close parks every chain and waits for outstanding finalizations.
func (p *Pool) Close() {
	p.mu.Lock()
	for _, t := range p.tuners {
		if t.in != nil {
			close(t.in)
			t.in = nil
		}
	}
	p.mu.Unlock()
	p.wg.Wait()
	p.cancel()
}

func (p *Pool) run(slot int, basebandHz, rfHz int64, in chan []complex64) {
	defer p.wg.Done()
	decRate := p.cfg.SampleRate / p.params.chanRate
	if decRate < 1 {
		decRate = 1
	}
	chanRate := p.cfg.SampleRate / decRate

	mixed := dsp.MixDownCtx(p.ctx, float64(basebandHz), p.cfg.SampleRate, in)
	channelized := dsp.LowpassCtx(p.ctx, p.params.cutoffHz, p.cfg.SampleRate, decRate, mixed)
	gated := p.squelchGate(channelized)
	var audio <-chan []float32
	if p.cfg.Kind == AM {
		audio = dsp.DemodAM(gated)
	} else {
		audio = dsp.DemodFM(p.params.modIndex, gated)
	}
	out := dsp.Resample(float32(p.params.audioRate)/float32(chanRate), audio)

	var rec *store.Recording
	var w *wav.Writer
	if p.cfg.Record {
		var err error
		if rec, err = p.store.Open(rfHz, time.Now()); err != nil {
			log.Printf("demod: open recording for %.4f MHz: %v", float64(rfHz)/1e6, err)
		} else if w, err = wav.NewWriter(rec.F, p.params.audioRate, 16, 1); err != nil {
			log.Printf("demod: wav header: %v", err)
			p.store.Discard(rec)
			rec = nil
		}
	}
	for samps := range out {
		if w == nil {
			continue
		}
		pcm := make([]int16, len(samps))
		for i, v := range samps {
			switch {
			case v > 1.0:
				v = 1.0
			case v < -1.0:
				v = -1.0
			}
			pcm[i] = int16(v * 32767)
		}
		if err := binary.Write(w, binary.LittleEndian, pcm); err != nil {
			log.Printf("demod: write %s: %v", rec.Path(), err)
			break
		}
	}
	if rec != nil {
		p.finalize(slot, rfHz, rec, w)
	}
}

// squelchGate drops channelized blocks below the live squelch level so
// squelched air time never reaches the recording.
func (p *Pool) squelchGate(in <-chan []complex64) <-chan []complex64 {
	out := make(chan []complex64, 1)
	go func() {
		defer close(out)
		for samps := range in {
			if dsp.PowerDB(samps) < p.cfg.Squelch() {
				continue
			}
			select {
			case out <- samps:
			case <-p.ctx.Done():
				return
			}
		}
	}()
	return out
}

func (p *Pool) finalize(slot int, rfHz int64, rec *store.Recording, w *wav.Writer) {
	w.Close()
	rec.F.Close()
	dur := w.Duration()

	var class classify.Class
	var detail string
	if dur >= p.cfg.MinRecording {
		ctx, cancel := context.WithTimeout(p.ctx, classifyTimeout)
		var err error
		if class, detail, err = p.cls.Classify(ctx, rec.Path()); err != nil {
			log.Printf("demod: classify %s: %v", rec.Path(), err)
		}
		cancel()
	}

	var file string
	var kept bool
	if class == classify.Skip {
		if err := p.store.Discard(rec); err != nil {
			log.Printf("demod: discard %s: %v", rec.Path(), err)
		}
	} else {
		var err error
		if file, kept, err = p.store.Finalize(rec, dur, string(class)); err != nil {
			log.Printf("demod: finalize %s: %v", rec.Path(), err)
		}
	}
	if p.notify != nil {
		p.notify(scanner.FinalizeResult{
			Slot:           slot,
			FreqHz:         rfHz,
			File:           file,
			Classification: string(class),
			Detail:         detail,
			Kept:           kept,
			ID:             rec.ID,
		})
	}
}
