package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/eiannone/keyboard"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/john-/ham2mon/chanlog"
	"github.com/john-/ham2mon/classify"
	"github.com/john-/ham2mon/demod"
	"github.com/john-/ham2mon/httpapi"
	"github.com/john-/ham2mon/radio"
	"github.com/john-/ham2mon/scanner"
	"github.com/john-/ham2mon/store"
)

// Spectrum geometry: bin count per FFT and FFTs averaged per scan cycle.
const (
	fftBins = 1024
	fftAvg  = 20
)

var (
	numDemod      int
	demodKind     string
	freqArgs      []string
	sampleRate    uint32
	thresholdDB   float64
	adaptive      bool
	squelchDB     float64
	spacingHz     int64
	keepNarrow    bool
	quietTimeout  time.Duration
	activeTimeout time.Duration

	priorityFile string
	lockoutFile  string
	autoPriority bool
	minVoice     int

	record        bool
	recordDir     string
	minRecording  time.Duration
	maxRecording  time.Duration
	classifierRaw string

	logType     string
	logTarget   string
	logInterval time.Duration

	serial   string
	ppm      uint32
	agc      bool
	httpAddr string
	noKeys   bool
)

var rootCmd = &cobra.Command{
	Use:   "ham2mon",
	Short: "A multi-channel SDR scanner.",
	Run:   func(cmd *cobra.Command, args []string) { run() },
}

func init() {
	f := rootCmd.Flags()
	f.IntVarP(&numDemod, "num_demod", "n", 4, "Number of demodulator slots")
	f.StringVarP(&demodKind, "demod", "d", "nbfm", "Demodulator kind (nbfm, am, wbfm)")
	f.StringSliceVarP(&freqArgs, "frequency", "f", nil, "Frequency or range in MHz (repeatable, e.g. 146.55 or 450-459)")
	f.Uint32VarP(&sampleRate, "sample-rate", "r", 1024000, "Capture sample rate in Hz")
	f.Float64VarP(&thresholdDB, "threshold", "t", 10, "Detection threshold in dB")
	f.BoolVar(&adaptive, "adaptive", true, "Threshold relative to measured noise floor")
	f.Float64VarP(&squelchDB, "squelch", "s", -60, "Audio squelch in dB")
	f.Int64Var(&spacingHz, "spacing", 5000, "Channel spacing in Hz")
	f.BoolVar(&keepNarrow, "keep-narrow", false, "Keep single-bin detections")
	f.DurationVar(&quietTimeout, "quiet_timeout", 10*time.Second, "Quiet time before a channel closes")
	f.DurationVar(&activeTimeout, "active_timeout", 60*time.Second, "Maximum dwell on one range step")

	f.StringVarP(&priorityFile, "priority", "p", "", "Priority file, one Hz per line, highest first")
	f.StringVarP(&lockoutFile, "lockout", "l", "", "Lockout YAML file")
	f.BoolVar(&autoPriority, "auto-priority", false, "Promote voice-classified channels to priority")
	f.IntVar(&minVoice, "min-voice", 3, "Voice results needed before auto-promotion")

	f.BoolVarP(&record, "write", "w", false, "Record channel audio to wav files")
	f.StringVar(&recordDir, "wav-dir", "wav", "Recording directory")
	f.DurationVarP(&minRecording, "min_recording", "B", 2*time.Second, "Discard recordings shorter than this")
	f.DurationVar(&maxRecording, "max_recording", 0, "Roll recordings over after this long (0 disables)")
	f.StringVar(&classifierRaw, "classifier", "", "External classifier command for finished recordings")

	f.StringVarP(&logType, "log_type", "T", "none", "Channel log sink (none, debug, fixed-field, json-server, mqtt)")
	f.StringVarP(&logTarget, "log_target", "L", "", "Channel log target (path, URL, or broker|topic)")
	f.DurationVarP(&logInterval, "log_interval", "A", 15*time.Second, "Heartbeat interval for open channels (0 disables)")

	f.StringVar(&serial, "serial", "0", "rtl_tcp device serial")
	f.Uint32VarP(&ppm, "correction", "c", 0, "Frequency correction in ppm")
	f.BoolVarP(&agc, "agc", "a", false, "Enable tuner AGC")
	f.StringVar(&httpAddr, "http", "", "HTTP status/metrics address (empty disables)")
	f.BoolVar(&noKeys, "no-keys", false, "Disable keyboard controls")
}

type sdrRetuner struct {
	sdr  radio.SDR
	rate uint32
}

func (r *sdrRetuner) SetCenter(hz uint64) error {
	return r.sdr.SetBand(radio.HzBand{Center: hz, Width: uint64(r.rate)})
}

func run() {
	cfg := scanner.Config{
		NumDemod:          numDemod,
		DemodKind:         demodKind,
		SampleRate:        sampleRate,
		ThresholdDB:       thresholdDB,
		AdaptiveThreshold: adaptive,
		SquelchDB:         squelchDB,
		ChannelSpacingHz:  spacingHz,
		QuietTimeout:      quietTimeout,
		ActiveTimeout:     activeTimeout,
		PriorityFile:      priorityFile,
		LockoutFile:       lockoutFile,
		AutoPriority:      autoPriority,
		MinVoiceCount:     minVoice,
		Record:            record,
		MinRecording:      minRecording,
		MaxRecording:      maxRecording,
		LogInterval:       logInterval,
	}
	if keepNarrow {
		cfg.MinWidth = scanner.KeepNarrowSpikes
	}
	for _, arg := range freqArgs {
		spec, err := scanner.ParseFreqSpec(arg)
		if err != nil {
			log.Fatal(err)
		}
		cfg.Frequencies = append(cfg.Frequencies, spec)
	}

	logger, err := chanlog.New(logType, logTarget)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sdr, err := radio.NewSDRWithSerial(ctx, serial)
	if err != nil {
		log.Fatal(err)
	}
	defer sdr.Close()
	if ppm != 0 {
		if err := sdr.SetFreqCorrection(ppm); err != nil {
			log.Fatal(err)
		}
	}

	var rs *store.RecordingStore
	if record {
		if rs, err = store.NewRecordingStore(recordDir, minRecording); err != nil {
			log.Fatal(err)
		}
	}
	var cls classify.Classifier = classify.Nop{}
	if classifierRaw != "" {
		cls = &classify.Exec{Path: classifierRaw}
	}

	reg := prometheus.NewRegistry()
	metrics := scanner.NewMetrics(reg)

	var scan *scanner.Scanner
	pool, err := demod.NewPool(demod.Config{
		Kind:         demod.Kind(demodKind),
		SampleRate:   int(sampleRate),
		NumTuners:    numDemod,
		Record:       record,
		MinRecording: minRecording,
		Squelch:      func() float64 { return scan.SquelchDB() },
	}, rs, cls, func(res scanner.FinalizeResult) { scan.OnFinalize(res) })
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Close()

	retuner := &sdrRetuner{sdr: sdr, rate: sampleRate}
	scan, err = scanner.New(cfg, scanner.Deps{
		SlotTuner: pool,
		Retuner:   retuner,
		Logger:    logger,
		Metrics:   metrics,
	}, time.Now())
	if err != nil {
		log.Fatal(err)
	}

	if err := retuner.SetCenter(scan.CenterHz()); err != nil {
		log.Fatal(err)
	}
	info := sdr.Info()
	log.Printf("sdr %s tuned to %.4f MHz at %d sps", info.Id,
		float64(info.CenterHz)/1e6, info.SampleRate)
	if agc {
		if err := sdr.SetAGC(true); err != nil {
			log.Fatal(err)
		}
	}

	if httpAddr != "" {
		go func() {
			if err := httpapi.Serve(httpAddr, scan, rs, reg); err != nil {
				log.Printf("http: %v", err)
			}
		}()
	}
	if !noKeys {
		go keyLoop(scan, cancel)
	}

	scanLoop(ctx, sdr, scan, pool)
}

// scanLoop tees the capture stream into the spectrum estimator and the
// demodulator pool and drives one scan cycle per averaged measurement.
// A range advance resets the tuner connection, so the stream is reopened
// per capture window.
func scanLoop(ctx context.Context, sdr radio.SDR, scan *scanner.Scanner, pool *demod.Pool) {
	for ctx.Err() == nil {
		center := scan.CenterHz()
		stream := sdr.Reader().BatchStream64(ctx, fftBins, 0)
		meas := make(chan []complex64, fftAvg)
		go func() {
			defer close(meas)
			for batch := range stream {
				pool.Feed(batch)
				select {
				case meas <- batch:
				default:
				}
			}
		}()

		sp := radio.NewSpectralPower(radio.HzBand{Center: center, Width: uint64(sampleRate)}, fftBins, fftAvg)
		cycles := 0
		for ctx.Err() == nil {
			if err := sp.Measure(meas); err != nil {
				if cycles == 0 {
					log.Printf("spectrum: %v", err)
					time.Sleep(time.Second)
				}
				break
			}
			cycles++
			scan.ScanCycle(sp.Sample(), time.Now())
			if scan.CenterHz() != center {
				break
			}
		}
	}
}

// keyLoop mirrors the interactive controls: digits lock out the channel
// held by that slot, l reloads lockouts, t/T and s/S nudge threshold and
// squelch, q quits.
func keyLoop(scan *scanner.Scanner, quit context.CancelFunc) {
	if err := keyboard.Open(); err != nil {
		log.Printf("keyboard: %v", err)
		return
	}
	defer keyboard.Close()
	for {
		ch, key, err := keyboard.GetKey()
		if err != nil {
			return
		}
		switch {
		case ch >= '0' && ch <= '9':
			scan.LockoutSlot(int(ch - '0'))
		case ch == 'l':
			if err := scan.ClearLockouts(); err != nil {
				log.Printf("lockout reload: %v", err)
			}
		case ch == 't':
			scan.AdjustThreshold(-5)
		case ch == 'T':
			scan.AdjustThreshold(5)
		case ch == 's':
			scan.AdjustSquelch(-5)
		case ch == 'S':
			scan.AdjustSquelch(5)
		case ch == 'q' || key == keyboard.KeyEsc || key == keyboard.KeyCtrlC:
			quit()
			return
		}
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
