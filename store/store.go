package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// RecordingStore manages finished audio recordings on disk. Files are
// staged under tmp/ while a channel is open and renamed into the base
// directory on finalize, so anything watching the directory only ever
// sees complete files.
type RecordingStore struct {
	baseDir     string
	tmpDir      string
	minDuration time.Duration
}

func NewRecordingStore(dir string, minDuration time.Duration) (*RecordingStore, error) {
	tmp := filepath.Join(dir, "tmp")
	if err := os.MkdirAll(tmp, 0755); err != nil {
		return nil, err
	}
	return &RecordingStore{baseDir: dir, tmpDir: tmp, minDuration: minDuration}, nil
}

// Recording is one in-progress capture staged in the tmp directory.
type Recording struct {
	ID      string
	FreqHz  int64
	Started time.Time
	F       *os.File

	name string
	tmp  string
}

func (r *Recording) Path() string { return r.tmp }

// Open stages a new recording for freqHz. The base name is the channel
// frequency in MHz and the wall-clock start time.
func (s *RecordingStore) Open(freqHz int64, now time.Time) (*Recording, error) {
	name := fmt.Sprintf("%.4f_%s.wav", float64(freqHz)/1e6, now.Format("20060102_150405"))
	tmp := filepath.Join(s.tmpDir, name)
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_RDWR, 0644)
	if err != nil {
		return nil, err
	}
	return &Recording{
		ID:      uuid.NewString(),
		FreqHz:  freqHz,
		Started: now,
		F:       f,
		name:    name,
		tmp:     tmp,
	}, nil
}

// Finalize closes out a recording. Captures shorter than the minimum are
// deleted; kept files move into the base directory with the classification
// appended to the name ("_V", "_D", "_S"). Returns the final path and
// whether the file was kept. The caller has already closed r.F.
func (s *RecordingStore) Finalize(r *Recording, duration time.Duration, class string) (string, bool, error) {
	if duration < s.minDuration {
		return "", false, os.Remove(r.tmp)
	}
	name := r.name
	if class != "" {
		name = strings.TrimSuffix(name, ".wav") + "_" + class + ".wav"
	}
	final := filepath.Join(s.baseDir, name)
	if err := os.Rename(r.tmp, final); err != nil {
		return "", false, err
	}
	return final, true, nil
}

// Discard removes a staged recording regardless of length.
func (s *RecordingStore) Discard(r *Recording) error {
	return os.Remove(r.tmp)
}

// FilePath maps a bare finalized file name back under the base directory.
func (s *RecordingStore) FilePath(name string) string {
	return filepath.Join(s.baseDir, filepath.Base(name))
}

// RecordingFile is one finalized capture parsed back from its file name.
type RecordingFile struct {
	FreqMHz        float64   `json:"freq_mhz"`
	Date           time.Time `json:"date"`
	Classification string    `json:"classification,omitempty"`
	Path           string    `json:"path"`
	Size           int64     `json:"size"`
}

// Recordings lists finalized captures, newest first. Files that do not
// parse as store names are skipped.
func (s *RecordingStore) Recordings() ([]RecordingFile, error) {
	ents, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, err
	}
	var out []RecordingFile
	for _, ent := range ents {
		if ent.IsDir() || !strings.HasSuffix(ent.Name(), ".wav") {
			continue
		}
		rf, ok := parseName(ent.Name())
		if !ok {
			continue
		}
		if info, err := ent.Info(); err == nil {
			rf.Size = info.Size()
		}
		rf.Path = filepath.Join(s.baseDir, ent.Name())
		out = append(out, rf)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

func parseName(name string) (RecordingFile, bool) {
	base := strings.TrimSuffix(name, ".wav")
	parts := strings.Split(base, "_")
	if len(parts) < 3 {
		return RecordingFile{}, false
	}
	var mhz float64
	if _, err := fmt.Sscanf(parts[0], "%f", &mhz); err != nil {
		return RecordingFile{}, false
	}
	date, err := time.ParseInLocation("20060102_150405", parts[1]+"_"+parts[2], time.Local)
	if err != nil {
		return RecordingFile{}, false
	}
	rf := RecordingFile{FreqMHz: mhz, Date: date}
	if len(parts) == 4 {
		rf.Classification = parts[3]
	}
	return rf, true
}
