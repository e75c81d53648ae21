package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/john-/ham2mon/scanner"
)

func testHandler(t *testing.T) *httpHandler {
	cfg := scanner.Config{
		NumDemod:         2,
		Frequencies:      []scanner.FreqSpec{{LoHz: 146000000}},
		SampleRate:       1024000,
		ThresholdDB:      -70,
		SquelchDB:        -60,
		ChannelSpacingHz: 5000,
		QuietTimeout:     10 * time.Second,
		ActiveTimeout:    60 * time.Second,
		MinVoiceCount:    3,
	}
	s, err := scanner.New(cfg, scanner.Deps{}, time.Unix(1000, 0))
	if err != nil {
		t.Fatal(err)
	}
	return newHandler(s, nil, prometheus.NewRegistry())
}

func TestWavWithoutStore(t *testing.T) {
	h := testHandler(t)
	// No -w flag means no recording store; the archive path must 404
	// instead of dereferencing it.
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/wav/x.wav", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without a store, got %d", w.Code)
	}
}

func TestStatusJSON(t *testing.T) {
	h := testHandler(t)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/status.json", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status.json: %d", w.Code)
	}
	var st scanner.Status
	if err := json.NewDecoder(w.Body).Decode(&st); err != nil {
		t.Fatal(err)
	}
	if st.CenterHz != 146000000 {
		t.Fatalf("bad center in status: %+v", st)
	}
}

func TestIndexRenders(t *testing.T) {
	h := testHandler(t)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusOK || w.Body.Len() == 0 {
		t.Fatalf("index render: %d", w.Code)
	}
}
