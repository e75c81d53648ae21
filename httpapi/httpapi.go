// Package httpapi serves the scanner status page, a JSON/websocket feed
// for external UIs, prometheus metrics, and the recording archive.
package httpapi

import (
	"encoding/json"
	"html/template"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/john-/ham2mon/scanner"
	"github.com/john-/ham2mon/store"
)

type httpHandler struct {
	s          *scanner.Scanner
	store      *store.RecordingStore
	hub        *hub
	metrics    http.Handler
	statusTmpl *template.Template
}

const statusTmplStr = `<!DOCTYPE html>
<html>
<head>
<title>ham2mon</title>
<style>
table, th, td {
  border: 1px solid black;
  text-align: right;
}
</style>
</head>
<body>
<h1>ham2mon scanner</h1>
<hr/>

<h2>Receiver &#x1F4FB;</h2>
<ul>
<li>Center: {{printf "%.3f" .CenterMHz}} MHz</li>
<li>Threshold: {{printf "%.1f" .ThresholdDB}} dB
  <a href="?threshold=up">&#x2B06;&#xFE0F;</a>
  <a href="?threshold=down">&#x2B07;&#xFE0F;</a></li>
<li>Squelch: {{printf "%.1f" .SquelchDB}} dB
  <a href="?squelch=up">&#x2B06;&#xFE0F;</a>
  <a href="?squelch=down">&#x2B07;&#xFE0F;</a></li>
<li>Range step: {{.Range.Index}}/{{.Range.Total}} ({{printf "%.0f" .RangePercent}}%)</li>
{{if .Record}}<li>Recording &#x1F3A4;</li>{{end}}
</ul>

<h2>Demodulators</h2>
<table>
<tr><th>Slot</th><th>MHz</th><th>Tuned for</th><th>Control</th></tr>
{{range $_, $sl := .Slots}}
<tr>
<td>{{$sl.ID}}</td>
<td>{{if $sl.FreqHz}}{{printf "%.4f" (mhz $sl.FreqHz)}}{{else}}parked{{end}}</td>
<td>{{if $sl.FreqHz}}{{$.Now.Sub $sl.TunedSince}}{{end}}</td>
<td>{{if $sl.FreqHz}}<a href="?lockout={{$sl.ID}}">&#x1F507;</a>{{end}}</td>
</tr>
{{end}}
</table>

<h2>Channels &#x1F4D6;</h2>
<table>
<tr><th>MHz</th><th>dB</th><th>State</th><th>Slot</th><th>Flags</th></tr>
{{range $_, $c := .Channels}}
<tr>
<td>{{printf "%.4f" $c.FreqMHz}}</td>
<td>{{printf "%.1f" $c.PowerDB}}</td>
<td>{{if $c.Active}}active{{else}}hanging{{end}}</td>
<td>{{if ge $c.Slot 0}}{{$c.Slot}}{{end}}</td>
<td>
{{if $c.Priority}} &#x2B50; {{end}}
{{if $c.Locked}} &#x1F507; {{end}}
{{if $c.UnsavedLockout}} * {{end}}
</td>
</tr>
{{end}}
</table>

{{$length := len .Lockouts}} {{if gt $length 0}}
<h2>Lockouts</h2>
<ul>
{{range $_, $l := .Lockouts}}
<li>{{printf "%.4f" (mhz $l.FreqHz)}} MHz{{if $l.Unsaved}} (unsaved){{end}}</li>
{{end}}
</ul>
<p><a href="?clear_lockouts=1">Reload lockout file</a></p>
{{end}}

{{$length := len .Recordings}} {{if gt $length 0}}
<h2>Recordings &#x1F3A4;</h2>
<table>
<tr><th>Date</th><th>MHz</th><th>Class</th><th>Size</th><th></th></tr>
{{range $_, $r := .Recordings}}
<tr>
<td>{{$r.Date}}</td>
<td>{{printf "%.4f" $r.FreqMHz}}</td>
<td>{{$r.Classification}}</td>
<td>{{$r.Size}}</td>
<td><a href="/wav/{{base $r.Path}}">&#x1F50A;</a></td>
</tr>
{{end}}
</table>
{{end}}
</body>
</html>
`

type statusPage struct {
	scanner.Status
	CenterMHz    float64
	RangePercent float64
	Now          time.Time
	Recordings   []store.RecordingFile
}

// Serve blocks running the HTTP boundary on addr. The websocket hub
// pushes a status snapshot to connected clients once a second.
func Serve(addr string, s *scanner.Scanner, st *store.RecordingStore, reg *prometheus.Registry) error {
	h := newHandler(s, st, reg)
	go h.pushLoop()
	return http.ListenAndServe(addr, h)
}

func newHandler(s *scanner.Scanner, st *store.RecordingStore, reg *prometheus.Registry) *httpHandler {
	funcs := template.FuncMap{
		"mhz":  func(hz int64) float64 { return float64(hz) / 1e6 },
		"base": path.Base,
	}
	return &httpHandler{
		s:          s,
		store:      st,
		hub:        newHub(),
		metrics:    promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		statusTmpl: template.Must(template.New("status").Funcs(funcs).Parse(statusTmplStr)),
	}
}

func (h *httpHandler) pushLoop() {
	for range time.Tick(time.Second) {
		h.hub.broadcast(h.s.Status())
	}
}

func (h *httpHandler) handleGetIndex(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if v := q.Get("lockout"); v != "" {
		if id, err := strconv.Atoi(v); err == nil {
			h.s.LockoutSlot(id)
		}
	} else if q.Get("clear_lockouts") != "" {
		h.s.ClearLockouts()
	} else if v := q.Get("threshold"); v != "" {
		h.s.AdjustThreshold(stepFor(v))
	} else if v := q.Get("squelch"); v != "" {
		h.s.AdjustSquelch(stepFor(v))
	} else {
		page := statusPage{Status: h.s.Status(), Now: time.Now()}
		page.CenterMHz = float64(page.CenterHz) / 1e6
		page.RangePercent = page.Range.Percent * 100
		if h.store != nil {
			page.Recordings, _ = h.store.Recordings()
		}
		if err := h.statusTmpl.Execute(w, &page); err != nil {
			io.WriteString(w, err.Error())
		}
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func stepFor(v string) float64 {
	if v == "down" {
		return -5
	}
	return 5
}

func (h *httpHandler) handleStatusJSON(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.s.Status())
}

func (h *httpHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		base := path.Base(r.URL.Path)
		switch {
		case r.URL.Path == "/metrics":
			h.metrics.ServeHTTP(w, r)
		case r.URL.Path == "/ws":
			h.hub.serveWS(w, r)
		case base == "status.json":
			h.handleStatusJSON(w)
		case strings.HasPrefix(r.URL.Path, "/wav/") && strings.HasSuffix(base, ".wav"):
			if h.store == nil {
				http.NotFound(w, r)
				return
			}
			w.Header().Set("Content-Type", "audio/wav")
			http.ServeFile(w, r, h.store.FilePath(base))
		default:
			h.handleGetIndex(w, r)
		}
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}
