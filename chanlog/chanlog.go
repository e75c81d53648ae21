// Package chanlog emits channel activity events to pluggable sinks.
package chanlog

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"
)

type State string

const (
	StateOn  State = "on"  // a slot opened on the channel
	StateOff State = "off" // the channel closed, recording finalized
	StateAct State = "act" // activity heartbeat while a channel stays open
)

var ErrUnknownSink = errors.New("unknown channel log sink")

// Message is one channel activity event. File, Classification, and Detail
// are filled on off events when a recording was involved.
type Message struct {
	State          State     `json:"state"`
	FreqMHz        float64   `json:"frequency"`
	Channel        int       `json:"channel"`
	File           string    `json:"file,omitempty"`
	Classification string    `json:"classification,omitempty"`
	Detail         string    `json:"detail,omitempty"`
	ID             string    `json:"id,omitempty"`
	Time           time.Time `json:"timestamp"`
}

type Logger interface {
	Log(msg *Message) error
	Close() error
}

// New builds a sink: "none", "debug", "fixed-field" (target is a file
// path), "json-server" (target is a URL), or "mqtt" (target is
// broker-url|topic).
func New(kind, target string) (Logger, error) {
	switch kind {
	case "", "none":
		return nopLogger{}, nil
	case "debug":
		return debugLogger{}, nil
	case "fixed-field":
		return newFixedField(target)
	case "json-server":
		return newJSONServer(target)
	case "mqtt":
		return newMQTT(target)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownSink, kind)
}

type nopLogger struct{}

func (nopLogger) Log(*Message) error { return nil }
func (nopLogger) Close() error       { return nil }

type debugLogger struct{}

func (debugLogger) Log(m *Message) error {
	log.Printf("chanlog: %-4s %.4f ch=%d %s%s", m.State, m.FreqMHz, m.Channel, m.File, m.Detail)
	return nil
}

func (debugLogger) Close() error { return nil }

// fixedField appends fixed-width records to a file, one per event.
type fixedField struct {
	f *os.File
}

func newFixedField(path string) (*fixedField, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	return &fixedField{f: f}, nil
}

func (l *fixedField) Log(m *Message) error {
	_, err := fmt.Fprintf(l.f, "%s: %-4s%-10.4f%-2d\n",
		m.Time.Format("2006-01-02, 15:04:05.000000"), m.State, m.FreqMHz, m.Channel)
	return err
}

func (l *fixedField) Close() error { return l.f.Close() }
