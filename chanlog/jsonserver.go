package chanlog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// jsonServer posts each event as a JSON document to a remote collector.
// Send failures are logged by the caller and never escalate; the next
// event simply tries again.
type jsonServer struct {
	url    string
	client *http.Client
}

func newJSONServer(target string) (*jsonServer, error) {
	if _, err := url.ParseRequestURI(target); err != nil {
		return nil, fmt.Errorf("json-server target: %w", err)
	}
	return &jsonServer{
		url:    target,
		client: &http.Client{Timeout: 5 * time.Second},
	}, nil
}

func (l *jsonServer) Log(m *Message) error {
	b, err := json.Marshal(m)
	if err != nil {
		return err
	}
	resp, err := l.client.Post(l.url, "application/json", bytes.NewReader(b))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("json-server: %s", resp.Status)
	}
	return nil
}

func (l *jsonServer) Close() error {
	l.client.CloseIdleConnections()
	return nil
}
