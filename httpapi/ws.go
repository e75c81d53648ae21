package httpapi

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/john-/ham2mon/scanner"
)

const wsWriteTimeout = 5 * time.Second

// hub fans status snapshots out to websocket subscribers. A client that
// cannot keep up is dropped on its next write deadline.
type hub struct {
	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns map[*websocket.Conn]bool
}

func newHub() *hub {
	return &hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		conns: make(map[*websocket.Conn]bool),
	}
}

func (h *hub) serveWS(w http.ResponseWriter, r *http.Request) {
	c, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("httpapi: websocket upgrade: %v", err)
		return
	}
	h.mu.Lock()
	h.conns[c] = true
	h.mu.Unlock()
	// Reader drains control frames and detects the close.
	go func() {
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				h.drop(c)
				return
			}
		}
	}()
}

func (h *hub) drop(c *websocket.Conn) {
	h.mu.Lock()
	delete(h.conns, c)
	h.mu.Unlock()
	c.Close()
}

func (h *hub) broadcast(st scanner.Status) {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.Unlock()
	for _, c := range conns {
		c.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := c.WriteJSON(st); err != nil {
			h.drop(c)
		}
	}
}
