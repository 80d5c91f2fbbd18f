package server

import (
	"encoding/json"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/signstream/internal/pipeline"
)

const (
	writeWait      = 5 * time.Second
	maxMessageSize = 1 << 20
)

// FrameSink accepts landmark frames and exposes the session they feed.
type FrameSink interface {
	PushFrame(f pipeline.Frame) bool
	Session() *pipeline.Session
}

// SessionSocket connects browser-side hand trackers to the session.
// Clients send landmark frames ({"hands":[...]}) and receive every session
// event as JSON.
type SessionSocket struct {
	sink     FrameSink
	origins  map[string]bool
	upgrader websocket.Upgrader
}

// NewSessionSocket creates a new SessionSocket. Browsers may connect from
// the serving host or from one of allowedOrigins (e.g. "http://localhost:3000").
func NewSessionSocket(sink FrameSink, allowedOrigins ...string) *SessionSocket {
	h := &SessionSocket{sink: sink, origins: make(map[string]bool)}
	for _, o := range allowedOrigins {
		h.origins[strings.ToLower(strings.TrimSuffix(o, "/"))] = true
	}
	h.upgrader = websocket.Upgrader{CheckOrigin: h.checkOrigin}
	return h
}

// checkOrigin accepts clients without an Origin header (not browsers),
// same-host pages and configured origins.
func (h *SessionSocket) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if h.origins[strings.ToLower(origin)] {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}

type socketError struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// conn serializes writes; gorilla connections allow one concurrent writer.
type conn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func (c *conn) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteJSON(v)
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *SessionSocket) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}
	defer ws.Close()
	ws.SetReadLimit(maxMessageSize)

	c := &conn{ws: ws}
	events, unsubscribe := h.sink.Session().Subscribe()
	defer unsubscribe()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range events {
			if err := c.writeJSON(ev); err != nil {
				return
			}
		}
	}()

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			break
		}

		var f pipeline.Frame
		if err := json.Unmarshal(data, &f); err != nil {
			if err := c.writeJSON(socketError{Type: "error", Error: "invalid frame"}); err != nil {
				break
			}
			continue
		}
		if !h.sink.PushFrame(f) {
			if err := c.writeJSON(socketError{Type: "error", Error: "recognition is paused"}); err != nil {
				break
			}
		}
	}

	unsubscribe()
	<-done
}
