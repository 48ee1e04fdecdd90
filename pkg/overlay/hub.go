// Package overlay streams view frames to connected browser sources.
package overlay

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"tableflip.dev/teamviz/pkg/view"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 256
)

type frameKey struct {
	layer    string
	property view.Property
}

// Hub is a view.Sink broadcasting frames as JSON text messages. New
// subscribers first receive the last frame of every layer property so they
// start from the current picture.
type Hub struct {
	log      *zap.Logger
	upgrader websocket.Upgrader

	mu     sync.Mutex
	subs   map[string]*subscriber
	last   map[frameKey]view.Frame
	order  []frameKey
	closed bool
}

type subscriber struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (s *subscriber) close() {
	s.once.Do(func() {
		close(s.send)
	})
}

// NewHub returns an empty hub. Any origin may connect.
func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		log: log,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		subs: make(map[string]*subscriber),
		last: make(map[frameKey]view.Frame),
	}
}

// Render implements view.Sink. It never blocks; a subscriber whose buffer is
// full is disconnected.
func (h *Hub) Render(f view.Frame) {
	data, err := json.Marshal(f)
	if err != nil {
		h.log.Error("frame not encoded", zap.String("layer", f.Layer), zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.remember(f)
	for id, s := range h.subs {
		select {
		case s.send <- data:
		default:
			h.log.Warn("dropping slow subscriber", zap.String("id", id))
			delete(h.subs, id)
			s.close()
		}
	}
}

// remember keeps the end state of persistent properties for replay.
func (h *Hub) remember(f view.Frame) {
	if f.Property == view.PropPreload {
		return
	}
	k := frameKey{layer: f.Layer, property: f.Property}
	if _, ok := h.last[k]; !ok {
		h.order = append(h.order, k)
	}
	f.Duration = 0
	h.last[k] = f
}

// Replay returns the frames a new subscriber starts with, in first-seen order.
func (h *Hub) Replay() []view.Frame {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]view.Frame, 0, len(h.order))
	for _, k := range h.order {
		out = append(out, h.last[k])
	}
	return out
}

// Subscribers reports the number of connected browser sources.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// ServeHTTP upgrades the request and streams frames until the peer leaves.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	s := &subscriber{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.Close()
		return
	}
	for _, k := range h.order {
		data, err := json.Marshal(h.last[k])
		if err != nil {
			continue
		}
		select {
		case s.send <- data:
		default:
		}
	}
	h.subs[s.id] = s
	h.mu.Unlock()

	h.log.Info("subscriber connected", zap.String("id", s.id), zap.String("remote", r.RemoteAddr))
	go h.writePump(s)
	h.readPump(s)
}

// readPump discards client messages and notices disconnects.
func (h *Hub) readPump(s *subscriber) {
	defer func() {
		h.drop(s)
		_ = s.conn.Close()
		h.log.Info("subscriber disconnected", zap.String("id", s.id))
	}()
	s.conn.SetReadLimit(512)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(s *subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()
	for {
		select {
		case data, ok := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) drop(s *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[s.id] == s {
		delete(h.subs, s.id)
	}
	s.close()
}

// Close disconnects every subscriber and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for id, s := range h.subs {
		delete(h.subs, id)
		s.close()
	}
}
