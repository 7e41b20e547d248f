package handlers

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/linesmerrill/sentinel-campus-api/api"
	"github.com/linesmerrill/sentinel-campus-api/models"
)

const (
	writeWait = 5 * time.Second

	// events queued per dashboard before it is dropped as stalled
	sendBuffer = 64
)

// hubClient is one dashboard connection. Only its writer goroutine writes
// to conn.
type hubClient struct {
	conn    *websocket.Conn
	adminID string
	send    chan []byte
}

// IssueHub pushes issue events to every connected dashboard
type IssueHub struct {
	upgrader websocket.Upgrader

	mutex   sync.Mutex
	clients map[*hubClient]struct{}
}

// NewIssueHub creates an empty hub
func NewIssueHub() *IssueHub {
	return &IssueHub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// dashboards are served from a different origin
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*hubClient]struct{}),
	}
}

// IssueStreamHandler upgrades an authenticated request and keeps the
// connection registered until the client goes away
func (h *IssueHub) IssueStreamHandler(w http.ResponseWriter, r *http.Request) {
	actor, _ := api.ActorFromContext(r.Context())

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		zap.S().Warnw("websocket upgrade error", "error", err)
		return
	}

	c := &hubClient{conn: conn, adminID: actor.ID, send: make(chan []byte, sendBuffer)}
	h.register(c)
	go h.writePump(c)
	zap.S().Infow("admin connected to issue stream", "adminId", actor.ID)

	// Keep connection alive until the client closes it
	for {
		if _, _, err := conn.NextReader(); err != nil {
			break
		}
	}

	h.remove(c)
	zap.S().Infow("admin disconnected from issue stream", "adminId", actor.ID)
}

// Publish queues an issue event for every connected dashboard. It never
// waits on a socket: a dashboard whose queue is full is disconnected.
func (h *IssueHub) Publish(event models.IssueEvent) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if len(h.clients) == 0 {
		return
	}
	msg, err := json.Marshal(event)
	if err != nil {
		zap.S().Errorw("failed to encode issue event", "event", event.Event, "error", err)
		return
	}
	zap.S().Debugw("broadcasting issue event",
		"event", event.Event,
		"clients", len(h.clients))

	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			zap.S().Warnw("dropping stalled issue stream client", "adminId", c.adminID)
			h.evictLocked(c)
		}
	}
}

// writePump drains the client queue onto the socket. When the queue is
// closed it says goodbye and closes the connection.
func (h *IssueHub) writePump(c *hubClient) {
	defer c.conn.Close()
	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			zap.S().Warnw("error sending issue event", "adminId", c.adminID, "error", err)
			h.remove(c)
			return
		}
	}
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, "stream closed"),
		time.Now().Add(writeWait))
}

// Count returns the number of connected dashboards
func (h *IssueHub) Count() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.clients)
}

// Close disconnects every client
func (h *IssueHub) Close() {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	for c := range h.clients {
		h.evictLocked(c)
	}
}

func (h *IssueHub) register(c *hubClient) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.clients[c] = struct{}{}
}

func (h *IssueHub) remove(c *hubClient) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.evictLocked(c)
}

// evictLocked unregisters c and closes its queue once. h.mutex must be held.
func (h *IssueHub) evictLocked(c *hubClient) {
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}
