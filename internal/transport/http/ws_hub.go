package http

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"classroom-quiz-service/internal/app"
	"classroom-quiz-service/internal/domain"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Hub tracks open websocket connections per user and pushes course
// announcements and reminders to them. A user may hold several
// connections (multiple tabs); every one receives each message.
type Hub struct {
	upgrader websocket.Upgrader

	mu    sync.RWMutex
	conns map[string]map[*wsConn]struct{}
}

func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		conns: make(map[string]map[*wsConn]struct{}),
	}
}

// wsConn serializes writes; gorilla connections allow one writer at a time.
type wsConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsConn) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

type outboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// ServeWS upgrades the request and parks the connection until the
// client goes away. Inbound frames are drained and discarded; this
// channel is push-only.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID := identity(r)
	if userID == "" {
		http.Error(w, "missing user identity", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	wc := &wsConn{conn: conn}
	h.register(userID, wc)
	defer h.unregister(userID, wc)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) register(userID string, wc *wsConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conns[userID] == nil {
		h.conns[userID] = make(map[*wsConn]struct{})
	}
	h.conns[userID][wc] = struct{}{}
}

func (h *Hub) unregister(userID string, wc *wsConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns[userID], wc)
	if len(h.conns[userID]) == 0 {
		delete(h.conns, userID)
	}
}

// DeliverToUser pushes a message to every open connection of the user.
// Users without a connection simply miss the message.
func (h *Hub) DeliverToUser(userID, messageType string, payload json.RawMessage) {
	h.mu.RLock()
	targets := make([]*wsConn, 0, len(h.conns[userID]))
	for wc := range h.conns[userID] {
		targets = append(targets, wc)
	}
	h.mu.RUnlock()

	msg := outboundMessage{Type: messageType, Payload: payload}
	for _, wc := range targets {
		if err := wc.writeJSON(msg); err != nil {
			log.Printf("ws write to %s: %v", userID, err)
		}
	}
}

// HubAnnouncer delivers announcements straight through the local hub.
// It is the single-process stand-in for the Redis pub/sub announcer.
type HubAnnouncer struct {
	hub *Hub
	dir app.CourseDirectory
}

func NewHubAnnouncer(hub *Hub, dir app.CourseDirectory) *HubAnnouncer {
	return &HubAnnouncer{hub: hub, dir: dir}
}

func (a *HubAnnouncer) Publish(ctx context.Context, courseID uuid.UUID, announcement domain.Announcement) error {
	payload, err := json.Marshal(announcement)
	if err != nil {
		return err
	}
	members, err := a.dir.Members(ctx, courseID)
	if err != nil {
		return err
	}
	for _, member := range members {
		a.hub.DeliverToUser(member.UserID, "announcement", payload)
	}
	return nil
}

func (a *HubAnnouncer) NotifyUser(ctx context.Context, userID, message string) error {
	payload, err := json.Marshal(struct {
		Message string `json:"message"`
	}{Message: message})
	if err != nil {
		return err
	}
	a.hub.DeliverToUser(userID, "notification", payload)
	return nil
}
