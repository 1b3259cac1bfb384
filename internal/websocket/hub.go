// Package websocket pushes notifications from the event bus to the sockets of
// the user each event is addressed to.
package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"

	"go-notes-workspace/internal/event"
	"go-notes-workspace/internal/metrics"
	"go-notes-workspace/internal/middleware"
	"go-notes-workspace/internal/model"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 32
)

type Hub struct {
	bus      event.Bus
	log      *slog.Logger
	upgrader ws.Upgrader

	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}
}

// NewHub builds a hub. allowedOrigins follows the CORS setting; "*" or an
// empty list accepts any origin.
func NewHub(bus event.Bus, allowedOrigins []string, log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}

	h := &Hub{
		bus:     bus,
		log:     log.With("component", "websocket"),
		clients: make(map[string]map[*Client]struct{}),
	}
	h.upgrader = ws.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

// Run forwards bus events until ctx is done, then closes every socket.
func (h *Hub) Run(ctx context.Context) {
	events, unsubscribe := h.bus.Subscribe()
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case e, ok := <-events:
			if !ok {
				h.closeAll()
				return
			}
			h.deliver(e)
		}
	}
}

func (h *Hub) deliver(e event.Event) {
	message, err := json.Marshal(e.Notification)
	if err != nil {
		h.log.Error("failed to marshal notification", "error", err, "type", e.Notification.Type)
		return
	}

	// Sends happen under the read lock so unregister cannot close a channel
	// mid-send. They never block.
	var slow []*Client
	h.mu.RLock()
	for client := range h.clients[e.UserID] {
		select {
		case client.send <- message:
			metrics.RecordNotification(string(e.Notification.Type))
		default:
			slow = append(slow, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range slow {
		h.log.Warn("dropping slow socket", "user_id", e.UserID)
		h.unregister(client)
	}
}

// Connected reports how many sockets userID has open.
func (h *Hub) Connected(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	set, ok := h.clients[c.userID]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[c.userID] = set
	}
	set[c] = struct{}{}
	total := h.countLocked()
	h.mu.Unlock()

	metrics.SetWSConnections(total)
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	set, ok := h.clients[c.userID]
	if ok {
		if _, present := set[c]; present {
			delete(set, c)
			close(c.send)
		}
		if len(set) == 0 {
			delete(h.clients, c.userID)
		}
	}
	total := h.countLocked()
	h.mu.Unlock()

	metrics.SetWSConnections(total)
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	for userID, set := range h.clients {
		for c := range set {
			close(c.send)
		}
		delete(h.clients, userID)
	}
	h.mu.Unlock()

	metrics.SetWSConnections(0)
}

func (h *Hub) countLocked() int {
	total := 0
	for _, set := range h.clients {
		total += len(set)
	}
	return total
}

// ServeWS upgrades an authenticated request. It must run behind RequireAuth.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(model.APIResponse{
			Error: &model.APIError{Code: "UNAUTHORIZED", Message: "authentication required"},
		})
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		h.log.Debug("upgrade failed", "error", err)
		return
	}

	client := &Client{
		hub:    h,
		userID: claims.UserID,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
	}
	h.register(client)

	go client.writePump()
	go client.readPump()
}

func originChecker(allowed []string) func(r *http.Request) bool {
	permitted := make(map[string]struct{}, len(allowed))
	wildcard := len(allowed) == 0
	for _, origin := range allowed {
		origin = strings.TrimRight(strings.TrimSpace(origin), "/")
		if origin == "*" {
			wildcard = true
		}
		permitted[strings.ToLower(origin)] = struct{}{}
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || wildcard {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		_, ok := permitted[strings.ToLower(u.Scheme+"://"+u.Host)]
		return ok
	}
}
