package overlay

import (
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"streakoverlay/pkg/logger"
	"streakoverlay/pkg/protocol"
)

var connectedClients = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "overlay_connected_clients",
	Help: "Number of overlay browser sources currently connected",
})

// HubConfig holds connection limits and timeouts for overlay sessions
type HubConfig struct {
	MaxConnections int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	PingInterval   time.Duration
	MaxMessageSize int64
}

// Hub manages all connected overlay sessions and broadcasts state messages
// to them.
type Hub struct {
	config HubConfig
	logger *logger.ColoredLogger

	mutex    sync.RWMutex
	sessions map[string]*Session
	closed   bool
}

// NewHub creates a session hub
func NewHub(config HubConfig) *Hub {
	if config.MaxConnections <= 0 {
		config.MaxConnections = 50
	}
	if config.ReadTimeout <= 0 {
		config.ReadTimeout = 60 * time.Second
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = 10 * time.Second
	}
	if config.PingInterval <= 0 {
		config.PingInterval = 25 * time.Second
	}
	if config.MaxMessageSize <= 0 {
		config.MaxMessageSize = 8192
	}

	return &Hub{
		config:   config,
		logger:   logger.OverlayLogger,
		sessions: make(map[string]*Session),
	}
}

// AddSession wraps an accepted connection in a session and registers it
func (h *Hub) AddSession(conn *websocket.Conn) (*Session, error) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if h.closed {
		return nil, fmt.Errorf("hub is shut down")
	}
	if len(h.sessions) >= h.config.MaxConnections {
		return nil, fmt.Errorf("connection limit reached (%d)", h.config.MaxConnections)
	}

	session := newSession(h, conn)
	h.sessions[session.ID] = session
	connectedClients.Set(float64(len(h.sessions)))

	h.logger.Info("Overlay client connected: %s (%d active)", session.ID, len(h.sessions))
	return session, nil
}

// removeSession drops a session from the registry
func (h *Hub) removeSession(sessionID string) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if _, ok := h.sessions[sessionID]; !ok {
		return
	}
	delete(h.sessions, sessionID)
	connectedClients.Set(float64(len(h.sessions)))

	h.logger.Info("Overlay client disconnected: %s (%d active)", sessionID, len(h.sessions))
}

// Broadcast sends a message to every connected session
func (h *Hub) Broadcast(msg *protocol.Message) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	for _, session := range h.sessions {
		if err := session.SendMessage(msg); err != nil {
			h.logger.Error("Failed to send to %s: %v", session.ID, err)
		}
	}
}

// Count returns the number of connected sessions
func (h *Hub) Count() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.sessions)
}

// Close disconnects every session and refuses new ones
func (h *Hub) Close() {
	h.mutex.Lock()
	h.closed = true
	sessions := make([]*Session, 0, len(h.sessions))
	for _, s := range h.sessions {
		sessions = append(sessions, s)
	}
	h.mutex.Unlock()

	for _, s := range sessions {
		s.Close()
	}
}
