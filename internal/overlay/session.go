package overlay

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"streakoverlay/pkg/protocol"
)

// Session represents a connected overlay browser source
type Session struct {
	ID          string
	ConnectedAt time.Time
	LastActive  time.Time

	hub       *Hub
	conn      *websocket.Conn
	sendQueue chan []byte
	mutex     sync.Mutex
	closed    bool
}

// newSession creates a session for an accepted connection and starts its
// read and write pumps
func newSession(hub *Hub, conn *websocket.Conn) *Session {
	session := &Session{
		ID:          uuid.New().String(),
		ConnectedAt: time.Now(),
		LastActive:  time.Now(),
		hub:         hub,
		conn:        conn,
		sendQueue:   make(chan []byte, 64),
	}

	go session.readPump()
	go session.writePump()

	return session
}

// Close closes the session and removes it from the hub. The hub registry is
// updated after the session mutex is released; holding both at once would
// invert the lock order against Broadcast.
func (s *Session) Close() {
	s.mutex.Lock()
	if s.closed {
		s.mutex.Unlock()
		return
	}
	s.closed = true

	s.conn.Close()
	close(s.sendQueue)
	s.mutex.Unlock()

	s.hub.removeSession(s.ID)
}

// SendMessage serializes and queues a message for the client
func (s *Session) SendMessage(msg *protocol.Message) error {
	out := *msg
	out.SessionID = s.ID

	data, err := protocol.SerializeMessage(out)
	if err != nil {
		return err
	}
	s.send(data)
	return nil
}

// send queues raw bytes; a full queue drops the client rather than blocking
// the broadcaster. The mutex stays held across the queue send so Close
// cannot close the channel underneath it.
func (s *Session) send(data []byte) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.closed {
		return
	}

	select {
	case s.sendQueue <- data:
	default:
		s.hub.logger.Warn("Session %s send queue full, dropping client", s.ID)
		go s.Close()
	}
}

// readPump drains the connection. Overlay clients are not expected to send
// anything; reading serves to notice closes and answer pings.
func (s *Session) readPump() {
	defer s.Close()

	s.conn.SetReadLimit(s.hub.config.MaxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(s.hub.config.ReadTimeout))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(s.hub.config.ReadTimeout))
		return nil
	})

	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			break
		}
		s.LastActive = time.Now()
	}
}

// writePump writes queued messages and keeps the connection alive
func (s *Session) writePump() {
	ticker := time.NewTicker(s.hub.config.PingInterval)
	defer func() {
		ticker.Stop()
		s.Close()
	}()

	for {
		select {
		case message, ok := <-s.sendQueue:
			s.conn.SetWriteDeadline(time.Now().Add(s.hub.config.WriteTimeout))
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := s.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(s.hub.config.WriteTimeout))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
