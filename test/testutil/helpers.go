package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"streakoverlay/pkg/protocol"
)

// FeedServer is an in-process stand-in for the upstream dashboard feed. It
// accepts one subscriber at a time and sends whatever snapshots the test
// pushes into it.
type FeedServer struct {
	server   *httptest.Server
	upgrader websocket.Upgrader

	mu         sync.Mutex
	conn       *websocket.Conn
	subscribed chan protocol.Subscription
	outbox     chan []byte
}

// NewFeedServer starts a fake feed
func NewFeedServer() *FeedServer {
	fs := &FeedServer{
		upgrader:   websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		subscribed: make(chan protocol.Subscription, 4),
		outbox:     make(chan []byte, 32),
	}
	fs.server = httptest.NewServer(http.HandlerFunc(fs.handle))
	return fs
}

// URL returns the ws:// address of the fake feed
func (fs *FeedServer) URL() string {
	return "ws" + strings.TrimPrefix(fs.server.URL, "http")
}

// Close shuts the fake feed down
func (fs *FeedServer) Close() {
	fs.mu.Lock()
	if fs.conn != nil {
		fs.conn.Close()
	}
	fs.mu.Unlock()
	fs.server.Close()
}

// WaitForSubscription blocks until a client subscribes, returning the
// subscription it sent
func (fs *FeedServer) WaitForSubscription(timeout time.Duration) (protocol.Subscription, error) {
	select {
	case sub := <-fs.subscribed:
		return sub, nil
	case <-time.After(timeout):
		return protocol.Subscription{}, fmt.Errorf("no subscription within %v", timeout)
	}
}

// SendSnapshot wraps a snapshot in a cls-13 envelope and sends it to the
// connected subscriber
func (fs *FeedServer) SendSnapshot(snap protocol.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	frame, err := json.Marshal(struct {
		Cls  int             `json:"cls"`
		Data json.RawMessage `json:"data"`
	}{Cls: protocol.ClsSnapshot, Data: data})
	if err != nil {
		return err
	}
	return fs.SendRaw(frame)
}

// SendMatchRemoved sends a matchRemoved notification
func (fs *FeedServer) SendMatchRemoved() error {
	return fs.SendRaw([]byte(`{"type":"matchRemoved"}`))
}

// SendRaw queues a raw frame for the subscriber
func (fs *FeedServer) SendRaw(frame []byte) error {
	select {
	case fs.outbox <- frame:
		return nil
	case <-time.After(time.Second):
		return fmt.Errorf("feed outbox full")
	}
}

func (fs *FeedServer) handle(w http.ResponseWriter, r *http.Request) {
	conn, err := fs.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	var sub protocol.Subscription
	if err := conn.ReadJSON(&sub); err != nil {
		conn.Close()
		return
	}

	fs.mu.Lock()
	fs.conn = conn
	fs.mu.Unlock()
	fs.subscribed <- sub

	for frame := range fs.outbox {
		if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			return
		}
	}
}

// WaitForMessage reads overlay messages from conn until one of the wanted
// type arrives or the timeout expires
func WaitForMessage(conn *websocket.Conn, want protocol.MessageType, timeout time.Duration) (*protocol.Message, error) {
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		conn.SetReadDeadline(deadline)

		_, data, err := conn.ReadMessage()
		if err != nil {
			return nil, fmt.Errorf("read failed waiting for %s: %w", want, err)
		}

		msg, err := protocol.DeserializeMessage(data)
		if err != nil {
			return nil, fmt.Errorf("undecodable overlay message: %w", err)
		}
		if msg.Type == want {
			return &msg, nil
		}
	}
	return nil, fmt.Errorf("timeout waiting for %s", want)
}

// DecodePayload re-decodes a received message's payload into out. Payloads
// arrive as generic JSON after deserialization.
func DecodePayload(msg *protocol.Message, out interface{}) error {
	data, err := json.Marshal(msg.Payload)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}
