package feed

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"streakoverlay/pkg/logger"
	"streakoverlay/pkg/protocol"
)

var (
	snapshotsReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "overlay_feed_snapshots_total",
		Help: "Number of cls-13 snapshots received from the upstream feed",
	})

	feedReconnects = promauto.NewCounter(prometheus.CounterOpts{
		Name: "overlay_feed_reconnects_total",
		Help: "Number of reconnection attempts to the upstream feed",
	})

	framesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "overlay_feed_frames_dropped_total",
		Help: "Number of upstream frames discarded as non-JSON or undecodable",
	})
)

// Handler consumes dispatched feed events. Calls arrive from a single
// goroutine, in arrival order.
type Handler interface {
	HandleSnapshot(snap *protocol.Snapshot)
	HandleMatchRemoved()
}

// ClientConfig holds configuration for the feed client
type ClientConfig struct {
	URL               string
	ProfileID         int64
	ReconnectDelay    time.Duration
	MaxReconnectDelay time.Duration
	HandshakeTimeout  time.Duration
}

// Client maintains the connection to the upstream dashboard feed for one
// tracked player: dial, subscribe, dispatch, reconnect.
type Client struct {
	config  ClientConfig
	handler Handler
	logger  *logger.ColoredLogger

	mu          sync.RWMutex
	conn        *websocket.Conn
	isConnected bool

	shutdown  chan struct{}
	closeOnce sync.Once
}

// NewClient creates a new feed client
func NewClient(config ClientConfig, handler Handler) (*Client, error) {
	if config.URL == "" {
		return nil, fmt.Errorf("feed URL must be set")
	}
	if config.ProfileID == 0 {
		return nil, fmt.Errorf("profile id must be set")
	}
	if handler == nil {
		return nil, fmt.Errorf("handler must be set")
	}

	if config.ReconnectDelay <= 0 {
		config.ReconnectDelay = 5 * time.Second
	}
	if config.MaxReconnectDelay < config.ReconnectDelay {
		config.MaxReconnectDelay = 60 * time.Second
	}
	if config.HandshakeTimeout <= 0 {
		config.HandshakeTimeout = 10 * time.Second
	}

	return &Client{
		config:   config,
		handler:  handler,
		logger:   logger.FeedLogger,
		shutdown: make(chan struct{}),
	}, nil
}

// Connected reports whether the upstream connection is currently up
func (c *Client) Connected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.isConnected
}

// Run connects to the feed and dispatches messages until Close is called,
// reconnecting with capped exponential backoff. It blocks; run it on its
// own goroutine.
func (c *Client) Run() {
	delay := c.config.ReconnectDelay

	for {
		select {
		case <-c.shutdown:
			return
		default:
		}

		gotFrames, err := c.connectAndRead()
		if err != nil {
			c.logger.Warn("Feed connection lost: %v", err)
		}

		// A session that delivered frames resets the backoff
		if gotFrames {
			delay = c.config.ReconnectDelay
		}

		select {
		case <-c.shutdown:
			return
		case <-time.After(delay):
		}

		feedReconnects.Inc()
		c.logger.Info("Reconnecting to %s (backoff %v)", c.config.URL, delay)

		delay *= 2
		if delay > c.config.MaxReconnectDelay {
			delay = c.config.MaxReconnectDelay
		}
	}
}

// Close shuts the client down and closes any open connection
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.shutdown)
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.isConnected = false
}

// connectAndRead performs one connection lifecycle: dial, subscribe, read
// until the connection drops. It reports whether any frame was delivered.
func (c *Client) connectAndRead() (bool, error) {
	dialer := websocket.Dialer{HandshakeTimeout: c.config.HandshakeTimeout}

	c.logger.Info("Connecting to %s...", c.config.URL)
	conn, _, err := dialer.Dial(c.config.URL, nil)
	if err != nil {
		return false, fmt.Errorf("failed to connect: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.isConnected = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		if c.conn == conn {
			c.conn = nil
			c.isConnected = false
		}
		c.mu.Unlock()
		conn.Close()
	}()

	// Subscribe to the tracked player's dashboard
	sub := protocol.Subscription{ProfileID: c.config.ProfileID}
	if err := conn.WriteJSON(sub); err != nil {
		return false, fmt.Errorf("failed to send subscription: %w", err)
	}

	c.logger.Info("Subscribed to profile %d", c.config.ProfileID)

	gotFrames := false
	for {
		select {
		case <-c.shutdown:
			return gotFrames, nil
		default:
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				return gotFrames, fmt.Errorf("read failed: %w", err)
			}
			return gotFrames, fmt.Errorf("connection closed: %w", err)
		}

		gotFrames = true
		c.dispatch(data)
	}
}

// dispatch parses one frame and routes its envelopes
func (c *Client) dispatch(data []byte) {
	envelopes, err := protocol.DecodeEnvelopes(data)
	if err != nil {
		// The feed intermixes non-JSON frames; drop them quietly
		framesDropped.Inc()
		c.logger.Debug("Ignoring undecodable frame: %v", err)
		return
	}

	for i := range envelopes {
		c.handleEnvelope(&envelopes[i])
	}
}

// handleEnvelope routes a single envelope by its discriminator
func (c *Client) handleEnvelope(env *protocol.Envelope) {
	switch {
	case env.Cls == protocol.ClsSnapshot && len(env.Data) > 0:
		var snap protocol.Snapshot
		if err := json.Unmarshal(env.Data, &snap); err != nil {
			framesDropped.Inc()
			c.logger.Warn("Failed to decode snapshot payload: %v", err)
			return
		}
		snapshotsReceived.Inc()
		c.logger.Debug("Snapshot: %d matches, live=%v", len(snap.Matches), snap.Live != nil)
		c.handler.HandleSnapshot(&snap)

	case env.Type == protocol.TypeMatchRemoved:
		c.logger.Info("Live match removed upstream")
		c.handler.HandleMatchRemoved()

	default:
		c.logger.Debug("Unhandled envelope cls=%d type=%q", env.Cls, env.Type)
	}
}
