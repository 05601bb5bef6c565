package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"streakoverlay/handlers"
	"streakoverlay/internal/archive"
	"streakoverlay/internal/feed"
	"streakoverlay/internal/overlay"
	"streakoverlay/internal/streak"
	"streakoverlay/pkg/config"
	"streakoverlay/pkg/logger"
)

// Version is the server version reported on the home and health endpoints
const Version = "0.3.0"

// Server wires the upstream feed, the streak state, and the overlay hub
// behind one HTTP listener
type Server struct {
	config *config.Config
	logger *logger.ColoredLogger

	httpServer *http.Server
	hub        *overlay.Hub
	state      *overlay.StateManager
	feedClient *feed.Client
	store      *archive.Store
}

// NewServer builds a server from configuration. Nothing is started yet.
func NewServer(cfg *config.Config) (*Server, error) {
	s := &Server{
		config: cfg,
		logger: logger.ServerLogger,
	}

	if cfg.Database.Enabled {
		store, err := archive.Open(cfg.Database.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open archive: %w", err)
		}
		s.store = store
	}

	s.hub = overlay.NewHub(overlay.HubConfig{
		MaxConnections: cfg.WebSocket.MaxConnections,
		ReadTimeout:    cfg.WebSocket.ReadTimeout,
		WriteTimeout:   cfg.WebSocket.WriteTimeout,
		PingInterval:   cfg.WebSocket.PingInterval,
		MaxMessageSize: cfg.WebSocket.MaxMessageSize,
	})

	streakConfig := streak.Config{
		ProfileID:     cfg.Upstream.ProfileID,
		SessionGap:    cfg.Session.Gap,
		StrictLiveGap: cfg.Session.StrictLiveGap,
	}

	var recorder overlay.Recorder
	if s.store != nil {
		recorder = s.store
	}
	s.state = overlay.NewStateManager(streakConfig, s.hub, recorder)

	feedClient, err := feed.NewClient(feed.ClientConfig{
		URL:               cfg.Upstream.URL,
		ProfileID:         cfg.Upstream.ProfileID,
		ReconnectDelay:    cfg.Upstream.ReconnectDelay,
		MaxReconnectDelay: cfg.Upstream.MaxReconnectDelay,
		HandshakeTimeout:  cfg.Upstream.HandshakeTimeout,
	}, s.state)
	if err != nil {
		if s.store != nil {
			s.store.Close()
		}
		return nil, fmt.Errorf("failed to create feed client: %w", err)
	}
	s.feedClient = feedClient

	s.httpServer = &http.Server{
		Addr:         cfg.GetAddr(),
		Handler:      s.routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
		ErrorLog:     logger.NewStdLogger(s.logger, logger.ERROR),
	}

	return s, nil
}

// routes builds the HTTP mux
func (s *Server) routes() http.Handler {
	status := &handlers.StatusHandler{
		State:   s.state,
		Hub:     s.hub,
		Feed:    s.feedClient,
		Archive: s.store,
		Version: Version,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", status.HandleHome)
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		handlers.HandleOverlayWebSocket(w, r, s.hub, s.state)
	})
	mux.HandleFunc("/api/streak", status.HandleStreak)
	mux.HandleFunc("/api/matches", status.HandleMatches)
	mux.HandleFunc(s.config.Monitoring.HealthEndpoint, status.HandleHealth)

	if s.config.Monitoring.Enabled {
		mux.Handle(s.config.Monitoring.MetricsEndpoint, promhttp.Handler())
	}

	return mux
}

// Start launches the feed client and serves HTTP on the configured address.
// It blocks until the listener stops.
func (s *Server) Start() error {
	return s.StartOn(s.config.GetAddr())
}

// StartOn is Start with an explicit listen address
func (s *Server) StartOn(addr string) error {
	go s.feedClient.Run()

	s.httpServer.Addr = addr
	s.logger.Info("Listening on %s (profile %d, feed %s)",
		addr, s.config.Upstream.ProfileID, s.config.Upstream.URL)
	return s.httpServer.ListenAndServe()
}

// Stop shuts everything down in dependency order: stop accepting overlay
// clients, drop the feed, then the archive.
func (s *Server) Stop() error {
	s.logger.Info("Shutting down...")

	s.feedClient.Close()
	s.hub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := s.httpServer.Shutdown(ctx)

	if s.store != nil {
		if closeErr := s.store.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}
	return err
}
