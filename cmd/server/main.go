package main

import (
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"streakoverlay/internal/app"
	"streakoverlay/pkg/config"
	"streakoverlay/pkg/logger"
)

var (
	addr       = flag.String("addr", "", "http service address (overrides config)")
	configFile = flag.String("config", "config.yml", "path to config file")
	profileID  = flag.Int64("profile", 0, "aoe2recs profile id to track (overrides config)")
	feedURL    = flag.String("feed", "", "upstream dashboard feed URL (overrides config)")
	logLevel   = flag.String("log-level", "info", "log level: debug, info, warn, error")
	showCaller = flag.Bool("show-caller", false, "show caller information in logs")
	useDB      = flag.Bool("use-db", true, "archive finished matches to SQLite")
	dbPath     = flag.String("db-path", "", "archive database path (overrides config)")
)

func main() {
	flag.Parse()

	logger.InitLoggers(logger.ParseLevel(*logLevel), *showCaller)
	serverLogger := logger.ServerLogger

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		serverLogger.Warn("Could not load config file %s: %v", *configFile, err)
		serverLogger.Info("Using default configuration")
		cfg = config.DefaultConfig()
	} else {
		serverLogger.Info("Loaded configuration from %s", *configFile)
	}

	// Command line flags win over file and environment
	if *profileID != 0 {
		cfg.Upstream.ProfileID = *profileID
	}
	if *feedURL != "" {
		cfg.Upstream.URL = *feedURL
	}
	if !*useDB {
		cfg.Database.Enabled = false
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}

	if cfg.Upstream.ProfileID == 0 {
		serverLogger.Fatal("No profile id configured; set -profile, PROFILE_ID, or upstream.profile_id")
	}

	server, err := app.NewServer(cfg)
	if err != nil {
		serverLogger.Fatal("Failed to initialize server: %v", err)
	}

	serverLogger.Info("Starting streak overlay server")
	serverLogger.Info("Environment: %s", cfg.Server.Environment)
	serverLogger.Info("Tracking profile %d via %s", cfg.Upstream.ProfileID, cfg.Upstream.URL)

	go func() {
		var startErr error
		if *addr != "" {
			startErr = server.StartOn(*addr)
		} else {
			startErr = server.Start()
		}
		if startErr != nil && startErr != http.ErrServerClosed {
			serverLogger.Fatal("Server failed to start: %v", startErr)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	serverLogger.Info("Received shutdown signal: %v", sig)

	if err := server.Stop(); err != nil {
		serverLogger.Warn("Server forced to shutdown: %v", err)
	}
	serverLogger.Info("Server gracefully stopped")
}
