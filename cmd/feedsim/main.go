package main

import (
	"encoding/json"
	"flag"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"streakoverlay/pkg/logger"
	"streakoverlay/pkg/protocol"
)

// feedsim serves a synthetic dashboard feed for local overlay development:
// connect the server to ws://localhost:5091/dashboard/api/ and it plays a
// scripted session of wins, losses, and a live match.

var (
	addr     = flag.String("addr", "localhost:5091", "listen address")
	interval = flag.Duration("interval", 3*time.Second, "delay between scripted snapshots")
	logLevel = flag.String("log-level", "info", "log level: debug, info, warn, error")
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func boolPtr(b bool) *bool { return &b }

// script builds the snapshot sequence for one subscriber. Timestamps are
// anchored to now so the session never looks stale.
func script(profileID int64) []protocol.Snapshot {
	now := float64(time.Now().Unix())

	me := func(civ string, winner *bool) protocol.Player {
		return protocol.Player{
			ID: profileID, Number: 1, Name: "LocalHero", Country: "de",
			Civilization: civ, Rating: 1423, Winner: winner,
		}
	}
	opp := func(name, civ string, winner *bool) protocol.Player {
		return protocol.Player{
			ID: profileID + 1, Number: 2, Name: name, Country: "fr",
			Civilization: civ, Rating: 1410, Winner: winner,
		}
	}

	history := []protocol.Match{
		{
			ID: 9002, Status: protocol.MatchComplete, Started: now - 1800, Duration: 1100,
			Diplomacy: "1v1", Type: "RM", RMS: "Arena",
			Players: []protocol.Player{me("Franks", boolPtr(true)), opp("Rival", "Britons", boolPtr(false))},
		},
		{
			ID: 9001, Status: protocol.MatchComplete, Started: now - 4000, Duration: 1500,
			Diplomacy: "1v1", Type: "RM", RMS: "Arabia",
			Players: []protocol.Player{me("Mayans", boolPtr(false)), opp("Rival", "Huns", boolPtr(true))},
		},
	}

	live := protocol.Match{
		ID: 9003, Status: protocol.MatchOngoing, Started: now - 120,
		Diplomacy: "1v1", Type: "RM", RMS: "Arabia",
		Players: []protocol.Player{me("Mongols", nil), opp("Rival", "Aztecs", nil)},
	}

	finished := live
	finished.Status = protocol.MatchComplete
	finished.Duration = 1300
	finished.Players = []protocol.Player{me("Mongols", boolPtr(true)), opp("Rival", "Aztecs", boolPtr(false))}

	idle := protocol.Snapshot{
		Matches: history,
		Players: []protocol.Player{me("", nil)},
		Ladders: []protocol.Ladder{{Name: protocol.Ladder1v1RandomMap, Current: 1423}},
	}

	inMatch := idle
	inMatch.Live = &live

	justFinished := idle
	justFinished.Live = &finished
	justFinished.Matches = append([]protocol.Match{finished}, history...)

	return []protocol.Snapshot{idle, inMatch, inMatch, justFinished, justFinished, idle}
}

func envelope(snap protocol.Snapshot) ([]byte, error) {
	data, err := json.Marshal(snap)
	if err != nil {
		return nil, err
	}
	return json.Marshal(struct {
		Cls  int             `json:"cls"`
		Data json.RawMessage `json:"data"`
	}{Cls: protocol.ClsSnapshot, Data: data})
}

func handleDashboard(w http.ResponseWriter, r *http.Request) {
	log := logger.FeedLogger

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error("Failed to upgrade: %v", err)
		return
	}
	defer conn.Close()

	var sub protocol.Subscription
	if err := conn.ReadJSON(&sub); err != nil {
		log.Warn("No subscription received: %v", err)
		return
	}
	log.Info("Subscriber for profile %d connected", sub.ProfileID)

	for i, snap := range script(sub.ProfileID) {
		frame, err := envelope(snap)
		if err != nil {
			log.Error("Failed to encode snapshot %d: %v", i, err)
			return
		}
		if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			log.Info("Subscriber gone: %v", err)
			return
		}
		log.Info("Sent snapshot %d (live=%v)", i, snap.Live != nil)
		time.Sleep(*interval)
	}

	// Keep the connection open so the server does not reconnect-loop
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func main() {
	flag.Parse()
	logger.InitLoggers(logger.ParseLevel(*logLevel), false)

	http.HandleFunc("/dashboard/api/", handleDashboard)

	logger.FeedLogger.Info("Feed simulator listening on ws://%s/dashboard/api/", *addr)
	if err := http.ListenAndServe(*addr, nil); err != nil {
		logger.FeedLogger.Fatal("Simulator failed: %v", err)
	}
}
