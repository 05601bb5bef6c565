package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"streakoverlay/internal/archive"
	"streakoverlay/internal/feed"
	"streakoverlay/internal/overlay"
)

// StatusHandler serves the JSON API around the overlay state
type StatusHandler struct {
	State   *overlay.StateManager
	Hub     *overlay.Hub
	Feed    *feed.Client
	Archive *archive.Store
	Version string
}

// HandleHome handles the home page
func (h *StatusHandler) HandleHome(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"name":    "AoE2 Streak Overlay Server",
		"version": h.Version,
		"status":  "running",
	})
}

// HandleHealth handles health check requests. The response degrades rather
// than fails: an upstream outage is reported, not a 500.
func (h *StatusHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	health := map[string]interface{}{
		"status":          "healthy",
		"feed_connected":  h.Feed != nil && h.Feed.Connected(),
		"overlay_clients": h.Hub.Count(),
	}

	if h.Archive != nil {
		if err := h.Archive.Health(); err != nil {
			health["archive"] = "unavailable"
		} else {
			health["archive"] = "ok"
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(health)
}

// HandleStreak returns the current streak and match state as JSON
func (h *StatusHandler) HandleStreak(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := json.NewEncoder(w).Encode(h.State.Snapshot()); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// HandleMatches returns recently archived match results
func (h *StatusHandler) HandleMatches(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if h.Archive == nil {
		http.Error(w, "Archive disabled", http.StatusNotFound)
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 200 {
			limit = parsed
		}
	}

	results, err := h.Archive.RecentResults(limit)
	if err != nil {
		http.Error(w, "Failed to read archive", http.StatusInternalServerError)
		return
	}

	response := struct {
		Matches []archive.ResultRow `json:"matches"`
	}{Matches: results}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}
