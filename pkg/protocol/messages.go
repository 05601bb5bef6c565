package protocol

import (
	"encoding/json"
	"time"
)

// MessageType defines the type of message pushed to overlay clients
type MessageType string

// Message types
const (
	// State messages
	MsgStreakUpdate  MessageType = "STREAK_UPDATE"
	MsgMatchStarted  MessageType = "MATCH_STARTED"
	MsgMatchFinished MessageType = "MATCH_FINISHED"
	MsgWaiting       MessageType = "WAITING"

	// Notification messages
	MsgError MessageType = "ERROR"
)

// Result labels used on the wire
const (
	ResultLabelWin     = "win"
	ResultLabelLoss    = "loss"
	ResultLabelUnknown = "unknown"
)

// Message represents a communication from the service to an overlay client
type Message struct {
	Type      MessageType `json:"type"`
	Timestamp int64       `json:"timestamp"`
	SessionID string      `json:"session_id,omitempty"`
	Payload   interface{} `json:"payload,omitempty"`
}

// NewMessage creates a new message
func NewMessage(msgType MessageType, payload interface{}) *Message {
	return &Message{
		Type:      msgType,
		Timestamp: time.Now().Unix(),
		Payload:   payload,
	}
}

// ErrorPayload contains information about an error
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// StreakPayload carries the current score for the scoreboard
type StreakPayload struct {
	Wins          int   `json:"wins"`
	Losses        int   `json:"losses"`
	SessionActive bool  `json:"session_active"`
	LiveGapMs     int64 `json:"live_gap_ms,omitempty"`
}

// PlayerCard contains the fields the overlay renders for one participant
type PlayerCard struct {
	Name         string `json:"name"`
	Country      string `json:"country,omitempty"`
	Civilization string `json:"civilization,omitempty"`
	CivIconURL   string `json:"civ_icon_url,omitempty"`
	Rating       int    `json:"rating,omitempty"`
}

// MatchStartedPayload describes a live match that just began
type MatchStartedPayload struct {
	MatchID    int64       `json:"match_id"`
	Title      string      `json:"title"`
	GameNumber int         `json:"game_number"`
	Player     PlayerCard  `json:"player"`
	Opponent   *PlayerCard `json:"opponent,omitempty"`
}

// MatchFinishedPayload describes the outcome of the tracked live match
type MatchFinishedPayload struct {
	MatchID int64  `json:"match_id"`
	Result  string `json:"result"`
	Wins    int    `json:"wins"`
	Losses  int    `json:"losses"`
}

// WaitingPayload carries the idle status between matches
type WaitingPayload struct {
	PlayerName string `json:"player_name,omitempty"`
	CurrentElo int    `json:"current_elo,omitempty"`
}

// SerializeMessage converts a message to JSON bytes
func SerializeMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

// DeserializeMessage converts JSON bytes to a message
func DeserializeMessage(data []byte) (Message, error) {
	var msg Message
	err := json.Unmarshal(data, &msg)
	return msg, err
}
