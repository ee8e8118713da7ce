package models

import "time"

// MaxChatMessages is the number of chat messages a room keeps.
const MaxChatMessages = 100

// ChatMessage is a single room chat entry. ID, PlayerID and Timestamp are set by the server.
type ChatMessage struct {
	ID         string    `json:"id"`
	PlayerID   string    `json:"playerId"`
	PlayerName string    `json:"playerName,omitempty"`
	Message    string    `json:"message"`
	Timestamp  time.Time `json:"timestamp"`
	IsHint     bool      `json:"isHint"`
}
