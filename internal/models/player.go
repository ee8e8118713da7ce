package models

// PlayerInfo is the roster identity of a player. It survives disconnects.
type PlayerInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Player is the server-side view of a seated player, including the full hand.
// The hand is kept sorted ascending by value and must never be sent to other players.
type Player struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Hand          []Card `json:"hand"`
	IsCurrentTurn bool   `json:"isCurrentTurn"`
	IsConnected   bool   `json:"isConnected"`
}

// ClientPlayer is the public view of a player: the hand is reduced to a count.
type ClientPlayer struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	HandCount     int    `json:"handCount"`
	IsCurrentTurn bool   `json:"isCurrentTurn"`
	IsConnected   bool   `json:"isConnected"`
}
