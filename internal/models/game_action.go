package models

// GameActionType names a move a player can make during play.
type GameActionType string

const (
	ActionPlayCard GameActionType = "play_card"
	ActionEndTurn  GameActionType = "end_turn"
	ActionUndoMove GameActionType = "undo_move"
)

// GameAction captures a player's in-game move
type GameAction struct {
	Type   GameActionType `json:"type"`
	CardID string         `json:"cardId,omitempty"`
	PileID string         `json:"pileId,omitempty"`
}
