package models

import "time"

// GameStatus is the lifecycle phase of a game.
type GameStatus string

const (
	StatusWaiting    GameStatus = "waiting"
	StatusCardsDealt GameStatus = "cards_dealt"
	StatusPlaying    GameStatus = "playing"
	StatusWon        GameStatus = "won"
	StatusLost       GameStatus = "lost"
)

// MaxHistory bounds the number of undo snapshots kept on a GameState.
const MaxHistory = 10

// GameState is the authoritative state of one game. The rules engine treats it as
// immutable: every operation returns a new value and shares unchanged slices with
// its input, so callers must never mutate a state in place.
//
// Snapshots stored in History never carry a History of their own.
type GameState struct {
	ID                  string      `json:"id"`
	Status              GameStatus  `json:"status"`
	Players             []Player    `json:"players"`
	CurrentPlayerID     string      `json:"currentPlayerId"`
	Piles               []Pile      `json:"piles"`
	Deck                []Card      `json:"deck"`
	CardsPlayedThisTurn int         `json:"cardsPlayedThisTurn"`
	MinCardsToPlay      int         `json:"minCardsToPlay"`
	DeckEmpty           bool        `json:"deckEmpty"`
	History             []GameState `json:"history,omitempty"`
	CanUndo             bool        `json:"canUndo"`
	LastActivity        time.Time   `json:"lastActivity"`
}

// CardCount returns the number of cards across hands, deck and piles.
func (s *GameState) CardCount() int {
	n := len(s.Deck)
	for _, p := range s.Players {
		n += len(p.Hand)
	}
	for _, p := range s.Piles {
		n += len(p.Cards)
	}
	return n
}

// ClientGameState is the per-recipient projection of a GameState.
type ClientGameState struct {
	ID                  string         `json:"id"`
	Status              GameStatus     `json:"status"`
	Players             []ClientPlayer `json:"players"`
	CurrentPlayerID     string         `json:"currentPlayerId"`
	Piles               []Pile         `json:"piles"`
	DeckCount           int            `json:"deckCount"`
	CardsPlayedThisTurn int            `json:"cardsPlayedThisTurn"`
	MinCardsToPlay      int            `json:"minCardsToPlay"`
	DeckEmpty           bool           `json:"deckEmpty"`
	CanUndo             bool           `json:"canUndo"`
	YourHand            []Card         `json:"yourHand"`
}
