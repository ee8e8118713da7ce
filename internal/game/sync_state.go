// internal/game/sync_state.go
package game

import (
	"github.com/jason-s-yu/pileup/internal/models"
)

// CreateClientGameState projects s for one recipient. Every hand is reduced to
// a count and the deck to its size; only forPlayerID's own hand is included, in
// YourHand. This is the only place hand contents leave the server, so it must be
// called once per recipient and the result never shared between players.
func CreateClientGameState(s *models.GameState, forPlayerID string) *models.ClientGameState {
	cs := &models.ClientGameState{
		ID:                  s.ID,
		Status:              s.Status,
		CurrentPlayerID:     s.CurrentPlayerID,
		Piles:               s.Piles,
		DeckCount:           len(s.Deck),
		CardsPlayedThisTurn: s.CardsPlayedThisTurn,
		MinCardsToPlay:      s.MinCardsToPlay,
		DeckEmpty:           s.DeckEmpty,
		CanUndo:             s.CanUndo,
		Players:             make([]models.ClientPlayer, 0, len(s.Players)),
		YourHand:            []models.Card{},
	}

	for _, pl := range s.Players {
		cs.Players = append(cs.Players, models.ClientPlayer{
			ID:            pl.ID,
			Name:          pl.Name,
			HandCount:     len(pl.Hand),
			IsCurrentTurn: pl.IsCurrentTurn,
			IsConnected:   pl.IsConnected,
		})
		if pl.ID == forPlayerID {
			cs.YourHand = append(cs.YourHand, pl.Hand...)
		}
	}

	return cs
}
