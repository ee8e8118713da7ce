// internal/game/game.go
package game

import (
	"math/rand"
	"time"

	"github.com/jason-s-yu/pileup/internal/models"
)

// DealCards shuffles a fresh deck and deals every player up to their hand size.
// The result is in StatusCardsDealt with no current player; call
// SelectStartingPlayer to begin play.
func DealCards(id string, roster []models.PlayerInfo, r *rand.Rand) (*models.GameState, error) {
	if len(roster) < 1 || len(roster) > MaxPlayers {
		return nil, ErrInvalidPlayerCount
	}

	deck := CreateDeck(r)
	size := HandSize(len(roster))
	players := make([]models.Player, len(roster))
	for i, info := range roster {
		var hand []models.Card
		hand, deck = draw(deck, size)
		sortHand(hand)
		players[i] = models.Player{
			ID:          info.ID,
			Name:        info.Name,
			Hand:        hand,
			IsConnected: true,
		}
	}

	s := &models.GameState{
		ID:             id,
		Status:         models.StatusCardsDealt,
		Players:        players,
		Piles:          newPiles(),
		Deck:           deck,
		MinCardsToPlay: minCardsPerTurn,
		LastActivity:   time.Now(),
	}
	markDeckEmpty(s)
	return s, nil
}

// InitializeGame deals and immediately hands the first turn to the player chosen
// by StartingPlayerIndex.
func InitializeGame(id string, roster []models.PlayerInfo, r *rand.Rand) (*models.GameState, error) {
	s, err := DealCards(id, roster, r)
	if err != nil {
		return nil, err
	}
	return SelectStartingPlayer(s, "")
}

// SelectStartingPlayer moves a dealt game into play with playerID holding the
// first turn. An empty playerID picks the seat via StartingPlayerIndex.
func SelectStartingPlayer(s *models.GameState, playerID string) (*models.GameState, error) {
	if s.Status != models.StatusCardsDealt {
		return nil, ErrNotAwaitingStart
	}

	idx := StartingPlayerIndex(s.Players, s.Piles)
	if playerID != "" {
		if idx = playerIndex(s, playerID); idx < 0 {
			return nil, ErrPlayerOrPileNotFound
		}
	}

	next := clone(s)
	next.Players = copyPlayers(s.Players)
	for i := range next.Players {
		next.Players[i].IsCurrentTurn = i == idx
	}
	next.CurrentPlayerID = next.Players[idx].ID
	next.Status = models.StatusPlaying
	next.LastActivity = time.Now()
	return next, nil
}

// PlayCard places one card from the current player's hand onto a pile.
// The input state is left untouched; a snapshot of it is pushed onto the
// returned state's history for undo.
func PlayCard(s *models.GameState, playerID, cardID, pileID string) (*models.GameState, error) {
	if s.Status != models.StatusPlaying {
		return nil, ErrGameNotInProgress
	}
	if playerID != s.CurrentPlayerID {
		return nil, ErrNotYourTurn
	}
	pi := playerIndex(s, playerID)
	if pi < 0 {
		return nil, ErrPlayerOrPileNotFound
	}
	pli := pileIndex(s, pileID)
	if pli < 0 {
		return nil, ErrPlayerOrPileNotFound
	}
	hand := s.Players[pi].Hand
	ci := cardIndex(hand, cardID)
	if ci < 0 {
		return nil, ErrCardNotInHand
	}
	card := hand[ci]
	if !CanPlayCard(card, s.Piles[pli]) {
		return nil, ErrInvalidMove
	}

	next := clone(s)
	next.History = pushHistory(s)

	newHand := make([]models.Card, 0, len(hand)-1)
	newHand = append(newHand, hand[:ci]...)
	newHand = append(newHand, hand[ci+1:]...)
	next.Players = copyPlayers(s.Players)
	next.Players[pi].Hand = newHand

	pile := s.Piles[pli]
	cards := make([]models.Card, 0, len(pile.Cards)+1)
	cards = append(cards, pile.Cards...)
	pile.Cards = append(cards, card)
	pile.CurrentValue = card.Value
	next.Piles = copyPiles(s.Piles)
	next.Piles[pli] = pile

	next.CardsPlayedThisTurn++
	next.CanUndo = true
	next.LastActivity = time.Now()
	markDeckEmpty(next)
	return next, nil
}

// EndTurn refills the current player's hand from the deck, passes the turn to
// the next seat and recomputes the game status. Loss is only ever detected here,
// never after an individual play.
func EndTurn(s *models.GameState) (*models.GameState, error) {
	if s.Status != models.StatusPlaying {
		return nil, ErrGameNotInProgress
	}
	if s.CardsPlayedThisTurn < s.MinCardsToPlay {
		return nil, ErrMinimumCardsNotMet
	}
	pi := playerIndex(s, s.CurrentPlayerID)
	if pi < 0 {
		return nil, ErrPlayerOrPileNotFound
	}

	next := clone(s)
	next.Players = copyPlayers(s.Players)

	if len(s.Deck) > 0 {
		hand := s.Players[pi].Hand
		drawn, rest := draw(s.Deck, HandSize(len(s.Players))-len(hand))
		if len(drawn) > 0 {
			newHand := make([]models.Card, 0, len(hand)+len(drawn))
			newHand = append(newHand, hand...)
			newHand = append(newHand, drawn...)
			sortHand(newHand)
			next.Players[pi].Hand = newHand
		}
		next.Deck = rest
	}
	markDeckEmpty(next)

	ni := nextSeat(next, pi)
	next.Players[pi].IsCurrentTurn = false
	next.Players[ni].IsCurrentTurn = true
	next.CurrentPlayerID = next.Players[ni].ID
	next.CardsPlayedThisTurn = 0
	next.CanUndo = false
	next.History = nil
	next.LastActivity = time.Now()
	next.Status = CheckGameStatus(next)
	return next, nil
}

// UndoLastMove restores the most recent snapshot taken in this turn.
func UndoLastMove(s *models.GameState) (*models.GameState, error) {
	if !s.CanUndo || len(s.History) == 0 {
		return nil, ErrNothingToUndo
	}
	restored := s.History[len(s.History)-1]
	restored.History = s.History[:len(s.History)-1]
	restored.CanUndo = len(restored.History) > 0
	restored.LastActivity = time.Now()
	return &restored, nil
}

// CheckGameStatus reports won once every hand and the deck are empty, lost when
// the current player cannot place any card, and playing otherwise.
func CheckGameStatus(s *models.GameState) models.GameStatus {
	allEmpty := len(s.Deck) == 0
	for _, p := range s.Players {
		if len(p.Hand) > 0 {
			allEmpty = false
			break
		}
	}
	if allEmpty {
		return models.StatusWon
	}
	if pi := playerIndex(s, s.CurrentPlayerID); pi >= 0 && !hasLegalMove(s.Players[pi].Hand, s.Piles) {
		return models.StatusLost
	}
	return models.StatusPlaying
}

// SetPlayerConnected returns s with playerID's connectivity flag set. If the
// player is unknown or already in that state, s itself is returned.
func SetPlayerConnected(s *models.GameState, playerID string, connected bool) *models.GameState {
	pi := playerIndex(s, playerID)
	if pi < 0 || s.Players[pi].IsConnected == connected {
		return s
	}
	next := clone(s)
	next.Players = copyPlayers(s.Players)
	next.Players[pi].IsConnected = connected
	return next
}

// HasPlayer reports whether playerID is seated in the game.
func HasPlayer(s *models.GameState, playerID string) bool {
	return playerIndex(s, playerID) >= 0
}

// nextSeat finds the seat after from in circular order. Once the deck is gone,
// seats that have emptied their hand are skipped.
func nextSeat(s *models.GameState, from int) int {
	n := len(s.Players)
	for step := 1; step <= n; step++ {
		i := (from + step) % n
		if len(s.Deck) > 0 || len(s.Players[i].Hand) > 0 {
			return i
		}
	}
	return (from + 1) % n
}

func markDeckEmpty(s *models.GameState) {
	if len(s.Deck) == 0 && !s.DeckEmpty {
		s.DeckEmpty = true
		s.MinCardsToPlay = minCardsPerTurnDeckEmpty
	}
}

// pushHistory returns s's history plus a snapshot of s, keeping the newest MaxHistory.
func pushHistory(s *models.GameState) []models.GameState {
	snap := *s
	snap.History = nil
	prev := s.History
	if len(prev) >= models.MaxHistory {
		prev = prev[len(prev)-models.MaxHistory+1:]
	}
	hist := make([]models.GameState, 0, len(prev)+1)
	hist = append(hist, prev...)
	return append(hist, snap)
}

func clone(s *models.GameState) *models.GameState {
	c := *s
	return &c
}

func copyPlayers(p []models.Player) []models.Player {
	return append([]models.Player(nil), p...)
}

func copyPiles(p []models.Pile) []models.Pile {
	return append([]models.Pile(nil), p...)
}

func playerIndex(s *models.GameState, id string) int {
	for i, p := range s.Players {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func pileIndex(s *models.GameState, id string) int {
	for i, p := range s.Piles {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func cardIndex(hand []models.Card, id string) int {
	for i, c := range hand {
		if c.ID == id {
			return i
		}
	}
	return -1
}
