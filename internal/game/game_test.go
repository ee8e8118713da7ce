// internal/game/game_test.go
package game

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/jason-s-yu/pileup/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func roster(n int) []models.PlayerInfo {
	out := make([]models.PlayerInfo, n)
	for i := range out {
		out[i] = models.PlayerInfo{ID: fmt.Sprintf("p%d", i), Name: fmt.Sprintf("Player %d", i)}
	}
	return out
}

func cards(values ...int) []models.Card {
	out := make([]models.Card, len(values))
	for i, v := range values {
		out[i] = models.Card{ID: fmt.Sprintf("c%d", v), Value: v}
	}
	return out
}

// testState builds a playing game where p0 holds the turn and each entry of
// hands is one seat's hand. The deck is drawn from the end of deck.
func testState(hands [][]int, deck ...int) *models.GameState {
	players := make([]models.Player, len(hands))
	for i, h := range hands {
		players[i] = models.Player{
			ID:          fmt.Sprintf("p%d", i),
			Name:        fmt.Sprintf("Player %d", i),
			Hand:        cards(h...),
			IsConnected: true,
		}
	}
	players[0].IsCurrentTurn = true
	s := &models.GameState{
		ID:              "TEST01",
		Status:          models.StatusPlaying,
		Players:         players,
		CurrentPlayerID: "p0",
		Piles:           newPiles(),
		Deck:            cards(deck...),
		MinCardsToPlay:  2,
	}
	if len(deck) == 0 {
		s.DeckEmpty = true
		s.MinCardsToPlay = 1
	}
	return s
}

func setPile(s *models.GameState, pileID string, value int) {
	s.Piles[pileIndex(s, pileID)].CurrentValue = value
}

// deepCopy copies every slice of s so later comparisons catch in-place mutation.
func deepCopy(s *models.GameState) *models.GameState {
	c := *s
	c.Players = make([]models.Player, len(s.Players))
	for i, p := range s.Players {
		p.Hand = cloneCards(p.Hand)
		c.Players[i] = p
	}
	c.Piles = make([]models.Pile, len(s.Piles))
	for i, p := range s.Piles {
		p.Cards = cloneCards(p.Cards)
		c.Piles[i] = p
	}
	c.Deck = cloneCards(s.Deck)
	if s.History != nil {
		c.History = append([]models.GameState{}, s.History...)
	}
	return &c
}

func cloneCards(in []models.Card) []models.Card {
	if in == nil {
		return nil
	}
	out := make([]models.Card, len(in))
	copy(out, in)
	return out
}

func currentTurnCount(s *models.GameState) int {
	n := 0
	for _, p := range s.Players {
		if p.IsCurrentTurn {
			n++
		}
	}
	return n
}

// firstLegalPlay returns the first card in the current hand that fits a pile.
func firstLegalPlay(s *models.GameState) (cardID, pileID string, ok bool) {
	pi := playerIndex(s, s.CurrentPlayerID)
	for _, c := range s.Players[pi].Hand {
		for _, p := range s.Piles {
			if CanPlayCard(c, p) {
				return c.ID, p.ID, true
			}
		}
	}
	return "", "", false
}

func TestCreateDeckIsPermutation(t *testing.T) {
	for seed := int64(1); seed <= 20; seed++ {
		deck := CreateDeck(rand.New(rand.NewSource(seed)))
		require.Len(t, deck, models.DeckSize)

		seenValues := make(map[int]bool)
		seenIDs := make(map[string]bool)
		for _, c := range deck {
			assert.False(t, seenValues[c.Value], "duplicate value %d (seed %d)", c.Value, seed)
			assert.False(t, seenIDs[c.ID], "duplicate id %s (seed %d)", c.ID, seed)
			seenValues[c.Value] = true
			seenIDs[c.ID] = true
		}
		for v := models.MinCardValue; v <= models.MaxCardValue; v++ {
			assert.True(t, seenValues[v], "value %d missing (seed %d)", v, seed)
		}
	}
}

func TestCreateDeckShuffles(t *testing.T) {
	deck := CreateDeck(rand.New(rand.NewSource(7)))
	inOrder := true
	for i, c := range deck {
		if c.Value != models.MinCardValue+i {
			inOrder = false
			break
		}
	}
	assert.False(t, inOrder, "deck should not come out sorted")
}

func TestInitializeGameTwoPlayers(t *testing.T) {
	s, err := InitializeGame("ROOM01", roster(2), rand.New(rand.NewSource(1)))
	require.NoError(t, err)

	assert.Equal(t, models.StatusPlaying, s.Status)
	assert.Len(t, s.Players[0].Hand, 7)
	assert.Len(t, s.Players[1].Hand, 7)
	assert.Len(t, s.Deck, 84)
	assert.Equal(t, 1, currentTurnCount(s))
	assert.Equal(t, models.DeckSize, s.CardCount())
	assert.Len(t, s.Piles, 4)
	assert.Equal(t, 2, s.MinCardsToPlay)
	assert.False(t, s.DeckEmpty)
	assert.False(t, s.CanUndo)

	for _, p := range s.Players {
		for i := 1; i < len(p.Hand); i++ {
			assert.Less(t, p.Hand[i-1].Value, p.Hand[i].Value, "hand must be sorted")
		}
		if p.IsCurrentTurn {
			assert.Equal(t, p.ID, s.CurrentPlayerID)
		}
	}
}

func TestInitializeGameHandSizes(t *testing.T) {
	want := map[int]int{1: 8, 2: 7, 3: 6, 4: 6, 5: 6}
	for n, size := range want {
		s, err := InitializeGame("ROOM01", roster(n), rand.New(rand.NewSource(int64(n))))
		require.NoError(t, err)
		for _, p := range s.Players {
			assert.Len(t, p.Hand, size, "%d players", n)
		}
		assert.Len(t, s.Deck, models.DeckSize-n*size)
		assert.Equal(t, models.DeckSize, s.CardCount())
	}
}

func TestInitializeGameInvalidPlayerCount(t *testing.T) {
	_, err := InitializeGame("ROOM01", roster(0), nil)
	assert.ErrorIs(t, err, ErrInvalidPlayerCount)

	_, err = InitializeGame("ROOM01", roster(6), nil)
	assert.ErrorIs(t, err, ErrInvalidPlayerCount)
	assert.Equal(t, "INVALID_PLAYER_COUNT", ErrorCode(err))
}

func TestDealCardsThenSelectStartingPlayer(t *testing.T) {
	s, err := DealCards("ROOM01", roster(3), rand.New(rand.NewSource(3)))
	require.NoError(t, err)
	assert.Equal(t, models.StatusCardsDealt, s.Status)
	assert.Empty(t, s.CurrentPlayerID)
	assert.Equal(t, 0, currentTurnCount(s))

	_, err = PlayCard(s, "p0", s.Players[0].Hand[0].ID, "asc-1")
	assert.ErrorIs(t, err, ErrGameNotInProgress)

	_, err = SelectStartingPlayer(s, "nobody")
	assert.ErrorIs(t, err, ErrPlayerOrPileNotFound)

	started, err := SelectStartingPlayer(s, "p2")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPlaying, started.Status)
	assert.Equal(t, "p2", started.CurrentPlayerID)
	assert.True(t, started.Players[2].IsCurrentTurn)
	assert.Equal(t, 1, currentTurnCount(started))
	assert.Equal(t, models.StatusCardsDealt, s.Status, "input state must not change")

	_, err = SelectStartingPlayer(started, "p1")
	assert.ErrorIs(t, err, ErrNotAwaitingStart)
}

func TestSelectStartingPlayerAuto(t *testing.T) {
	s, err := DealCards("ROOM01", roster(4), rand.New(rand.NewSource(9)))
	require.NoError(t, err)

	started, err := SelectStartingPlayer(s, "")
	require.NoError(t, err)
	want := s.Players[StartingPlayerIndex(s.Players, s.Piles)].ID
	assert.Equal(t, want, started.CurrentPlayerID)
}

func TestPlayCard(t *testing.T) {
	s, err := InitializeGame("ROOM01", roster(2), rand.New(rand.NewSource(2)))
	require.NoError(t, err)
	before := deepCopy(s)

	pi := playerIndex(s, s.CurrentPlayerID)
	card := s.Players[pi].Hand[0]

	next, err := PlayCard(s, s.CurrentPlayerID, card.ID, "asc-1")
	require.NoError(t, err)

	assert.Equal(t, before, s, "input state must not be mutated")
	assert.Len(t, next.Players[pi].Hand, 6)
	assert.NotContains(t, next.Players[pi].Hand, card)
	assert.Equal(t, card.Value, next.Piles[0].CurrentValue)
	assert.Equal(t, []models.Card{card}, next.Piles[0].Cards)
	assert.Equal(t, 1, next.CardsPlayedThisTurn)
	assert.True(t, next.CanUndo)
	require.Len(t, next.History, 1)
	assert.Nil(t, next.History[0].History)
	assert.Equal(t, models.DeckSize, next.CardCount())
}

func TestPlayCardErrors(t *testing.T) {
	s := testState([][]int{{20, 30}, {40, 50}}, 60, 70)
	setPile(s, "asc-1", 45)

	tests := []struct {
		name     string
		playerID string
		cardID   string
		pileID   string
		want     error
	}{
		{"not your turn", "p1", "c40", "asc-2", ErrNotYourTurn},
		{"unknown player", "ghost", "c20", "asc-2", ErrNotYourTurn},
		{"card not in hand", "p0", "c40", "asc-2", ErrCardNotInHand},
		{"unknown pile", "p0", "c20", "sideways", ErrPlayerOrPileNotFound},
		{"illegal move", "p0", "c30", "asc-1", ErrInvalidMove},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := deepCopy(s)
			next, err := PlayCard(s, tt.playerID, tt.cardID, tt.pileID)
			assert.ErrorIs(t, err, tt.want)
			assert.Nil(t, next)
			assert.Equal(t, before, s)
		})
	}
}

func TestPlayCardReverseJump(t *testing.T) {
	s := testState([][]int{{35, 60}}, 70)
	setPile(s, "asc-1", 45)
	setPile(s, "desc-1", 50)

	next, err := PlayCard(s, "p0", "c35", "asc-1")
	require.NoError(t, err)
	assert.Equal(t, 35, next.Piles[0].CurrentValue)

	next, err = PlayCard(next, "p0", "c60", "desc-1")
	require.NoError(t, err)
	assert.Equal(t, 60, next.Piles[2].CurrentValue)
}

func TestPlayCardHistoryIsBounded(t *testing.T) {
	hand := make([]int, 0, 12)
	for v := 10; v < 22; v++ {
		hand = append(hand, v)
	}
	s := testState([][]int{hand})

	var err error
	for v := 10; v < 21; v++ {
		s, err = PlayCard(s, "p0", fmt.Sprintf("c%d", v), "asc-1")
		require.NoError(t, err)
	}
	require.Len(t, s.History, models.MaxHistory)
	for _, snap := range s.History {
		assert.Empty(t, snap.History, "snapshots must not nest history")
	}
	// Oldest snapshot is the state before the second play.
	assert.Equal(t, 10, s.History[0].Piles[0].CurrentValue)
}

func TestPlayCardFlipsDeckEmpty(t *testing.T) {
	s := testState([][]int{{20, 30}})
	s.DeckEmpty = false
	s.MinCardsToPlay = 2

	next, err := PlayCard(s, "p0", "c20", "asc-1")
	require.NoError(t, err)
	assert.True(t, next.DeckEmpty)
	assert.Equal(t, 1, next.MinCardsToPlay)
}

func TestEndTurnMinimumCardsNotMet(t *testing.T) {
	s, err := InitializeGame("ROOM01", roster(2), rand.New(rand.NewSource(4)))
	require.NoError(t, err)

	_, err = EndTurn(s)
	assert.ErrorIs(t, err, ErrMinimumCardsNotMet)

	id, pile, ok := firstLegalPlay(s)
	require.True(t, ok)
	s, err = PlayCard(s, s.CurrentPlayerID, id, pile)
	require.NoError(t, err)

	_, err = EndTurn(s)
	assert.ErrorIs(t, err, ErrMinimumCardsNotMet)
}

func TestEndTurnDrawsAndAdvances(t *testing.T) {
	s, err := InitializeGame("ROOM01", roster(2), rand.New(rand.NewSource(5)))
	require.NoError(t, err)
	first := s.CurrentPlayerID
	pi := playerIndex(s, first)

	for i := 0; i < 2; i++ {
		hand := s.Players[pi].Hand
		s, err = PlayCard(s, first, hand[0].ID, "asc-1")
		require.NoError(t, err)
	}

	next, err := EndTurn(s)
	require.NoError(t, err)
	assert.Len(t, next.Players[pi].Hand, 7)
	assert.Len(t, next.Deck, 82)
	assert.NotEqual(t, first, next.CurrentPlayerID)
	assert.False(t, next.Players[pi].IsCurrentTurn)
	assert.Equal(t, 1, currentTurnCount(next))
	assert.Equal(t, 0, next.CardsPlayedThisTurn)
	assert.False(t, next.CanUndo)
	assert.Empty(t, next.History)
	assert.Equal(t, models.StatusPlaying, next.Status)
	assert.Equal(t, models.DeckSize, next.CardCount())

	for i := 1; i < len(next.Players[pi].Hand); i++ {
		assert.Less(t, next.Players[pi].Hand[i-1].Value, next.Players[pi].Hand[i].Value)
	}
}

func TestEndTurnDrawingLastCardLowersMinimum(t *testing.T) {
	s := testState([][]int{{20, 30, 40}, {50}}, 90)
	var err error
	s, err = PlayCard(s, "p0", "c20", "asc-1")
	require.NoError(t, err)
	s, err = PlayCard(s, "p0", "c30", "asc-1")
	require.NoError(t, err)

	next, err := EndTurn(s)
	require.NoError(t, err)
	assert.Empty(t, next.Deck)
	assert.True(t, next.DeckEmpty)
	assert.Equal(t, 1, next.MinCardsToPlay)
	assert.Equal(t, cards(40, 90), next.Players[0].Hand)
}

func TestEndTurnSkipsEmptyHandsOnceDeckIsGone(t *testing.T) {
	s := testState([][]int{{20}, {}, {60}})
	s, err := PlayCard(s, "p0", "c20", "asc-1")
	require.NoError(t, err)

	next, err := EndTurn(s)
	require.NoError(t, err)
	assert.Equal(t, "p2", next.CurrentPlayerID)
	assert.Equal(t, models.StatusPlaying, next.Status)
}

func TestUndoLastMove(t *testing.T) {
	s, err := InitializeGame("ROOM01", roster(2), rand.New(rand.NewSource(6)))
	require.NoError(t, err)
	cur := s.CurrentPlayerID
	pi := playerIndex(s, cur)
	start := deepCopy(s)

	afterOne, err := PlayCard(s, cur, s.Players[pi].Hand[0].ID, "asc-1")
	require.NoError(t, err)
	afterOneCopy := deepCopy(afterOne)
	afterTwo, err := PlayCard(afterOne, cur, afterOne.Players[pi].Hand[0].ID, "asc-1")
	require.NoError(t, err)

	undone, err := UndoLastMove(afterTwo)
	require.NoError(t, err)
	assert.Equal(t, afterOneCopy.Players, undone.Players)
	assert.Equal(t, afterOneCopy.Piles, undone.Piles)
	assert.Equal(t, afterOneCopy.Deck, undone.Deck)
	assert.Equal(t, 1, undone.CardsPlayedThisTurn)
	assert.True(t, undone.CanUndo)
	assert.Len(t, undone.History, 1)

	undone, err = UndoLastMove(undone)
	require.NoError(t, err)
	assert.Equal(t, start.Players, undone.Players)
	assert.Equal(t, start.Piles, undone.Piles)
	assert.Equal(t, start.Deck, undone.Deck)
	assert.Equal(t, 0, undone.CardsPlayedThisTurn)
	assert.False(t, undone.CanUndo)

	_, err = UndoLastMove(undone)
	assert.ErrorIs(t, err, ErrNothingToUndo)
}

func TestUndoDoesNotCrossTurnBoundary(t *testing.T) {
	s := testState([][]int{{20, 30, 40}, {50, 60}}, 90, 91)
	var err error
	s, err = PlayCard(s, "p0", "c20", "asc-1")
	require.NoError(t, err)
	s, err = PlayCard(s, "p0", "c30", "asc-1")
	require.NoError(t, err)
	s, err = EndTurn(s)
	require.NoError(t, err)

	_, err = UndoLastMove(s)
	assert.ErrorIs(t, err, ErrNothingToUndo)

	s, err = PlayCard(s, "p1", "c50", "asc-1")
	require.NoError(t, err)
	s, err = UndoLastMove(s)
	require.NoError(t, err)
	assert.False(t, s.CanUndo)
	assert.Equal(t, "p1", s.CurrentPlayerID)
}

func TestGameWonWhenHandsAndDeckEmpty(t *testing.T) {
	s := testState([][]int{{50}})
	s, err := PlayCard(s, "p0", "c50", "asc-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPlaying, s.Status, "status only changes at end of turn")

	s, err = EndTurn(s)
	require.NoError(t, err)
	assert.Equal(t, models.StatusWon, s.Status)
}

func TestGameLostWhenNextPlayerIsStuck(t *testing.T) {
	s := testState([][]int{{89}, {50}})
	setPile(s, "asc-1", 99)
	setPile(s, "asc-2", 99)
	setPile(s, "desc-1", 2)
	setPile(s, "desc-2", 2)

	s, err := PlayCard(s, "p0", "c89", "asc-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPlaying, s.Status)

	s, err = EndTurn(s)
	require.NoError(t, err)
	assert.Equal(t, "p1", s.CurrentPlayerID)
	assert.Equal(t, models.StatusLost, s.Status)

	_, err = PlayCard(s, "p1", "c50", "asc-1")
	assert.ErrorIs(t, err, ErrGameNotInProgress)
}

func TestCheckGameStatus(t *testing.T) {
	s := testState([][]int{{50}, {60}})
	assert.Equal(t, models.StatusPlaying, CheckGameStatus(s))

	empty := testState([][]int{{}, {}})
	assert.Equal(t, models.StatusWon, CheckGameStatus(empty))

	withDeck := testState([][]int{{}, {}}, 40)
	assert.NotEqual(t, models.StatusWon, CheckGameStatus(withDeck))
}

func TestSetPlayerConnected(t *testing.T) {
	s := testState([][]int{{50}, {60}})
	next := SetPlayerConnected(s, "p1", false)
	assert.False(t, next.Players[1].IsConnected)
	assert.True(t, s.Players[1].IsConnected)

	assert.Same(t, s, SetPlayerConnected(s, "p1", true))
	assert.Same(t, s, SetPlayerConnected(s, "ghost", false))
}

// TestCardsAreConserved plays seeded games to the end, checking that no card is
// created or lost by any transition.
func TestCardsAreConserved(t *testing.T) {
	for seed := int64(1); seed <= 10; seed++ {
		r := rand.New(rand.NewSource(seed))
		s, err := InitializeGame("ROOM01", roster(int(seed%5)+1), r)
		require.NoError(t, err)

		for step := 0; step < 500 && s.Status == models.StatusPlaying; step++ {
			require.Equal(t, models.DeckSize, s.CardCount(), "seed %d step %d", seed, step)
			require.Equal(t, 1, currentTurnCount(s))

			id, pile, ok := firstLegalPlay(s)
			if ok && (s.CardsPlayedThisTurn < s.MinCardsToPlay || r.Intn(3) == 0) {
				s, err = PlayCard(s, s.CurrentPlayerID, id, pile)
				require.NoError(t, err)
				continue
			}
			if s.CardsPlayedThisTurn < s.MinCardsToPlay {
				break
			}
			s, err = EndTurn(s)
			require.NoError(t, err)
		}
		assert.Equal(t, models.DeckSize, s.CardCount(), "seed %d", seed)
	}
}
