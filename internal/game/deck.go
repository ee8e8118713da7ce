package game

import (
	"math/rand"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/pileup/internal/models"
)

// NewRand returns a time-seeded random source for shuffling.
func NewRand() *rand.Rand {
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}

// CreateDeck builds one card for every value from 2 to 99 and shuffles it with
// Fisher-Yates using r. A nil r gets a time-seeded source.
func CreateDeck(r *rand.Rand) []models.Card {
	if r == nil {
		r = NewRand()
	}
	deck := make([]models.Card, 0, models.DeckSize)
	for v := models.MinCardValue; v <= models.MaxCardValue; v++ {
		deck = append(deck, models.Card{ID: uuid.NewString(), Value: v})
	}
	for i := len(deck) - 1; i > 0; i-- {
		j := r.Intn(i + 1)
		deck[i], deck[j] = deck[j], deck[i]
	}
	return deck
}

// newPiles returns the four piles at their boundary values.
func newPiles() []models.Pile {
	return []models.Pile{
		{ID: "asc-1", Direction: models.Ascending, StartValue: models.AscendingStart, CurrentValue: models.AscendingStart, Cards: []models.Card{}},
		{ID: "asc-2", Direction: models.Ascending, StartValue: models.AscendingStart, CurrentValue: models.AscendingStart, Cards: []models.Card{}},
		{ID: "desc-1", Direction: models.Descending, StartValue: models.DescendingStart, CurrentValue: models.DescendingStart, Cards: []models.Card{}},
		{ID: "desc-2", Direction: models.Descending, StartValue: models.DescendingStart, CurrentValue: models.DescendingStart, Cards: []models.Card{}},
	}
}

func sortHand(hand []models.Card) {
	sort.Slice(hand, func(i, j int) bool { return hand[i].Value < hand[j].Value })
}

// draw pops up to n cards off the end of deck. The returned deck shares the
// backing array with the input, which is safe because decks are never written.
func draw(deck []models.Card, n int) (drawn, rest []models.Card) {
	if n > len(deck) {
		n = len(deck)
	}
	if n <= 0 {
		return nil, deck
	}
	drawn = make([]models.Card, n)
	for i := 0; i < n; i++ {
		drawn[i] = deck[len(deck)-1-i]
	}
	return drawn, deck[:len(deck)-n]
}
