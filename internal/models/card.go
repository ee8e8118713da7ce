package models

// Card values run from MinCardValue to MaxCardValue inclusive, one card per value.
const (
	MinCardValue = 2
	MaxCardValue = 99
	DeckSize     = MaxCardValue - MinCardValue + 1
)

// Card is a single numbered card. Cards are never mutated once dealt.
type Card struct {
	ID    string `json:"id"`
	Value int    `json:"value"`
}

// PileDirection is the direction a pile must be built in.
type PileDirection string

const (
	Ascending  PileDirection = "ascending"
	Descending PileDirection = "descending"
)

// Pile boundaries. These are markers, not playable values.
const (
	AscendingStart  = 1
	DescendingStart = 100
)

// Pile is one of the four shared stacks cards are played onto.
type Pile struct {
	ID           string        `json:"id"`
	Direction    PileDirection `json:"direction"`
	StartValue   int           `json:"startValue"`
	CurrentValue int           `json:"currentValue"`
	Cards        []Card        `json:"cards"`
}
