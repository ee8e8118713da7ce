// internal/game/rules.go
package game

import "github.com/jason-s-yu/pileup/internal/models"

// MaxPlayers is the largest table the engine will deal.
const MaxPlayers = 5

// reverseJump is the exact distance a card may move against a pile's direction.
const reverseJump = 10

// Minimum cards a player must play before ending a turn.
const (
	minCardsPerTurn          = 2
	minCardsPerTurnDeckEmpty = 1
)

// HandSize returns the target hand size for a table of n players.
func HandSize(n int) int {
	switch n {
	case 1:
		return 8
	case 2:
		return 7
	default:
		return 6
	}
}

// CanPlayCard reports whether card may be placed on pile.
//
// Ascending piles accept any higher value, or a value exactly 10 below the top.
// Descending piles accept any lower value, or a value exactly 10 above the top.
func CanPlayCard(card models.Card, pile models.Pile) bool {
	switch pile.Direction {
	case models.Ascending:
		return card.Value > pile.CurrentValue || card.Value == pile.CurrentValue-reverseJump
	case models.Descending:
		return card.Value < pile.CurrentValue || card.Value == pile.CurrentValue+reverseJump
	}
	return false
}

// hasLegalMove reports whether any card in hand can go on any pile.
func hasLegalMove(hand []models.Card, piles []models.Pile) bool {
	for _, c := range hand {
		if playableAnywhere(c, piles) {
			return true
		}
	}
	return false
}

func playableAnywhere(c models.Card, piles []models.Pile) bool {
	for _, p := range piles {
		if CanPlayCard(c, p) {
			return true
		}
	}
	return false
}

// OpeningHandScore rates how good a hand is to open with. It is a heuristic, not
// a search: one point per card playable somewhere right now, two more for each
// extreme card (<=3 or >=98) and one more for each near-extreme card (<=10 or >=90).
func OpeningHandScore(hand []models.Card, piles []models.Pile) int {
	score := 0
	for _, c := range hand {
		if playableAnywhere(c, piles) {
			score++
		}
		if c.Value <= 3 || c.Value >= 98 {
			score += 2
		}
		if c.Value <= 10 || c.Value >= 90 {
			score++
		}
	}
	return score
}

// StartingPlayerIndex picks the seat with the highest OpeningHandScore.
// Ties go to the earliest seat.
func StartingPlayerIndex(players []models.Player, piles []models.Pile) int {
	best, bestScore := 0, -1
	for i, p := range players {
		if s := OpeningHandScore(p.Hand, piles); s > bestScore {
			best, bestScore = i, s
		}
	}
	return best
}
