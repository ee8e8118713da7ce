package game

import "errors"

// RuleError is a typed rules violation. The engine returns one of the sentinel
// values below so callers can match with errors.Is and report Code to clients.
type RuleError struct {
	Code    string
	Message string
}

func (e *RuleError) Error() string { return e.Message }

var (
	ErrInvalidPlayerCount   = &RuleError{"INVALID_PLAYER_COUNT", "a game needs between 1 and 5 players"}
	ErrNotYourTurn          = &RuleError{"NOT_YOUR_TURN", "it is not your turn"}
	ErrCardNotInHand        = &RuleError{"CARD_NOT_IN_HAND", "card is not in your hand"}
	ErrInvalidMove          = &RuleError{"INVALID_MOVE", "card cannot be played on that pile"}
	ErrPlayerOrPileNotFound = &RuleError{"PLAYER_OR_PILE_NOT_FOUND", "player or pile not found"}
	ErrMinimumCardsNotMet   = &RuleError{"MINIMUM_CARDS_NOT_MET", "you must play more cards before ending your turn"}
	ErrNothingToUndo        = &RuleError{"NOTHING_TO_UNDO", "there is nothing to undo"}
	ErrGameNotInProgress    = &RuleError{"GAME_NOT_IN_PROGRESS", "the game is not in progress"}
	ErrNotAwaitingStart     = &RuleError{"NOT_AWAITING_START", "the game is not waiting for a starting player"}
)

// ErrorCode returns the client-facing code for err, or "" if err is not a RuleError.
func ErrorCode(err error) string {
	var re *RuleError
	if errors.As(err, &re) {
		return re.Code
	}
	return ""
}
