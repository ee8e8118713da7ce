// internal/coordinator/errors.go
package coordinator

import (
	"errors"

	"github.com/jason-s-yu/pileup/internal/game"
	"github.com/jason-s-yu/pileup/internal/room"
)

// ErrNotInRoom is reported when a message needs a bound connection.
var ErrNotInRoom = errors.New("you are not in a room")

const (
	CodeRoomNotFound   = "ROOM_NOT_FOUND"
	CodeRoomFull       = "ROOM_FULL"
	CodeGameInProgress = "GAME_IN_PROGRESS"
	CodeNotInRoom      = "NOT_IN_ROOM"
	CodeInternal       = "INTERNAL_ERROR"
)

// ErrorCode maps err to the code sent in a game_error.
func ErrorCode(err error) string {
	if code := game.ErrorCode(err); code != "" {
		return code
	}
	switch {
	case errors.Is(err, room.ErrRoomNotFound):
		return CodeRoomNotFound
	case errors.Is(err, room.ErrRoomFull):
		return CodeRoomFull
	case errors.Is(err, room.ErrGameInProgress):
		return CodeGameInProgress
	case errors.Is(err, ErrNotInRoom):
		return CodeNotInRoom
	}
	return CodeInternal
}
