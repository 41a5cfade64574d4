package server

import (
	"errors"
	"strings"
)

// Protocol errors follow the "CODE: human message" convention so the code
// can be peeled off for the wire payload.
var (
	ErrRoomNotFound         = errors.New("ROOM_NOT_FOUND: Match not found")
	ErrRoomFull             = errors.New("ROOM_FULL: Match already has two players")
	ErrMatchNotStarted      = errors.New("INVALID_MOVE: Match has not started yet")
	ErrInvalidSquare        = errors.New("INVALID_SQUARE: No piece on the selected square")
	ErrInvalidPieceMovement = errors.New("INVALID_PIECE_MOVEMENT: That piece cannot move there")
	ErrInvalidMove          = errors.New("INVALID_MOVE: Move is not allowed in this position")
	ErrInternal             = errors.New("INTERNAL: Unexpected server error")
)

func errorCode(err error) string {
	msg := err.Error()
	if idx := strings.Index(msg, ":"); idx > 0 {
		return msg[:idx]
	}
	return "INTERNAL"
}
