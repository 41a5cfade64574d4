package server

import (
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"gambit-server/internal/engine"
)

// SubmitMove runs a move through the two validation phases and commits it.
//
// Phase one checks the move against the raw movement pattern of the piece,
// phase two asks the engine to commit it under the full rules. When the
// engine refuses a pattern-legal move and the legality policy is
// permissive, the move is forced through anyway; under the strict policy it
// is rejected.
func (r *RoomRegistry) SubmitMove(roomID, connectionID, from, to string) error {
	roomID = NormalizeRoomID(roomID)
	from = strings.ToLower(strings.TrimSpace(from))
	to = strings.ToLower(strings.TrimSpace(to))

	r.mu.Lock()
	room, ok := r.rooms[roomID]
	if !ok {
		r.mu.Unlock()
		return ErrRoomNotFound
	}
	side := room.sideOf(connectionID)
	if side == "" {
		r.mu.Unlock()
		return ErrRoomNotFound
	}
	if room.Status != StatusPlaying {
		r.mu.Unlock()
		return ErrMatchNotStarted
	}

	if _, err := engine.ParseSquare(from); err != nil {
		r.mu.Unlock()
		return ErrInvalidSquare
	}
	if _, err := engine.ParseSquare(to); err != nil {
		r.mu.Unlock()
		return ErrInvalidSquare
	}
	if _, occupied := room.Engine.PieceAt(from); !occupied {
		r.mu.Unlock()
		return ErrInvalidSquare
	}
	if !containsTarget(room.Engine.CandidateTargets(from), to) {
		r.mu.Unlock()
		return ErrInvalidPieceMovement
	}

	moverSide := room.Engine.SideToMove()
	targetPiece, _ := room.Engine.PieceAt(to)
	result, err := room.Engine.Apply(from, to)
	if err != nil {
		if r.strictLegality {
			r.mu.Unlock()
			return ErrInvalidMove
		}
		result, err = room.Engine.ForceApply(from, to)
		if err != nil {
			r.mu.Unlock()
			if errors.Is(err, engine.ErrIllegalMove) {
				return ErrInvalidMove
			}
			return ErrInternal
		}
	}

	captured := ""
	if result.Capture {
		captured = targetPiece
		if captured == "" {
			// En passant: the taken pawn is not on the destination square.
			captured = otherSide(moverSide) + " pawn"
		}
	}
	room.Moves = append(room.Moves, MoveRecord{
		From:     from,
		To:       to,
		Piece:    result.Piece,
		Captured: captured,
		San:      result.SAN,
		Side:     moverSide,
		Capture:  result.Capture,
		Forced:   result.Forced,
		At:       time.Now(),
	})
	room.UpdatedAt = time.Now()

	status := room.Engine.Status()
	queue := room.broadcast("move_applied", MoveAppliedNotification{
		From:        from,
		To:          to,
		San:         result.SAN,
		Capture:     result.Capture,
		Board:       room.Engine.FEN(),
		SideToMove:  room.Engine.SideToMove(),
		IsCheck:     result.Check,
		IsCheckmate: status.Checkmate,
		IsDraw:      status.Draw,
		Moves:       room.sanLog(),
		WhiteTime:   room.White.SecondsLeft,
		BlackTime:   room.Black.SecondsLeft,
	})
	if status.Over {
		outcome := Outcome{Status: OutcomeDraw, Reason: status.Reason}
		if status.Checkmate {
			outcome = Outcome{Status: OutcomeCheckmate, Winner: status.Winner}
		}
		queue = append(queue, r.terminateLocked(room, outcome)...)
	}
	r.mu.Unlock()

	r.logger.Info("move_applied",
		zap.String("room_id", roomID),
		zap.String("side", moverSide),
		zap.String("san", result.SAN),
		zap.Bool("forced", result.Forced),
	)
	r.dispatch(queue)
	return nil
}

func containsTarget(targets []string, to string) bool {
	for _, t := range targets {
		if t == to {
			return true
		}
	}
	return false
}
