package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gambit-server/internal/config"
	"gambit-server/internal/engine"
)

func TestSubmitMoveUnknownRoom(t *testing.T) {
	r, _ := newTestRegistry()

	err := r.SubmitMove("zzzzzz", "conn-white", "e2", "e4")
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestSubmitMoveBeforeStart(t *testing.T) {
	r, _ := newTestRegistry()

	roomID, _, err := r.CreateMatch("conn-white", "Alice")
	require.NoError(t, err)

	err = r.SubmitMove(roomID, "conn-white", "e2", "e4")
	assert.ErrorIs(t, err, ErrMatchNotStarted)
}

func TestSubmitMoveInvalidSquare(t *testing.T) {
	r, _ := newTestRegistry()
	roomID := startedMatch(t, r)

	// Malformed coordinate.
	err := r.SubmitMove(roomID, "conn-white", "e9", "e4")
	assert.ErrorIs(t, err, ErrInvalidSquare)

	// Empty source square.
	err = r.SubmitMove(roomID, "conn-white", "e4", "e5")
	assert.ErrorIs(t, err, ErrInvalidSquare)
}

func TestSubmitMoveInvalidPieceMovement(t *testing.T) {
	r, _ := newTestRegistry()
	roomID := startedMatch(t, r)

	// Pawns cannot jump three squares.
	err := r.SubmitMove(roomID, "conn-white", "e2", "e5")
	assert.ErrorIs(t, err, ErrInvalidPieceMovement)

	// Opponent piece while white is to move.
	err = r.SubmitMove(roomID, "conn-white", "e7", "e5")
	assert.ErrorIs(t, err, ErrInvalidPieceMovement)
}

func TestSubmitMoveHappyPath(t *testing.T) {
	r, messenger := newTestRegistry()
	roomID := startedMatch(t, r)

	err := r.SubmitMove(roomID, "conn-white", "e2", "e4")
	require.NoError(t, err)

	room := r.rooms[roomID]
	require.NotNil(t, room)
	require.Len(t, room.Moves, 1)
	assert.Equal(t, "e4", room.Moves[0].San)
	assert.Equal(t, SideWhite, room.Moves[0].Side)
	assert.False(t, room.Moves[0].Capture)
	assert.Equal(t, "black", room.Engine.SideToMove())

	applied := messenger.byType("move_applied")
	require.Len(t, applied, 2)
	payload, ok := applied[0].message.Payload.(MoveAppliedNotification)
	require.True(t, ok)
	assert.Equal(t, "black", payload.SideToMove)
	assert.Equal(t, []string{"e4"}, payload.Moves)
	assert.False(t, payload.IsCheckmate)
}

func TestSubmitMoveCaptureFlag(t *testing.T) {
	r, messenger := newTestRegistry()
	roomID := startedMatch(t, r)

	require.NoError(t, r.SubmitMove(roomID, "conn-white", "e2", "e4"))
	require.NoError(t, r.SubmitMove(roomID, "conn-black", "d7", "d5"))
	require.NoError(t, r.SubmitMove(roomID, "conn-white", "e4", "d5"))

	applied := messenger.byType("move_applied")
	require.NotEmpty(t, applied)
	payload, ok := applied[len(applied)-1].message.Payload.(MoveAppliedNotification)
	require.True(t, ok)
	assert.True(t, payload.Capture)

	room := r.rooms[roomID]
	require.NotNil(t, room)
	last := room.Moves[len(room.Moves)-1]
	assert.Equal(t, "black pawn", last.Captured)
}

func TestSubmitMoveCheckmateEndsMatch(t *testing.T) {
	r, messenger := newTestRegistry()
	roomID := startedMatch(t, r)

	// Fool's mate.
	require.NoError(t, r.SubmitMove(roomID, "conn-white", "f2", "f3"))
	require.NoError(t, r.SubmitMove(roomID, "conn-black", "e7", "e5"))
	require.NoError(t, r.SubmitMove(roomID, "conn-white", "g2", "g4"))
	require.NoError(t, r.SubmitMove(roomID, "conn-black", "d8", "h4"))

	assert.Equal(t, 0, r.RoomCount())

	applied := messenger.byType("move_applied")
	require.NotEmpty(t, applied)
	last, ok := applied[len(applied)-1].message.Payload.(MoveAppliedNotification)
	require.True(t, ok)
	assert.True(t, last.IsCheckmate)

	overs := messenger.byType("match_over")
	require.Len(t, overs, 2)
	over, ok := overs[0].message.Payload.(MatchOverNotification)
	require.True(t, ok)
	assert.Equal(t, OutcomeCheckmate, over.Status)
	assert.Equal(t, SideBlack, over.Winner)
	assert.Equal(t, "Bob", over.WinnerName)

	// The room is gone, further moves bounce.
	err := r.SubmitMove(roomID, "conn-white", "e2", "e4")
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestSubmitMovePermissiveBypass(t *testing.T) {
	r, _ := newTestRegistry()
	roomID := startedMatch(t, r)

	pinned, err := engine.NewFromFEN("4r2k/8/8/8/8/8/4B3/4K3 w - - 0 1")
	require.NoError(t, err)
	r.mu.Lock()
	r.rooms[roomID].Engine = pinned
	r.mu.Unlock()

	// Moving the pinned bishop exposes the king; the permissive policy
	// commits it anyway.
	require.NoError(t, r.SubmitMove(roomID, "conn-white", "e2", "d3"))

	room := r.rooms[roomID]
	require.NotNil(t, room)
	require.Len(t, room.Moves, 1)
	assert.True(t, room.Moves[0].Forced)

	piece, ok := room.Engine.PieceAt("d3")
	assert.True(t, ok)
	assert.Equal(t, "white bishop", piece)
}

func TestSubmitMoveStrictRejectsExposedKing(t *testing.T) {
	r, _ := newTestRegistry(func(cfg *config.Config) {
		cfg.MoveLegality = config.LegalityStrict
	})
	roomID := startedMatch(t, r)

	pinned, err := engine.NewFromFEN("4r2k/8/8/8/8/8/4B3/4K3 w - - 0 1")
	require.NoError(t, err)
	r.mu.Lock()
	r.rooms[roomID].Engine = pinned
	r.mu.Unlock()

	err = r.SubmitMove(roomID, "conn-white", "e2", "d3")
	assert.ErrorIs(t, err, ErrInvalidMove)

	// Nothing committed.
	piece, ok := r.rooms[roomID].Engine.PieceAt("e2")
	assert.True(t, ok)
	assert.Equal(t, "white bishop", piece)
}
