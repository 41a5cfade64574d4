package server

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"gambit-server/internal/config"
	"gambit-server/internal/engine"
	"gambit-server/internal/history"
)

// Messenger delivers a message to a connection. The registry never touches
// sockets directly so the transport stays testable.
type Messenger interface {
	Send(connectionID string, message ServerMessage)
}

// outbound is a message queued under the registry lock and delivered after
// it is released.
type outbound struct {
	connectionID string
	message      ServerMessage
}

// Outcome describes how a match ended.
type Outcome struct {
	Status string
	Winner string
	Reason string
}

const (
	OutcomeCheckmate = "checkmate"
	OutcomeDraw      = "draw"
	OutcomeTimeout   = "timeout"
	OutcomeAborted   = "aborted"
)

// RoomRegistry owns every live room and the index from connection ids to
// rooms. A single lock guards all room state including the clocks.
type RoomRegistry struct {
	rooms   map[string]*Room
	members map[string]string // connectionID → roomID
	mu      sync.RWMutex

	messenger Messenger
	archive   *history.Repository
	logger    *zap.Logger

	clockSeconds   int
	clockTick      time.Duration
	strictLegality bool
}

func NewRoomRegistry(cfg config.Config, messenger Messenger, archive *history.Repository, logger *zap.Logger) *RoomRegistry {
	return &RoomRegistry{
		rooms:          make(map[string]*Room),
		members:        make(map[string]string),
		messenger:      messenger,
		archive:        archive,
		logger:         logger,
		clockSeconds:   cfg.ClockSeconds,
		clockTick:      cfg.ClockTick,
		strictLegality: cfg.MoveLegality == config.LegalityStrict,
	}
}

// CreateMatch opens a new room with the caller seated as white. Returns the
// room id and assigned side.
func (r *RoomRegistry) CreateMatch(connectionID, playerName string) (string, string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	roomID := GenerateRoomID(r.rooms)
	now := time.Now()
	r.rooms[roomID] = &Room{
		ID: roomID,
		White: PlayerSlot{
			ConnectionID: connectionID,
			Name:         playerName,
			SecondsLeft:  r.clockSeconds,
		},
		Engine:    engine.New(),
		Status:    StatusWaiting,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.members[connectionID] = roomID

	r.logger.Info("match_created",
		zap.String("room_id", roomID),
		zap.String("player", playerName),
	)
	return roomID, SideWhite, nil
}

// JoinMatch seats the caller as black and starts the match and its clock.
func (r *RoomRegistry) JoinMatch(roomID, connectionID, playerName string) (string, error) {
	roomID = NormalizeRoomID(roomID)

	r.mu.Lock()
	room, ok := r.rooms[roomID]
	if !ok {
		r.mu.Unlock()
		return "", ErrRoomNotFound
	}
	if room.Status != StatusWaiting || !room.Black.IsEmpty() {
		r.mu.Unlock()
		return "", ErrRoomFull
	}

	room.Black = PlayerSlot{
		ConnectionID: connectionID,
		Name:         playerName,
		SecondsLeft:  r.clockSeconds,
	}
	room.Status = StatusPlaying
	room.UpdatedAt = time.Now()
	room.clock = r.startClock(roomID)
	r.members[connectionID] = roomID

	queue := room.broadcast("match_start", MatchStartNotification{
		White:     room.White.Name,
		Black:     room.Black.Name,
		Board:     room.Engine.FEN(),
		WhiteTime: room.White.SecondsLeft,
		BlackTime: room.Black.SecondsLeft,
	})
	r.mu.Unlock()

	r.logger.Info("match_started",
		zap.String("room_id", roomID),
		zap.String("player", playerName),
	)
	r.dispatch(queue)
	return SideBlack, nil
}

// Terminate ends a match with the given outcome. Idempotent.
func (r *RoomRegistry) Terminate(roomID string, outcome Outcome) {
	r.mu.Lock()
	room, ok := r.rooms[NormalizeRoomID(roomID)]
	var queue []outbound
	if ok {
		queue = r.terminateLocked(room, outcome)
	}
	r.mu.Unlock()
	r.dispatch(queue)
}

// terminateLocked ends the match, notifies both players, deregisters the
// room, and hands the record to the archive. Caller holds the lock.
func (r *RoomRegistry) terminateLocked(room *Room, outcome Outcome) []outbound {
	if room.Status == StatusEnded {
		return nil
	}
	room.Status = StatusEnded
	room.UpdatedAt = time.Now()
	if room.clock != nil {
		room.clock.halt()
	}

	note := MatchOverNotification{
		Status: outcome.Status,
		Winner: outcome.Winner,
		Reason: outcome.Reason,
	}
	if outcome.Winner != "" {
		note.WinnerName = room.slot(outcome.Winner).Name
	}
	queue := room.broadcast("match_over", note)

	delete(r.rooms, room.ID)
	for _, slot := range []PlayerSlot{room.White, room.Black} {
		if !slot.IsEmpty() {
			delete(r.members, slot.ConnectionID)
		}
	}

	r.logger.Info("match_over",
		zap.String("room_id", room.ID),
		zap.String("status", outcome.Status),
		zap.String("winner", outcome.Winner),
	)
	r.archiveResult(room, outcome)
	return queue
}

func (r *RoomRegistry) archiveResult(room *Room, outcome Outcome) {
	if r.archive == nil {
		return
	}

	result := outcome.Winner
	if outcome.Status == OutcomeDraw {
		result = "draw"
	}
	rec := history.MatchRecord{
		RoomID:    room.ID,
		White:     room.White.Name,
		Black:     room.Black.Name,
		Result:    result,
		Method:    outcome.Status,
		MovesSAN:  room.sanLog(),
		StartedAt: room.CreatedAt,
		EndedAt:   room.UpdatedAt,
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := r.archive.SaveResult(ctx, rec); err != nil {
			r.logger.Error("match_archive_error",
				zap.String("room_id", rec.RoomID),
				zap.Error(err),
			)
		}
	}()
}

// HandleDisconnect aborts the match a connection was seated in, if any.
func (r *RoomRegistry) HandleDisconnect(connectionID string) {
	r.mu.Lock()
	roomID, ok := r.members[connectionID]
	if !ok {
		r.mu.Unlock()
		return
	}
	room := r.rooms[roomID]
	if room == nil {
		delete(r.members, connectionID)
		r.mu.Unlock()
		return
	}

	side := room.sideOf(connectionID)
	queue := room.broadcastExcept(connectionID, "player_left", PlayerLeftNotification{
		Name: room.slot(side).Name,
	})
	queue = append(queue, r.terminateLocked(room, Outcome{Status: OutcomeAborted})...)
	r.mu.Unlock()

	r.dispatch(queue)
}

func (r *RoomRegistry) dispatch(queue []outbound) {
	for _, out := range queue {
		r.messenger.Send(out.connectionID, out.message)
	}
}

func (r *RoomRegistry) RoomCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// Shutdown halts every room clock.
func (r *RoomRegistry) Shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, room := range r.rooms {
		if room.clock != nil {
			room.clock.halt()
		}
	}
}
