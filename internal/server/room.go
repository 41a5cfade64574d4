package server

import (
	"time"

	"gambit-server/internal/engine"
)

type RoomStatus string

const (
	StatusWaiting RoomStatus = "waiting"
	StatusPlaying RoomStatus = "playing"
	StatusEnded   RoomStatus = "ended"
)

const (
	SideWhite = "white"
	SideBlack = "black"
)

func otherSide(side string) string {
	if side == SideWhite {
		return SideBlack
	}
	return SideWhite
}

// PlayerSlot seats one player on a side of the board.
type PlayerSlot struct {
	ConnectionID string
	Name         string
	SecondsLeft  int
}

func (s PlayerSlot) IsEmpty() bool {
	return s.ConnectionID == ""
}

// MoveRecord is one entry of a room's move log.
type MoveRecord struct {
	From     string
	To       string
	Piece    string
	Captured string // empty when nothing was taken
	San      string
	Side     string
	Capture  bool
	Forced   bool
	At       time.Time
}

// Room holds the full state of one match. All access goes through the
// registry lock.
type Room struct {
	ID        string
	White     PlayerSlot
	Black     PlayerSlot
	Engine    *engine.Engine
	Moves     []MoveRecord
	Status    RoomStatus
	clock     *roomClock
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (r *Room) slot(side string) *PlayerSlot {
	if side == SideWhite {
		return &r.White
	}
	return &r.Black
}

// sideOf returns which side a connection plays, empty when it is not seated.
func (r *Room) sideOf(connectionID string) string {
	switch connectionID {
	case "":
		return ""
	case r.White.ConnectionID:
		return SideWhite
	case r.Black.ConnectionID:
		return SideBlack
	}
	return ""
}

func (r *Room) sanLog() []string {
	moves := make([]string, 0, len(r.Moves))
	for _, mv := range r.Moves {
		moves = append(moves, mv.San)
	}
	return moves
}

// broadcast queues a message for every seated player.
func (r *Room) broadcast(messageType string, payload interface{}) []outbound {
	return r.broadcastExcept("", messageType, payload)
}

func (r *Room) broadcastExcept(skipConnID, messageType string, payload interface{}) []outbound {
	msg := ServerMessage{Type: messageType, Payload: payload}
	var queue []outbound
	for _, slot := range []PlayerSlot{r.White, r.Black} {
		if slot.IsEmpty() || slot.ConnectionID == skipConnID {
			continue
		}
		queue = append(queue, outbound{connectionID: slot.ConnectionID, message: msg})
	}
	return queue
}
