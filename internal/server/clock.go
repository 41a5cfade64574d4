package server

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// roomClock is the handle for one room's countdown goroutine. The goroutine
// only fires tick callbacks; all clock state lives on the room, guarded by
// the registry lock.
type roomClock struct {
	stop chan struct{}
	once sync.Once
}

func (c *roomClock) halt() {
	c.once.Do(func() { close(c.stop) })
}

func (r *RoomRegistry) startClock(roomID string) *roomClock {
	clock := &roomClock{stop: make(chan struct{})}
	go func() {
		ticker := time.NewTicker(r.clockTick)
		defer ticker.Stop()
		for {
			select {
			case <-clock.stop:
				return
			case <-ticker.C:
				r.tickRoom(roomID)
			}
		}
	}()
	return clock
}

// tickRoom decrements the side to move and flags the match when a player
// runs out of time. A tick that races with termination finds the room
// deregistered and does nothing.
func (r *RoomRegistry) tickRoom(roomID string) {
	r.mu.Lock()
	room, ok := r.rooms[roomID]
	if !ok || room.Status != StatusPlaying {
		r.mu.Unlock()
		return
	}

	side := room.Engine.SideToMove()
	slot := room.slot(side)
	slot.SecondsLeft--

	var queue []outbound
	if slot.SecondsLeft <= 0 {
		slot.SecondsLeft = 0
		r.logger.Info("clock_flag",
			zap.String("room_id", roomID),
			zap.String("side", side),
		)
		queue = r.terminateLocked(room, Outcome{
			Status: OutcomeTimeout,
			Winner: otherSide(side),
		})
	} else {
		queue = room.broadcast("time_update", TimeUpdateNotification{
			WhiteTime: room.White.SecondsLeft,
			BlackTime: room.Black.SecondsLeft,
		})
	}
	r.mu.Unlock()

	r.dispatch(queue)
}
