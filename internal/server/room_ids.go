package server

import (
	"crypto/rand"
	"strings"
)

const (
	roomIDLength   = 6
	roomIDAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
)

// GenerateRoomID produces a random id not present in rooms. Caller holds the
// registry lock.
func GenerateRoomID(rooms map[string]*Room) string {
	for {
		buf := make([]byte, roomIDLength)
		if _, err := rand.Read(buf); err != nil {
			continue
		}
		for i := range buf {
			buf[i] = roomIDAlphabet[int(buf[i])%len(roomIDAlphabet)]
		}
		id := string(buf)
		if _, taken := rooms[id]; !taken {
			return id
		}
	}
}

func ValidateRoomID(id string) bool {
	if len(id) != roomIDLength {
		return false
	}
	for _, c := range id {
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') {
			return false
		}
	}
	return true
}

func NormalizeRoomID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}
