package domain

import "strings"

const MaxRoomIDLen = 64

// RoomID is the opaque key of a room. Rooms exist as soon as someone names one.
type RoomID string

func (id RoomID) Valid() bool {
	s := strings.TrimSpace(string(id))
	return s != "" && len(s) <= MaxRoomIDLen
}
