package orch

import (
	"github.com/dkeye/Mic/internal/app/floor"
	"github.com/dkeye/Mic/internal/domain"
)

type MemberDTO struct {
	ID   domain.ConnID `json:"id"`
	Name string        `json:"name"`
}

type RoomState struct {
	Type    string         `json:"type"`
	Room    domain.RoomID  `json:"room"`
	Members []MemberDTO    `json:"members"`
	Count   int            `json:"count"`
	Floor   floor.Snapshot `json:"floor"`
}

type MemberJoined struct {
	Type   string        `json:"type"`
	Room   domain.RoomID `json:"room"`
	Member MemberDTO     `json:"member"`
}

type MemberLeft struct {
	Type string        `json:"type"`
	Room domain.RoomID `json:"room"`
	ID   domain.ConnID `json:"id"`
}
