package floor

import (
	"time"

	"github.com/dkeye/Mic/internal/domain"
)

// Outbound event types. Type carries the wire name.
type (
	QueueSnapshot struct {
		Type string `json:"type"`
		Snapshot
	}

	FloorGranted struct {
		Type string        `json:"type"`
		Room domain.RoomID `json:"room"`
	}

	CanListen struct {
		Type     string        `json:"type"`
		Room     domain.RoomID `json:"room"`
		Holder   string        `json:"holder"`
		HolderID domain.ConnID `json:"holder_id"`
	}

	ScoringStarted struct {
		Type     string        `json:"type"`
		Room     domain.RoomID `json:"room"`
		Holder   string        `json:"holder"`
		HolderID domain.ConnID `json:"holder_id"`
		Deadline time.Time     `json:"deadline"`
	}

	RatingResult struct {
		Type     string        `json:"type"`
		Room     domain.RoomID `json:"room"`
		Holder   string        `json:"holder"`
		HolderID domain.ConnID `json:"holder_id"`
		Average  float64       `json:"average"`
		Count    int           `json:"count"`
	}

	Commentary struct {
		Type   string        `json:"type"`
		Room   domain.RoomID `json:"room"`
		Holder string        `json:"holder"`
		Text   string        `json:"text"`
	}

	PublishToken struct {
		Type     string        `json:"type"`
		Room     domain.RoomID `json:"room"`
		Token    string        `json:"token"`
		Identity string        `json:"identity"`
	}
)

func queueSnapshot(s Snapshot) QueueSnapshot {
	return QueueSnapshot{Type: "queue_snapshot", Snapshot: s}
}
