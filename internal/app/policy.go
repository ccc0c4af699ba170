package app

import "github.com/dkeye/Mic/internal/domain"

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	DropFrame
	KickMember
)

func (a BackpressureAction) String() string {
	switch a {
	case DropFrame:
		return "drop"
	case KickMember:
		return "kick"
	default:
		return "none"
	}
}

// Policy decides what happens to a connection whose send buffer is full.
type Policy interface {
	OnBackPressure(conn domain.ConnID, strikes int) BackpressureAction
}

// SimplePolicy drops frames for a slow connection and kicks it once it has
// stalled MaxStrikes times in a row. MaxStrikes <= 0 kicks at once.
type SimplePolicy struct {
	MaxStrikes int
}

func (p SimplePolicy) OnBackPressure(_ domain.ConnID, strikes int) BackpressureAction {
	if strikes >= p.MaxStrikes {
		return KickMember
	}
	return DropFrame
}
