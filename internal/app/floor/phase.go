package floor

import "fmt"

// Phase of a room's floor.
type Phase int

const (
	Idle Phase = iota
	Holding
	Scoring
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Holding:
		return "holding"
	case Scoring:
		return "scoring"
	default:
		return "unknown"
	}
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Phase) UnmarshalText(b []byte) error {
	switch string(b) {
	case "idle":
		*p = Idle
	case "holding":
		*p = Holding
	case "scoring":
		*p = Scoring
	default:
		return fmt.Errorf("unknown phase %q", b)
	}
	return nil
}
