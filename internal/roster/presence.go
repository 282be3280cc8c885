package roster

import (
	"time"
)

// Status represents the availability of a buddy
type Status int

const (
	StatusOffline Status = iota
	StatusAvailable
	StatusAway
	StatusExtendedAway
	StatusUnavailable
)

// String returns the show string used in roster files and the UI
func (s Status) String() string {
	switch s {
	case StatusAvailable:
		return "online"
	case StatusAway:
		return "away"
	case StatusExtendedAway:
		return "xa"
	case StatusUnavailable:
		return "dnd"
	default:
		return "offline"
	}
}

// Rank orders statuses from most to least available. Lower is better.
func (s Status) Rank() int {
	switch s {
	case StatusAvailable:
		return 0
	case StatusAway:
		return 1
	case StatusExtendedAway:
		return 2
	case StatusUnavailable:
		return 3
	default:
		return 4
	}
}

// ParseStatus converts a show string to a Status.
// Unknown values are treated as offline.
func ParseStatus(s string) Status {
	switch s {
	case "online", "chat", "available", "":
		return StatusAvailable
	case "away":
		return StatusAway
	case "xa":
		return StatusExtendedAway
	case "dnd", "busy", "unavailable":
		return StatusUnavailable
	default:
		return StatusOffline
	}
}

// Presence is the presence state of a single buddy
type Presence struct {
	Status    Status
	Message   string
	SignedOn  time.Time
	SignedOff time.Time
}

// Online reports whether the buddy is signed on in any state
func (p Presence) Online() bool {
	return p.Status != StatusOffline
}

// transition returns the presence after moving to status at the given time,
// stamping sign-on and sign-off edges.
func (p Presence) transition(status Status, at time.Time) Presence {
	next := p
	next.Status = status
	switch {
	case !p.Online() && next.Online():
		next.SignedOn = at
		next.SignedOff = time.Time{}
	case p.Online() && !next.Online():
		next.SignedOff = at
		next.SignedOn = time.Time{}
	}
	return next
}
