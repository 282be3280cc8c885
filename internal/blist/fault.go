package blist

import (
	"fmt"

	"github.com/meszmate/buddylist/internal/logging"
)

// FaultMode selects how invariant violations are handled
type FaultMode int

const (
	// FaultLog logs the violation and skips the offending step
	FaultLog FaultMode = iota
	// FaultPanic panics, for development builds and tests
	FaultPanic
)

// ParseFaultMode maps the strict flag from configuration to a mode
func ParseFaultMode(strict bool) FaultMode {
	if strict {
		return FaultPanic
	}
	return FaultLog
}

// InvariantError describes a violated internal invariant. It signals a
// bug elsewhere and is never something callers should branch on.
type InvariantError struct {
	Msg string
}

func (e *InvariantError) Error() string {
	return "invariant violation: " + e.Msg
}

func (m FaultMode) violate(format string, args ...interface{}) error {
	err := &InvariantError{Msg: fmt.Sprintf(format, args...)}
	if m == FaultPanic {
		panic(err)
	}
	logging.Error("%v", err)
	return err
}
