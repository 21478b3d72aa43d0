package contact

import (
	"fmt"
	"time"
)

// Phase is where a form's current submission attempt is in its lifecycle.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseSubmitting
	PhaseSuccess
	PhaseError
)

// String returns the lowercase phase name used in JSON and templates.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseSubmitting:
		return "submitting"
	case PhaseSuccess:
		return "success"
	case PhaseError:
		return "error"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Phase) UnmarshalText(b []byte) error {
	switch string(b) {
	case "idle":
		*p = PhaseIdle
	case "submitting":
		*p = PhaseSubmitting
	case "success":
		*p = PhaseSuccess
	case "error":
		*p = PhaseError
	default:
		return fmt.Errorf("unknown phase %q", string(b))
	}
	return nil
}

// Terminal reports whether the phase is the outcome of a finished attempt.
func (p Phase) Terminal() bool {
	return p == PhaseSuccess || p == PhaseError
}

// CanTransitionTo reports whether next may follow p.
//
//	idle       -> submitting
//	submitting -> success | error
//	success    -> submitting
//	error      -> submitting
//
// Nothing returns to idle.
func (p Phase) CanTransitionTo(next Phase) bool {
	switch p {
	case PhaseIdle, PhaseSuccess, PhaseError:
		return next == PhaseSubmitting
	case PhaseSubmitting:
		return next == PhaseSuccess || next == PhaseError
	default:
		return false
	}
}

// PhaseChange is published to subscribers on every transition.
type PhaseChange struct {
	From Phase     `json:"from"`
	To   Phase     `json:"to"`
	At   time.Time `json:"at"`
}
