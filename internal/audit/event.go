package audit

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Action is the kind of security/operational fact being recorded. The set is
// open to extension; validation only admits known values.
type Action string

const (
	ActionAuthorizationBreach Action = "authorization_breach"
	ActionException           Action = "exception"
	ActionSlowPerformance     Action = "slow_performance"
)

// ParseAction maps a wire/query value onto a known action kind.
func ParseAction(raw string) (Action, error) {
	switch Action(strings.TrimSpace(strings.ToLower(raw))) {
	case ActionAuthorizationBreach:
		return ActionAuthorizationBreach, nil
	case ActionException:
		return ActionException, nil
	case ActionSlowPerformance:
		return ActionSlowPerformance, nil
	default:
		return "", fmt.Errorf("%w: unknown action %q", ErrInvalidInput, raw)
	}
}

func (a Action) known() bool {
	switch a {
	case ActionAuthorizationBreach, ActionException, ActionSlowPerformance:
		return true
	}
	return false
}

// TimestampTolerance bounds how far an event timestamp may drift from the
// clock at write time. Events outside the window are rejected as fabricated.
const TimestampTolerance = 30 * time.Second

// Event is an immutable audit fact. UserID is empty for anonymous breaches.
type Event struct {
	ID        string    `json:"id"`
	Action    Action    `json:"action"`
	UserID    string    `json:"user_id,omitempty"`
	IP        string    `json:"ip"`
	Details   string    `json:"details"`
	CreatedAt time.Time `json:"created_at"`
}

// Validate checks the invariants every event must satisfy before persisting.
func (e *Event) Validate(now time.Time) error {
	if !e.Action.known() {
		return fmt.Errorf("%w: unknown action %q", ErrInvalidInput, e.Action)
	}
	if strings.TrimSpace(e.IP) == "" {
		return fmt.Errorf("%w: ip is required", ErrInvalidInput)
	}
	if strings.TrimSpace(e.Details) == "" {
		return fmt.Errorf("%w: details are required", ErrInvalidInput)
	}
	drift := now.Sub(e.CreatedAt)
	if drift < 0 {
		drift = -drift
	}
	if drift > TimestampTolerance {
		return fmt.Errorf("%w: timestamp outside tolerance window", ErrInvalidInput)
	}
	return nil
}

var (
	ErrNotFound     = errors.New("audit: not found")
	ErrInvalidInput = errors.New("audit: invalid input")
)
