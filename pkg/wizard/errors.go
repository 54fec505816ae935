package wizard

import (
	"errors"
	"fmt"

	"github.com/goliatone/go-onboarding/pkg/verification"
)

var (
	// ErrGateRefused is wrapped by every *GateError.
	ErrGateRefused = errors.New("wizard: gate refused")
	// ErrSubmitInFlight is returned by Submit while a submission is pending.
	ErrSubmitInFlight = errors.New("wizard: submit already in flight")
	// ErrBusy is returned by transitions attempted while submitting or
	// fetching a record.
	ErrBusy = errors.New("wizard: transition in flight")
	// ErrConfirmRequired is returned by Back at the first step without the
	// discard confirmation.
	ErrConfirmRequired = errors.New("wizard: confirmation required to discard the role")
	// ErrRoleLocked is returned when leaving the role in edit mode.
	ErrRoleLocked = errors.New("wizard: role cannot change while editing")
	// ErrRoleUnavailable is returned for roles not offered by the catalog.
	ErrRoleUnavailable = errors.New("wizard: role unavailable")
	// ErrUnknownField is returned when a key is not part of the role schema.
	ErrUnknownField = errors.New("wizard: unknown field")
	// ErrNotFileField is returned by SetFile for non-file fields.
	ErrNotFileField = errors.New("wizard: not a file field")
	// ErrSessionClosed is returned once the session was closed.
	ErrSessionClosed = errors.New("wizard: session closed")
	// ErrInvalidPhase is returned when a transition does not apply to the
	// current phase.
	ErrInvalidPhase = errors.New("wizard: transition not allowed")
)

// GateError describes why a step gate refused to open.
type GateError struct {
	StepIndex int
	StepID    string
	Key       string
	Message   string
	Item      string
	Cause     verification.Cause
	Fields    map[string][]string
}

func (e *GateError) Error() string {
	if e.Item != "" {
		return fmt.Sprintf("wizard: gate refused at step %q: item %s: %s", e.StepID, e.Item, e.Cause)
	}
	return fmt.Sprintf("wizard: gate refused at step %q: %s: %s", e.StepID, e.Key, e.Message)
}

func (e *GateError) Unwrap() error {
	return ErrGateRefused
}
