// Package records defines the Record API the wizard talks to, the typed
// server rejection it understands, and an in-memory implementation.
package records

import (
	"context"
	"errors"
	"fmt"

	"github.com/goliatone/go-onboarding/pkg/model"
)

// ErrNotFound is returned when a record id is unknown.
var ErrNotFound = errors.New("records: record not found")

// Record is the nested server representation of a staff member.
type Record map[string]any

// API exchanges records with the backing service. Create and Update return
// the id of the stored record.
type API interface {
	Get(ctx context.Context, id string) (Record, error)
	Create(ctx context.Context, fields map[string]string, files map[string]model.File) (string, error)
	Update(ctx context.Context, id string, fields map[string]string, files map[string]model.File) (string, error)
}

// ValidationError is a structured rejection. Payload keeps the server body
// as received so it can be routed through the error mapper.
type ValidationError struct {
	Payload any
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "records: validation failed"
	}
	return fmt.Sprintf("records: validation failed: %v", e.Payload)
}

// Reject builds a ValidationError for field messages.
func Reject(fields map[string][]string) *ValidationError {
	return &ValidationError{Payload: fields}
}
