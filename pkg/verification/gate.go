// Package verification enforces the compound rule behind attestation items:
// a checkbox only counts once the document backing it is available.
package verification

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-onboarding/pkg/model"
)

// Cause explains why an item is not satisfied.
type Cause string

const (
	CauseNone        Cause = ""
	CauseFlagUnset   Cause = "flag-unset"
	CauseFileMissing Cause = "file-missing"
)

// Failure names an unsatisfied item and the reason.
type Failure struct {
	Item  model.VerificationItem
	Cause Cause
}

// Message renders the failure for the person filling the form.
func (f Failure) Message() string {
	label := strings.TrimSpace(f.Item.Label)
	if label == "" {
		label = f.Item.ID
	}
	switch f.Cause {
	case CauseFlagUnset:
		return fmt.Sprintf("%s must be confirmed", label)
	case CauseFileMissing:
		return fmt.Sprintf("%s requires a supporting document", label)
	default:
		return label
	}
}

func (f Failure) String() string {
	return fmt.Sprintf("%s: %s", f.Item.ID, f.Cause)
}

// IsSatisfied reports whether the flag is set and a document is present,
// either as a new file or as an existing attachment.
func IsSatisfied(item model.VerificationItem, state *model.WizardState) bool {
	return DescribeMissing(item, state) == CauseNone
}

// DescribeMissing returns the first unmet half of the item. The flag is
// checked first: an uploaded file without the flag is still unsatisfied.
func DescribeMissing(item model.VerificationItem, state *model.WizardState) Cause {
	if !state.Bool(item.FlagKey) {
		return CauseFlagUnset
	}
	if _, ok := state.File(item.FileKey); ok {
		return CauseNone
	}
	if _, ok := state.Attachment(item.FileKey); ok {
		return CauseNone
	}
	return CauseFileMissing
}

// Check evaluates items in order and returns every failure.
func Check(items []model.VerificationItem, state *model.WizardState) []Failure {
	var out []Failure
	for _, item := range items {
		if cause := DescribeMissing(item, state); cause != CauseNone {
			out = append(out, Failure{Item: item, Cause: cause})
		}
	}
	return out
}
