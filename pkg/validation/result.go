package validation

import (
	"github.com/goliatone/go-onboarding/pkg/model"
	"github.com/goliatone/go-onboarding/pkg/verification"
)

// FieldResult is the outcome for a single field.
type FieldResult struct {
	Key      string
	OK       bool
	Messages []string
}

func (r FieldResult) fail(message string) FieldResult {
	r.OK = false
	r.Messages = append(r.Messages, message)
	return r
}

// StepResult aggregates failing fields and unsatisfied verification items
// for one step. OK is the conjunction of both.
type StepResult struct {
	StepID string
	OK     bool
	Fields []FieldResult
	Items  []verification.Failure
}

// First returns the key and message of the first failure: fields before
// verification items, each in declaration order.
func (r StepResult) First() (string, string) {
	for _, field := range r.Fields {
		if len(field.Messages) > 0 {
			return field.Key, field.Messages[0]
		}
	}
	if len(r.Items) > 0 {
		return itemKey(r.Items[0]), r.Items[0].Message()
	}
	return "", ""
}

// Errors returns the failures as annotations keyed by field. Verification
// failures are attached to the flag or the file field depending on cause.
func (r StepResult) Errors() map[string][]string {
	if r.OK {
		return nil
	}
	out := make(map[string][]string)
	for _, field := range r.Fields {
		out[field.Key] = append(out[field.Key], field.Messages...)
	}
	for _, failure := range r.Items {
		key := itemKey(failure)
		out[key] = append(out[key], failure.Message())
	}
	return out
}

func itemKey(failure verification.Failure) string {
	if failure.Cause == verification.CauseFlagUnset {
		return failure.Item.FlagKey
	}
	return failure.Item.FileKey
}

func checkItems(step model.StepDefinition, state *model.WizardState) []verification.Failure {
	if len(step.Verification) == 0 {
		return nil
	}
	return verification.Check(step.Verification, state)
}
