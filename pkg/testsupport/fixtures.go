package testsupport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-onboarding/pkg/model"
	"github.com/goliatone/go-onboarding/pkg/records"
	"github.com/goliatone/go-onboarding/pkg/registry"
)

// MustSchema returns the bundled schema for role.
func MustSchema(t *testing.T, role string) model.RoleSchema {
	t.Helper()

	reg, err := registry.NewDefault()
	if err != nil {
		t.Fatalf("load bundled schemas: %v", err)
	}
	schema, err := reg.Schema(role)
	if err != nil {
		t.Fatalf("schema %q: %v", role, err)
	}
	return schema
}

// MustLoadRecord loads a JSON record fixture as the staff service returns it.
func MustLoadRecord(t *testing.T, path string) records.Record {
	t.Helper()

	record, err := LoadRecord(path)
	if err != nil {
		t.Fatalf("load record: %v", err)
	}
	return record
}

// LoadRecord reads a JSON record fixture without requiring testing.T.
func LoadRecord(path string) (records.Record, error) {
	if path == "" {
		return nil, errors.New("testsupport: record path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("testsupport: read record: %w", err)
	}
	var out records.Record
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("testsupport: unmarshal record: %w", err)
	}
	return out, nil
}

// NewState returns a state for role seeded with values.
func NewState(role string, values map[string]any) *model.WizardState {
	state := model.NewState()
	state.Role = role
	for key, value := range values {
		state.Values[key] = value
	}
	return state
}

// MustReadGolden reads a golden file and returns its raw bytes.
func MustReadGolden(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read golden: %v", err)
	}
	return data
}

// WriteMaybeGolden updates a golden file when UPDATE_GOLDENS is set. Returns
// true if the golden was written (test should exit early).
func WriteMaybeGolden(t *testing.T, path string, data []byte) bool {
	t.Helper()
	if os.Getenv("UPDATE_GOLDENS") == "" {
		return false
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir golden dir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write golden: %v", err)
	}
	return true
}

// CompareGolden diffs got against the golden at path, ignoring surrounding
// whitespace. It returns an empty string when they match.
func CompareGolden(t *testing.T, path string, got []byte) string {
	t.Helper()
	if WriteMaybeGolden(t, path, got) {
		return ""
	}
	want := strings.TrimSpace(string(MustReadGolden(t, path)))
	return cmp.Diff(want, strings.TrimSpace(string(got)))
}

// Context returns a background context for tests.
func Context() context.Context {
	return context.Background()
}
