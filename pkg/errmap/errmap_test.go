package errmap_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-onboarding/pkg/errmap"
)

func knownKeys(keys ...string) func(string) bool {
	set := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		set[key] = struct{}{}
	}
	return func(key string) bool {
		_, ok := set[key]
		return ok
	}
}

func TestMap_FieldErrors(t *testing.T) {
	known := knownKeys("phone", "email", "license_number")

	got := errmap.Map(map[string]any{"phone": []any{"Enter a valid phone number"}}, known)
	want := errmap.Mapping{PerField: map[string][]string{"phone": {"Enter a valid phone number"}}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("mapping mismatch (-want +got):\n%s", diff)
	}

	got = errmap.Map([]byte(`{
		"email": "Already registered",
		"license_number": ["Taken", "Taken", "  "],
		"non_field_errors": ["Duplicate staff member"],
		"blood_group": "Unsupported value",
		"profile": {"phone": ["<b>Too short</b>"]}
	}`), known)
	want = errmap.Mapping{
		Global: []string{
			"Blood Group: Unsupported value",
			"Error: Duplicate staff member",
		},
		PerField: map[string][]string{
			"email":          {"Already registered"},
			"license_number": {"Taken"},
			"phone":          {"Too short"},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("mapping mismatch (-want +got):\n%s", diff)
	}
}

func TestMap_TopLevelMessages(t *testing.T) {
	cases := []struct {
		name    string
		payload any
		want    []string
	}{
		{"detail", map[string]any{"detail": "Not allowed"}, []string{"Not allowed"}},
		{"message", `{"message": "School is archived &amp; read-only"}`, []string{"School is archived & read-only"}},
		{"plain text", "Gateway timeout", []string{"Gateway timeout"}},
		{"string map", map[string]string{"__all__": "Record locked"}, []string{"Error: Record locked"}},
		{"list", []string{"first", "first", "second"}, []string{"first", "second"}},
		{"error value", errors.New("connection reset"), []string{"connection reset"}},
		{"wrapped errors", map[string]any{"errors": map[string]any{"username": "Taken"}}, []string{"Username: Taken"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := errmap.Map(tc.payload, nil)
			if diff := cmp.Diff(tc.want, got.Global); diff != "" {
				t.Fatalf("global mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMap_TopLevelMessageKeepsFieldErrors(t *testing.T) {
	known := knownKeys("phone", "email")

	got := errmap.Map([]byte(`{
		"message": "Invalid",
		"code": "E_VALIDATION",
		"phone": ["Enter a valid phone number"]
	}`), known)
	want := errmap.Mapping{
		Global:   []string{"Invalid"},
		PerField: map[string][]string{"phone": {"Enter a valid phone number"}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("mapping mismatch (-want +got):\n%s", diff)
	}

	got = errmap.Map(map[string]any{
		"detail": "Some fields are invalid",
		"errors": map[string]any{"email": "Already registered"},
	}, known)
	want = errmap.Mapping{
		Global:   []string{"Some fields are invalid"},
		PerField: map[string][]string{"email": {"Already registered"}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("mapping mismatch (-want +got):\n%s", diff)
	}
}

func TestMap_FallbackNeverPanics(t *testing.T) {
	for name, payload := range map[string]any{
		"nil":          nil,
		"empty":        "   ",
		"empty object": map[string]any{},
		"broken json":  []byte(`{"phone": [`),
		"only nulls":   map[string]any{"phone": nil},
		"number":       42,
	} {
		t.Run(name, func(t *testing.T) {
			got := errmap.Map(payload, knownKeys("phone"))
			if name == "broken json" {
				if len(got.Global) != 1 {
					t.Fatalf("expected raw text as single message, got %v", got.Global)
				}
				return
			}
			if diff := cmp.Diff([]string{errmap.FallbackMessage}, got.Global); diff != "" {
				t.Fatalf("fallback mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMapping_Messages(t *testing.T) {
	mapping := errmap.Mapping{
		Global: []string{"Error: Duplicate"},
		PerField: map[string][]string{
			"phone":      {"Enter a valid phone number"},
			"first_name": {"Required"},
		},
	}
	labels := map[string]string{"phone": "Phone"}
	got := mapping.Messages(func(key string) string { return labels[key] })
	want := []string{"Error: Duplicate", "Required", "Phone: Enter a valid phone number"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("messages mismatch (-want +got):\n%s", diff)
	}

	got = mapping.Messages(nil)
	if got[1] != "First Name: Required" {
		t.Fatalf("expected humanised label, got %q", got[1])
	}
}

func TestHumanize(t *testing.T) {
	for key, want := range map[string]string{
		"license_number":   "License Number",
		"date-of-birth":    "Date Of Birth",
		"non_field_errors": "Error",
		"profile.phone":    "Profile Phone",
	} {
		if got := errmap.Humanize(key); got != want {
			t.Fatalf("Humanize(%q) = %q, want %q", key, got, want)
		}
	}
}
