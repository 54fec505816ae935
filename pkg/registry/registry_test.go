package registry_test

import (
	"errors"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-onboarding/pkg/model"
	"github.com/goliatone/go-onboarding/pkg/registry"
)

func TestNewDefault_BundledRolesHoldInvariants(t *testing.T) {
	reg, err := registry.NewDefault()
	if err != nil {
		t.Fatalf("NewDefault: %v", err)
	}

	if diff := cmp.Diff([]string{"conductor", "driver", "staff"}, reg.Roles()); diff != "" {
		t.Fatalf("roles mismatch (-want +got):\n%s", diff)
	}

	for _, role := range reg.Roles() {
		schema, err := reg.Schema(role)
		if err != nil {
			t.Fatalf("Schema(%q): %v", role, err)
		}
		if len(schema.Steps) == 0 {
			t.Fatalf("role %q has no steps", role)
		}
		if !schema.Steps[len(schema.Steps)-1].Review {
			t.Fatalf("role %q must end with the review step", role)
		}

		owners := make(map[string]int)
		for _, step := range schema.Steps {
			for _, field := range step.Fields {
				owners[field.Key]++
				if owners[field.Key] > 1 && !field.Shared {
					t.Fatalf("role %q field %q appears in more than one step", role, field.Key)
				}
			}
		}
	}
}

func TestSchema_UnknownRole(t *testing.T) {
	reg, err := registry.NewDefault()
	if err != nil {
		t.Fatalf("NewDefault: %v", err)
	}

	if _, err := reg.Schema("mechanic"); !errors.Is(err, registry.ErrRoleNotFound) {
		t.Fatalf("expected ErrRoleNotFound, got %v", err)
	}

	schema, err := reg.Resolve("mechanic")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if schema.Role != "mechanic" {
		t.Fatalf("expected fallback schema to keep requested role, got %q", schema.Role)
	}
	generic, _ := reg.Schema(registry.FallbackRole)
	if len(schema.Steps) != len(generic.Steps) {
		t.Fatalf("expected generic steps, got %d want %d", len(schema.Steps), len(generic.Steps))
	}
}

func TestStepOf_DriverFields(t *testing.T) {
	reg, err := registry.NewDefault()
	if err != nil {
		t.Fatalf("NewDefault: %v", err)
	}
	schema, _ := reg.Schema("driver")

	cases := map[string]int{
		"phone":               0,
		"password":            1,
		"license_number":      2,
		"fitness_certificate": 3,
	}
	for key, want := range cases {
		got, ok := schema.StepOf(key)
		if !ok || got != want {
			t.Fatalf("StepOf(%q) = %d,%v want %d", key, got, ok, want)
		}
	}
	if _, ok := schema.StepOf("unknown"); ok {
		t.Fatalf("expected unknown key to be unresolved")
	}
}

func TestRegister_RejectsBrokenSchemas(t *testing.T) {
	review := model.StepDefinition{ID: "review", Review: true}
	text := func(key string) model.FieldDefinition {
		return model.FieldDefinition{Key: key, Kind: model.KindText}
	}
	ruled := func(key, kind, value string) model.FieldDefinition {
		field := text(key)
		field.Rules = []model.Rule{{Kind: kind, Value: value}}
		return field
	}

	cases := map[string]model.RoleSchema{
		"no steps": {Role: "empty"},
		"no review": {Role: "r", Steps: []model.StepDefinition{
			{ID: "a", Fields: []model.FieldDefinition{text("x")}},
		}},
		"review not last": {Role: "r", Steps: []model.StepDefinition{
			review,
			{ID: "a", Fields: []model.FieldDefinition{text("x")}},
		}},
		"duplicated field": {Role: "r", Steps: []model.StepDefinition{
			{ID: "a", Fields: []model.FieldDefinition{text("x")}},
			{ID: "b", Fields: []model.FieldDefinition{text("x")}},
			review,
		}},
		"bad predicate": {Role: "r", Steps: []model.StepDefinition{
			{ID: "a", Fields: []model.FieldDefinition{{Key: "x", Kind: model.KindText, RequiredIf: "role = 1"}}},
			review,
		}},
		"non-numeric length": {Role: "r", Steps: []model.StepDefinition{
			{ID: "a", Fields: []model.FieldDefinition{ruled("x", model.RuleMinLength, "three")}},
			review,
		}},
		"negative length": {Role: "r", Steps: []model.StepDefinition{
			{ID: "a", Fields: []model.FieldDefinition{ruled("x", model.RuleMaxLength, "-1")}},
			review,
		}},
		"non-numeric bound": {Role: "r", Steps: []model.StepDefinition{
			{ID: "a", Fields: []model.FieldDefinition{{Key: "n", Kind: model.KindNumber, Rules: []model.Rule{{Kind: model.RuleMax, Value: "sixty"}}}}},
			review,
		}},
		"unparsable date bound": {Role: "r", Steps: []model.StepDefinition{
			{ID: "a", Fields: []model.FieldDefinition{{Key: "d", Kind: model.KindDate, Rules: []model.Rule{{Kind: model.RuleBefore, Value: "yesterday"}}}}},
			review,
		}},
		"equals unknown field": {Role: "r", Steps: []model.StepDefinition{
			{ID: "a", Fields: []model.FieldDefinition{ruled("confirm", model.RuleEquals, "secret")}},
			review,
		}},
		"verification flag not boolean": {Role: "r", Steps: []model.StepDefinition{
			{
				ID:     "a",
				Fields: []model.FieldDefinition{text("flag"), {Key: "doc", Kind: model.KindFile}},
				Verification: []model.VerificationItem{
					{ID: "v", FlagKey: "flag", FileKey: "doc"},
				},
			},
			review,
		}},
	}

	for name, schema := range cases {
		t.Run(name, func(t *testing.T) {
			err := registry.New().Register(schema)
			if !errors.Is(err, registry.ErrInvalidSchema) {
				t.Fatalf("expected ErrInvalidSchema, got %v", err)
			}
		})
	}
}

func TestRegister_SharedFieldsMayRepeat(t *testing.T) {
	schema := model.RoleSchema{Role: "r", Steps: []model.StepDefinition{
		{ID: "a", Fields: []model.FieldDefinition{{Key: "school_id", Kind: model.KindText, Shared: true}}},
		{ID: "b", Fields: []model.FieldDefinition{{Key: "school_id", Kind: model.KindText, Shared: true}}},
		{ID: "review", Review: true},
	}}
	if err := registry.New().Register(schema); err != nil {
		t.Fatalf("Register: %v", err)
	}
}

func TestLoadFS_CustomRole(t *testing.T) {
	fsys := fstest.MapFS{
		"mechanic.yaml": {Data: []byte(`
role: mechanic
steps:
  - id: personal
    title: Personal
    fields:
      - key: first_name
        kind: text
        required: true
  - id: review
    title: Review
    review: true
`)},
		"notes.txt": {Data: []byte("ignored")},
	}

	reg := registry.New()
	if err := reg.LoadFS(fsys); err != nil {
		t.Fatalf("LoadFS: %v", err)
	}
	schema, err := reg.Schema("mechanic")
	if err != nil {
		t.Fatalf("Schema: %v", err)
	}
	if field, ok := schema.Field("first_name"); !ok || !field.Required {
		t.Fatalf("expected required first_name, got %+v", field)
	}

	if err := reg.LoadFS(fsys); !errors.Is(err, registry.ErrInvalidSchema) {
		t.Fatalf("expected duplicate role error, got %v", err)
	}
}

func TestLoadFS_RejectsNonNumericLength(t *testing.T) {
	fsys := fstest.MapFS{
		"mechanic.yaml": {Data: []byte(`
role: mechanic
steps:
  - id: personal
    title: Personal
    fields:
      - key: first_name
        kind: text
        rules:
          - kind: min_length
            value: three
  - id: review
    title: Review
    review: true
`)},
	}

	reg := registry.New()
	if err := reg.LoadFS(fsys); !errors.Is(err, registry.ErrInvalidSchema) {
		t.Fatalf("expected ErrInvalidSchema, got %v", err)
	}
	if _, err := reg.Schema("mechanic"); err == nil {
		t.Fatalf("broken schema must not be registered")
	}
}
