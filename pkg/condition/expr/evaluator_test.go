package expr

import (
	"testing"

	"github.com/goliatone/go-onboarding/pkg/condition"
)

func TestEvaluatorEditModeAndRole(t *testing.T) {
	t.Parallel()

	eval := New()

	cases := []struct {
		name string
		rule string
		ctx  condition.Context
		want bool
	}{
		{"empty rule holds", "", condition.Context{}, true},
		{"unless edit, creating", "!mode.edit", condition.Context{}, true},
		{"unless edit, editing", "!mode.edit", condition.Context{EditMode: true}, false},
		{"role match", `role == "driver"`, condition.Context{Role: "driver"}, true},
		{"role mismatch", `role == "driver"`, condition.Context{Role: "conductor"}, false},
		{"bare identifier literal", `role != conductor`, condition.Context{Role: "driver"}, true},
		{"composition", `!mode.edit && role == 'driver'`, condition.Context{Role: "driver"}, true},
		{"parentheses", `(has_license || role == "driver") && !mode.edit`, condition.Context{
			Role:   "staff",
			Values: map[string]any{"has_license": "true"},
		}, true},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := eval.Eval(tc.rule, tc.ctx)
			if err != nil {
				t.Fatalf("Eval returned error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("Eval(%q) = %v, want %v", tc.rule, got, tc.want)
			}
		})
	}
}

func TestEvaluatorLiterals(t *testing.T) {
	t.Parallel()

	eval := New()
	ctx := condition.Context{Values: map[string]any{
		"experience_years": "3",
		"night_shift":      false,
	}}

	ok, err := eval.Eval("experience_years == 3", ctx)
	if err != nil || !ok {
		t.Fatalf("expected numeric string to equal literal, got %v (%v)", ok, err)
	}
	ok, err = eval.Eval("night_shift == false", ctx)
	if err != nil || !ok {
		t.Fatalf("expected false flag to equal false, got %v (%v)", ok, err)
	}
	ok, err = eval.Eval("missing == null", ctx)
	if err != nil || !ok {
		t.Fatalf("expected missing value to equal null, got %v (%v)", ok, err)
	}
	ok, err = eval.Eval("night_shift != null", ctx)
	if err != nil || !ok {
		t.Fatalf("expected present value to differ from null, got %v (%v)", ok, err)
	}
}

func TestEvaluatorSyntaxErrors(t *testing.T) {
	t.Parallel()

	for _, rule := range []string{
		`role = "driver"`,
		`role == "driver`,
		`(role == "driver"`,
		`role ==`,
		`&& role`,
	} {
		if _, err := New().Eval(rule, condition.Context{}); err == nil {
			t.Fatalf("expected error for %q", rule)
		}
	}
}

func TestCompileIsReusable(t *testing.T) {
	t.Parallel()

	pred, err := Compile(`role == "driver"`)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	first, _ := pred.Eval(condition.Context{Role: "driver"})
	second, _ := pred.Eval(condition.Context{Role: "staff"})
	if !first || second {
		t.Fatalf("predicate must be re-evaluated per context, got %v then %v", first, second)
	}
}
