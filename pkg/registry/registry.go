package registry

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/goliatone/go-onboarding/pkg/condition/expr"
	"github.com/goliatone/go-onboarding/pkg/model"
	"github.com/goliatone/go-onboarding/pkg/validation"
)

// FallbackRole is the generic schema served for roles without their own
// table.
const FallbackRole = "staff"

var (
	// ErrRoleNotFound is returned when no schema is registered for a role.
	ErrRoleNotFound = errors.New("registry: role not found")
	// ErrInvalidSchema wraps load-time invariant violations.
	ErrInvalidSchema = errors.New("registry: invalid schema")
)

// Registry is a read-mostly table of role schemas. Lookups never mutate the
// registry and perform no I/O.
type Registry struct {
	mu       sync.RWMutex
	schemas  map[string]model.RoleSchema
	order    []string
	fallback string
}

// Option configures a Registry.
type Option func(*Registry)

// WithFallback overrides the role served by Resolve for unknown roles.
func WithFallback(role string) Option {
	return func(r *Registry) {
		if trimmed := strings.TrimSpace(role); trimmed != "" {
			r.fallback = trimmed
		}
	}
}

// New constructs an empty registry.
func New(options ...Option) *Registry {
	r := &Registry{
		schemas:  make(map[string]model.RoleSchema),
		fallback: FallbackRole,
	}
	for _, opt := range options {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// NewDefault constructs a registry preloaded with the bundled driver,
// conductor and staff schemas.
func NewDefault(options ...Option) (*Registry, error) {
	r := New(options...)
	if err := r.LoadFS(EmbeddedFS()); err != nil {
		return nil, err
	}
	return r, nil
}

// Register validates and stores schema. Registering a role twice is an
// error; step ordering is fixed from this point on.
func (r *Registry) Register(schema model.RoleSchema) error {
	if r == nil {
		return errors.New("registry: registry is nil")
	}
	schema.Role = strings.TrimSpace(schema.Role)
	if err := Validate(schema); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.schemas[schema.Role]; exists {
		return fmt.Errorf("%w: duplicate role %q", ErrInvalidSchema, schema.Role)
	}
	r.schemas[schema.Role] = cloneSchema(schema)
	r.order = append(r.order, schema.Role)
	return nil
}

// Schema returns the schema registered for role.
func (r *Registry) Schema(role string) (model.RoleSchema, error) {
	if r == nil {
		return model.RoleSchema{}, ErrRoleNotFound
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	schema, ok := r.schemas[strings.TrimSpace(role)]
	if !ok {
		return model.RoleSchema{}, fmt.Errorf("%w: %q", ErrRoleNotFound, role)
	}
	return schema, nil
}

// Resolve returns the schema for role, falling back to the generic schema
// when the role is not yet supported. The returned schema keeps the
// requested role identifier.
func (r *Registry) Resolve(role string) (model.RoleSchema, error) {
	schema, err := r.Schema(role)
	if err == nil {
		return schema, nil
	}
	if !errors.Is(err, ErrRoleNotFound) {
		return model.RoleSchema{}, err
	}
	generic, ferr := r.Schema(r.fallback)
	if ferr != nil {
		return model.RoleSchema{}, err
	}
	generic.Role = strings.TrimSpace(role)
	return generic, nil
}

// Roles lists registered roles in registration order.
func (r *Registry) Roles() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Validate checks the structural invariants of a role schema.
func Validate(schema model.RoleSchema) error {
	if strings.TrimSpace(schema.Role) == "" {
		return fmt.Errorf("%w: role identifier is required", ErrInvalidSchema)
	}
	if len(schema.Steps) == 0 {
		return fmt.Errorf("%w: role %q has no steps", ErrInvalidSchema, schema.Role)
	}

	reviews := 0
	for idx, step := range schema.Steps {
		if step.Review {
			reviews++
			if idx != len(schema.Steps)-1 {
				return fmt.Errorf("%w: role %q review step %q must be last", ErrInvalidSchema, schema.Role, step.ID)
			}
		}
	}
	if reviews != 1 {
		return fmt.Errorf("%w: role %q must declare exactly one review step, found %d", ErrInvalidSchema, schema.Role, reviews)
	}

	owners := make(map[string]string)
	shared := make(map[string]bool)
	kinds := make(map[string]model.FieldKind)
	for _, step := range schema.Steps {
		local := make(map[string]struct{})
		for _, field := range step.Fields {
			key := strings.TrimSpace(field.Key)
			if key == "" {
				return fmt.Errorf("%w: role %q step %q has a field without key", ErrInvalidSchema, schema.Role, step.ID)
			}
			if _, dup := local[key]; dup {
				return fmt.Errorf("%w: role %q step %q declares %q twice", ErrInvalidSchema, schema.Role, step.ID, key)
			}
			local[key] = struct{}{}
			if owner, seen := owners[key]; seen && !(field.Shared && shared[key]) {
				return fmt.Errorf("%w: role %q field %q appears in steps %q and %q", ErrInvalidSchema, schema.Role, key, owner, step.ID)
			}
			owners[key] = step.ID
			shared[key] = field.Shared
			kinds[key] = field.Kind
			if err := validateField(field); err != nil {
				return fmt.Errorf("%w: role %q field %q: %v", ErrInvalidSchema, schema.Role, key, err)
			}
		}
	}

	for _, step := range schema.Steps {
		for _, field := range step.Fields {
			for _, rule := range field.Rules {
				if rule.Kind != model.RuleEquals {
					continue
				}
				if _, ok := kinds[strings.TrimSpace(rule.Value)]; !ok {
					return fmt.Errorf("%w: role %q field %q must equal unknown field %q", ErrInvalidSchema, schema.Role, field.Key, rule.Value)
				}
			}
		}
		for _, item := range step.Verification {
			if kinds[item.FlagKey] != model.KindBoolean {
				return fmt.Errorf("%w: role %q item %q flag %q must be a boolean field", ErrInvalidSchema, schema.Role, item.ID, item.FlagKey)
			}
			if kinds[item.FileKey] != model.KindFile {
				return fmt.Errorf("%w: role %q item %q file %q must be a file field", ErrInvalidSchema, schema.Role, item.ID, item.FileKey)
			}
		}
	}
	return nil
}

func validateField(field model.FieldDefinition) error {
	switch field.Kind {
	case model.KindText, model.KindNumber, model.KindDate, model.KindEnum, model.KindBoolean,
		model.KindFile, model.KindPassword, model.KindPasswordConfirm, model.KindEmail, model.KindPhone:
	default:
		return fmt.Errorf("unknown kind %q", field.Kind)
	}
	if field.Kind == model.KindEnum && len(field.Options) == 0 {
		return errors.New("enum field requires options")
	}
	if _, err := expr.Compile(field.RequiredIf); err != nil {
		return fmt.Errorf("required_if: %w", err)
	}
	for _, rule := range field.Rules {
		switch rule.Kind {
		case model.RulePattern:
			if _, err := regexp.Compile(rule.Value); err != nil {
				return fmt.Errorf("pattern: %w", err)
			}
		case model.RuleEquals:
			if strings.TrimSpace(rule.Value) == "" {
				return errors.New("equals rule requires the other field key")
			}
		case model.RuleMinLength, model.RuleMaxLength:
			if n, err := strconv.Atoi(rule.Value); err != nil || n < 0 {
				return fmt.Errorf("%s rule requires a non-negative integer, got %q", rule.Kind, rule.Value)
			}
		case model.RuleMin, model.RuleMax:
			if _, err := strconv.ParseFloat(rule.Value, 64); err != nil {
				return fmt.Errorf("%s rule requires a number, got %q", rule.Kind, rule.Value)
			}
		case model.RuleBefore, model.RuleAfter:
			if !strings.EqualFold(strings.TrimSpace(rule.Value), "today") {
				if _, ok := validation.ParseDate(rule.Value); !ok {
					return fmt.Errorf("%s rule requires today or a YYYY-MM-DD date, got %q", rule.Kind, rule.Value)
				}
			}
		case model.RulePhone, model.RuleEmail:
		default:
			return fmt.Errorf("unknown rule %q", rule.Kind)
		}
	}
	return nil
}

func cloneSchema(src model.RoleSchema) model.RoleSchema {
	out := src
	out.Steps = make([]model.StepDefinition, len(src.Steps))
	for i, step := range src.Steps {
		cloned := step
		cloned.Fields = make([]model.FieldDefinition, len(step.Fields))
		for j, field := range step.Fields {
			field.Options = append([]string(nil), field.Options...)
			field.Rules = append([]model.Rule(nil), field.Rules...)
			cloned.Fields[j] = field
		}
		cloned.Verification = append([]model.VerificationItem(nil), step.Verification...)
		out.Steps[i] = cloned
	}
	return out
}
