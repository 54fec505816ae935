package model

import "strings"

// FieldKind is the simplified enum for wizard field kinds.
type FieldKind string

const (
	KindText            FieldKind = "text"
	KindNumber          FieldKind = "number"
	KindDate            FieldKind = "date"
	KindEnum            FieldKind = "enum"
	KindBoolean         FieldKind = "boolean"
	KindFile            FieldKind = "file"
	KindPassword        FieldKind = "password"
	KindPasswordConfirm FieldKind = "password_confirm"
	KindEmail           FieldKind = "email"
	KindPhone           FieldKind = "phone"
)

const (
	RulePattern   = "pattern"
	RuleMinLength = "min_length"
	RuleMaxLength = "max_length"
	RuleMin       = "min"
	RuleMax       = "max"
	RulePhone     = "phone"
	RuleEmail     = "email"
	RuleEquals    = "equals"
	RuleBefore    = "before"
	RuleAfter     = "after"
)

// Rule represents a single validation constraint applied to a field. Numeric
// bounds, lengths and date bounds encode their threshold in Value; pattern
// rules keep the raw expression; equals rules name the other field key.
type Rule struct {
	Kind    string `yaml:"kind" json:"kind"`
	Value   string `yaml:"value,omitempty" json:"value,omitempty"`
	Message string `yaml:"message,omitempty" json:"message,omitempty"`
}

// FieldDefinition models a single input collected by the wizard.
type FieldDefinition struct {
	Key        string    `yaml:"key" json:"key"`
	Label      string    `yaml:"label,omitempty" json:"label,omitempty"`
	Kind       FieldKind `yaml:"kind" json:"kind"`
	Required   bool      `yaml:"required,omitempty" json:"required,omitempty"`
	RequiredIf string    `yaml:"required_if,omitempty" json:"requiredIf,omitempty"`
	Shared     bool      `yaml:"shared,omitempty" json:"shared,omitempty"`
	Multiple   bool      `yaml:"multiple,omitempty" json:"multiple,omitempty"`
	Options    []string  `yaml:"options,omitempty" json:"options,omitempty"`
	Default    any       `yaml:"default,omitempty" json:"default,omitempty"`
	Help       string    `yaml:"help,omitempty" json:"help,omitempty"`
	Rules      []Rule    `yaml:"rules,omitempty" json:"rules,omitempty"`
}

// DisplayLabel returns the label, falling back to the key.
func (f FieldDefinition) DisplayLabel() string {
	if label := strings.TrimSpace(f.Label); label != "" {
		return label
	}
	return f.Key
}

// VerificationItem couples an attestation flag with the document that backs
// it. The item is satisfied only when the flag is set and a document is
// available, either freshly selected or already on file.
type VerificationItem struct {
	ID      string `yaml:"id" json:"id"`
	Label   string `yaml:"label" json:"label"`
	FlagKey string `yaml:"flag" json:"flag"`
	FileKey string `yaml:"file" json:"file"`
}

// StepDefinition is one screen of the wizard.
type StepDefinition struct {
	ID           string             `yaml:"id" json:"id"`
	Title        string             `yaml:"title" json:"title"`
	Review       bool               `yaml:"review,omitempty" json:"review,omitempty"`
	Fields       []FieldDefinition  `yaml:"fields,omitempty" json:"fields,omitempty"`
	Verification []VerificationItem `yaml:"verification,omitempty" json:"verification,omitempty"`
}

// RoleSchema is the ordered step table for a selectable role.
type RoleSchema struct {
	Role  string           `yaml:"role" json:"role"`
	Label string           `yaml:"label,omitempty" json:"label,omitempty"`
	Steps []StepDefinition `yaml:"steps" json:"steps"`
}

// StepCount reports the number of steps.
func (s RoleSchema) StepCount() int {
	return len(s.Steps)
}

// Field returns the definition for key and whether it exists.
func (s RoleSchema) Field(key string) (FieldDefinition, bool) {
	for _, step := range s.Steps {
		for _, field := range step.Fields {
			if field.Key == key {
				return field, true
			}
		}
	}
	return FieldDefinition{}, false
}

// StepOf returns the index of the earliest step declaring key.
func (s RoleSchema) StepOf(key string) (int, bool) {
	for idx, step := range s.Steps {
		for _, field := range step.Fields {
			if field.Key == key {
				return idx, true
			}
		}
		for _, item := range step.Verification {
			if item.FlagKey == key || item.FileKey == key || item.ID == key {
				return idx, true
			}
		}
	}
	return 0, false
}

// Fields returns every field definition in step order. Shared fields that
// appear on several steps are returned once.
func (s RoleSchema) Fields() []FieldDefinition {
	var out []FieldDefinition
	seen := make(map[string]struct{})
	for _, step := range s.Steps {
		for _, field := range step.Fields {
			if _, ok := seen[field.Key]; ok {
				continue
			}
			seen[field.Key] = struct{}{}
			out = append(out, field)
		}
	}
	return out
}

// Defaults returns the default value map used to seed a new session.
func (s RoleSchema) Defaults() map[string]any {
	out := make(map[string]any)
	for _, field := range s.Fields() {
		if field.Default == nil {
			continue
		}
		out[field.Key] = field.Default
	}
	return out
}

// File is a freshly selected attachment.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Empty reports whether the handle carries no content.
func (f File) Empty() bool {
	return len(f.Data) == 0 && strings.TrimSpace(f.Name) == ""
}
