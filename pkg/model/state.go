package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// WizardState tracks the session: selected role, step cursor, collected
// values, existing attachments and error annotations keyed by field.
type WizardState struct {
	Role        string
	Step        int
	EditMode    bool
	RecordID    string
	Values      map[string]any
	Attachments map[string]string
	Touched     map[string]struct{}
	Errors      map[string][]string
}

// NewState returns an empty state with initialised maps.
func NewState() *WizardState {
	return &WizardState{
		Values:      make(map[string]any),
		Attachments: make(map[string]string),
		Touched:     make(map[string]struct{}),
		Errors:      make(map[string][]string),
	}
}

// Clone returns a deep copy so readers never observe later mutations.
func (s *WizardState) Clone() *WizardState {
	if s == nil {
		return nil
	}
	out := &WizardState{
		Role:        s.Role,
		Step:        s.Step,
		EditMode:    s.EditMode,
		RecordID:    s.RecordID,
		Values:      make(map[string]any, len(s.Values)),
		Attachments: make(map[string]string, len(s.Attachments)),
		Touched:     make(map[string]struct{}, len(s.Touched)),
		Errors:      make(map[string][]string, len(s.Errors)),
	}
	for k, v := range s.Values {
		out.Values[k] = copyValue(v)
	}
	for k, v := range s.Attachments {
		out.Attachments[k] = v
	}
	for k := range s.Touched {
		out.Touched[k] = struct{}{}
	}
	for k, v := range s.Errors {
		out.Errors[k] = append([]string(nil), v...)
	}
	return out
}

// Value returns the raw value stored for key.
func (s *WizardState) Value(key string) (any, bool) {
	if s == nil || s.Values == nil {
		return nil, false
	}
	v, ok := s.Values[key]
	return v, ok
}

// String renders a scalar value as a string. Files and nil yield "".
func (s *WizardState) String(key string) string {
	v, _ := s.Value(key)
	return Stringify(v)
}

// Bool interprets the value for key as a boolean flag.
func (s *WizardState) Bool(key string) bool {
	v, _ := s.Value(key)
	switch typed := v.(type) {
	case bool:
		return typed
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(typed))
		return err == nil && parsed
	default:
		return false
	}
}

// File returns the new file handle for key, if one was selected.
func (s *WizardState) File(key string) (File, bool) {
	v, _ := s.Value(key)
	switch typed := v.(type) {
	case File:
		if typed.Empty() {
			return File{}, false
		}
		return typed, true
	case *File:
		if typed == nil || typed.Empty() {
			return File{}, false
		}
		return *typed, true
	default:
		return File{}, false
	}
}

// Attachment returns the existing attachment reference for key.
func (s *WizardState) Attachment(key string) (string, bool) {
	if s == nil || s.Attachments == nil {
		return "", false
	}
	ref := strings.TrimSpace(s.Attachments[key])
	return ref, ref != ""
}

// IsEmpty applies the absent-value rule: nil, whitespace-only strings, empty
// lists and empty file handles are absent. Booleans are never absent.
func (s *WizardState) IsEmpty(key string) bool {
	v, ok := s.Value(key)
	if !ok {
		return true
	}
	return IsEmptyValue(v)
}

// IsEmptyValue reports whether v counts as absent.
func IsEmptyValue(v any) bool {
	switch typed := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(typed) == ""
	case []string:
		for _, item := range typed {
			if strings.TrimSpace(item) != "" {
				return false
			}
		}
		return true
	case []any:
		return len(typed) == 0
	case File:
		return typed.Empty()
	case *File:
		return typed == nil || typed.Empty()
	default:
		return false
	}
}

// Stringify renders scalar values the way they travel on the wire.
func Stringify(v any) string {
	switch typed := v.(type) {
	case nil:
		return ""
	case string:
		return typed
	case bool:
		return strconv.FormatBool(typed)
	case int:
		return strconv.Itoa(typed)
	case int64:
		return strconv.FormatInt(typed, 10)
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(typed), 'f', -1, 32)
	case time.Time:
		return typed.Format(time.DateOnly)
	case []string:
		return strings.Join(typed, ",")
	case File, *File:
		return ""
	default:
		return fmt.Sprint(typed)
	}
}

func copyValue(v any) any {
	switch typed := v.(type) {
	case []string:
		return append([]string(nil), typed...)
	case []any:
		return append([]any(nil), typed...)
	case File:
		typed.Data = append([]byte(nil), typed.Data...)
		return typed
	case *File:
		if typed == nil {
			return typed
		}
		clone := *typed
		clone.Data = append([]byte(nil), typed.Data...)
		return clone
	default:
		return typed
	}
}
