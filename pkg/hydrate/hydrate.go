// Package hydrate translates between the nested record shape returned by the
// Record API and the flat field map held in wizard state.
package hydrate

import (
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-onboarding/pkg/model"
	"github.com/goliatone/go-onboarding/pkg/validation"
)

// ProfileKey names the nested sub-object flattened into the top level.
const ProfileKey = "profile"

const (
	idKey   = "id"
	roleKey = "role"
)

// Result is the partial wizard state recovered from a record.
type Result struct {
	Role        string
	RecordID    string
	Values      map[string]any
	Attachments map[string]string
}

// Hydrate flattens record and projects it onto the fields of schema.
// Profile values win over top-level duplicates only when the profile value
// is non-empty. Absent or null sources never produce a key. Calling Hydrate
// twice on the same record yields equal results.
func Hydrate(schema model.RoleSchema, record map[string]any) Result {
	result := Result{
		Values:      make(map[string]any),
		Attachments: make(map[string]string),
	}
	if len(record) == 0 {
		return result
	}

	flat := Flatten(record)
	result.RecordID = scalar(flat[idKey])
	result.Role = scalar(flat[roleKey])

	for _, field := range schema.Fields() {
		raw, ok := flat[field.Key]
		if !ok || raw == nil {
			continue
		}
		switch field.Kind {
		case model.KindFile:
			if ref := attachmentRef(raw); ref != "" {
				result.Attachments[field.Key] = ref
			}
		case model.KindPassword, model.KindPasswordConfirm:
			// secrets are never read back into the form
		case model.KindBoolean:
			if b, ok := toBool(raw); ok {
				result.Values[field.Key] = b
			}
		case model.KindDate:
			if date, ok := validation.ParseDate(raw); ok {
				result.Values[field.Key] = date.Format(time.DateOnly)
			} else if s, ok := raw.(string); ok {
				result.Values[field.Key] = strings.TrimSpace(s)
			}
		case model.KindEnum:
			if field.Multiple {
				if items := toList(raw); len(items) > 0 {
					result.Values[field.Key] = items
				}
				continue
			}
			result.Values[field.Key] = scalar(raw)
		default:
			if s, ok := raw.(string); ok {
				result.Values[field.Key] = s
				continue
			}
			result.Values[field.Key] = raw
		}
	}
	return result
}

// Flatten merges the profile sub-object into a copy of the top level.
func Flatten(record map[string]any) map[string]any {
	flat := make(map[string]any, len(record))
	for key, value := range record {
		if key == ProfileKey || value == nil {
			continue
		}
		flat[key] = value
	}
	profile, _ := record[ProfileKey].(map[string]any)
	for key, value := range profile {
		if value == nil {
			continue
		}
		if _, exists := flat[key]; exists && model.IsEmptyValue(value) {
			continue
		}
		flat[key] = value
	}
	return flat
}

// Dehydrate renders state as a flat server field map. Empty values are
// omitted, multi-values are joined with ", " and existing attachment
// references are carried for file fields without a new file.
func Dehydrate(state *model.WizardState) map[string]any {
	out := make(map[string]any)
	if state == nil {
		return out
	}
	if id := strings.TrimSpace(state.RecordID); id != "" {
		out[idKey] = id
	}
	if role := strings.TrimSpace(state.Role); role != "" {
		out[roleKey] = role
	}
	for key, value := range state.Values {
		if model.IsEmptyValue(value) {
			continue
		}
		switch typed := value.(type) {
		case model.File, *model.File:
			continue
		case string:
			out[key] = strings.TrimSpace(typed)
		case []string:
			out[key] = strings.Join(validation.SplitList(strings.Join(typed, ",")), ", ")
		case []any:
			items := make([]string, 0, len(typed))
			for _, item := range typed {
				items = append(items, model.Stringify(item))
			}
			out[key] = strings.Join(validation.SplitList(strings.Join(items, ",")), ", ")
		default:
			out[key] = typed
		}
	}
	for key, ref := range state.Attachments {
		if _, ok := out[key]; ok {
			continue
		}
		if trimmed := strings.TrimSpace(ref); trimmed != "" {
			out[key] = trimmed
		}
	}
	return out
}

func scalar(v any) string {
	switch typed := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(typed)
	case float64:
		if typed == float64(int64(typed)) {
			return strconv.FormatInt(int64(typed), 10)
		}
	}
	return strings.TrimSpace(model.Stringify(v))
}

func toBool(v any) (bool, bool) {
	switch typed := v.(type) {
	case bool:
		return typed, true
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(typed))
		return parsed, err == nil
	case float64:
		return typed != 0, true
	case int:
		return typed != 0, true
	default:
		return false, false
	}
}

func toList(v any) []string {
	switch typed := v.(type) {
	case string:
		return validation.SplitList(typed)
	case []string:
		return validation.SplitList(strings.Join(typed, ","))
	case []any:
		var out []string
		for _, item := range typed {
			if s := strings.TrimSpace(model.Stringify(item)); s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		return validation.SplitList(model.Stringify(v))
	}
}

// attachmentRef accepts a bare reference or an object carrying a url.
func attachmentRef(v any) string {
	switch typed := v.(type) {
	case string:
		return strings.TrimSpace(typed)
	case map[string]any:
		for _, key := range []string{"url", "href", "path"} {
			if s, ok := typed[key].(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		}
	}
	return ""
}
