// Package errmap translates server validation payloads into per-field and
// global messages. Mapping never panics; unrecognisable input yields a single
// fallback message.
package errmap

import (
	"bytes"
	"encoding/json"
	"html"
	"sort"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/goliatone/go-onboarding/pkg/model"
)

// FallbackMessage is produced when nothing recognisable is found.
const FallbackMessage = "Something went wrong while saving. Please try again."

const nonFieldLabel = "Error"

var strict = bluemonday.StrictPolicy()

// Mapping splits server messages into field-level and form-level groups.
type Mapping struct {
	Global   []string
	PerField map[string][]string
}

// Empty reports whether the mapping carries no messages.
func (m Mapping) Empty() bool {
	return len(m.Global) == 0 && len(m.PerField) == 0
}

// Keys returns the field keys in sorted order.
func (m Mapping) Keys() []string {
	keys := make([]string, 0, len(m.PerField))
	for key := range m.PerField {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Messages flattens the mapping into display strings: global messages first,
// then field messages prefixed with the label returned by labeler. A nil
// labeler humanises the key.
func (m Mapping) Messages(labeler func(key string) string) []string {
	if labeler == nil {
		labeler = Humanize
	}
	out := append([]string(nil), m.Global...)
	for _, key := range m.Keys() {
		label := strings.TrimSpace(labeler(key))
		for _, msg := range m.PerField[key] {
			if label == "" {
				out = append(out, msg)
				continue
			}
			out = append(out, label+": "+msg)
		}
	}
	return out
}

// Map interprets payload. Accepted shapes: string, JSON bytes, error,
// map[string]any, map[string][]string, map[string]string and lists of
// messages. known reports whether a key names a field of the active schema.
func Map(payload any, known func(string) bool) (mapping Mapping) {
	defer func() {
		if recover() != nil {
			mapping = Mapping{Global: []string{FallbackMessage}}
		}
	}()
	if known == nil {
		known = func(string) bool { return false }
	}

	b := &builder{known: known, perField: make(map[string][]string)}
	b.payload(payload)

	mapping.Global = normalizeMessages(b.global)
	for key, messages := range b.perField {
		if normalized := normalizeMessages(messages); len(normalized) > 0 {
			if mapping.PerField == nil {
				mapping.PerField = make(map[string][]string)
			}
			mapping.PerField[key] = normalized
		}
	}
	if mapping.Empty() {
		mapping.Global = []string{FallbackMessage}
	}
	return mapping
}

// Humanize turns a field key into a label: separators become spaces and
// words are title-cased.
func Humanize(key string) string {
	if isNonFieldKey(key) {
		return nonFieldLabel
	}
	words := strings.FieldsFunc(key, func(r rune) bool {
		return r == '_' || r == '-' || r == '.' || r == '/' || r == ' '
	})
	return cases.Title(language.English).String(strings.Join(words, " "))
}

type builder struct {
	known    func(string) bool
	global   []string
	perField map[string][]string
}

func (b *builder) payload(payload any) {
	switch typed := payload.(type) {
	case nil:
	case string:
		b.text(typed)
	case []byte:
		b.text(string(typed))
	case json.RawMessage:
		b.text(string(typed))
	case error:
		b.global = append(b.global, sanitize(typed.Error()))
	case map[string]any:
		b.object(typed)
	case map[string][]string:
		obj := make(map[string]any, len(typed))
		for key, messages := range typed {
			obj[key] = messages
		}
		b.object(obj)
	case map[string]string:
		obj := make(map[string]any, len(typed))
		for key, message := range typed {
			obj[key] = message
		}
		b.object(obj)
	case []string, []any:
		b.global = append(b.global, messagesOf(typed)...)
	}
}

func (b *builder) text(raw string) {
	trimmed := bytes.TrimSpace([]byte(raw))
	if len(trimmed) == 0 {
		return
	}
	if trimmed[0] == '{' || trimmed[0] == '[' || trimmed[0] == '"' {
		var decoded any
		if err := json.Unmarshal(trimmed, &decoded); err == nil {
			b.payload(decoded)
			return
		}
	}
	b.global = append(b.global, sanitize(string(trimmed)))
}

// object maps one JSON object. A top-level message or detail becomes a
// global message and stands in for unknown sibling keys; known field keys
// are always kept.
func (b *builder) object(obj map[string]any) {
	summary := false
	for _, key := range []string{"message", "detail"} {
		if msg, ok := obj[key].(string); ok && strings.TrimSpace(msg) != "" {
			b.global = append(b.global, sanitize(msg))
			summary = true
			break
		}
	}
	if nested, ok := obj["errors"].(map[string]any); ok {
		b.object(nested)
		return
	}

	keys := make([]string, 0, len(obj))
	for key := range obj {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := obj[key]
		if nested, ok := value.(map[string]any); ok {
			b.object(nested)
			continue
		}
		messages := messagesOf(value)
		if len(messages) == 0 {
			continue
		}
		field := strings.TrimSpace(key)
		switch {
		case b.known(field):
			b.perField[field] = append(b.perField[field], messages...)
		case summary:
		default:
			label := Humanize(field)
			for _, msg := range messages {
				if label == "" {
					b.global = append(b.global, msg)
					continue
				}
				b.global = append(b.global, label+": "+msg)
			}
		}
	}
}

func messagesOf(value any) []string {
	switch typed := value.(type) {
	case nil:
		return nil
	case string:
		return []string{sanitize(typed)}
	case []string:
		out := make([]string, 0, len(typed))
		for _, item := range typed {
			out = append(out, sanitize(item))
		}
		return out
	case []any:
		var out []string
		for _, item := range typed {
			out = append(out, messagesOf(item)...)
		}
		return out
	case map[string]any:
		var out []string
		for _, key := range []string{"message", "detail", "msg"} {
			if msg, ok := typed[key].(string); ok {
				out = append(out, sanitize(msg))
			}
		}
		return out
	default:
		return []string{sanitize(model.Stringify(typed))}
	}
}

func sanitize(message string) string {
	clean := html.UnescapeString(strict.Sanitize(message))
	return strings.Join(strings.Fields(clean), " ")
}

func normalizeMessages(messages []string) []string {
	if len(messages) == 0 {
		return nil
	}
	out := make([]string, 0, len(messages))
	seen := make(map[string]struct{}, len(messages))
	for _, message := range messages {
		trimmed := strings.TrimSpace(message)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func isNonFieldKey(key string) bool {
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "non_field_errors", "non-field-errors", "__all__":
		return true
	default:
		return false
	}
}
