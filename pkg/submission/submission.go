// Package submission assembles the outbound payload from wizard state and
// encodes it for the wire.
package submission

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"sort"
	"strings"

	"github.com/goliatone/go-onboarding/pkg/model"
)

const (
	// DefaultRoleKey is the field carrying the resolved role.
	DefaultRoleKey = "role"
	// DefaultSchoolKey is the field carrying the school identifier.
	DefaultSchoolKey = "school_id"
)

var (
	// ErrNoRole is returned when the state has no role to submit.
	ErrNoRole = errors.New("submission: role is required")
	// ErrNoSchool is returned when neither state nor options name a school.
	ErrNoSchool = errors.New("submission: school is required")
)

// Options tunes Assemble.
type Options struct {
	DefaultSchool string
	RoleKey       string
	SchoolKey     string
}

func (o Options) withDefaults() Options {
	if strings.TrimSpace(o.RoleKey) == "" {
		o.RoleKey = DefaultRoleKey
	}
	if strings.TrimSpace(o.SchoolKey) == "" {
		o.SchoolKey = DefaultSchoolKey
	}
	return o
}

// Payload is the wire-ready submission: flat string fields plus newly
// selected files.
type Payload struct {
	Fields map[string]string
	Files  map[string]model.File
}

// Assemble builds the payload for schema from state. File and confirmation
// fields never enter Fields; whitespace-only values are omitted; only new
// files are attached. Role and school are always present.
func Assemble(schema model.RoleSchema, state *model.WizardState, opts Options) (Payload, error) {
	opts = opts.withDefaults()
	if state == nil {
		state = model.NewState()
	}
	payload := Payload{
		Fields: make(map[string]string),
		Files:  make(map[string]model.File),
	}

	for _, field := range schema.Fields() {
		value, ok := state.Value(field.Key)
		switch field.Kind {
		case model.KindPasswordConfirm:
			continue
		case model.KindFile:
			if file, ok := state.File(field.Key); ok {
				payload.Files[field.Key] = file
			}
			continue
		}
		if !ok {
			continue
		}
		if text, ok := encode(field, value); ok {
			payload.Fields[field.Key] = text
		}
	}

	role := strings.TrimSpace(state.Role)
	if role == "" {
		role = strings.TrimSpace(schema.Role)
	}
	if role == "" {
		return Payload{}, ErrNoRole
	}
	payload.Fields[opts.RoleKey] = role

	if strings.TrimSpace(payload.Fields[opts.SchoolKey]) == "" {
		school := strings.TrimSpace(opts.DefaultSchool)
		if school == "" {
			return Payload{}, ErrNoSchool
		}
		payload.Fields[opts.SchoolKey] = school
	}
	return payload, nil
}

func encode(field model.FieldDefinition, value any) (string, bool) {
	switch typed := value.(type) {
	case nil, model.File, *model.File:
		return "", false
	case string:
		if field.Kind == model.KindPassword {
			return typed, strings.TrimSpace(typed) != ""
		}
		trimmed := strings.TrimSpace(typed)
		return trimmed, trimmed != ""
	case []string:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			if trimmed := strings.TrimSpace(item); trimmed != "" {
				items = append(items, trimmed)
			}
		}
		return strings.Join(items, ","), len(items) > 0
	case []any:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			if trimmed := strings.TrimSpace(model.Stringify(item)); trimmed != "" {
				items = append(items, trimmed)
			}
		}
		return strings.Join(items, ","), len(items) > 0
	default:
		text := strings.TrimSpace(model.Stringify(typed))
		return text, text != ""
	}
}

// Keys returns the field names in sorted order.
func (p Payload) Keys() []string {
	keys := make([]string, 0, len(p.Fields))
	for key := range p.Fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// quoteEscaper escapes Content-Disposition parameters the way mime/multipart
// does.
var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// WriteMultipart encodes the payload as multipart/form-data and returns the
// content type including the boundary. Parts are written in key order.
func (p Payload) WriteMultipart(w io.Writer) (string, error) {
	mw := multipart.NewWriter(w)
	for _, key := range p.Keys() {
		if err := mw.WriteField(key, p.Fields[key]); err != nil {
			return "", fmt.Errorf("submission: write field %q: %w", key, err)
		}
	}

	fileKeys := make([]string, 0, len(p.Files))
	for key := range p.Files {
		fileKeys = append(fileKeys, key)
	}
	sort.Strings(fileKeys)
	for _, key := range fileKeys {
		file := p.Files[key]
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, quoteEscaper.Replace(key), quoteEscaper.Replace(file.Name)))
		contentType := strings.TrimSpace(file.ContentType)
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		header.Set("Content-Type", contentType)
		part, err := mw.CreatePart(header)
		if err != nil {
			return "", fmt.Errorf("submission: create part %q: %w", key, err)
		}
		if _, err := io.Copy(part, bytes.NewReader(file.Data)); err != nil {
			return "", fmt.Errorf("submission: write file %q: %w", key, err)
		}
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("submission: close multipart: %w", err)
	}
	return mw.FormDataContentType(), nil
}

type jsonFile struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type,omitempty"`
	Size        int    `json:"size"`
}

// JSON renders the payload for logs and dry runs. File contents are
// replaced by their metadata and password values are masked.
func (p Payload) JSON() ([]byte, error) {
	doc := struct {
		Fields map[string]string   `json:"fields"`
		Files  map[string]jsonFile `json:"files,omitempty"`
	}{Fields: make(map[string]string, len(p.Fields))}
	for key, value := range p.Fields {
		if strings.Contains(strings.ToLower(key), "password") {
			value = "********"
		}
		doc.Fields[key] = value
	}
	if len(p.Files) > 0 {
		doc.Files = make(map[string]jsonFile, len(p.Files))
		for key, file := range p.Files {
			doc.Files[key] = jsonFile{Name: file.Name, ContentType: file.ContentType, Size: len(file.Data)}
		}
	}
	return json.MarshalIndent(doc, "", "  ")
}
