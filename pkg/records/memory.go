package records

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/goliatone/go-onboarding/pkg/model"
)

// Validator inspects an incoming write. existing is nil for creates.
// Returning a *ValidationError rejects the write.
type Validator func(fields map[string]string, existing Record) error

// Stats counts calls served by a Memory API.
type Stats struct {
	Gets    int
	Creates int
	Updates int
}

// Memory is an in-memory API. Keys listed through WithProfileKeys are stored
// under the nested "profile" object the way the remote service returns them.
type Memory struct {
	mu       sync.RWMutex
	table    map[string]Record
	validate Validator
	newID    func() string
	profile  map[string]struct{}
	stats    Stats
}

// MemoryOption configures a Memory API.
type MemoryOption func(*Memory)

// WithValidator installs a write validator.
func WithValidator(v Validator) MemoryOption {
	return func(m *Memory) {
		m.validate = v
	}
}

// WithIDGenerator replaces the uuid generator.
func WithIDGenerator(fn func() string) MemoryOption {
	return func(m *Memory) {
		if fn != nil {
			m.newID = fn
		}
	}
}

// WithProfileKeys nests the listed keys under the profile object.
func WithProfileKeys(keys ...string) MemoryOption {
	return func(m *Memory) {
		for _, key := range keys {
			if trimmed := strings.TrimSpace(key); trimmed != "" {
				m.profile[trimmed] = struct{}{}
			}
		}
	}
}

// WithRecord seeds a stored record. The record must carry an "id"; numeric
// ids are stored as their decimal string.
func WithRecord(record Record) MemoryOption {
	return func(m *Memory) {
		id := strings.TrimSpace(model.Stringify(record["id"]))
		if id == "" {
			return
		}
		stored := copyRecord(record)
		stored["id"] = id
		m.table[id] = stored
	}
}

// NewMemory constructs an empty in-memory API.
func NewMemory(options ...MemoryOption) *Memory {
	m := &Memory{
		table:   make(map[string]Record),
		newID:   uuid.NewString,
		profile: make(map[string]struct{}),
	}
	for _, opt := range options {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// Get returns a copy of the stored record.
func (m *Memory) Get(ctx context.Context, id string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.Gets++
	record, ok := m.table[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return copyRecord(record), nil
}

// Create stores a new record and returns its id.
func (m *Memory) Create(ctx context.Context, fields map[string]string, files map[string]model.File) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.Creates++
	if m.validate != nil {
		if err := m.validate(fields, nil); err != nil {
			return "", err
		}
	}
	id := m.newID()
	record := Record{"id": id}
	m.apply(record, id, fields, files)
	m.table[id] = record
	return id, nil
}

// Update merges fields into an existing record. Fields not sent keep their
// stored values.
func (m *Memory) Update(ctx context.Context, id string, fields map[string]string, files map[string]model.File) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.Updates++
	record, ok := m.table[id]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	if m.validate != nil {
		if err := m.validate(fields, copyRecord(record)); err != nil {
			return "", err
		}
	}
	m.apply(record, id, fields, files)
	return id, nil
}

// Stats returns the call counters.
func (m *Memory) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stats
}

// Len returns the number of stored records.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.table)
}

func (m *Memory) apply(record Record, id string, fields map[string]string, files map[string]model.File) {
	for key, value := range fields {
		if strings.Contains(strings.ToLower(key), "password") {
			continue
		}
		m.put(record, key, value)
	}
	for key, file := range files {
		if file.Empty() {
			continue
		}
		m.put(record, key, fmt.Sprintf("memory://%s/%s/%s", id, key, file.Name))
	}
}

func (m *Memory) put(record Record, key string, value any) {
	if _, nested := m.profile[key]; !nested {
		record[key] = value
		return
	}
	profile, _ := record["profile"].(map[string]any)
	if profile == nil {
		profile = make(map[string]any)
		record["profile"] = profile
	}
	profile[key] = value
}

func copyRecord(src Record) Record {
	out := make(Record, len(src))
	for key, value := range src {
		if nested, ok := value.(map[string]any); ok {
			clone := make(map[string]any, len(nested))
			for k, v := range nested {
				clone[k] = v
			}
			out[key] = clone
			continue
		}
		out[key] = value
	}
	return out
}
