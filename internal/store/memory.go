package store

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/trailhead-app/trailhead/internal/query"
)

// Accessor tells the generic memory store how to read and mutate one
// resource type without reflection.
type Accessor[T any] struct {
	// ID extracts the record identifier.
	ID func(T) uuid.UUID
	// Field resolves an exposed field name to its value, reported
	// with ok=false for unknown names.
	Field func(T, string) (any, bool)
	// Apply returns a copy of the record with the given fields set.
	Apply func(T, map[string]any) T
	// Project returns a copy narrowed to the projected fields, the
	// same way the SQL repositories select only projected columns.
	// Nil means records are returned whole.
	Project func(T, query.Projection) T
	// Unique optionally extracts a unique key (e.g. a normalized
	// email). Empty string disables the check.
	Unique func(T) string
	// Visible optionally hides records from reads, mirroring the
	// pre-filter the SQL repositories apply. Nil means all visible.
	Visible func(T) bool
}

// Memory is a generic, concurrency-safe in-memory Repository.
type Memory[T any] struct {
	mu      sync.RWMutex
	acc     Accessor[T]
	records map[uuid.UUID]T
	order   []uuid.UUID
}

// NewMemory builds an empty in-memory repository for one resource type.
func NewMemory[T any](acc Accessor[T]) *Memory[T] {
	return &Memory[T]{acc: acc, records: make(map[uuid.UUID]T)}
}

func (m *Memory[T]) visible(record T) bool {
	return m.acc.Visible == nil || m.acc.Visible(record)
}

// FindByID returns a visible record by id.
func (m *Memory[T]) FindByID(_ context.Context, id uuid.UUID) (T, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	record, ok := m.records[id]
	if !ok || !m.visible(record) {
		var zero T
		return zero, ErrNotFound
	}
	return record, nil
}

// Find applies the query spec's filters, sort, projection and
// pagination over the visible records.
func (m *Memory[T]) Find(_ context.Context, spec query.Spec) ([]T, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	matched := make([]T, 0, len(m.order))
	for _, id := range m.order {
		record := m.records[id]
		if !m.visible(record) {
			continue
		}
		if m.matches(record, spec.Filters) {
			matched = append(matched, record)
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		for _, order := range spec.Sort {
			a, aok := m.acc.Field(matched[i], order.Field)
			b, bok := m.acc.Field(matched[j], order.Field)
			if !aok || !bok {
				continue
			}
			c := compareValues(a, b)
			if c == 0 {
				continue
			}
			if order.Desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})

	start := spec.Offset()
	if start >= len(matched) {
		return []T{}, nil
	}
	end := start + spec.PageSize
	if end > len(matched) {
		end = len(matched)
	}
	page := matched[start:end]

	if m.acc.Project != nil && !spec.Projection.Empty() {
		projected := make([]T, len(page))
		for i, record := range page {
			projected[i] = m.acc.Project(record, spec.Projection)
		}
		return projected, nil
	}
	return page, nil
}

// Create inserts a record, enforcing the unique key when configured.
func (m *Memory[T]) Create(_ context.Context, record T) (T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var zero T
	if m.acc.Unique != nil {
		key := m.acc.Unique(record)
		if key != "" {
			for _, existing := range m.records {
				if m.acc.Unique(existing) == key {
					return zero, ErrDuplicate
				}
			}
		}
	}

	id := m.acc.ID(record)
	if _, exists := m.records[id]; exists {
		return zero, ErrDuplicate
	}
	m.records[id] = record
	m.order = append(m.order, id)
	return record, nil
}

// UpdateByID applies fields to the record and returns the new state.
// Unlike reads, updates do not honor the visibility pre-filter so a
// soft-deleted record can still be repaired.
func (m *Memory[T]) UpdateByID(_ context.Context, id uuid.UUID, fields map[string]any) (T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	record, ok := m.records[id]
	if !ok {
		var zero T
		return zero, ErrNotFound
	}

	updated := m.acc.Apply(record, fields)
	if m.acc.Unique != nil {
		key := m.acc.Unique(updated)
		if key != "" {
			for otherID, existing := range m.records {
				if otherID != id && m.acc.Unique(existing) == key {
					var zero T
					return zero, ErrDuplicate
				}
			}
		}
	}
	m.records[id] = updated
	return updated, nil
}

// DeleteByID removes the record entirely.
func (m *Memory[T]) DeleteByID(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.records[id]; !ok {
		return ErrNotFound
	}
	delete(m.records, id)
	for i, existing := range m.order {
		if existing == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

// All returns every record including hidden ones, for lookups that
// bypass the pre-filter (e.g. finding a deactivated identity by email).
func (m *Memory[T]) All() []T {
	m.mu.RLock()
	defer m.mu.RUnlock()

	records := make([]T, 0, len(m.order))
	for _, id := range m.order {
		records = append(records, m.records[id])
	}
	return records
}

func (m *Memory[T]) matches(record T, clauses []query.Clause) bool {
	for _, clause := range clauses {
		value, ok := m.acc.Field(record, clause.Field)
		if !ok {
			return false
		}
		c, comparable := compareWithRaw(value, clause.Value)
		if !comparable {
			return false
		}
		switch clause.Op {
		case query.OpEq:
			if c != 0 {
				return false
			}
		case query.OpGT:
			if c <= 0 {
				return false
			}
		case query.OpGTE:
			if c < 0 {
				return false
			}
		case query.OpLT:
			if c >= 0 {
				return false
			}
		case query.OpLTE:
			if c > 0 {
				return false
			}
		}
	}
	return true
}

// compareWithRaw compares a typed field value against the raw query
// string, reporting -1/0/1 and whether the pair was comparable.
func compareWithRaw(value any, raw string) (int, bool) {
	switch v := value.(type) {
	case time.Time:
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return 0, false
		}
		return v.Compare(parsed), true
	case bool:
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			return 0, false
		}
		if v == parsed {
			return 0, true
		}
		return 1, true
	case string:
		return strings.Compare(v, raw), true
	default:
		f, ok := toFloat(value)
		if !ok {
			return 0, false
		}
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return 0, false
		}
		return compareFloats(f, parsed), true
	}
}

func compareValues(a, b any) int {
	if at, ok := a.(time.Time); ok {
		if bt, ok := b.(time.Time); ok {
			return at.Compare(bt)
		}
	}
	if as, ok := a.(string); ok {
		if bs, ok := b.(string); ok {
			return strings.Compare(as, bs)
		}
	}
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		return compareFloats(af, bf)
	}
	return 0
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case float64:
		return v, true
	case float32:
		return float64(v), true
	default:
		return 0, false
	}
}

func compareFloats(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
