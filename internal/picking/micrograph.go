package picking

import (
	"fmt"
	"path/filepath"
)

// Micrograph is one source image plus its picked entries, kept in insertion order.
type Micrograph struct {
	id      int
	path    string
	entries []Entry
}

// NewMicrograph creates a micrograph populated from specs.
func NewMicrograph(id int, path string, specs ...CoordinateSpec) *Micrograph {
	m := &Micrograph{id: id, path: path}
	for _, s := range specs {
		m.entries = append(m.entries, s.Entry())
	}
	return m
}

// NewMicrographFromValues decodes positional rows (see SpecFromValues).
// A single malformed row fails the whole micrograph.
func NewMicrographFromValues(id int, path string, rows [][]any) (*Micrograph, error) {
	specs := make([]CoordinateSpec, 0, len(rows))
	for i, row := range rows {
		s, err := SpecFromValues(row...)
		if err != nil {
			return nil, fmt.Errorf("coordinate %d of %s: %w", i, filepath.Base(path), err)
		}
		specs = append(specs, s)
	}
	return NewMicrograph(id, path, specs...), nil
}

func (m *Micrograph) ID() int { return m.id }

func (m *Micrograph) SetID(id int) { m.id = id }

func (m *Micrograph) Path() string { return m.path }

func (m *Micrograph) SetPath(path string) { m.path = path }

// Name returns the base name of the micrograph path.
func (m *Micrograph) Name() string {
	return filepath.Base(m.path)
}

// Len returns the number of entries; a filament counts once.
func (m *Micrograph) Len() int {
	return len(m.entries)
}

// AddCoordinate appends an entry.
func (m *Micrograph) AddCoordinate(e Entry) {
	if e == nil {
		return
	}
	m.entries = append(m.entries, e)
}

// RemoveCoordinate removes the first occurrence of e (compared by identity).
// It reports whether anything was removed; an absent entry is a no-op.
func (m *Micrograph) RemoveCoordinate(e Entry) bool {
	if e == nil {
		return false
	}
	for i, cur := range m.entries {
		if cur == e {
			m.entries = append(m.entries[:i], m.entries[i+1:]...)
			return true
		}
	}
	return false
}

// Contains reports whether e is held by this micrograph.
func (m *Micrograph) Contains(e Entry) bool {
	for _, cur := range m.entries {
		if cur == e {
			return true
		}
	}
	return false
}

// Clear removes all entries.
func (m *Micrograph) Clear() {
	m.entries = nil
}

// Entries returns a copy of the entries in insertion order.
func (m *Micrograph) Entries() []Entry {
	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	return out
}

// Each calls fn for every entry in insertion order.
func (m *Micrograph) Each(fn func(i int, e Entry)) {
	for i, e := range m.entries {
		fn(i, e)
	}
}

// LabelCounts returns how many entries carry each label.
func (m *Micrograph) LabelCounts() map[string]int {
	counts := make(map[string]int)
	for _, e := range m.entries {
		counts[e.Label()]++
	}
	return counts
}
