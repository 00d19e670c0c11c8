// Package table is the micrograph list model: one row per micrograph with its
// displayed coordinate count.
package table

import (
	"path/filepath"
	"sync"

	"em-picker/internal/picking"
)

// Row is one micrograph line.
type Row struct {
	ID    int
	Name  string
	Count int
}

// Model holds the rows in insertion order. It satisfies picker.CountSink.
type Model struct {
	mu        sync.RWMutex
	rows      []Row
	index     map[int]int
	listeners []func(row int)
}

// New creates an empty table.
func New() *Model {
	return &Model{index: make(map[int]int)}
}

// Bind appends a row for every micrograph already in model and for every
// micrograph added later.
func (m *Model) Bind(model *picking.PickerDataModel) {
	for _, mic := range model.Micrographs() {
		m.Append(mic.ID(), mic.Path(), mic.Len())
	}
	model.OnMicrographAdded(func(mic *picking.Micrograph) {
		m.Append(mic.ID(), mic.Path(), mic.Len())
	})
	model.OnCoordinateChanged(func(ev picking.CoordinateEvent) {
		m.SetCount(ev.MicrographID, ev.Count)
	})
}

// Append adds a row. A second row for the same id is ignored.
func (m *Model) Append(id int, path string, count int) {
	m.mu.Lock()
	if _, ok := m.index[id]; ok {
		m.mu.Unlock()
		return
	}
	m.index[id] = len(m.rows)
	m.rows = append(m.rows, Row{ID: id, Name: filepath.Base(path), Count: count})
	row := len(m.rows) - 1
	m.mu.Unlock()

	m.emit(row)
}

// SetCount updates the count cell of micrograph id.
func (m *Model) SetCount(id, n int) {
	m.mu.Lock()
	row, ok := m.index[id]
	if !ok || m.rows[row].Count == n {
		m.mu.Unlock()
		return
	}
	m.rows[row].Count = n
	m.mu.Unlock()

	m.emit(row)
}

// Row returns row i.
func (m *Model) Row(i int) (Row, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if i < 0 || i >= len(m.rows) {
		return Row{}, false
	}
	return m.rows[i], true
}

// Len returns the number of rows.
func (m *Model) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rows)
}

// IndexOf returns the row of micrograph id, or -1.
func (m *Model) IndexOf(id int) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if row, ok := m.index[id]; ok {
		return row
	}
	return -1
}

// OnChanged registers a callback for inserted or updated rows.
func (m *Model) OnChanged(fn func(row int)) {
	m.mu.Lock()
	m.listeners = append(m.listeners, fn)
	m.mu.Unlock()
}

func (m *Model) emit(row int) {
	m.mu.RLock()
	listeners := m.listeners
	m.mu.RUnlock()
	for _, fn := range listeners {
		fn(row)
	}
}
