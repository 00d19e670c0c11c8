package picking

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	// ErrDuplicateID is returned when registering a micrograph whose id is taken.
	ErrDuplicateID = errors.New("duplicate micrograph id")

	// ErrNoMicrograph is returned when an operation needs a micrograph that is not there.
	ErrNoMicrograph = errors.New("no such micrograph")
)

// ChangeKind tells what happened to a micrograph's coordinates.
type ChangeKind int

const (
	CoordinateAdded ChangeKind = iota
	CoordinateRemoved
	CoordinateMoved
	CoordinatesCleared
	CoordinatesLoaded
	CoordinateRelabeled
)

func (k ChangeKind) String() string {
	switch k {
	case CoordinateAdded:
		return "added"
	case CoordinateRemoved:
		return "removed"
	case CoordinateMoved:
		return "moved"
	case CoordinatesCleared:
		return "cleared"
	case CoordinatesLoaded:
		return "loaded"
	case CoordinateRelabeled:
		return "relabeled"
	default:
		return "unknown"
	}
}

// CoordinateEvent describes a coordinate mutation inside one micrograph.
type CoordinateEvent struct {
	MicrographID int
	Kind         ChangeKind
	Entries      []Entry // affected entries, may be empty for cleared/loaded
	Count        int     // micrograph length after the change
}

// PickerDataModel is the per-session store of micrographs, labels and box size.
type PickerDataModel struct {
	mu sync.RWMutex

	micrographs map[int]*Micrograph
	order       []int

	labels  map[string]Label
	aliases map[string]Label
	custom  []string // names added with AddLabel, in order

	boxSize    int
	hasBoxSize bool
	lastID     int

	coordListeners []func(CoordinateEvent)
	micListeners   []func(*Micrograph)
}

// NewPickerDataModel creates an empty model with the built-in labels.
func NewPickerDataModel() *PickerDataModel {
	byName, byAlias := builtinLabels()
	return &PickerDataModel{
		micrographs: make(map[int]*Micrograph),
		labels:      byName,
		aliases:     byAlias,
	}
}

// Len returns the number of micrographs.
func (m *PickerDataModel) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.micrographs)
}

// IDs returns micrograph ids in insertion order.
func (m *PickerDataModel) IDs() []int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]int, len(m.order))
	copy(out, m.order)
	return out
}

// Micrograph returns the micrograph with the given id.
func (m *PickerDataModel) Micrograph(id int) (*Micrograph, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	mic, ok := m.micrographs[id]
	return mic, ok
}

// Micrographs returns all micrographs in insertion order.
func (m *PickerDataModel) Micrographs() []*Micrograph {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Micrograph, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.micrographs[id])
	}
	return out
}

// NextID returns a fresh id. Ids strictly increase and are never reused.
func (m *PickerDataModel) NextID() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastID++
	return m.lastID
}

// CreateMicrograph allocates a new empty micrograph for path and returns its id.
func (m *PickerDataModel) CreateMicrograph(path string) int {
	id := m.NextID()
	mic := NewMicrograph(id, path)

	m.mu.Lock()
	m.micrographs[id] = mic
	m.order = append(m.order, id)
	m.mu.Unlock()

	m.emitMicrograph(mic)
	return id
}

// AddMicrograph is CreateMicrograph kept under its historical name.
func (m *PickerDataModel) AddMicrograph(path string) int {
	return m.CreateMicrograph(path)
}

// RegisterMicrograph inserts an already built micrograph keyed by its own id.
// A zero id is replaced with NextID. Ids above the allocator's high-water mark
// advance it so later NextID calls never collide.
func (m *PickerDataModel) RegisterMicrograph(mic *Micrograph) error {
	if mic == nil {
		return fmt.Errorf("register micrograph: %w", ErrNoMicrograph)
	}
	if mic.ID() == 0 {
		mic.SetID(m.NextID())
	}

	m.mu.Lock()
	if _, exists := m.micrographs[mic.ID()]; exists {
		m.mu.Unlock()
		return fmt.Errorf("register micrograph %d: %w", mic.ID(), ErrDuplicateID)
	}
	if mic.ID() > m.lastID {
		m.lastID = mic.ID()
	}
	m.micrographs[mic.ID()] = mic
	m.order = append(m.order, mic.ID())
	m.mu.Unlock()

	m.emitMicrograph(mic)
	return nil
}

// Label returns the label registered under name, then under an alias,
// and otherwise the Default label. It never fails.
func (m *PickerDataModel) Label(name string) Label {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if l, ok := m.labels[name]; ok {
		return l
	}
	if l, ok := m.aliases[name]; ok {
		return l
	}
	return m.aliases["D"]
}

// Labels returns the public labels: Auto, Manual, Default, then custom ones.
func (m *PickerDataModel) Labels() []Label {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []Label{m.labels[LabelAuto], m.labels[LabelManual], m.labels[LabelDefault]}
	for _, name := range m.custom {
		out = append(out, m.labels[name])
	}
	return out
}

// AddLabel registers or replaces a public label.
func (m *PickerDataModel) AddLabel(l Label) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.labels[l.Name]; !exists {
		m.custom = append(m.custom, l.Name)
	}
	m.labels[l.Name] = l
}

// SetBoxSize sets the box size shared by all micrographs.
func (m *PickerDataModel) SetBoxSize(size int) {
	m.mu.Lock()
	m.boxSize = size
	m.hasBoxSize = true
	m.mu.Unlock()
}

// BoxSize returns the box size and whether one was set.
func (m *PickerDataModel) BoxSize() (int, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.boxSize, m.hasBoxSize
}

// OnCoordinateChanged registers a listener for coordinate mutations.
func (m *PickerDataModel) OnCoordinateChanged(fn func(CoordinateEvent)) {
	m.mu.Lock()
	m.coordListeners = append(m.coordListeners, fn)
	m.mu.Unlock()
}

// OnMicrographAdded registers a listener for new micrographs.
func (m *PickerDataModel) OnMicrographAdded(fn func(*Micrograph)) {
	m.mu.Lock()
	m.micListeners = append(m.micListeners, fn)
	m.mu.Unlock()
}

// NotifyCoordinateChanged delivers ev to every coordinate listener.
// Mutating a Micrograph does not notify by itself; callers propagate explicitly.
func (m *PickerDataModel) NotifyCoordinateChanged(ev CoordinateEvent) {
	m.mu.RLock()
	listeners := m.coordListeners
	m.mu.RUnlock()

	for _, fn := range listeners {
		fn(ev)
	}
}

func (m *PickerDataModel) emitMicrograph(mic *Micrograph) {
	m.mu.RLock()
	listeners := m.micListeners
	m.mu.RUnlock()

	for _, fn := range listeners {
		fn(mic)
	}
}

// TotalCoordinates returns the number of entries over all micrographs.
func (m *PickerDataModel) TotalCoordinates() int {
	total := 0
	for _, mic := range m.Micrographs() {
		total += mic.Len()
	}
	return total
}

// LabelNames returns every label name in use by any micrograph, sorted.
func (m *PickerDataModel) LabelNames() []string {
	seen := make(map[string]bool)
	for _, mic := range m.Micrographs() {
		for name := range mic.LabelCounts() {
			seen[name] = true
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
