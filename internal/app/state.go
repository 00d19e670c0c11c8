// Package app provides application lifecycle management, configuration, and events.
package app

import (
	"context"
	"errors"
	"fmt"
	goimage "image"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"em-picker/internal/config"
	"em-picker/internal/coords"
	"em-picker/internal/image"
	"em-picker/internal/picker"
	"em-picker/internal/picking"
	"em-picker/internal/report"
	"em-picker/internal/store"
	"em-picker/internal/table"
)

// EventType identifies different application events.
type EventType int

const (
	EventMicrographAdded EventType = iota
	EventMicrographSelected
	EventCoordinatesChanged
	EventBoxSizeChanged
	EventModified
	EventSessionSaved
	EventSessionLoaded
	EventError
)

// EventListener is called when an event occurs.
type EventListener func(data interface{})

// Selection is the payload of EventMicrographSelected.
type Selection struct {
	Micrograph *picking.Micrograph
	Image      goimage.Image // nil when the image could not be read
}

// OpenOptions tune OpenFile.
type OpenOptions struct {
	// Coordinates to attach to an opened image.
	Coordinates []coords.Triple
	// CoordinatePath is parsed and attached to an opened image.
	CoordinatePath string
	// Append keeps existing coordinates when loading a .box file.
	Append bool
	// Show selects the micrograph after opening it.
	Show bool
}

// ImageLoader turns a micrograph path into a display image.
type ImageLoader func(path string, opts image.DisplayOptions) (goimage.Image, error)

// State holds the picking session shared by the UI and the command line tools.
type State struct {
	mu sync.RWMutex

	Config  config.Config
	Model   *picking.PickerDataModel
	Session *picker.Session
	Picker  *picker.Picker
	Table   *table.Model

	// Store is nil when no session database is configured.
	Store *store.Store

	// LoadImage is replaceable in tests.
	LoadImage ImageLoader

	// Post runs fn on the goroutine that drives the picker. Background
	// work such as the file watcher hands model changes over through it.
	// The default runs fn in place.
	Post func(fn func())

	Modified  bool
	SessionID string

	currentID  int
	coordFiles map[string]int // coordinate file -> micrograph id
	watcher    *FileWatcher

	// Event listeners
	listeners map[EventType][]EventListener
}

// NewState creates an empty session from cfg.
func NewState(cfg config.Config) (*State, error) {
	model := picking.NewPickerDataModel()
	session, err := picker.NewSession(model, cfg.Picker)
	if err != nil {
		return nil, fmt.Errorf("picker config: %w", err)
	}

	s := &State{
		Config:     cfg,
		Model:      model,
		Session:    session,
		Table:      table.New(),
		LoadImage:  LoadDisplayImage,
		Post:       func(fn func()) { fn() },
		coordFiles: make(map[string]int),
		listeners:  make(map[EventType][]EventListener),
	}
	s.Picker = picker.New(session, s.Table)
	s.bindModel()
	return s, nil
}

func (s *State) bindModel() {
	s.Table.Bind(s.Model)
	s.Model.OnMicrographAdded(func(mic *picking.Micrograph) {
		s.Emit(EventMicrographAdded, mic)
	})
	s.Model.OnCoordinateChanged(func(ev picking.CoordinateEvent) {
		s.SetModified(true)
		s.Emit(EventCoordinatesChanged, ev)
	})
}

// On registers an event listener for the specified event type.
func (s *State) On(event EventType, listener EventListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners[event] = append(s.listeners[event], listener)
}

// Emit triggers all listeners for the specified event type.
func (s *State) Emit(event EventType, data interface{}) {
	s.mu.RLock()
	listeners := s.listeners[event]
	s.mu.RUnlock()

	for _, listener := range listeners {
		listener(data)
	}
}

// SetModified marks the session as modified and emits an event.
func (s *State) SetModified(modified bool) {
	s.mu.Lock()
	s.Modified = modified
	s.mu.Unlock()
	s.Emit(EventModified, modified)
}

// fail logs err, emits it and returns it.
func (s *State) fail(err error) error {
	log.Printf("Error: %v", err)
	s.Emit(EventError, err)
	return err
}

// Current returns the selected micrograph, or nil.
func (s *State) Current() *picking.Micrograph {
	s.mu.RLock()
	id := s.currentID
	s.mu.RUnlock()
	if mic, ok := s.Model.Micrograph(id); ok {
		return mic
	}
	return nil
}

// OpenFile opens path by extension: .json picking files become new
// micrographs, .box files load coordinates into the current micrograph and
// anything else is opened as a micrograph image.
func (s *State) OpenFile(path string, opts OpenOptions) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return s.OpenPickingFile(path, opts.Show)
	case ".box":
		return s.LoadCoordinates(path, coords.ParseFile, !opts.Append)
	default:
		triples := opts.Coordinates
		if opts.CoordinatePath != "" {
			parsed, err := coords.ParseFile(opts.CoordinatePath)
			if err != nil {
				return s.fail(err)
			}
			triples = parsed
		}
		id, err := s.AddImage(path, triples)
		if err != nil {
			return err
		}
		if opts.CoordinatePath != "" {
			s.trackCoordinates(opts.CoordinatePath, id)
		}
		if opts.Show {
			return s.Select(id)
		}
		return nil
	}
}

// AddImage registers an image micrograph with optional coordinates.
func (s *State) AddImage(path string, triples []coords.Triple) (int, error) {
	mic := picking.NewMicrograph(0, path)
	for _, t := range triples {
		mic.AddCoordinate(t.Coordinate())
	}
	if err := s.Model.RegisterMicrograph(mic); err != nil {
		return 0, s.fail(err)
	}
	log.Printf("Opened %s (%d coordinates)", filepath.Base(path), mic.Len())
	return mic.ID(), nil
}

// OpenPickingFile registers the micrograph described by a picking file.
func (s *State) OpenPickingFile(path string, show bool) error {
	mic, box, err := coords.ReadPicking(path)
	if err != nil {
		return s.fail(fmt.Errorf("parsing pick file %s: %w", filepath.Base(path), err))
	}
	if err := s.Model.RegisterMicrograph(mic); err != nil {
		return s.fail(err)
	}
	if box.Width > 0 {
		s.SetBoxSize(box.Width)
	}
	log.Printf("Opened picking file %s: %s (%d coordinates)", filepath.Base(path), mic.Name(), mic.Len())
	if show {
		return s.Select(mic.ID())
	}
	return nil
}

// LoadCoordinates parses path into the current micrograph, clearing it first
// when clear is set.
func (s *State) LoadCoordinates(path string, parse func(string) ([]coords.Triple, error), clear bool) error {
	mic := s.Current()
	if mic == nil {
		return s.fail(fmt.Errorf("load %s: %w", filepath.Base(path), picking.ErrNoMicrograph))
	}
	triples, err := parse(path)
	if err != nil {
		return s.fail(err)
	}
	s.applyCoordinates(mic, triples, clear)
	s.trackCoordinates(path, mic.ID())
	return nil
}

func (s *State) applyCoordinates(mic *picking.Micrograph, triples []coords.Triple, clear bool) {
	if clear {
		mic.Clear()
	}
	for _, t := range triples {
		mic.AddCoordinate(t.Coordinate())
	}
	if s.Picker.Micrograph() == mic {
		if err := s.Picker.Reload(); err != nil {
			s.fail(err)
		}
	} else {
		s.Table.SetCount(mic.ID(), mic.Len())
	}
	s.Model.NotifyCoordinateChanged(picking.CoordinateEvent{
		MicrographID: mic.ID(),
		Kind:         picking.CoordinatesLoaded,
		Count:        mic.Len(),
	})
}

func (s *State) trackCoordinates(path string, micID int) {
	s.mu.Lock()
	s.coordFiles[path] = micID
	w := s.watcher
	s.mu.Unlock()
	if w != nil {
		w.Add(path)
	}
}

// Select shows micrograph id. A missing image is reported but the
// coordinates are still shown.
func (s *State) Select(id int) error {
	mic, ok := s.Model.Micrograph(id)
	if !ok {
		return s.fail(fmt.Errorf("select %d: %w", id, picking.ErrNoMicrograph))
	}
	s.mu.Lock()
	s.currentID = id
	s.mu.Unlock()

	if err := s.Picker.SetMicrograph(mic); err != nil {
		s.fail(err)
	}

	sel := Selection{Micrograph: mic}
	img, err := s.LoadImage(mic.Path(), image.DisplayOptions{Lowpass: s.Config.Display.Lowpass})
	if err != nil {
		s.fail(fmt.Errorf("image %s: %w", mic.Name(), err))
	} else {
		sel.Image = img
	}
	s.Emit(EventMicrographSelected, sel)
	return nil
}

// SetBoxSize changes the box size and emits EventBoxSizeChanged when it changed.
func (s *State) SetBoxSize(n int) {
	if s.Picker.SetBoxSize(n) {
		size := s.Session.BoxSize()
		log.Printf("Box size: %d", size)
		s.Emit(EventBoxSizeChanged, size)
	}
}

// ApplyConfig takes edited settings into the running session. Mode and
// shape stay with the toolbar; a changed lowpass reloads the shown image.
func (s *State) ApplyConfig(cfg config.Config) {
	s.mu.Lock()
	old := s.Config
	s.Config = cfg
	id := s.currentID
	s.mu.Unlock()

	sess := s.Session
	if cfg.Picker.EraseSize > 0 {
		sess.EraseSize = cfg.Picker.EraseSize
	}
	if cfg.Picker.HandleSize > 0 {
		sess.HandleSize = cfg.Picker.HandleSize
	}
	sess.RemoveEnabled = cfg.Picker.RemoveROIs
	for _, l := range cfg.Picker.Labels {
		if l.Name != "" {
			s.Model.AddLabel(picking.Label{Name: l.Name, Color: l.Color})
		}
	}
	if cfg.Picker.BoxSize > 0 {
		s.SetBoxSize(cfg.Picker.BoxSize)
	}

	if cfg.Display.Lowpass != old.Display.Lowpass && s.Current() != nil {
		s.Select(id)
	}
}

// SavePicking writes the current micrograph to a picking file.
func (s *State) SavePicking(path string) error {
	mic := s.Current()
	if mic == nil {
		return s.fail(picking.ErrNoMicrograph)
	}
	if err := coords.WritePicking(path, mic, s.Session.BoxSize()); err != nil {
		return s.fail(err)
	}
	return nil
}

// ExportBox writes the current micrograph's coordinates as an EMAN box file.
func (s *State) ExportBox(path string) error {
	mic := s.Current()
	if mic == nil {
		return s.fail(picking.ErrNoMicrograph)
	}
	f, err := os.Create(path)
	if err != nil {
		return s.fail(err)
	}
	if err := coords.WriteBox(f, mic, s.Session.BoxSize()); err != nil {
		f.Close()
		return s.fail(err)
	}
	if err := f.Close(); err != nil {
		return s.fail(err)
	}
	return nil
}

// SaveSession stores the model in the session database.
func (s *State) SaveSession(ctx context.Context, name string) (string, error) {
	if s.Store == nil {
		return "", s.fail(errors.New("no session database"))
	}
	id, err := s.Store.SaveModel(ctx, name, s.Model)
	if err != nil {
		return "", s.fail(err)
	}
	s.mu.Lock()
	s.SessionID = id
	s.mu.Unlock()
	s.SetModified(false)
	log.Printf("Saved session %s (%s)", name, id)
	s.Emit(EventSessionSaved, id)
	return id, nil
}

// LoadSession replaces the model's micrographs with a saved session.
// Micrographs are re-registered so the table and listeners see them.
func (s *State) LoadSession(ctx context.Context, id string) error {
	if s.Store == nil {
		return s.fail(errors.New("no session database"))
	}
	saved, err := s.Store.LoadModel(ctx, id)
	if err != nil {
		return s.fail(err)
	}

	for _, l := range saved.Labels() {
		s.Model.AddLabel(l)
	}
	if size, ok := saved.BoxSize(); ok {
		s.SetBoxSize(size)
	}
	var first int
	for _, mic := range saved.Micrographs() {
		if _, taken := s.Model.Micrograph(mic.ID()); taken {
			mic.SetID(0)
		}
		if err := s.Model.RegisterMicrograph(mic); err != nil {
			return s.fail(err)
		}
		if first == 0 {
			first = mic.ID()
		}
	}

	s.mu.Lock()
	s.SessionID = id
	s.mu.Unlock()
	s.Emit(EventSessionLoaded, id)
	if first != 0 {
		return s.Select(first)
	}
	return nil
}

// Report summarizes the session.
func (s *State) Report(title string) report.Summary {
	return report.Summarize(title, s.Model)
}

// WatchCoordinates re-imports coordinate files when they change on disk.
// Files are parsed on the watcher goroutine; the micrograph is only
// touched inside Post.
func (s *State) WatchCoordinates(w *FileWatcher) {
	s.mu.Lock()
	s.watcher = w
	for path := range s.coordFiles {
		w.Add(path)
	}
	s.mu.Unlock()

	w.OnChange(func(path string) {
		s.mu.RLock()
		_, ok := s.coordFiles[path]
		s.mu.RUnlock()
		if !ok {
			return
		}
		triples, err := coords.ParseFile(path)
		s.Post(func() { s.reloadCoordinates(path, triples, err) })
	})
}

func (s *State) reloadCoordinates(path string, triples []coords.Triple, err error) {
	if err != nil {
		s.fail(err)
		return
	}
	s.mu.RLock()
	id, ok := s.coordFiles[path]
	s.mu.RUnlock()
	if !ok {
		return
	}
	mic, ok := s.Model.Micrograph(id)
	if !ok {
		return
	}
	log.Printf("Reloading %s into %s", filepath.Base(path), mic.Name())
	s.applyCoordinates(mic, triples, true)
}

// LoadDisplayImage opens path and returns its first slice ready for display.
func LoadDisplayImage(path string, opts image.DisplayOptions) (goimage.Image, error) {
	src, err := image.Open(path)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	frame, err := src.Read(0)
	if err != nil {
		return nil, err
	}
	if mean, std, err := image.Stats(frame); err == nil {
		log.Printf("Image: %s %dx%d mean=%.3f std=%.3f", filepath.Base(path), frame.Width, frame.Height, mean, std)
	}
	return image.Display(frame, opts)
}
