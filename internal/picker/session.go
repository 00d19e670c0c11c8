// Package picker turns pointer gestures on a displayed micrograph into
// coordinate edits and keeps the on-screen regions in sync with the model.
package picker

import (
	"fmt"
	"strings"

	"em-picker/internal/config"
	"em-picker/internal/picking"
)

// ClickAction selects what a pointer press does.
type ClickAction int

const (
	ActionPick ClickAction = iota
	ActionErase
)

func (a ClickAction) String() string {
	if a == ActionErase {
		return "erase"
	}
	return "pick"
}

// Mode selects between single coordinates and filaments.
type Mode int

const (
	ModeDefault Mode = iota
	ModeFilament
)

func (m Mode) String() string {
	if m == ModeFilament {
		return "filament"
	}
	return "default"
}

// ParseMode parses "default" or "filament".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "default":
		return ModeDefault, nil
	case "filament":
		return ModeFilament, nil
	}
	return ModeDefault, fmt.Errorf("unknown mode %q", s)
}

// Shape selects how regions are drawn.
type Shape int

const (
	ShapeRect Shape = iota
	ShapeCircle
	ShapeCenter
	ShapeSegment
)

var shapeNames = map[Shape]string{
	ShapeRect:    "RECT",
	ShapeCircle:  "CIRCLE",
	ShapeCenter:  "CENTER",
	ShapeSegment: "SEGMENT",
}

func (s Shape) String() string {
	if name, ok := shapeNames[s]; ok {
		return name
	}
	return "UNKNOWN"
}

// ParseShape parses a shape name, case-insensitively.
func ParseShape(s string) (Shape, error) {
	want := strings.ToUpper(strings.TrimSpace(s))
	for shape, name := range shapeNames {
		if name == want {
			return shape, nil
		}
	}
	return ShapeRect, fmt.Errorf("unknown shape %q", s)
}

// ValidFor reports whether the shape can be used in mode.
func (s Shape) ValidFor(m Mode) bool {
	switch s {
	case ShapeCenter:
		return true
	case ShapeSegment:
		return m == ModeFilament
	default:
		return m == ModeDefault
	}
}

// DefaultShape is the shape a mode starts with.
func DefaultShape(m Mode) Shape {
	if m == ModeFilament {
		return ShapeSegment
	}
	return ShapeRect
}

const (
	MinBoxSize  = 3
	MaxBoxSize  = 65535
	boxSizeStep = 5
	eraseStep   = 10.0
	centerDot   = 3.0
)

// Session is the mutable picking state shared by the view and the controller.
type Session struct {
	Model *picking.PickerDataModel

	ClickAction  ClickAction
	Mode         Mode
	Shape        Shape
	CurrentLabel string

	EraseSize  float64
	HandleSize float64

	ShowROIs      bool
	RemoveEnabled bool
}

// NewSession builds a session from configuration and seeds the model's
// box size and extra labels.
func NewSession(model *picking.PickerDataModel, cfg config.Picker) (*Session, error) {
	mode, err := ParseMode(cfg.Mode)
	if err != nil {
		return nil, err
	}
	shape := DefaultShape(mode)
	if cfg.Shape != "" {
		if shape, err = ParseShape(cfg.Shape); err != nil {
			return nil, err
		}
		if !shape.ValidFor(mode) {
			shape = DefaultShape(mode)
		}
	}

	for _, l := range cfg.Labels {
		if l.Name == "" {
			continue
		}
		model.AddLabel(picking.Label{Name: l.Name, Color: l.Color})
	}

	if _, ok := model.BoxSize(); !ok {
		size := cfg.BoxSize
		if size <= 0 {
			size = 100
		}
		model.SetBoxSize(clampBox(size))
	}

	label := cfg.Label
	if label == "" {
		label = picking.LabelManual
	}
	erase := cfg.EraseSize
	if erase <= 0 {
		erase = 300
	}
	handle := cfg.HandleSize
	if handle <= 0 {
		handle = 8
	}

	return &Session{
		Model:         model,
		ClickAction:   ActionPick,
		Mode:          mode,
		Shape:         shape,
		CurrentLabel:  label,
		EraseSize:     erase,
		HandleSize:    handle,
		ShowROIs:      true,
		RemoveEnabled: cfg.RemoveROIs,
	}, nil
}

// BoxSize returns the model's box size, falling back to 100.
func (s *Session) BoxSize() int {
	if size, ok := s.Model.BoxSize(); ok && size > 0 {
		return size
	}
	return 100
}

func clampBox(n int) int {
	if n < MinBoxSize {
		return MinBoxSize
	}
	if n > MaxBoxSize {
		return MaxBoxSize
	}
	return n
}
