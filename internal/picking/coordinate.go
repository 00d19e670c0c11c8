// Package picking holds the particle-picking data model: coordinates,
// filaments, micrographs and the per-session PickerDataModel.
package picking

import (
	"fmt"

	"em-picker/pkg/geometry"
)

// Built-in label names.
const (
	LabelAuto    = "Auto"
	LabelManual  = "Manual"
	LabelDefault = "Default"
)

// Entry is one element of a micrograph: a single *Coordinate or a *Filament.
// Pairs count as one entry.
type Entry interface {
	// Label returns the label name used to color this entry.
	Label() string

	// SetLabel relabels the entry. A blank name becomes "Manual".
	SetLabel(name string)

	// Anchor returns the point used for hit testing: the coordinate itself,
	// or the midpoint of a filament.
	Anchor() geometry.Point2D

	isEntry()
}

// Coordinate is a labeled 2D point in micrograph pixel space.
type Coordinate struct {
	X     float64
	Y     float64
	label string
}

// NewCoordinate creates a coordinate. A blank label becomes "Manual".
func NewCoordinate(x, y float64, label string) *Coordinate {
	if label == "" {
		label = LabelManual
	}
	return &Coordinate{X: x, Y: y, label: label}
}

// Set moves the coordinate in place.
func (c *Coordinate) Set(x, y float64) {
	c.X = x
	c.Y = y
}

func (c *Coordinate) SetLabel(name string) {
	if name == "" {
		name = LabelManual
	}
	c.label = name
}

func (c *Coordinate) Label() string {
	return c.label
}

func (c *Coordinate) Point() geometry.Point2D {
	return geometry.NewPoint2D(c.X, c.Y)
}

func (c *Coordinate) Anchor() geometry.Point2D {
	return c.Point()
}

func (c *Coordinate) String() string {
	return fmt.Sprintf("(%.1f, %.1f %s)", c.X, c.Y, c.label)
}

func (*Coordinate) isEntry() {}

// Filament is a coordinate pair marking the two endpoints of a filament segment.
// The pair carries one label; relabel it with SetLabel, not through an endpoint.
type Filament struct {
	Start *Coordinate
	End   *Coordinate
	label string
}

// NewFilament creates a filament whose endpoints share the given label.
func NewFilament(x1, y1, x2, y2 float64, label string) *Filament {
	if label == "" {
		label = LabelManual
	}
	return &Filament{
		Start: NewCoordinate(x1, y1, label),
		End:   NewCoordinate(x2, y2, label),
		label: label,
	}
}

func (f *Filament) Label() string {
	return f.label
}

// SetLabel relabels the filament and both of its endpoints.
func (f *Filament) SetLabel(name string) {
	if name == "" {
		name = LabelManual
	}
	f.label = name
	f.Start.SetLabel(name)
	f.End.SetLabel(name)
}

func (f *Filament) Anchor() geometry.Point2D {
	return f.Start.Point().Midpoint(f.End.Point())
}

// Length returns the distance between the endpoints.
func (f *Filament) Length() float64 {
	return geometry.SegmentLength(f.Start.Point(), f.End.Point())
}

// Angle returns the on-screen angle of start->end in degrees.
func (f *Filament) Angle() float64 {
	return geometry.SegmentAngle(f.Start.Point(), f.End.Point())
}

func (f *Filament) String() string {
	return fmt.Sprintf("[%v -> %v]", f.Start, f.End)
}

func (*Filament) isEntry() {}
