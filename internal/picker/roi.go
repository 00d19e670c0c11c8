package picker

import (
	"image/color"

	"em-picker/internal/picking"
	"em-picker/pkg/geometry"
)

// ROI is the on-screen region for one entry. It is derived from the entry,
// the box size and the shape, and never owns coordinate data.
type ROI struct {
	Entry picking.Entry
	Shape Shape
	Color color.NRGBA

	// Bounds is the box for Rect/Circle, the dot for Center and the band
	// bounding box for filaments.
	Bounds geometry.Rect

	// Filament handles and band width, zero for single coordinates.
	Start, End geometry.Point2D
	Width      float64

	Visible bool
	marked  bool
}

// IsFilament reports whether the region shows a filament.
func (r *ROI) IsFilament() bool {
	_, ok := r.Entry.(*picking.Filament)
	return ok
}

// Anchor is the region center: the box center, the dot, or the segment midpoint.
func (r *ROI) Anchor() geometry.Point2D {
	if r.IsFilament() {
		return r.Start.Midpoint(r.End)
	}
	return r.Bounds.Center()
}

// Band returns the filament polygon; empty for single coordinates.
func (r *ROI) Band() []geometry.Point2D {
	if !r.IsFilament() {
		return nil
	}
	return geometry.SegmentBand(r.Start, r.End, r.Width)
}

// Marked reports whether the region is pending removal by the eraser.
func (r *ROI) Marked() bool { return r.marked }

// Contains reports whether p hits the region. tol widens thin shapes.
func (r *ROI) Contains(p geometry.Point2D, tol float64) bool {
	switch {
	case r.IsFilament():
		if r.Width > 0 {
			return geometry.PointInPolygon(p, r.Band())
		}
		return geometry.PointInPolygon(p, geometry.SegmentBand(r.Start, r.End, tol))
	case r.Shape == ShapeCircle:
		c := geometry.Circle{Center: r.Bounds.Center(), Radius: r.Bounds.Width / 2}
		return c.Contains(p)
	case r.Shape == ShapeCenter:
		return r.Bounds.Center().Distance(p) <= tol
	default:
		return r.Bounds.Contains(p)
	}
}

func (r *ROI) layout(boxSize float64) {
	if r.IsFilament() {
		if r.Shape == ShapeSegment {
			r.Width = boxSize
		} else {
			r.Width = 0
		}
		r.Bounds = geometry.BoundingBox(geometry.SegmentBand(r.Start, r.End, r.Width))
		return
	}
	if r.Shape == ShapeCenter {
		r.Bounds = r.Bounds.Resized(centerDot, centerDot)
		return
	}
	r.Bounds = r.Bounds.Resized(boxSize, boxSize)
}

func newROI(e picking.Entry, shape Shape, boxSize float64, col color.NRGBA) *ROI {
	r := &ROI{Entry: e, Shape: shape, Color: col, Visible: true}
	switch v := e.(type) {
	case *picking.Filament:
		r.Start = v.Start.Point()
		r.End = v.End.Point()
	case *picking.Coordinate:
		r.Bounds = geometry.CenteredRect(v.Point(), 0, 0)
	}
	r.layout(boxSize)
	return r
}

// matchesMode reports whether e can be shown in mode.
func matchesMode(e picking.Entry, m Mode) bool {
	_, isFil := e.(*picking.Filament)
	return isFil == (m == ModeFilament)
}
