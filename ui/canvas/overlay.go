// Package canvas provides overlay types for the image canvas.
package canvas

import (
	"image/color"

	"em-picker/internal/picker"
	"em-picker/pkg/colorutil"
	"em-picker/pkg/geometry"
)

// Overlay is everything drawn over the micrograph, in image coordinates.
type Overlay struct {
	Rectangles []OverlayRect
	Circles    []OverlayCircle
	Polygons   []OverlayPolygon
	Lines      []OverlayLine
	Handles    []OverlayHandle
	Labels     []OverlayLabel
}

// OverlayRect represents a rectangle outline.
type OverlayRect struct {
	Rect  geometry.Rect
	Color color.NRGBA
}

// OverlayCircle represents a circle to draw on the overlay.
type OverlayCircle struct {
	X, Y   float64
	Radius float64
	Color  color.NRGBA
	Filled bool
}

// OverlayPolygon represents a polygon to draw on the overlay.
type OverlayPolygon struct {
	Points []geometry.Point2D // Polygon vertices in image coordinates
	Color  color.NRGBA
}

// OverlayLine is a straight line segment.
type OverlayLine struct {
	From, To geometry.Point2D
	Color    color.NRGBA
}

// OverlayHandle is a square grip drawn at a fixed screen size.
type OverlayHandle struct {
	At    geometry.Point2D
	Size  float64 // screen pixels
	Color color.NRGBA
}

// OverlayLabel is text anchored at an image position and drawn at a fixed screen size.
type OverlayLabel struct {
	Text  string
	At    geometry.Point2D
	Color color.NRGBA
}

// BuildOverlay collects the regions, the pending filament, the eraser and
// the filament readout of p.
func BuildOverlay(p *picker.Picker) *Overlay {
	ov := &Overlay{}
	s := p.Session()
	if s.ShowROIs {
		for _, r := range p.ROIs() {
			if r.Visible {
				ov.addROI(r, s.HandleSize)
			}
		}
	}

	if seg := p.Pending(); seg != nil {
		col := labelColor(s)
		ov.Lines = append(ov.Lines, OverlayLine{From: seg.Start, To: seg.End, Color: col})
		ov.Handles = append(ov.Handles, OverlayHandle{At: seg.Start, Size: s.HandleSize, Color: col})
	}

	if l := p.Lasso(); l.Visible {
		ov.Circles = append(ov.Circles, OverlayCircle{
			X: l.Circle.Center.X, Y: l.Circle.Center.Y, Radius: l.Circle.Radius,
			Color: colorutil.Yellow,
		})
		if l.Text != "" {
			ov.Labels = append(ov.Labels, OverlayLabel{Text: l.Text, At: l.Circle.Center, Color: colorutil.Yellow})
		}
	}

	if a := p.Annotation(); a.Visible && a.Text != "" {
		ov.Labels = append(ov.Labels, OverlayLabel{Text: a.Text, At: a.Pos, Color: colorutil.White})
	}
	return ov
}

func (ov *Overlay) addROI(r *picker.ROI, handle float64) {
	if r.IsFilament() {
		if r.Width > 0 {
			ov.Polygons = append(ov.Polygons, OverlayPolygon{Points: r.Band(), Color: r.Color})
		} else {
			ov.Lines = append(ov.Lines, OverlayLine{From: r.Start, To: r.End, Color: r.Color})
		}
		ov.Handles = append(ov.Handles,
			OverlayHandle{At: r.Start, Size: handle, Color: r.Color},
			OverlayHandle{At: r.End, Size: handle, Color: r.Color})
		return
	}

	c := r.Bounds.Center()
	switch r.Shape {
	case picker.ShapeCircle:
		ov.Circles = append(ov.Circles, OverlayCircle{X: c.X, Y: c.Y, Radius: r.Bounds.Width / 2, Color: r.Color})
	case picker.ShapeCenter:
		ov.Circles = append(ov.Circles, OverlayCircle{X: c.X, Y: c.Y, Radius: r.Bounds.Width / 2, Color: r.Color, Filled: true})
	default:
		ov.Rectangles = append(ov.Rectangles, OverlayRect{Rect: r.Bounds, Color: r.Color})
	}
}

func labelColor(s *picker.Session) color.NRGBA {
	return s.Model.Label(s.CurrentLabel).RGBA()
}
