package image

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"em-picker/pkg/geometry"

	xdraw "golang.org/x/image/draw"
)

// MarkShape selects how a Mark is drawn.
type MarkShape int

const (
	MarkRect MarkShape = iota
	MarkCircle
	MarkDot
	MarkSegment
)

// Mark is an outline to burn into an image.
type Mark struct {
	Shape  MarkShape
	Bounds geometry.Rect     // Rect, Circle, Dot
	Band   []geometry.Point2D // Segment polygon, or two points for a line
	Color  color.Color
}

// Overlay draws marks on top of a copy of base.
func Overlay(base image.Image, marks []Mark) *image.RGBA {
	b := base.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), base, b.Min, draw.Src)

	for _, m := range marks {
		switch m.Shape {
		case MarkCircle:
			c := m.Bounds.Center()
			r := m.Bounds.Width / 2
			pts := geometry.GenerateCirclePoints(c.X, c.Y, r, int(math.Max(16, r)))
			drawPolygon(out, pts, m.Color)
		case MarkDot:
			c := m.Bounds.Center()
			fillRect(out, geometry.CenteredRect(c, 3, 3), m.Color)
		case MarkSegment:
			if len(m.Band) == 2 {
				drawLine(out, m.Band[0], m.Band[1], m.Color)
			} else {
				drawPolygon(out, m.Band, m.Color)
			}
		default:
			r := m.Bounds
			drawPolygon(out, []geometry.Point2D{
				r.TopLeft(), {X: r.X + r.Width, Y: r.Y}, r.BottomRight(), {X: r.X, Y: r.Y + r.Height},
			}, m.Color)
		}
	}
	return out
}

func drawPolygon(dst *image.RGBA, pts []geometry.Point2D, c color.Color) {
	for i := range pts {
		drawLine(dst, pts[i], pts[(i+1)%len(pts)], c)
	}
}

func drawLine(dst *image.RGBA, a, b geometry.Point2D, c color.Color) {
	steps := int(math.Ceil(math.Max(math.Abs(b.X-a.X), math.Abs(b.Y-a.Y))))
	if steps == 0 {
		setClipped(dst, int(a.X), int(a.Y), c)
		return
	}
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		setClipped(dst, int(math.Round(a.X+t*(b.X-a.X))), int(math.Round(a.Y+t*(b.Y-a.Y))), c)
	}
}

func fillRect(dst *image.RGBA, r geometry.Rect, c color.Color) {
	for y := int(r.Y); y <= int(r.Y+r.Height); y++ {
		for x := int(r.X); x <= int(r.X+r.Width); x++ {
			setClipped(dst, x, y, c)
		}
	}
}

func setClipped(dst *image.RGBA, x, y int, c color.Color) {
	if image.Pt(x, y).In(dst.Bounds()) {
		dst.Set(x, y, c)
	}
}

// Thumbnail scales img so its longer side is at most maxDim pixels.
// Smaller images are returned unchanged.
func Thumbnail(img image.Image, maxDim int) image.Image {
	b := img.Bounds()
	long := b.Dx()
	if b.Dy() > long {
		long = b.Dy()
	}
	if maxDim <= 0 || long <= maxDim {
		return img
	}
	scale := float64(maxDim) / float64(long)
	w := int(math.Max(1, math.Round(float64(b.Dx())*scale)))
	h := int(math.Max(1, math.Round(float64(b.Dy())*scale)))
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	return dst
}
