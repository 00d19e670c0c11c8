// Package canvas provides drawing primitives for the image canvas.
package canvas

import (
	"image"
	"image/color"

	"em-picker/pkg/geometry"
)

// digitPatterns contains 3x5 pixel patterns for digits 0-9.
// Each digit is represented as 5 rows of 3 bits.
var digitPatterns = [10][5]uint8{
	{0b111, 0b101, 0b101, 0b101, 0b111}, // 0
	{0b010, 0b110, 0b010, 0b010, 0b111}, // 1
	{0b111, 0b001, 0b111, 0b100, 0b111}, // 2
	{0b111, 0b001, 0b111, 0b001, 0b111}, // 3
	{0b101, 0b101, 0b111, 0b001, 0b001}, // 4
	{0b111, 0b100, 0b111, 0b001, 0b111}, // 5
	{0b111, 0b100, 0b111, 0b101, 0b111}, // 6
	{0b111, 0b001, 0b001, 0b001, 0b001}, // 7
	{0b111, 0b101, 0b111, 0b101, 0b111}, // 8
	{0b111, 0b101, 0b111, 0b001, 0b111}, // 9
}

// symbolPatterns holds the non-digit glyphs of the filament and lasso
// readouts ("angle=.. len=..").
var symbolPatterns = map[rune][5]uint8{
	'a': {0b010, 0b101, 0b111, 0b101, 0b101},
	'e': {0b111, 0b100, 0b110, 0b100, 0b111},
	'g': {0b011, 0b100, 0b101, 0b101, 0b011},
	'l': {0b100, 0b100, 0b100, 0b100, 0b111},
	'n': {0b101, 0b111, 0b111, 0b101, 0b101},
	'-': {0b000, 0b000, 0b111, 0b000, 0b000},
	'=': {0b000, 0b111, 0b000, 0b111, 0b000},
	'.': {0b000, 0b000, 0b000, 0b000, 0b010},
}

// glyph returns the 3x5 pattern for ch, blank when the font lacks it.
func glyph(ch rune) [5]uint8 {
	if ch >= '0' && ch <= '9' {
		return digitPatterns[ch-'0']
	}
	return symbolPatterns[ch]
}

// toScreen converts an image position to output pixels.
func (ic *ImageCanvas) toScreen(p geometry.Point2D) (int, int) {
	x, y := ic.ImageToCanvas(p.X, p.Y)
	return int(x), int(y)
}

// drawOverlay draws an overlay on the output image.
func (ic *ImageCanvas) drawOverlay(output *image.RGBA, ov *Overlay) {
	for _, rect := range ov.Rectangles {
		x1, y1 := ic.toScreen(rect.Rect.TopLeft())
		x2, y2 := ic.toScreen(rect.Rect.BottomRight())
		drawRect(output, x1, y1, x2, y2, rect.Color)
	}

	for _, poly := range ov.Polygons {
		ic.drawPolygon(output, poly)
	}

	for _, circle := range ov.Circles {
		ic.drawCircle(output, circle)
	}

	for _, line := range ov.Lines {
		x1, y1 := ic.toScreen(line.From)
		x2, y2 := ic.toScreen(line.To)
		drawLine(output, x1, y1, x2, y2, line.Color)
	}

	for _, h := range ov.Handles {
		x, y := ic.toScreen(h.At)
		half := int(h.Size / 2)
		drawRect(output, x-half, y-half, x+half, y+half, h.Color)
	}

	for _, l := range ov.Labels {
		x, y := ic.toScreen(l.At)
		drawText(output, l.Text, x+4, y+4, l.Color, 2)
	}
}

// drawRect draws a 2 pixel rectangle outline between two corners.
func drawRect(output *image.RGBA, x1, y1, x2, y2 int, col color.NRGBA) {
	bounds := output.Bounds()
	for t := 0; t < 2; t++ {
		for x := x1; x <= x2; x++ {
			setClipped(output, bounds, x, y1+t, col)
			setClipped(output, bounds, x, y2-t, col)
		}
		for y := y1; y <= y2; y++ {
			setClipped(output, bounds, x1+t, y, col)
			setClipped(output, bounds, x2-t, y, col)
		}
	}
}

// drawPolygon draws a polygon outline on the output image.
func (ic *ImageCanvas) drawPolygon(output *image.RGBA, poly OverlayPolygon) {
	if len(poly.Points) < 3 {
		return
	}
	n := len(poly.Points)
	for i := 0; i < n; i++ {
		x1, y1 := ic.toScreen(poly.Points[i])
		x2, y2 := ic.toScreen(poly.Points[(i+1)%n])
		drawLine(output, x1, y1, x2, y2, poly.Color)
	}
}

// drawCircle draws a filled or outlined circle on the output image.
func (ic *ImageCanvas) drawCircle(output *image.RGBA, circle OverlayCircle) {
	bounds := output.Bounds()

	cx, cy := ic.ImageToCanvas(circle.X, circle.Y)
	r := circle.Radius * ic.zoom
	if circle.Filled && r < 1.5 {
		r = 1.5
	}

	minX := int(cx - r - 1)
	maxX := int(cx + r + 1)
	minY := int(cy - r - 1)
	maxY := int(cy + r + 1)

	r2 := r * r
	innerR2 := (r - 2) * (r - 2) // 2 pixel outline thickness

	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			dx := float64(x) - cx
			dy := float64(y) - cy
			dist2 := dx*dx + dy*dy
			if dist2 > r2 {
				continue
			}
			if circle.Filled || dist2 >= innerR2 {
				setClipped(output, bounds, x, y, circle.Color)
			}
		}
	}
}

// drawLine draws a 2 pixel line between two points using Bresenham's algorithm.
func drawLine(output *image.RGBA, x1, y1, x2, y2 int, col color.NRGBA) {
	bounds := output.Bounds()

	dx := x2 - x1
	dy := y2 - y1
	if dx < 0 {
		dx = -dx
	}
	if dy < 0 {
		dy = -dy
	}

	sx := 1
	if x1 > x2 {
		sx = -1
	}
	sy := 1
	if y1 > y2 {
		sy = -1
	}

	err := dx - dy

	for {
		for t := 0; t < 2; t++ {
			for s := 0; s < 2; s++ {
				setClipped(output, bounds, x1+s, y1+t, col)
			}
		}

		if x1 == x2 && y1 == y2 {
			break
		}

		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x1 += sx
		}
		if e2 < dx {
			err += dx
			y1 += sy
		}
	}
}

// drawText draws text with its top-left corner at (x, y), each font pixel
// scaled to a scale x scale block.
func drawText(output *image.RGBA, text string, x, y int, col color.NRGBA, scale int) {
	bounds := output.Bounds()
	for i, ch := range []rune(text) {
		pattern := glyph(ch)
		left := x + i*4*scale
		for row, bits := range pattern {
			for c := 0; c < 3; c++ {
				if bits&(1<<(2-c)) == 0 {
					continue
				}
				for dy := 0; dy < scale; dy++ {
					for dx := 0; dx < scale; dx++ {
						setClipped(output, bounds, left+c*scale+dx, y+row*scale+dy, col)
					}
				}
			}
		}
	}
}

func setClipped(output *image.RGBA, bounds image.Rectangle, x, y int, col color.NRGBA) {
	if x >= bounds.Min.X && x < bounds.Max.X && y >= bounds.Min.Y && y < bounds.Max.Y {
		output.Set(x, y, col)
	}
}
