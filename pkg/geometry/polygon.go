package geometry

import "gonum.org/v1/gonum/spatial/r2"

// SegmentBand returns the four corners of the band of the given width centered
// on the segment p-q, in order p-left, q-left, q-right, p-right.
// A degenerate segment yields a width x width square around p.
func SegmentBand(p, q Point2D, width float64) []Point2D {
	half := width / 2
	d := r2.Sub(q.vec(), p.vec())
	if d.X == 0 && d.Y == 0 {
		r := CenteredRect(p, width, width)
		return []Point2D{r.TopLeft(), {X: r.X + r.Width, Y: r.Y}, r.BottomRight(), {X: r.X, Y: r.Y + r.Height}}
	}
	n := r2.Scale(half, r2.Unit(r2.Vec{X: -d.Y, Y: d.X}))
	pv, qv := p.vec(), q.vec()
	return []Point2D{
		fromVec(r2.Add(pv, n)),
		fromVec(r2.Add(qv, n)),
		fromVec(r2.Sub(qv, n)),
		fromVec(r2.Sub(pv, n)),
	}
}

// PointInPolygon tests if a point is inside a polygon using ray casting.
func PointInPolygon(p Point2D, polygon []Point2D) bool {
	if len(polygon) < 3 {
		return false
	}

	inside := false
	n := len(polygon)

	for i := 0; i < n; i++ {
		j := (i + 1) % n
		pi, pj := polygon[i], polygon[j]

		// Check if ray from p going right intersects edge pi-pj
		if ((pi.Y > p.Y) != (pj.Y > p.Y)) &&
			(p.X < (pj.X-pi.X)*(p.Y-pi.Y)/(pj.Y-pi.Y)+pi.X) {
			inside = !inside
		}
	}

	return inside
}

// DistanceToSegment returns the distance from p to the closest point of segment a-b.
func DistanceToSegment(p, a, b Point2D) float64 {
	d := r2.Sub(b.vec(), a.vec())
	l2 := r2.Dot(d, d)
	if l2 == 0 {
		return p.Distance(a)
	}
	t := r2.Dot(r2.Sub(p.vec(), a.vec()), d) / l2
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	return p.Distance(fromVec(r2.Add(a.vec(), r2.Scale(t, d))))
}
