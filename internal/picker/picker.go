package picker

import (
	"errors"
	"fmt"
	"log"

	"em-picker/internal/picking"
	"em-picker/pkg/geometry"
)

// ErrModeMismatch is returned when a micrograph holds entries the current mode cannot show.
var ErrModeMismatch = errors.New("coordinates do not match picker mode")

// CountSink receives the displayed entry count of a micrograph.
type CountSink interface {
	SetCount(micID, n int)
}

// Segment is a filament being drawn between its first and second click.
type Segment struct {
	Start, End geometry.Point2D
}

// Lasso is the circular eraser.
type Lasso struct {
	Circle  geometry.Circle
	Visible bool
	Text    string
}

// Annotation is the angle/length readout shown next to a filament.
type Annotation struct {
	Text    string
	Pos     geometry.Point2D
	Visible bool
}

// Picker applies pointer gestures to the micrograph on display.
// It is not safe for concurrent use; the UI drives it from one goroutine.
type Picker struct {
	session *Session
	sink    CountSink

	mic  *picking.Micrograph
	rois []*ROI

	pending    *Segment
	lasso      Lasso
	annotation Annotation
	dragging   bool

	onRedraw []func()
}

// New creates a picker over session. sink may be nil.
func New(session *Session, sink CountSink) *Picker {
	return &Picker{session: session, sink: sink}
}

// Session returns the picker's session.
func (p *Picker) Session() *Session { return p.session }

// Micrograph returns the micrograph on display, or nil.
func (p *Picker) Micrograph() *picking.Micrograph { return p.mic }

// OnRedraw registers a callback run after every visible change.
func (p *Picker) OnRedraw(fn func()) {
	p.onRedraw = append(p.onRedraw, fn)
}

func (p *Picker) redraw() {
	for _, fn := range p.onRedraw {
		fn()
	}
}

// SetMicrograph shows mic and rebuilds its regions. Entries the current mode
// cannot show are skipped and reported through ErrModeMismatch.
func (p *Picker) SetMicrograph(mic *picking.Micrograph) error {
	p.mic = mic
	p.pending = nil
	p.lasso.Visible = false
	p.annotation.Visible = false
	err := p.rebuild()
	p.pushCount()
	p.redraw()
	return err
}

// Reload rebuilds the regions after the micrograph changed underneath.
func (p *Picker) Reload() error {
	err := p.rebuild()
	p.pushCount()
	p.redraw()
	return err
}

func (p *Picker) rebuild() error {
	p.rois = nil
	if p.mic == nil {
		return nil
	}
	skipped := 0
	p.mic.Each(func(_ int, e picking.Entry) {
		if !matchesMode(e, p.session.Mode) {
			skipped++
			return
		}
		p.rois = append(p.rois, p.roiFor(e))
	})
	if skipped > 0 {
		log.Printf("Picker: %s: %d entries hidden in %s mode", p.mic.Name(), skipped, p.session.Mode)
		return fmt.Errorf("%s: %d entries: %w", p.mic.Name(), skipped, ErrModeMismatch)
	}
	return nil
}

func (p *Picker) roiFor(e picking.Entry) *ROI {
	col := p.session.Model.Label(e.Label()).RGBA()
	r := newROI(e, p.session.Shape, float64(p.session.BoxSize()), col)
	r.Visible = p.session.ShowROIs
	return r
}

// ROIs returns the regions not pending removal, in entry order.
func (p *Picker) ROIs() []*ROI {
	out := make([]*ROI, 0, len(p.rois))
	for _, r := range p.rois {
		if !r.marked {
			out = append(out, r)
		}
	}
	return out
}

// Pending returns the filament being drawn, or nil.
func (p *Picker) Pending() *Segment {
	if p.pending == nil {
		return nil
	}
	s := *p.pending
	return &s
}

func (p *Picker) Lasso() Lasso { return p.lasso }

func (p *Picker) Annotation() Annotation { return p.annotation }

// ROIAt returns the topmost visible region under pt.
func (p *Picker) ROIAt(pt geometry.Point2D) *ROI {
	for i := len(p.rois) - 1; i >= 0; i-- {
		r := p.rois[i]
		if r.Visible && !r.marked && r.Contains(pt, p.session.HandleSize) {
			return r
		}
	}
	return nil
}

// Click handles a pick gesture at pt in image coordinates.
func (p *Picker) Click(pt geometry.Point2D) {
	if p.mic == nil || p.session.ClickAction != ActionPick {
		return
	}
	if p.session.Mode == ModeFilament {
		p.clickFilament(pt)
		return
	}

	c := picking.NewCoordinate(pt.X, pt.Y, p.session.CurrentLabel)
	p.mic.AddCoordinate(c)
	p.rois = append(p.rois, p.roiFor(c))
	p.commit(picking.CoordinateAdded, c)
}

func (p *Picker) clickFilament(pt geometry.Point2D) {
	if p.pending == nil {
		p.pending = &Segment{Start: pt, End: pt}
		p.annotation = Annotation{Text: "angle=", Pos: pt, Visible: true}
		p.redraw()
		return
	}
	start := p.pending.Start
	if start == pt {
		return
	}

	f := picking.NewFilament(start.X, start.Y, pt.X, pt.Y, p.session.CurrentLabel)
	p.pending = nil
	p.annotation = Annotation{Text: filamentText(start, pt), Pos: start, Visible: true}
	p.mic.AddCoordinate(f)
	p.rois = append(p.rois, p.roiFor(f))
	p.commit(picking.CoordinateAdded, f)
}

func filamentText(a, b geometry.Point2D) string {
	return fmt.Sprintf("angle=%.2f len=%.2f", geometry.SegmentAngle(a, b), geometry.SegmentLength(a, b))
}

// CancelSegment drops a filament whose second click has not happened yet.
func (p *Picker) CancelSegment() {
	if p.pending == nil {
		return
	}
	p.pending = nil
	p.annotation.Visible = false
	p.redraw()
}

// Move tracks the pointer: it stretches a pending filament or drags the eraser.
func (p *Picker) Move(pt geometry.Point2D) {
	if p.pending != nil {
		p.pending.End = pt
		p.annotation = Annotation{Text: filamentText(p.pending.Start, pt), Pos: p.pending.Start, Visible: true}
		p.redraw()
		return
	}
	if p.session.ClickAction == ActionErase && p.lasso.Visible {
		p.lasso.Circle.Center = pt
		p.markErased()
		p.redraw()
	}
}

// Press starts an erase stroke at pt.
func (p *Picker) Press(pt geometry.Point2D) {
	if p.mic == nil || p.session.ClickAction != ActionErase {
		return
	}
	p.lasso = Lasso{
		Circle:  geometry.Circle{Center: pt, Radius: p.session.EraseSize / 2},
		Visible: true,
	}
	p.markErased()
	p.redraw()
}

// Release ends an erase stroke, removing every marked entry in one batch.
func (p *Picker) Release() {
	if p.session.ClickAction != ActionErase || !p.lasso.Visible {
		p.lasso.Text = ""
		return
	}
	p.lasso.Visible = false
	p.lasso.Text = ""

	var removed []picking.Entry
	kept := p.rois[:0]
	for _, r := range p.rois {
		if r.marked {
			if p.mic.RemoveCoordinate(r.Entry) {
				removed = append(removed, r.Entry)
			}
			continue
		}
		kept = append(kept, r)
	}
	p.rois = kept

	if len(removed) == 0 {
		p.redraw()
		return
	}
	p.commit(picking.CoordinateRemoved, removed...)
}

func (p *Picker) markErased() {
	if p.mic == nil {
		return
	}
	lasso := p.lasso.Circle
	marked := 0
	for _, r := range p.rois {
		if !r.marked && r.Visible {
			if r.Shape == ShapeCenter && !r.IsFilament() {
				r.marked = lasso.IntersectsRect(r.Bounds)
			} else {
				r.marked = lasso.Contains(r.Anchor())
			}
		}
		if r.marked {
			marked++
		}
	}
	p.lasso.Text = fmt.Sprintf("%d", marked)
	if p.sink != nil {
		p.sink.SetCount(p.mic.ID(), p.mic.Len()-marked)
	}
}

// Wheel handles a scroll of delta notches at pt. In pick mode it steps the
// box size; in erase mode it resizes the eraser.
func (p *Picker) Wheel(pt geometry.Point2D, delta float64) {
	switch {
	case delta == 0:
		return
	case p.session.ClickAction == ActionErase:
		size := p.session.EraseSize + delta*eraseStep
		if size < 1 {
			size = 1
		}
		p.session.EraseSize = size
		p.lasso.Circle = geometry.Circle{Center: pt, Radius: size / 2}
		if p.lasso.Visible {
			p.markErased()
		}
		p.redraw()
	case delta > 0:
		p.SetBoxSize(p.session.BoxSize() + boxSizeStep)
	default:
		p.SetBoxSize(p.session.BoxSize() - boxSizeStep)
	}
}

// DragROI moves a region so its anchor sits at center. Nothing is written
// back until FinishDrag.
func (p *Picker) DragROI(r *ROI, center geometry.Point2D) {
	if !p.owns(r) {
		return
	}
	p.dragging = true
	if r.IsFilament() {
		d := center.Sub(r.Anchor())
		r.Start = r.Start.Add(d)
		r.End = r.End.Add(d)
		r.Bounds = geometry.BoundingBox(geometry.SegmentBand(r.Start, r.End, r.Width))
		p.annotation = Annotation{Text: filamentText(r.Start, r.End), Pos: r.Start, Visible: true}
	} else {
		r.Bounds = geometry.CenteredRect(center, r.Bounds.Width, r.Bounds.Height)
	}
	p.redraw()
}

// DragHandle moves one filament endpoint (0 start, 1 end).
func (p *Picker) DragHandle(r *ROI, handle int, pt geometry.Point2D) {
	if !p.owns(r) || !r.IsFilament() {
		return
	}
	p.dragging = true
	if handle == 0 {
		r.Start = pt
	} else {
		r.End = pt
	}
	r.Bounds = geometry.BoundingBox(geometry.SegmentBand(r.Start, r.End, r.Width))
	p.annotation = Annotation{Text: filamentText(r.Start, r.End), Pos: r.Start, Visible: true}
	p.redraw()
}

// ResizeBand changes a filament band width during a drag.
func (p *Picker) ResizeBand(r *ROI, width float64) {
	if !p.owns(r) || !r.IsFilament() || width <= 0 {
		return
	}
	p.dragging = true
	r.Width = width
	r.Bounds = geometry.BoundingBox(geometry.SegmentBand(r.Start, r.End, r.Width))
	p.redraw()
}

// FinishDrag writes the region position back into its entry.
func (p *Picker) FinishDrag(r *ROI) {
	if !p.owns(r) || !p.dragging {
		return
	}
	p.dragging = false

	switch e := r.Entry.(type) {
	case *picking.Coordinate:
		c := r.Bounds.Center()
		e.Set(float64(int(c.X)), float64(int(c.Y)))
	case *picking.Filament:
		e.Start.Set(r.Start.X, r.Start.Y)
		e.End.Set(r.End.X, r.End.Y)
		if w := int(r.Width); r.Shape == ShapeSegment && w != p.session.BoxSize() {
			p.SetBoxSize(w)
		}
	}
	p.commit(picking.CoordinateMoved, r.Entry)
}

// RemoveROI deletes the region's entry. It does nothing unless removal is enabled.
func (p *Picker) RemoveROI(r *ROI) bool {
	if !p.session.RemoveEnabled || p.session.ClickAction != ActionPick || !p.owns(r) {
		return false
	}
	for i, cur := range p.rois {
		if cur == r {
			p.rois = append(p.rois[:i], p.rois[i+1:]...)
			break
		}
	}
	p.mic.RemoveCoordinate(r.Entry)
	p.commit(picking.CoordinateRemoved, r.Entry)
	return true
}

// RelabelROI gives the region's entry the current label.
func (p *Picker) RelabelROI(r *ROI) bool {
	if p.session.ClickAction != ActionPick || !p.owns(r) || r.Entry.Label() == p.session.CurrentLabel {
		return false
	}
	r.Entry.SetLabel(p.session.CurrentLabel)
	for i, cur := range p.rois {
		if cur == r {
			p.rois[i] = p.roiFor(r.Entry)
			break
		}
	}
	p.commit(picking.CoordinateRelabeled, r.Entry)
	return true
}

// SetShape switches the region shape and rebuilds every region.
func (p *Picker) SetShape(s Shape) error {
	if !s.ValidFor(p.session.Mode) {
		return fmt.Errorf("shape %s not available in %s mode", s, p.session.Mode)
	}
	if s == p.session.Shape {
		return nil
	}
	p.session.Shape = s
	err := p.rebuild()
	p.redraw()
	return err
}

// SetBoxSize stores a new box size and resizes every region in place.
// It reports whether the size changed.
func (p *Picker) SetBoxSize(n int) bool {
	n = clampBox(n)
	if size, ok := p.session.Model.BoxSize(); ok && size == n {
		return false
	}
	p.session.Model.SetBoxSize(n)
	for _, r := range p.rois {
		r.layout(float64(n))
	}
	p.redraw()
	return true
}

// SetClickAction switches between picking and erasing. Erasing is only
// available for single coordinates.
func (p *Picker) SetClickAction(a ClickAction) bool {
	if a == ActionErase && p.session.Mode == ModeFilament {
		return false
	}
	p.session.ClickAction = a
	p.cancelErase()
	p.redraw()
	return true
}

// SetMode switches between single and filament picking.
func (p *Picker) SetMode(m Mode) error {
	if m == p.session.Mode {
		return nil
	}
	p.session.Mode = m
	p.session.Shape = DefaultShape(m)
	if m == ModeFilament {
		p.session.ClickAction = ActionPick
	}
	p.pending = nil
	p.annotation.Visible = false
	p.cancelErase()
	err := p.rebuild()
	p.pushCount()
	p.redraw()
	return err
}

// SetLabel sets the label given to new entries.
func (p *Picker) SetLabel(name string) {
	p.session.CurrentLabel = p.session.Model.Label(name).Name
}

// ToggleROIs shows or hides all regions and returns the new state.
func (p *Picker) ToggleROIs() bool {
	p.session.ShowROIs = !p.session.ShowROIs
	for _, r := range p.rois {
		r.Visible = p.session.ShowROIs
	}
	p.redraw()
	return p.session.ShowROIs
}

func (p *Picker) cancelErase() {
	p.lasso.Visible = false
	p.lasso.Text = ""
	changed := false
	for _, r := range p.rois {
		if r.marked {
			r.marked = false
			changed = true
		}
	}
	if changed {
		p.pushCount()
	}
}

func (p *Picker) owns(r *ROI) bool {
	if r == nil || p.mic == nil {
		return false
	}
	for _, cur := range p.rois {
		if cur == r {
			return true
		}
	}
	return false
}

func (p *Picker) pushCount() {
	if p.sink != nil && p.mic != nil {
		p.sink.SetCount(p.mic.ID(), p.mic.Len())
	}
}

func (p *Picker) commit(kind picking.ChangeKind, entries ...picking.Entry) {
	p.pushCount()
	p.session.Model.NotifyCoordinateChanged(picking.CoordinateEvent{
		MicrographID: p.mic.ID(),
		Kind:         kind,
		Entries:      entries,
		Count:        p.mic.Len(),
	})
	p.redraw()
}
