// Package canvas provides the micrograph canvas with pan, zoom and picking.
package canvas

import (
	"image"
	"image/color"

	"em-picker/internal/picker"
	"em-picker/pkg/geometry"

	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"
)

const (
	minZoom  = 0.05
	maxZoom  = 10.0
	zoomStep = 1.25
)

// ImageCanvas displays a micrograph and turns pointer gestures into picker calls.
type ImageCanvas struct {
	widget.BaseWidget

	picker *picker.Picker
	img    image.Image

	// Display state
	raster *fynecanvas.Raster
	zoom   float64

	// Interaction state
	erasing    bool
	dragROI    *picker.ROI
	dragHandle int // -1 for the whole region
	resizing   bool
	dragOffset geometry.Point2D

	// Container
	scroll  *zoomScroll
	content *draggableContent
	imgSize fyne.Size

	// Fit to window
	fitToWindow    bool
	lastScrollSize fyne.Size

	// Callbacks
	onZoomChange func(zoom float64)
	onPointer    func(x, y float64)
}

// zoomScroll is a widget that wraps a scroll container but intercepts wheel for zoom.
type zoomScroll struct {
	widget.BaseWidget
	scroll *container.Scroll
	canvas *ImageCanvas
}

func newZoomScroll(content fyne.CanvasObject, canvas *ImageCanvas) *zoomScroll {
	scroll := container.NewScroll(content)
	scroll.Direction = container.ScrollBoth
	zs := &zoomScroll{scroll: scroll, canvas: canvas}
	zs.ExtendBaseWidget(zs)
	return zs
}

func (zs *zoomScroll) Scrolled(ev *fyne.ScrollEvent) {
	if ev.Scrolled.DY > 0 {
		zs.canvas.ZoomIn()
	} else if ev.Scrolled.DY < 0 {
		zs.canvas.ZoomOut()
	}
}

func (zs *zoomScroll) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(zs.scroll)
}

// Offset returns the scroll container's current offset.
func (zs *zoomScroll) Offset() fyne.Position {
	return zs.scroll.Offset
}

// Size returns the scroll container's size.
func (zs *zoomScroll) Size() fyne.Size {
	return zs.scroll.Size()
}

// panBy moves the visible area by d screen pixels.
func (zs *zoomScroll) panBy(d fyne.Delta) {
	off := zs.scroll.Offset
	off.X -= d.DX
	off.Y -= d.DY
	content := zs.scroll.Content.Size()
	view := zs.scroll.Size()
	off.X = clamp32(off.X, 0, content.Width-view.Width)
	off.Y = clamp32(off.Y, 0, content.Height-view.Height)
	zs.scroll.Offset = off
	zs.scroll.Refresh()
}

func clamp32(v, lo, hi float32) float32 {
	if hi < lo {
		hi = lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Refresh refreshes the scroll container.
func (zs *zoomScroll) Refresh() {
	zs.scroll.Refresh()
	zs.BaseWidget.Refresh()
}

// Resize sets the size of the scroll container.
func (zs *zoomScroll) Resize(size fyne.Size) {
	zs.scroll.Resize(size)
	zs.BaseWidget.Resize(size)
}

// draggableContent wraps the raster to handle mouse events.
type draggableContent struct {
	widget.BaseWidget
	canvas *ImageCanvas
	raster *fynecanvas.Raster
}

var (
	_ fyne.Tappable          = (*draggableContent)(nil)
	_ fyne.SecondaryTappable = (*draggableContent)(nil)
	_ fyne.Draggable         = (*draggableContent)(nil)
	_ fyne.Scrollable        = (*draggableContent)(nil)
	_ desktop.Mouseable      = (*draggableContent)(nil)
	_ desktop.Hoverable      = (*draggableContent)(nil)
)

func newDraggableContent(ic *ImageCanvas, raster *fynecanvas.Raster) *draggableContent {
	dc := &draggableContent{
		canvas: ic,
		raster: raster,
	}
	dc.ExtendBaseWidget(dc)
	return dc
}

func (dc *draggableContent) CreateRenderer() fyne.WidgetRenderer {
	return &draggableContentRenderer{content: dc}
}

func (dc *draggableContent) MinSize() fyne.Size {
	return dc.raster.MinSize()
}

// MouseDown picks the drag target, starts an erase stroke, or relabels the
// region under a middle click.
func (dc *draggableContent) MouseDown(ev *desktop.MouseEvent) {
	ic := dc.canvas
	if ic.picker == nil {
		return
	}
	pt := ic.toImage(ev.Position)
	s := ic.picker.Session()

	if ev.Button == desktop.MouseButtonTertiary {
		if r := ic.picker.ROIAt(pt); r != nil {
			ic.picker.RelabelROI(r)
		}
		return
	}

	if s.ClickAction == picker.ActionErase && ev.Button == desktop.MouseButtonPrimary {
		ic.erasing = true
		ic.picker.Press(pt)
		return
	}
	if ic.picker.Pending() != nil {
		return
	}
	ic.beginDrag(pt, ev.Button == desktop.MouseButtonSecondary)
}

// MouseUp finishes an erase stroke.
func (dc *draggableContent) MouseUp(ev *desktop.MouseEvent) {
	ic := dc.canvas
	if ic.erasing {
		ic.erasing = false
		ic.picker.Release()
	}
}

func (dc *draggableContent) MouseIn(ev *desktop.MouseEvent) {}

// MouseMoved stretches a pending filament and reports the pointer.
func (dc *draggableContent) MouseMoved(ev *desktop.MouseEvent) {
	ic := dc.canvas
	if ic.picker == nil {
		return
	}
	pt := ic.toImage(ev.Position)
	if ic.picker.Pending() != nil {
		ic.picker.Move(pt)
	}
	if ic.onPointer != nil {
		ic.onPointer(pt.X, pt.Y)
	}
}

func (dc *draggableContent) MouseOut() {}

func (dc *draggableContent) Dragged(ev *fyne.DragEvent) {
	ic := dc.canvas
	if ic.picker == nil {
		return
	}
	pt := ic.toImage(ev.Position)

	switch {
	case ic.erasing:
		ic.picker.Move(pt)
	case ic.dragROI != nil && ic.resizing:
		r := ic.dragROI
		ic.picker.ResizeBand(r, 2*geometry.DistanceToSegment(pt, r.Start, r.End))
	case ic.dragROI != nil && ic.dragHandle >= 0:
		ic.picker.DragHandle(ic.dragROI, ic.dragHandle, pt)
	case ic.dragROI != nil:
		ic.picker.DragROI(ic.dragROI, pt.Add(ic.dragOffset))
	default:
		ic.scroll.panBy(ev.Dragged)
	}
}

func (dc *draggableContent) DragEnd() {
	ic := dc.canvas
	if ic.dragROI != nil {
		ic.picker.FinishDrag(ic.dragROI)
	}
	ic.endDrag()
}

// Scrolled resizes the box or eraser when over a region or erasing, and zooms otherwise.
func (dc *draggableContent) Scrolled(ev *fyne.ScrollEvent) {
	ic := dc.canvas
	if ic.picker != nil {
		pt := ic.toImage(ev.Position)
		if ic.picker.Session().ClickAction == picker.ActionErase || ic.picker.ROIAt(pt) != nil {
			switch {
			case ev.Scrolled.DY > 0:
				ic.picker.Wheel(pt, 1)
			case ev.Scrolled.DY < 0:
				ic.picker.Wheel(pt, -1)
			}
			return
		}
	}
	if ev.Scrolled.DY > 0 {
		ic.ZoomIn()
	} else if ev.Scrolled.DY < 0 {
		ic.ZoomOut()
	}
}

// Tapped places a coordinate or a filament endpoint.
func (dc *draggableContent) Tapped(ev *fyne.PointEvent) {
	ic := dc.canvas
	if ic.picker == nil || ic.img == nil || !dc.inside(ev.Position) {
		return
	}
	pt := ic.toImage(ev.Position)
	if ic.picker.Pending() == nil && ic.picker.ROIAt(pt) != nil {
		return
	}
	ic.picker.Click(pt)
}

// TappedSecondary cancels a pending filament or removes the region under the pointer.
func (dc *draggableContent) TappedSecondary(ev *fyne.PointEvent) {
	ic := dc.canvas
	if ic.picker == nil || !dc.inside(ev.Position) {
		return
	}
	if ic.picker.Pending() != nil {
		ic.picker.CancelSegment()
		return
	}
	if r := ic.picker.ROIAt(ic.toImage(ev.Position)); r != nil {
		ic.picker.RemoveROI(r)
	}
}

// inside rejects events reported outside the widget bounds.
func (dc *draggableContent) inside(pos fyne.Position) bool {
	size := dc.Size()
	return pos.X >= 0 && pos.Y >= 0 && pos.X <= size.Width && pos.Y <= size.Height
}

type draggableContentRenderer struct {
	content *draggableContent
}

func (r *draggableContentRenderer) Layout(size fyne.Size) {
	r.content.raster.Resize(size)
}

func (r *draggableContentRenderer) MinSize() fyne.Size {
	return r.content.raster.MinSize()
}

func (r *draggableContentRenderer) Refresh() {
	r.content.raster.Refresh()
}

func (r *draggableContentRenderer) Objects() []fyne.CanvasObject {
	return []fyne.CanvasObject{r.content.raster}
}

func (r *draggableContentRenderer) Destroy() {}

// NewImageCanvas creates a canvas driving p. p may be set later with SetPicker.
func NewImageCanvas(p *picker.Picker) *ImageCanvas {
	ic := &ImageCanvas{
		zoom:       1.0,
		dragHandle: -1,
		imgSize:    fyne.NewSize(400, 300),
	}

	ic.raster = fynecanvas.NewRaster(ic.draw)
	ic.raster.ScaleMode = fynecanvas.ImageScalePixels
	ic.raster.SetMinSize(ic.imgSize)

	ic.content = newDraggableContent(ic, ic.raster)

	// wheel = zoom, drag on empty image = pan
	ic.scroll = newZoomScroll(ic.content, ic)

	ic.ExtendBaseWidget(ic)
	ic.SetPicker(p)
	return ic
}

// SetPicker attaches the picker whose regions are drawn.
func (ic *ImageCanvas) SetPicker(p *picker.Picker) {
	ic.picker = p
	if p != nil {
		p.OnRedraw(ic.Refresh)
	}
	ic.Refresh()
}

// Container returns the canvas container for embedding in layouts.
func (ic *ImageCanvas) Container() fyne.CanvasObject {
	return ic.scroll
}

// SetImage replaces the displayed micrograph. nil clears the view.
func (ic *ImageCanvas) SetImage(img image.Image) {
	ic.img = img
	ic.endDrag()
	ic.updateContentSize()
	if ic.fitToWindow {
		ic.FitToWindow()
	}
}

// Image returns the displayed micrograph.
func (ic *ImageCanvas) Image() image.Image {
	return ic.img
}

// SetZoom sets the zoom level.
func (ic *ImageCanvas) SetZoom(zoom float64) {
	if zoom < minZoom {
		zoom = minZoom
	}
	if zoom > maxZoom {
		zoom = maxZoom
	}
	ic.zoom = zoom
	ic.updateContentSize()

	if ic.onZoomChange != nil {
		ic.onZoomChange(zoom)
	}
}

// Zoom returns the current zoom level.
func (ic *ImageCanvas) Zoom() float64 {
	return ic.zoom
}

// ZoomIn increases zoom by one step.
func (ic *ImageCanvas) ZoomIn() {
	ic.SetZoom(ic.zoom * zoomStep)
}

// ZoomOut decreases zoom by one step.
func (ic *ImageCanvas) ZoomOut() {
	ic.SetZoom(ic.zoom / zoomStep)
}

// FitToWindow adjusts zoom to fit the micrograph in the visible area.
func (ic *ImageCanvas) FitToWindow() {
	if ic.img == nil {
		return
	}
	bounds := ic.img.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return
	}

	viewSize := ic.scroll.Size()
	if viewSize.Width <= 0 || viewSize.Height <= 0 {
		return
	}

	zoomX := float64(viewSize.Width) / float64(bounds.Dx())
	zoomY := float64(viewSize.Height) / float64(bounds.Dy())

	zoom := zoomX
	if zoomY < zoomX {
		zoom = zoomY
	}

	ic.SetZoom(zoom * 0.95) // Leave a small margin
}

// SetFitToWindow enables or disables fit-to-window mode.
func (ic *ImageCanvas) SetFitToWindow(fit bool) {
	ic.fitToWindow = fit
	if fit {
		ic.FitToWindow()
	}
}

// FitsToWindow returns whether fit-to-window mode is enabled.
func (ic *ImageCanvas) FitsToWindow() bool {
	return ic.fitToWindow
}

// OnZoomChange sets a callback for zoom changes.
func (ic *ImageCanvas) OnZoomChange(callback func(zoom float64)) {
	ic.onZoomChange = callback
}

// OnPointer sets a callback receiving the pointer position in image coordinates.
func (ic *ImageCanvas) OnPointer(callback func(x, y float64)) {
	ic.onPointer = callback
}

// Refresh redraws the canvas.
func (ic *ImageCanvas) Refresh() {
	ic.raster.Refresh()
}

func (ic *ImageCanvas) beginDrag(pt geometry.Point2D, secondary bool) {
	s := ic.picker.Session()
	if s.ClickAction != picker.ActionPick || !s.ShowROIs {
		return
	}
	grip := s.HandleSize / ic.zoom
	for _, r := range ic.picker.ROIs() {
		if !r.IsFilament() || !r.Visible {
			continue
		}
		if r.Start.Distance(pt) <= grip {
			ic.dragROI, ic.dragHandle = r, 0
			return
		}
		if r.End.Distance(pt) <= grip {
			ic.dragROI, ic.dragHandle = r, 1
			return
		}
	}

	r := ic.picker.ROIAt(pt)
	if r == nil {
		return
	}
	ic.dragROI = r
	ic.dragHandle = -1
	ic.resizing = secondary && r.IsFilament()
	ic.dragOffset = r.Anchor().Sub(pt)
}

func (ic *ImageCanvas) endDrag() {
	ic.dragROI = nil
	ic.dragHandle = -1
	ic.resizing = false
}

// toImage converts a position on the content widget to image coordinates.
func (ic *ImageCanvas) toImage(pos fyne.Position) geometry.Point2D {
	x, y := ic.CanvasToImage(float64(pos.X), float64(pos.Y))
	return geometry.Point2D{X: x, Y: y}
}

func (ic *ImageCanvas) updateContentSize() {
	if ic.img == nil || ic.img.Bounds().Dx() == 0 || ic.img.Bounds().Dy() == 0 {
		ic.imgSize = fyne.NewSize(400, 300)
	} else {
		b := ic.img.Bounds()
		ic.imgSize = fyne.NewSize(float32(float64(b.Dx())*ic.zoom), float32(float64(b.Dy())*ic.zoom))
	}

	ic.raster.SetMinSize(ic.imgSize)
	ic.raster.Resize(ic.imgSize)
	if ic.content != nil {
		ic.content.Resize(ic.imgSize)
		ic.content.Refresh()
	}
	ic.raster.Refresh()
	if ic.scroll != nil {
		ic.scroll.Refresh()
	}
}

// draw renders the micrograph and the overlay at the current zoom.
func (ic *ImageCanvas) draw(w, h int) image.Image {
	output := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 3; i < len(output.Pix); i += 4 {
		output.Pix[i] = 255
	}
	if ic.img == nil {
		return output
	}

	ic.drawImage(output, w, h)
	if ic.picker != nil {
		ic.drawOverlay(output, BuildOverlay(ic.picker))
	}
	return output
}

// drawImage samples the micrograph with nearest-neighbour scaling.
func (ic *ImageCanvas) drawImage(output *image.RGBA, w, h int) {
	src := ic.img
	sb := src.Bounds()
	gray, isGray := src.(*image.Gray)

	for y := 0; y < h; y++ {
		sy := int(float64(y)/ic.zoom) + sb.Min.Y
		if sy >= sb.Max.Y {
			break
		}
		for x := 0; x < w; x++ {
			sx := int(float64(x)/ic.zoom) + sb.Min.X
			if sx >= sb.Max.X {
				break
			}
			if isGray {
				v := gray.Pix[gray.PixOffset(sx, sy)]
				o := output.PixOffset(x, y)
				output.Pix[o], output.Pix[o+1], output.Pix[o+2] = v, v, v
				continue
			}
			output.Set(x, y, color.RGBAModel.Convert(src.At(sx, sy)))
		}
	}
}

// ImageToCanvas converts image coordinates to canvas coordinates.
func (ic *ImageCanvas) ImageToCanvas(imgX, imgY float64) (canvasX, canvasY float64) {
	return imgX * ic.zoom, imgY * ic.zoom
}

// CanvasToImage converts canvas coordinates to image coordinates.
func (ic *ImageCanvas) CanvasToImage(canvasX, canvasY float64) (imgX, imgY float64) {
	return canvasX / ic.zoom, canvasY / ic.zoom
}

// CreateRenderer implements fyne.Widget.
func (ic *ImageCanvas) CreateRenderer() fyne.WidgetRenderer {
	return &imageCanvasRenderer{canvas: ic}
}

type imageCanvasRenderer struct {
	canvas *ImageCanvas
}

func (r *imageCanvasRenderer) Layout(size fyne.Size) {
	r.canvas.scroll.Resize(size)
	if r.canvas.fitToWindow && size != r.canvas.lastScrollSize {
		r.canvas.lastScrollSize = size
		r.canvas.FitToWindow()
	}
}

func (r *imageCanvasRenderer) MinSize() fyne.Size {
	return fyne.NewSize(100, 100)
}

func (r *imageCanvasRenderer) Refresh() {
	r.canvas.raster.Refresh()
}

func (r *imageCanvasRenderer) Objects() []fyne.CanvasObject {
	return []fyne.CanvasObject{r.canvas.scroll}
}

func (r *imageCanvasRenderer) Destroy() {}
