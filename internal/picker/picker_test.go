package picker

import (
	"testing"

	"github.com/stretchr/testify/require"

	"em-picker/internal/config"
	"em-picker/internal/picking"
	"em-picker/pkg/geometry"
)

type countRecorder struct {
	counts map[int][]int
}

func (c *countRecorder) SetCount(micID, n int) {
	if c.counts == nil {
		c.counts = make(map[int][]int)
	}
	c.counts[micID] = append(c.counts[micID], n)
}

func (c *countRecorder) last(micID int) int {
	v := c.counts[micID]
	return v[len(v)-1]
}

func newTestPicker(t *testing.T, mode string) (*Picker, *picking.Micrograph, *countRecorder, *[]picking.CoordinateEvent) {
	t.Helper()
	model := picking.NewPickerDataModel()
	cfg := config.Default().Picker
	cfg.Mode = mode
	cfg.Shape = ""
	s, err := NewSession(model, cfg)
	require.NoError(t, err)

	var events []picking.CoordinateEvent
	model.OnCoordinateChanged(func(ev picking.CoordinateEvent) { events = append(events, ev) })

	rec := &countRecorder{}
	p := New(s, rec)
	id := model.CreateMicrograph("a.mrc")
	mic, _ := model.Micrograph(id)
	require.NoError(t, p.SetMicrograph(mic))
	return p, mic, rec, &events
}

func pt(x, y float64) geometry.Point2D { return geometry.Point2D{X: x, Y: y} }

func TestClickAddsCoordinate(t *testing.T) {
	p, mic, rec, events := newTestPicker(t, "default")

	p.Click(pt(10, 20))
	require.Equal(t, 1, mic.Len())
	require.Len(t, p.ROIs(), 1)
	require.Equal(t, 1, rec.last(mic.ID()))
	require.Len(t, *events, 1)
	require.Equal(t, picking.CoordinateAdded, (*events)[0].Kind)

	c := mic.Entries()[0].(*picking.Coordinate)
	require.Equal(t, picking.LabelManual, c.Label())
	require.Equal(t, pt(10, 20), p.ROIs()[0].Anchor())
	require.Equal(t, 100.0, p.ROIs()[0].Bounds.Width)
}

func TestClickIgnoredWhileErasing(t *testing.T) {
	p, mic, _, _ := newTestPicker(t, "default")
	require.True(t, p.SetClickAction(ActionErase))
	p.Click(pt(1, 1))
	require.Zero(t, mic.Len())
}

func TestFilamentTwoClicks(t *testing.T) {
	p, mic, rec, _ := newTestPicker(t, "filament")

	p.Click(pt(0, 0))
	require.NotNil(t, p.Pending())
	require.Zero(t, mic.Len())

	p.Click(pt(0, 0))
	require.NotNil(t, p.Pending(), "second click at the start point is ignored")
	require.Zero(t, mic.Len())

	p.Move(pt(10, 0))
	require.Equal(t, "angle=0.00 len=10.00", p.Annotation().Text)

	p.Click(pt(10, 0))
	require.Nil(t, p.Pending())
	require.Equal(t, 1, mic.Len())
	require.Equal(t, 1, rec.last(mic.ID()))

	f := mic.Entries()[0].(*picking.Filament)
	require.Equal(t, pt(0, 0), f.Start.Point())
	require.Equal(t, pt(10, 0), f.End.Point())
	require.Equal(t, picking.LabelManual, f.Start.Label())
	require.Equal(t, picking.LabelManual, f.End.Label())
	require.Equal(t, "angle=0.00 len=10.00", p.Annotation().Text)
}

func TestFilamentUpwardAngle(t *testing.T) {
	p, mic, _, _ := newTestPicker(t, "filament")
	p.Click(pt(0, 10))
	p.Click(pt(0, 0))
	f := mic.Entries()[0].(*picking.Filament)
	require.InDelta(t, 90.0, f.Angle(), 1e-9)
}

func TestEraseBatch(t *testing.T) {
	p, mic, rec, events := newTestPicker(t, "default")
	p.Click(pt(0, 0))
	p.Click(pt(50, 0))
	p.Click(pt(1000, 1000))
	*events = nil

	require.True(t, p.SetClickAction(ActionErase))
	p.session.EraseSize = 20

	p.Press(pt(0, 0))
	require.Len(t, p.ROIs(), 2)
	require.Equal(t, 2, rec.last(mic.ID()))
	require.Equal(t, 3, mic.Len(), "nothing removed before release")

	p.Move(pt(50, 0))
	require.Len(t, p.ROIs(), 1)
	require.Equal(t, 1, rec.last(mic.ID()))
	require.Equal(t, "2", p.Lasso().Text)
	require.Empty(t, *events)

	p.Release()
	require.Equal(t, 1, mic.Len())
	require.False(t, p.Lasso().Visible)
	require.Len(t, *events, 1)
	require.Equal(t, picking.CoordinateRemoved, (*events)[0].Kind)
	require.Len(t, (*events)[0].Entries, 2)
	require.Equal(t, 1, (*events)[0].Count)

	left := mic.Entries()[0].(*picking.Coordinate)
	require.Equal(t, pt(1000, 1000), left.Point())
}

func TestEraseCenterShapeIntersects(t *testing.T) {
	p, mic, _, _ := newTestPicker(t, "default")
	require.NoError(t, p.SetShape(ShapeCenter))
	p.Click(pt(11, 0))
	p.SetClickAction(ActionErase)
	p.session.EraseSize = 20

	p.Press(pt(0, 0))
	p.Release()
	require.Zero(t, mic.Len())
}

func TestCancelEraseRestoresCount(t *testing.T) {
	p, mic, rec, _ := newTestPicker(t, "default")
	p.Click(pt(0, 0))
	p.SetClickAction(ActionErase)
	p.Press(pt(0, 0))
	require.Equal(t, 0, rec.last(mic.ID()))

	p.SetClickAction(ActionPick)
	require.Equal(t, 1, rec.last(mic.ID()))
	require.Len(t, p.ROIs(), 1)
}

func TestWheelBoxSize(t *testing.T) {
	p, _, _, _ := newTestPicker(t, "default")
	p.Click(pt(0, 0))

	p.Wheel(pt(0, 0), 1)
	require.Equal(t, 105, p.session.BoxSize())
	require.Equal(t, 105.0, p.ROIs()[0].Bounds.Width)
	require.Equal(t, pt(0, 0), p.ROIs()[0].Anchor())

	p.SetBoxSize(4)
	p.Wheel(pt(0, 0), -1)
	require.Equal(t, MinBoxSize, p.session.BoxSize())
}

func TestWheelEraseSize(t *testing.T) {
	p, _, _, _ := newTestPicker(t, "default")
	p.SetClickAction(ActionErase)
	p.Wheel(pt(5, 5), -100)
	require.Equal(t, 1.0, p.session.EraseSize)
	require.Equal(t, pt(5, 5), p.Lasso().Circle.Center)
}

func TestDragWritesTruncatedCenter(t *testing.T) {
	p, mic, _, events := newTestPicker(t, "default")
	p.Click(pt(0, 0))
	r := p.ROIs()[0]

	p.DragROI(r, pt(12.7, 8.2))
	c := mic.Entries()[0].(*picking.Coordinate)
	require.Equal(t, pt(0, 0), c.Point(), "not written before drag end")

	p.FinishDrag(r)
	require.Equal(t, pt(12, 8), c.Point())
	require.Equal(t, picking.CoordinateMoved, (*events)[len(*events)-1].Kind)
}

func TestFilamentDragAdoptsWidth(t *testing.T) {
	p, mic, _, _ := newTestPicker(t, "filament")
	p.Click(pt(0, 0))
	p.Click(pt(10, 0))
	r := p.ROIs()[0]

	p.DragHandle(r, 1, pt(20, 0))
	p.ResizeBand(r, 40)
	p.FinishDrag(r)

	f := mic.Entries()[0].(*picking.Filament)
	require.Equal(t, pt(20, 0), f.End.Point())
	require.Equal(t, 40, p.session.BoxSize())
}

func TestRemoveROI(t *testing.T) {
	p, mic, rec, _ := newTestPicker(t, "default")
	p.Click(pt(0, 0))
	r := p.ROIAt(pt(10, 10))
	require.NotNil(t, r)

	p.session.RemoveEnabled = false
	require.False(t, p.RemoveROI(r))
	require.Equal(t, 1, mic.Len())

	p.session.RemoveEnabled = true
	require.True(t, p.RemoveROI(r))
	require.Zero(t, mic.Len())
	require.Equal(t, 0, rec.last(mic.ID()))
	require.Nil(t, p.ROIAt(pt(0, 0)))
}

func TestSetShapeRebuilds(t *testing.T) {
	p, mic, _, _ := newTestPicker(t, "default")
	p.Click(pt(5, 5))
	before := p.ROIs()[0]

	require.NoError(t, p.SetShape(ShapeCircle))
	after := p.ROIs()[0]
	require.NotSame(t, before, after)
	require.Equal(t, ShapeCircle, after.Shape)
	require.Equal(t, 1, mic.Len())

	require.Error(t, p.SetShape(ShapeSegment))
}

func TestSetModeHidesMismatched(t *testing.T) {
	p, mic, _, _ := newTestPicker(t, "default")
	p.Click(pt(5, 5))

	err := p.SetMode(ModeFilament)
	require.ErrorIs(t, err, ErrModeMismatch)
	require.Empty(t, p.ROIs())
	require.Equal(t, 1, mic.Len())
	require.Equal(t, ShapeSegment, p.session.Shape)
	require.False(t, p.SetClickAction(ActionErase))
}

func TestToggleROIs(t *testing.T) {
	p, _, _, _ := newTestPicker(t, "default")
	p.Click(pt(0, 0))
	require.False(t, p.ToggleROIs())
	require.False(t, p.ROIs()[0].Visible)
	require.Nil(t, p.ROIAt(pt(0, 0)))
	require.True(t, p.ToggleROIs())
}

func TestSetLabel(t *testing.T) {
	p, mic, _, _ := newTestPicker(t, "default")
	p.SetLabel("A")
	p.Click(pt(0, 0))
	require.Equal(t, picking.LabelAuto, mic.Entries()[0].Label())
	require.Equal(t, uint8(0xFF), p.ROIs()[0].Color.B)
}

func TestRelabelFilament(t *testing.T) {
	p, mic, _, events := newTestPicker(t, "filament")
	p.Click(pt(0, 0))
	p.Click(pt(20, 0))
	require.Equal(t, 1, mic.Len())

	require.False(t, p.RelabelROI(p.ROIs()[0]), "label unchanged")

	p.SetLabel("A")
	require.True(t, p.RelabelROI(p.ROIs()[0]))
	f := mic.Entries()[0].(*picking.Filament)
	require.Equal(t, picking.LabelAuto, f.Label())
	require.Equal(t, picking.LabelAuto, f.Start.Label())
	require.Equal(t, picking.LabelAuto, f.End.Label())
	require.Equal(t, uint8(0xFF), p.ROIs()[0].Color.B)
	require.Equal(t, picking.CoordinateRelabeled, (*events)[len(*events)-1].Kind)
	require.Equal(t, 1, mic.Len())
}

func TestParseShape(t *testing.T) {
	s, err := ParseShape("circle")
	require.NoError(t, err)
	require.Equal(t, ShapeCircle, s)

	_, err = ParseShape("hexagon")
	require.Error(t, err)
}
