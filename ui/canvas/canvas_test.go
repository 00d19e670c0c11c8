package canvas

import (
	"image"
	"testing"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/test"
	"github.com/stretchr/testify/require"

	"em-picker/internal/config"
	"em-picker/internal/picker"
	"em-picker/internal/picking"
	"em-picker/pkg/colorutil"
	"em-picker/pkg/geometry"
)

func newPicker(t *testing.T, mode string) (*picker.Picker, *picking.Micrograph) {
	t.Helper()
	model := picking.NewPickerDataModel()
	cfg := config.Default().Picker
	cfg.Mode = mode
	s, err := picker.NewSession(model, cfg)
	require.NoError(t, err)
	p := picker.New(s, nil)
	id := model.CreateMicrograph("a.mrc")
	mic, _ := model.Micrograph(id)
	require.NoError(t, p.SetMicrograph(mic))
	return p, mic
}

func TestBuildOverlayShapes(t *testing.T) {
	p, _ := newPicker(t, "default")
	p.Click(geometry.NewPoint2D(50, 50))

	ov := BuildOverlay(p)
	require.Len(t, ov.Rectangles, 1)
	require.Equal(t, geometry.NewRect(0, 0, 100, 100), ov.Rectangles[0].Rect)

	require.NoError(t, p.SetShape(picker.ShapeCircle))
	ov = BuildOverlay(p)
	require.Empty(t, ov.Rectangles)
	require.Len(t, ov.Circles, 1)
	require.Equal(t, 50.0, ov.Circles[0].Radius)
	require.False(t, ov.Circles[0].Filled)

	require.NoError(t, p.SetShape(picker.ShapeCenter))
	ov = BuildOverlay(p)
	require.True(t, ov.Circles[0].Filled)

	p.ToggleROIs()
	require.Empty(t, BuildOverlay(p).Circles)
}

func TestBuildOverlayFilament(t *testing.T) {
	p, _ := newPicker(t, "filament")
	p.Click(geometry.NewPoint2D(0, 0))
	p.Move(geometry.NewPoint2D(10, 0))

	ov := BuildOverlay(p)
	require.Len(t, ov.Lines, 1, "pending segment")
	require.Len(t, ov.Labels, 1)
	require.Equal(t, "angle=0.00 len=10.00", ov.Labels[0].Text)

	p.Click(geometry.NewPoint2D(10, 0))
	ov = BuildOverlay(p)
	require.Empty(t, ov.Lines)
	require.Len(t, ov.Polygons, 1)
	require.Len(t, ov.Polygons[0].Points, 4)
	require.Len(t, ov.Handles, 2)
}

func TestBuildOverlayLasso(t *testing.T) {
	p, _ := newPicker(t, "default")
	p.Click(geometry.NewPoint2D(0, 0))
	require.True(t, p.SetClickAction(picker.ActionErase))
	p.Press(geometry.NewPoint2D(0, 0))

	ov := BuildOverlay(p)
	require.Empty(t, ov.Rectangles, "marked regions are hidden")
	require.Len(t, ov.Circles, 1)
	require.Equal(t, colorutil.Yellow, ov.Circles[0].Color)
	require.Equal(t, "1", ov.Labels[0].Text)
}

func TestDrawOverlayScalesByZoom(t *testing.T) {
	ic := &ImageCanvas{zoom: 2}
	out := image.NewRGBA(image.Rect(0, 0, 100, 100))
	ic.drawOverlay(out, &Overlay{
		Rectangles: []OverlayRect{{Rect: geometry.NewRect(10, 10, 20, 20), Color: colorutil.Green}},
	})

	require.Equal(t, uint8(0xFF), out.RGBAAt(20, 20).G, "top-left corner at 2x")
	require.Equal(t, uint8(0xFF), out.RGBAAt(60, 40).G, "right edge at 2x")
	require.Zero(t, out.RGBAAt(40, 40).G, "outline only")
}

func TestDrawTextClipsAtEdge(t *testing.T) {
	out := image.NewRGBA(image.Rect(0, 0, 8, 8))
	require.NotPanics(t, func() {
		drawText(out, "len=12.5", 2, 2, colorutil.White, 3)
	})
	require.Equal(t, uint8(0xFF), out.RGBAAt(2, 2).R, "top of 'L'")
}

func TestReadoutGlyphsExist(t *testing.T) {
	for _, text := range []string{"angle=", "angle=-135.25 len=42.00", "0123456789"} {
		for _, ch := range text {
			if ch == ' ' {
				continue
			}
			require.NotEqual(t, [5]uint8{}, glyph(ch), "no glyph for %q", ch)
		}
	}
	require.Equal(t, [5]uint8{}, glyph('?'))
}

func TestCanvasTapAndErase(t *testing.T) {
	test.NewApp()
	p, mic := newPicker(t, "default")
	ic := NewImageCanvas(p)
	ic.SetImage(image.NewGray(image.Rect(0, 0, 400, 400)))

	ic.content.Tapped(&fyne.PointEvent{Position: fyne.NewPos(200, 200)})
	require.Equal(t, 1, mic.Len())

	ic.content.Tapped(&fyne.PointEvent{Position: fyne.NewPos(210, 210)})
	require.Equal(t, 1, mic.Len(), "tap on an existing region does not pick")

	ic.SetZoom(2)
	ic.content.Tapped(&fyne.PointEvent{Position: fyne.NewPos(40, 40)})
	require.Equal(t, 2, mic.Len())
	c := mic.Entries()[1].(*picking.Coordinate)
	require.Equal(t, geometry.NewPoint2D(20, 20), c.Point())

	p.SetLabel(picking.LabelAuto)
	middle := &desktop.MouseEvent{Button: desktop.MouseButtonTertiary}
	middle.Position = fyne.NewPos(40, 40)
	ic.content.MouseDown(middle)
	ic.content.MouseUp(middle)
	require.Equal(t, picking.LabelAuto, mic.Entries()[1].Label())
	require.Equal(t, picking.LabelManual, mic.Entries()[0].Label())

	require.True(t, p.SetClickAction(picker.ActionErase))
	press := &desktop.MouseEvent{Button: desktop.MouseButtonPrimary}
	press.Position = fyne.NewPos(400, 400)
	ic.content.MouseDown(press)
	ic.content.MouseUp(press)
	require.Equal(t, 1, mic.Len())
}

func TestCanvasDragMovesRegion(t *testing.T) {
	test.NewApp()
	p, mic := newPicker(t, "default")
	ic := NewImageCanvas(p)
	ic.SetImage(image.NewGray(image.Rect(0, 0, 400, 400)))
	p.Click(geometry.NewPoint2D(100, 100))

	down := &desktop.MouseEvent{Button: desktop.MouseButtonPrimary}
	down.Position = fyne.NewPos(110, 100)
	ic.content.MouseDown(down)

	drag := &fyne.DragEvent{}
	drag.Position = fyne.NewPos(160, 130)
	ic.content.Dragged(drag)
	ic.content.DragEnd()

	c := mic.Entries()[0].(*picking.Coordinate)
	require.Equal(t, geometry.NewPoint2D(150, 130), c.Point())
}
