package mainwindow

import (
	"errors"
	"strconv"

	"em-picker/internal/picker"
	"em-picker/internal/picking"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
)

// toolbar holds the picking controls above the canvas.
type toolbar struct {
	mw *MainWindow

	box   *widget.Entry
	shape *widget.Select
	mode  *widget.Select
	label *widget.Select
	erase *widget.Check
	show  *widget.Check

	// updating suppresses callbacks while controls follow the session.
	updating bool
}

func newToolbar(mw *MainWindow) *toolbar {
	tb := &toolbar{mw: mw}
	s := mw.state.Session

	tb.box = widget.NewEntry()
	tb.box.OnSubmitted = func(text string) {
		n, err := strconv.Atoi(text)
		if err != nil {
			tb.showBoxSize(s.BoxSize())
			return
		}
		mw.state.SetBoxSize(n)
		tb.showBoxSize(s.BoxSize())
	}
	tb.showBoxSize(s.BoxSize())

	tb.mode = widget.NewSelect([]string{picker.ModeDefault.String(), picker.ModeFilament.String()}, tb.onMode)
	tb.shape = widget.NewSelect(nil, tb.onShape)
	tb.label = widget.NewSelect(labelOptions(mw.state.Model), func(name string) {
		if !tb.updating {
			mw.state.Picker.SetLabel(name)
		}
	})
	tb.erase = widget.NewCheck("Erase", tb.onErase)
	tb.show = widget.NewCheck("Show", func(on bool) {
		if !tb.updating && on != s.ShowROIs {
			mw.state.Picker.ToggleROIs()
		}
	})

	tb.sync()
	return tb
}

func (tb *toolbar) container() fyne.CanvasObject {
	mw := tb.mw
	step := func(d int) func() {
		return func() { mw.state.SetBoxSize(mw.state.Session.BoxSize() + d) }
	}
	boxField := container.NewGridWrap(fyne.NewSize(70, tb.box.MinSize().Height), tb.box)

	return container.NewHBox(
		widget.NewLabel("Box:"),
		widget.NewButton("-", step(-5)),
		boxField,
		widget.NewButton("+", step(5)),
		widget.NewSeparator(),
		widget.NewLabel("Mode:"), tb.mode,
		widget.NewLabel("Shape:"), tb.shape,
		widget.NewLabel("Label:"), tb.label,
		widget.NewSeparator(),
		tb.erase,
		tb.show,
		widget.NewSeparator(),
		widget.NewLabel("Zoom:"),
		widget.NewButton("-", mw.onZoomOut),
		widget.NewButton("+", mw.onZoomIn),
		widget.NewButton("Fit", mw.onToggleFitToWindow),
		widget.NewButton("1:1", mw.onActualSize),
	)
}

// sync makes every control reflect the session.
func (tb *toolbar) sync() {
	s := tb.mw.state.Session
	tb.updating = true
	defer func() { tb.updating = false }()

	tb.mode.SetSelected(s.Mode.String())

	var shapes []string
	for _, sh := range []picker.Shape{picker.ShapeRect, picker.ShapeCircle, picker.ShapeCenter, picker.ShapeSegment} {
		if sh.ValidFor(s.Mode) {
			shapes = append(shapes, sh.String())
		}
	}
	tb.shape.Options = shapes
	tb.shape.SetSelected(s.Shape.String())

	tb.label.Options = labelOptions(tb.mw.state.Model)
	tb.label.SetSelected(s.CurrentLabel)

	tb.erase.SetChecked(s.ClickAction == picker.ActionErase)
	if s.Mode == picker.ModeFilament {
		tb.erase.Disable()
	} else {
		tb.erase.Enable()
	}
	tb.show.SetChecked(s.ShowROIs)
}

func (tb *toolbar) showBoxSize(n int) {
	text := strconv.Itoa(n)
	if tb.box.Text != text {
		tb.box.SetText(text)
	}
}

func (tb *toolbar) onMode(name string) {
	if tb.updating {
		return
	}
	m, err := picker.ParseMode(name)
	if err != nil {
		return
	}
	err = tb.mw.state.Picker.SetMode(m)
	switch {
	case errors.Is(err, picker.ErrModeMismatch):
		tb.mw.updateStatus("Some coordinates are hidden: they do not match the " + m.String() + " mode")
	case err != nil:
		dialog.ShowError(err, tb.mw.Window)
	}
	tb.sync()
}

func (tb *toolbar) onShape(name string) {
	if tb.updating {
		return
	}
	sh, err := picker.ParseShape(name)
	if err == nil {
		err = tb.mw.state.Picker.SetShape(sh)
	}
	if err != nil {
		dialog.ShowError(err, tb.mw.Window)
		tb.sync()
	}
}

func (tb *toolbar) onErase(on bool) {
	if tb.updating {
		return
	}
	a := picker.ActionPick
	if on {
		a = picker.ActionErase
	}
	if !tb.mw.state.Picker.SetClickAction(a) {
		tb.sync()
	}
}

func (tb *toolbar) toggleErase() {
	if !tb.erase.Disabled() {
		tb.erase.SetChecked(!tb.erase.Checked)
	}
}

func (tb *toolbar) toggleROIs() {
	tb.show.SetChecked(!tb.show.Checked)
}

func labelOptions(m *picking.PickerDataModel) []string {
	labels := m.Labels()
	names := make([]string, len(labels))
	for i, l := range labels {
		names[i] = l.Name
	}
	return names
}
