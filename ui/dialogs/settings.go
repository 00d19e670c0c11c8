// Package dialogs provides application dialogs.
package dialogs

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"em-picker/internal/config"
	"em-picker/pkg/colorutil"

	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
)

var swatchUnset = color.NRGBA{R: 128, G: 128, B: 128, A: 255}

// SettingsDialog provides a property sheet for the picker configuration.
type SettingsDialog struct {
	cfg    config.Config
	window fyne.Window

	// Picking
	boxEntry    *widget.Entry
	eraseEntry  *widget.Entry
	handleEntry *widget.Entry
	removeCheck *widget.Check

	// Display
	lowpassEntry *widget.Entry

	// New label
	labelName   *widget.Entry
	labelColor  *widget.Entry
	colorSwatch *fynecanvas.Rectangle

	onSave func(config.Config)
}

// NewSettingsDialog creates a settings dialog over a copy of cfg. onSave
// receives the edited configuration.
func NewSettingsDialog(cfg config.Config, window fyne.Window, onSave func(config.Config)) *SettingsDialog {
	cfg.Picker.Labels = append([]config.Label(nil), cfg.Picker.Labels...)
	return &SettingsDialog{
		cfg:    cfg,
		window: window,
		onSave: onSave,
	}
}

// Show displays the dialog.
func (d *SettingsDialog) Show() {
	content := d.createContent()

	dlg := dialog.NewCustomConfirm(
		"Settings",
		"Save",
		"Cancel",
		content,
		func(save bool) {
			if !save {
				return
			}
			if err := d.applyChanges(); err != nil {
				dialog.ShowError(err, d.window)
				return
			}
			if d.onSave != nil {
				d.onSave(d.cfg)
			}
		},
		d.window,
	)
	dlg.Resize(fyne.NewSize(420, 560))
	dlg.Show()
}

func (d *SettingsDialog) createContent() fyne.CanvasObject {
	p := d.cfg.Picker

	d.boxEntry = widget.NewEntry()
	d.boxEntry.SetText(strconv.Itoa(p.BoxSize))
	d.eraseEntry = widget.NewEntry()
	d.eraseEntry.SetText(fmt.Sprintf("%.0f", p.EraseSize))
	d.handleEntry = widget.NewEntry()
	d.handleEntry.SetText(fmt.Sprintf("%.0f", p.HandleSize))
	d.removeCheck = widget.NewCheck("Right click removes", nil)
	d.removeCheck.SetChecked(p.RemoveROIs)

	pickingForm := widget.NewForm(
		widget.NewFormItem("Box size (px)", d.boxEntry),
		widget.NewFormItem("Erase diameter (px)", d.eraseEntry),
		widget.NewFormItem("Handle size (px)", d.handleEntry),
		widget.NewFormItem("", d.removeCheck),
	)

	d.lowpassEntry = widget.NewEntry()
	d.lowpassEntry.SetText(strconv.FormatFloat(d.cfg.Display.Lowpass, 'f', -1, 64))
	displayForm := widget.NewForm(
		widget.NewFormItem("Lowpass sigma (px)", d.lowpassEntry),
	)

	d.labelName = widget.NewEntry()
	d.labelName.SetPlaceHolder("Name")
	d.labelColor = widget.NewEntry()
	d.labelColor.SetPlaceHolder("#AARRGGBB")
	d.colorSwatch = fynecanvas.NewRectangle(swatchUnset)
	d.colorSwatch.SetMinSize(fyne.NewSize(40, 24))
	d.labelColor.OnChanged = func(string) { d.updateColorSwatch() }

	labelForm := container.NewVBox(
		widget.NewLabel(d.labelList()),
		widget.NewForm(
			widget.NewFormItem("Name", d.labelName),
			widget.NewFormItem("Color", container.NewBorder(nil, nil, nil, d.colorSwatch, d.labelColor)),
		),
	)

	return container.NewVBox(
		widget.NewCard("Picking", "", pickingForm),
		widget.NewCard("Display", "", displayForm),
		widget.NewCard("Labels", "", labelForm),
	)
}

func (d *SettingsDialog) labelList() string {
	if len(d.cfg.Picker.Labels) == 0 {
		return "No custom labels"
	}
	lines := make([]string, len(d.cfg.Picker.Labels))
	for i, l := range d.cfg.Picker.Labels {
		lines[i] = l.Name + "  " + l.Color
	}
	return strings.Join(lines, "\n")
}

// applyChanges copies the form into cfg. Unparsable numbers keep their
// previous value; a bad label color is an error.
func (d *SettingsDialog) applyChanges() error {
	p := &d.cfg.Picker
	if v, err := strconv.Atoi(strings.TrimSpace(d.boxEntry.Text)); err == nil && v > 0 {
		p.BoxSize = v
	}
	if v, err := strconv.ParseFloat(strings.TrimSpace(d.eraseEntry.Text), 64); err == nil && v > 0 {
		p.EraseSize = v
	}
	if v, err := strconv.ParseFloat(strings.TrimSpace(d.handleEntry.Text), 64); err == nil && v > 0 {
		p.HandleSize = v
	}
	p.RemoveROIs = d.removeCheck.Checked

	if v, err := strconv.ParseFloat(strings.TrimSpace(d.lowpassEntry.Text), 64); err == nil && v >= 0 {
		d.cfg.Display.Lowpass = v
	}

	name := strings.TrimSpace(d.labelName.Text)
	if name == "" {
		return nil
	}
	c, err := colorutil.ParseARGB(strings.TrimSpace(d.labelColor.Text))
	if err != nil {
		return fmt.Errorf("label %s: %w", name, err)
	}
	l := config.Label{Name: name, Color: colorutil.FormatARGB(c)}
	for i := range p.Labels {
		if p.Labels[i].Name == name {
			p.Labels[i] = l
			return nil
		}
	}
	p.Labels = append(p.Labels, l)
	return nil
}

func (d *SettingsDialog) updateColorSwatch() {
	if c, err := colorutil.ParseARGB(strings.TrimSpace(d.labelColor.Text)); err == nil {
		d.colorSwatch.FillColor = c
	} else {
		d.colorSwatch.FillColor = swatchUnset
	}
	fynecanvas.Refresh(d.colorSwatch)
}
