package app

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"
)

// PickerTheme is always dark so micrographs keep their contrast, with
// the Manual label green as primary color.
type PickerTheme struct{}

var _ fyne.Theme = (*PickerTheme)(nil)

var (
	pickerPrimary   = color.NRGBA{R: 0x1E, G: 0xFF, B: 0x00, A: 0xFF}
	pickerSelection = color.NRGBA{R: 0x00, G: 0x12, B: 0xFF, A: 0x60}
	pickerSurface   = color.NRGBA{R: 0x1C, G: 0x1C, B: 0x1C, A: 0xFF}
)

func (t *PickerTheme) Color(name fyne.ThemeColorName, _ fyne.ThemeVariant) color.Color {
	switch name {
	case theme.ColorNamePrimary, theme.ColorNameFocus:
		return pickerPrimary
	case theme.ColorNameSelection:
		return pickerSelection
	case theme.ColorNameBackground:
		return pickerSurface
	case theme.ColorNameForegroundOnPrimary:
		return color.Black
	}
	return theme.DefaultTheme().Color(name, theme.VariantDark)
}

func (t *PickerTheme) Font(style fyne.TextStyle) fyne.Resource {
	return theme.DefaultTheme().Font(style)
}

func (t *PickerTheme) Icon(name fyne.ThemeIconName) fyne.Resource {
	return theme.DefaultTheme().Icon(name)
}

// Size tightens padding so the table and toolbar leave room for the image.
func (t *PickerTheme) Size(name fyne.ThemeSizeName) float32 {
	switch name {
	case theme.SizeNameText:
		return 13
	case theme.SizeNamePadding:
		return 3
	case theme.SizeNameInnerPadding:
		return 6
	}
	return theme.DefaultTheme().Size(name)
}
