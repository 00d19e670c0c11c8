package picking

import (
	"image/color"

	"em-picker/pkg/colorutil"
)

// Label is a named display color used to group coordinates.
type Label struct {
	Name  string `json:"name" mapstructure:"name"`
	Color string `json:"color" mapstructure:"color"` // #AARRGGBB
}

// RGBA returns the parsed label color.
func (l Label) RGBA() color.NRGBA {
	return colorutil.MustParseARGB(l.Color)
}

// builtinLabels returns the three built-in labels with their single-letter aliases.
func builtinLabels() (byName map[string]Label, byAlias map[string]Label) {
	auto := Label{Name: LabelAuto, Color: "#0012FF"}
	manual := Label{Name: LabelManual, Color: "#1EFF00"}
	def := Label{Name: LabelDefault, Color: "#1EFF00"}

	byName = map[string]Label{
		auto.Name:   auto,
		manual.Name: manual,
		def.Name:    def,
	}
	byAlias = map[string]Label{
		"A": auto,
		"M": manual,
		"D": def,
	}
	return byName, byAlias
}
