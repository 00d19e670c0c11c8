package colorutil

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseARGB(t *testing.T) {
	tests := []struct {
		in   string
		want color.NRGBA
	}{
		{"#0012FF", color.NRGBA{R: 0x00, G: 0x12, B: 0xFF, A: 0xFF}},
		{"#801EFF00", color.NRGBA{R: 0x1E, G: 0xFF, B: 0x00, A: 0x80}},
		{"1eff00", color.NRGBA{R: 0x1E, G: 0xFF, B: 0x00, A: 0xFF}},
	}
	for _, tt := range tests {
		got, err := ParseARGB(tt.in)
		require.NoError(t, err, tt.in)
		require.Equal(t, tt.want, got, tt.in)
	}
}

func TestParseARGBInvalid(t *testing.T) {
	for _, in := range []string{"", "#123", "#GGGGGG", "#1234567"} {
		_, err := ParseARGB(in)
		require.Error(t, err, in)
	}
	require.Equal(t, Green, MustParseARGB("nope"))
}

func TestFormatARGB(t *testing.T) {
	require.Equal(t, "#FF0012FF", FormatARGB(color.NRGBA{R: 0x00, G: 0x12, B: 0xFF, A: 0xFF}))
}
