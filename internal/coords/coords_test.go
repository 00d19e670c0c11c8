package coords

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"em-picker/internal/picking"
)

func TestParseText(t *testing.T) {
	in := `# x y label
10 20
30.5 40 Auto

50 60 Good
`
	got, err := ParseText(strings.NewReader(in))
	require.NoError(t, err)
	require.Equal(t, []Triple{
		{X: 10, Y: 20, Label: "Manual"},
		{X: 30.5, Y: 40, Label: "Auto"},
		{X: 50, Y: 60, Label: "Good"},
	}, got)
}

func TestParseTextErrors(t *testing.T) {
	_, err := ParseText(strings.NewReader("10\n"))
	require.ErrorIs(t, err, ErrFormat)

	_, err = ParseText(strings.NewReader("10 abc\n"))
	require.ErrorIs(t, err, ErrFormat)
}

func TestParseBox(t *testing.T) {
	got, err := ParseBox(strings.NewReader("0\t0\t100\t100\n50 60 20 20\n7 8\n"))
	require.NoError(t, err)
	require.Equal(t, []Triple{
		{X: 50, Y: 50, Label: "Manual"},
		{X: 60, Y: 70, Label: "Manual"},
		{X: 7, Y: 8, Label: "Manual"},
	}, got)
}

func TestParseFileDispatch(t *testing.T) {
	dir := t.TempDir()
	box := filepath.Join(dir, "a.box")
	txt := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(box, []byte("0 0 10 10\n"), 0o644))
	require.NoError(t, os.WriteFile(txt, []byte("0 0 10 10\n"), 0o644))

	got, err := ParseFile(box)
	require.NoError(t, err)
	require.Equal(t, 5.0, got[0].X)

	got, err = ParseFile(txt)
	require.NoError(t, err)
	require.Equal(t, 0.0, got[0].X)
	require.Equal(t, "10", got[0].Label)

	_, err = ParseFile(filepath.Join(dir, "missing.box"))
	require.Error(t, err)
}

func TestWriteBox(t *testing.T) {
	mic := picking.NewMicrograph(1, "a.mrc",
		picking.Single{X: 50, Y: 50},
		picking.Pair{X1: 0, Y1: 0, X2: 1, Y2: 1},
	)
	var buf bytes.Buffer
	require.NoError(t, WriteBox(&buf, mic, 20))
	require.Equal(t, "40\t40\t20\t20\n", buf.String())

	back, err := ParseBox(&buf)
	require.NoError(t, err)
	require.Equal(t, []Triple{{X: 50, Y: 50, Label: "Manual"}}, back)
}

func TestParsePicking(t *testing.T) {
	doc := `{
  "micrograph": "/data/mic1.mrc",
  "box": {"width": 64, "height": 64},
  "coordinates": [[10, 20], [30, 40, "Auto"], [1, 2, 3, 4, "Manual"]]
}`
	mic, box, err := ParsePicking([]byte(doc))
	require.NoError(t, err)
	require.Equal(t, "/data/mic1.mrc", mic.Path())
	require.Zero(t, mic.ID())
	require.Equal(t, Box{Width: 64, Height: 64}, box)
	require.Equal(t, 3, mic.Len())

	entries := mic.Entries()
	require.Equal(t, picking.LabelDefault, entries[0].Label())
	require.Equal(t, "Auto", entries[1].Label())
	f := entries[2].(*picking.Filament)
	require.Equal(t, 3.0, f.End.X)
}

func TestParsePickingErrors(t *testing.T) {
	for _, doc := range []string{
		`{`,
		`{"coordinates": []}`,
		`{"micrograph": "a.mrc", "coordinates": [[1]]}`,
	} {
		_, _, err := ParsePicking([]byte(doc))
		require.Error(t, err, doc)
	}

	_, _, err := ParsePicking([]byte(`{"micrograph": "a.mrc", "coordinates": [[1, 2, 3]]}`))
	require.ErrorIs(t, err, picking.ErrInvalidSpec)
}

func TestWriteReadPicking(t *testing.T) {
	mic := picking.NewMicrograph(3, "mic.mrc",
		picking.Single{X: 1.5, Y: 2, Label: "Auto"},
		picking.Pair{X1: 0, Y1: 0, X2: 5, Y2: 5, Label: "Manual"},
	)
	path := filepath.Join(t.TempDir(), "mic.json")
	require.NoError(t, WritePicking(path, mic, 32))

	back, box, err := ReadPicking(path)
	require.NoError(t, err)
	require.Equal(t, 32, box.Width)
	require.Equal(t, 2, back.Len())
	c := back.Entries()[0].(*picking.Coordinate)
	require.Equal(t, 1.5, c.X)
	require.Equal(t, "Auto", c.Label())
	_, ok := back.Entries()[1].(*picking.Filament)
	require.True(t, ok)
}
