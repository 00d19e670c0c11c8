package app

import (
	"context"
	"errors"
	goimage "image"
	"os"
	"path/filepath"
	"testing"
	"time"

	"fyne.io/fyne/v2/theme"
	"github.com/stretchr/testify/require"

	"em-picker/internal/config"
	"em-picker/internal/coords"
	"em-picker/internal/image"
	"em-picker/internal/picking"
	"em-picker/internal/store"
	"em-picker/pkg/geometry"
)

func newTestState(t *testing.T) *State {
	t.Helper()
	s, err := NewState(config.Default())
	require.NoError(t, err)
	s.LoadImage = func(path string, _ image.DisplayOptions) (goimage.Image, error) {
		return goimage.NewGray(goimage.Rect(0, 0, 8, 8)), nil
	}
	return s
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestOpenImageWithCoordinates(t *testing.T) {
	s := newTestState(t)
	var added []*picking.Micrograph
	s.On(EventMicrographAdded, func(data interface{}) { added = append(added, data.(*picking.Micrograph)) })
	var selected []Selection
	s.On(EventMicrographSelected, func(data interface{}) { selected = append(selected, data.(Selection)) })

	err := s.OpenFile("/data/mic1.mrc", OpenOptions{
		Coordinates: []coords.Triple{{X: 1, Y: 2, Label: "Auto"}},
		Show:        true,
	})
	require.NoError(t, err)
	require.Len(t, added, 1)
	require.Equal(t, 1, added[0].Len())
	require.Len(t, selected, 1)
	require.NotNil(t, selected[0].Image)
	require.Same(t, added[0], s.Current())

	row, ok := s.Table.Row(0)
	require.True(t, ok)
	require.Equal(t, "mic1.mrc", row.Name)
	require.Equal(t, 1, row.Count)
}

func TestOpenBoxNeedsMicrograph(t *testing.T) {
	s := newTestState(t)
	var errs []error
	s.On(EventError, func(data interface{}) { errs = append(errs, data.(error)) })

	box := writeFile(t, t.TempDir(), "a.box", "0 0 10 10\n")
	err := s.OpenFile(box, OpenOptions{})
	require.ErrorIs(t, err, picking.ErrNoMicrograph)
	require.Len(t, errs, 1)
}

func TestOpenBoxReplacesOrAppends(t *testing.T) {
	s := newTestState(t)
	dir := t.TempDir()
	require.NoError(t, s.OpenFile("/data/mic1.mrc", OpenOptions{
		Coordinates: []coords.Triple{{X: 1, Y: 2}},
		Show:        true,
	}))
	box := writeFile(t, dir, "mic1.box", "0 0 10 10\n20 20 10 10\n")

	require.NoError(t, s.OpenFile(box, OpenOptions{}))
	require.Equal(t, 2, s.Current().Len())
	require.Len(t, s.Picker.ROIs(), 2)

	require.NoError(t, s.OpenFile(box, OpenOptions{Append: true}))
	require.Equal(t, 4, s.Current().Len())
	row, _ := s.Table.Row(0)
	require.Equal(t, 4, row.Count)
	require.True(t, s.Modified)
}

func TestOpenPickingFile(t *testing.T) {
	s := newTestState(t)
	path := writeFile(t, t.TempDir(), "mic.json",
		`{"micrograph": "/data/m.mrc", "box": {"width": 64, "height": 64}, "coordinates": [[1, 2], [3, 4, "Auto"]]}`)

	var boxes []int
	s.On(EventBoxSizeChanged, func(data interface{}) { boxes = append(boxes, data.(int)) })

	require.NoError(t, s.OpenFile(path, OpenOptions{Show: true}))
	require.Equal(t, 2, s.Current().Len())
	require.Equal(t, []int{64}, boxes)
	require.Equal(t, 64, s.Session.BoxSize())
}

func TestOpenBadPickingFile(t *testing.T) {
	s := newTestState(t)
	path := writeFile(t, t.TempDir(), "bad.json", `{"micrograph": "m.mrc", "coordinates": [[1]]}`)
	err := s.OpenFile(path, OpenOptions{})
	require.ErrorIs(t, err, picking.ErrInvalidSpec)
	require.Zero(t, s.Model.Len())
}

func TestSelectReportsMissingImage(t *testing.T) {
	s := newTestState(t)
	s.LoadImage = func(string, image.DisplayOptions) (goimage.Image, error) {
		return nil, errors.New("boom")
	}
	var errs int
	s.On(EventError, func(interface{}) { errs++ })
	var sel Selection
	s.On(EventMicrographSelected, func(data interface{}) { sel = data.(Selection) })

	id, err := s.AddImage("a.mrc", nil)
	require.NoError(t, err)
	require.NoError(t, s.Select(id))
	require.Equal(t, 1, errs)
	require.Nil(t, sel.Image)
	require.NotNil(t, sel.Micrograph)

	require.Error(t, s.Select(999))
}

func TestWatchCoordinatesReloads(t *testing.T) {
	s := newTestState(t)
	dir := t.TempDir()
	coordPath := writeFile(t, dir, "mic1.txt", "1 1\n")
	require.NoError(t, s.OpenFile("/data/mic1.mrc", OpenOptions{CoordinatePath: coordPath, Show: true}))
	require.Equal(t, 1, s.Current().Len())

	w := NewFileWatcher(time.Hour)
	s.WatchCoordinates(w)
	require.Equal(t, []string{coordPath}, w.Paths())

	require.NoError(t, os.WriteFile(coordPath, []byte("1 1\n2 2\n3 3\n"), 0o644))
	later := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(coordPath, later, later))

	require.Equal(t, []string{coordPath}, w.Check())
	require.Equal(t, 3, s.Current().Len())
	require.Empty(t, w.Check())
}

func TestWatcherPostsReloadToOwner(t *testing.T) {
	s := newTestState(t)
	posted := make(chan func(), 4)
	s.Post = func(fn func()) { posted <- fn }

	dir := t.TempDir()
	coordPath := writeFile(t, dir, "mic1.txt", "1 1\n")
	require.NoError(t, s.OpenFile("/data/mic1.mrc", OpenOptions{CoordinatePath: coordPath, Show: true}))

	w := NewFileWatcher(5 * time.Millisecond)
	s.WatchCoordinates(w)
	w.Start()
	defer w.Stop()

	require.NoError(t, os.WriteFile(coordPath, []byte("1 1\n2 2\n3 3\n"), 0o644))
	later := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(coordPath, later, later))

	// Keep picking on this goroutine while the watcher polls; the reload
	// only lands when this goroutine runs the posted function.
	deadline := time.After(5 * time.Second)
	for reloaded := false; !reloaded; {
		s.Picker.Click(geometry.Point2D{X: 40, Y: 40})
		select {
		case fn := <-posted:
			fn()
			reloaded = true
		case <-deadline:
			t.Fatal("coordinate file change was not reported")
		case <-time.After(time.Millisecond):
		}
	}
	require.Equal(t, 3, s.Current().Len())
	row, ok := s.Table.Row(0)
	require.True(t, ok)
	require.Equal(t, 3, row.Count)
}

func TestSaveAndLoadSession(t *testing.T) {
	ctx := context.Background()
	st, err := store.Open(filepath.Join(t.TempDir(), "s.db"))
	require.NoError(t, err)
	defer st.Close()

	s := newTestState(t)
	s.Store = st
	require.NoError(t, s.OpenFile("/data/a.mrc", OpenOptions{
		Coordinates: []coords.Triple{{X: 1, Y: 2}, {X: 3, Y: 4}},
		Show:        true,
	}))
	id, err := s.SaveSession(ctx, "first")
	require.NoError(t, err)
	require.False(t, s.Modified)

	other := newTestState(t)
	other.Store = st
	require.NoError(t, other.LoadSession(ctx, id))
	require.Equal(t, 1, other.Model.Len())
	require.Equal(t, 2, other.Current().Len())
	require.Equal(t, 1, other.Table.Len())
	require.Equal(t, id, other.SessionID)
}

func TestSaveSessionWithoutStore(t *testing.T) {
	s := newTestState(t)
	_, err := s.SaveSession(context.Background(), "x")
	require.Error(t, err)
}

func TestSavePickingAndExportBox(t *testing.T) {
	s := newTestState(t)
	dir := t.TempDir()
	require.NoError(t, s.OpenFile("/data/a.mrc", OpenOptions{
		Coordinates: []coords.Triple{{X: 50, Y: 50}},
		Show:        true,
	}))

	jsonPath := filepath.Join(dir, "a.json")
	require.NoError(t, s.SavePicking(jsonPath))
	mic, box, err := coords.ReadPicking(jsonPath)
	require.NoError(t, err)
	require.Equal(t, 1, mic.Len())
	require.Equal(t, 100, box.Width)

	boxPath := filepath.Join(dir, "a.box")
	require.NoError(t, s.ExportBox(boxPath))
	data, err := os.ReadFile(boxPath)
	require.NoError(t, err)
	require.Equal(t, "0\t0\t100\t100\n", string(data))
}

func TestApplyConfig(t *testing.T) {
	s := newTestState(t)
	var lowpass []float64
	s.LoadImage = func(_ string, opts image.DisplayOptions) (goimage.Image, error) {
		lowpass = append(lowpass, opts.Lowpass)
		return goimage.NewGray(goimage.Rect(0, 0, 8, 8)), nil
	}
	require.NoError(t, s.OpenFile("/data/a.mrc", OpenOptions{Show: true}))
	require.Equal(t, []float64{0}, lowpass)

	cfg := s.Config
	cfg.Picker.BoxSize = 64
	cfg.Picker.EraseSize = 40
	cfg.Picker.RemoveROIs = false
	cfg.Picker.Labels = []config.Label{{Name: "Ice", Color: "#FF00FFFF"}}
	cfg.Display.Lowpass = 2
	s.ApplyConfig(cfg)

	require.Equal(t, 64, s.Session.BoxSize())
	require.Equal(t, 40.0, s.Session.EraseSize)
	require.False(t, s.Session.RemoveEnabled)
	require.Equal(t, "#FF00FFFF", s.Model.Label("Ice").Color)
	require.Equal(t, []float64{0, 2}, lowpass, "lowpass change reloads the image")

	s.ApplyConfig(cfg)
	require.Len(t, lowpass, 2)
}

func TestPickerThemeIsDark(t *testing.T) {
	th := &PickerTheme{}
	require.Equal(t, pickerSurface, th.Color(theme.ColorNameBackground, theme.VariantLight))
	require.Equal(t,
		theme.DefaultTheme().Color(theme.ColorNameForeground, theme.VariantDark),
		th.Color(theme.ColorNameForeground, theme.VariantLight))
	require.Equal(t, float32(3), th.Size(theme.SizeNamePadding))
}
