package picking

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFilamentSetLabelKeepsEndsTogether(t *testing.T) {
	f := NewFilament(0, 0, 10, 0, "Auto")
	f.SetLabel("Picked")
	require.Equal(t, "Picked", f.Label())
	require.Equal(t, "Picked", f.Start.Label())
	require.Equal(t, "Picked", f.End.Label())

	// an endpoint relabeled on its own does not change what the pair reports
	f.End.SetLabel("Stray")
	require.Equal(t, "Picked", f.Label())

	f.SetLabel("")
	require.Equal(t, LabelManual, f.Label())
	require.Equal(t, LabelManual, f.End.Label())
}

func TestSpecFromValuesArity(t *testing.T) {
	tests := []struct {
		name      string
		values    []any
		wantPair  bool
		wantLabel string
	}{
		{"xy", []any{1, 2}, false, LabelDefault},
		{"xy label", []any{1.5, 2.5, "Auto"}, false, "Auto"},
		{"xy blank label", []any{1, 2, ""}, false, LabelDefault},
		{"pair", []any{1, 2, 3, 4}, true, LabelDefault},
		{"pair label", []any{1, 2, 3, 4, "Manual"}, true, "Manual"},
		{"pair blank label", []any{1, 2, 3, 4, ""}, true, LabelDefault},
		{"numeric strings", []any{"10", "20"}, false, LabelDefault},
		{"json numbers", []any{json.Number("3"), json.Number("4.5")}, false, LabelDefault},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec, err := SpecFromValues(tt.values...)
			require.NoError(t, err)

			e := spec.Entry()
			require.Equal(t, tt.wantLabel, e.Label())
			if tt.wantPair {
				f, ok := e.(*Filament)
				require.True(t, ok)
				require.Equal(t, tt.wantLabel, f.Start.Label())
				require.Equal(t, tt.wantLabel, f.End.Label())
			} else {
				_, ok := e.(*Coordinate)
				require.True(t, ok)
			}
		})
	}
}

func TestSpecFromValuesInvalid(t *testing.T) {
	for _, values := range [][]any{
		{},
		{1},
		{1, 2, 3, 4, 5, 6},
		{1, "x"},
		{1, 2, 3},
		{true, 2},
	} {
		_, err := SpecFromValues(values...)
		require.Error(t, err, "%v", values)
		require.True(t, errors.Is(err, ErrInvalidSpec), "%v", values)
	}
}

func TestPairDecodesPositionally(t *testing.T) {
	spec, err := SpecFromValues(1, 2, 3, 4, "Auto")
	require.NoError(t, err)
	f := spec.Entry().(*Filament)
	require.Equal(t, 1.0, f.Start.X)
	require.Equal(t, 2.0, f.Start.Y)
	require.Equal(t, 3.0, f.End.X)
	require.Equal(t, 4.0, f.End.Y)
}

func TestNewMicrographFromValuesFailsFast(t *testing.T) {
	_, err := NewMicrographFromValues(1, "a.mrc", [][]any{{1, 2}, {3}})
	require.ErrorIs(t, err, ErrInvalidSpec)

	mic, err := NewMicrographFromValues(1, "a.mrc", [][]any{{1, 2}, {1, 2, 3, 4}})
	require.NoError(t, err)
	require.Equal(t, 2, mic.Len())
}

func TestMicrographAddRemove(t *testing.T) {
	mic := NewMicrograph(1, "a.mrc", Single{X: 1, Y: 1})
	c := NewCoordinate(5, 6, LabelManual)

	mic.AddCoordinate(c)
	require.Equal(t, 2, mic.Len())

	require.True(t, mic.RemoveCoordinate(c))
	require.Equal(t, 1, mic.Len())

	require.False(t, mic.RemoveCoordinate(c))
	require.False(t, mic.RemoveCoordinate(nil))
	require.Equal(t, 1, mic.Len())

	mic.Clear()
	require.Zero(t, mic.Len())
	require.False(t, mic.RemoveCoordinate(c))
}

func TestMicrographRemoveByIdentity(t *testing.T) {
	a := NewCoordinate(1, 1, LabelManual)
	b := NewCoordinate(1, 1, LabelManual)
	mic := NewMicrograph(1, "a.mrc")
	mic.AddCoordinate(a)
	mic.AddCoordinate(b)

	require.True(t, mic.RemoveCoordinate(b))
	entries := mic.Entries()
	require.Len(t, entries, 1)
	require.Same(t, a, entries[0])
}

func TestFilamentCountsOnce(t *testing.T) {
	mic := NewMicrograph(1, "a.mrc", Pair{X1: 0, Y1: 0, X2: 10, Y2: 0})
	require.Equal(t, 1, mic.Len())
	f := mic.Entries()[0].(*Filament)
	require.InDelta(t, 10.0, f.Length(), 1e-9)
	require.InDelta(t, 0.0, f.Angle(), 1e-9)
}

func TestNextIDStrictlyIncreasing(t *testing.T) {
	m := NewPickerDataModel()
	prev := 0
	seen := make(map[int]bool)
	for i := 0; i < 50; i++ {
		if i%7 == 0 {
			m.CreateMicrograph("x.mrc")
		}
		id := m.NextID()
		require.Greater(t, id, prev)
		require.False(t, seen[id])
		seen[id] = true
		prev = id
	}
}

func TestLabelFallback(t *testing.T) {
	m := NewPickerDataModel()
	require.Equal(t, Label{Name: LabelAuto, Color: "#0012FF"}, m.Label("Auto"))
	require.Equal(t, Label{Name: LabelAuto, Color: "#0012FF"}, m.Label("A"))
	require.Equal(t, Label{Name: LabelManual, Color: "#1EFF00"}, m.Label("M"))

	def := Label{Name: LabelDefault, Color: "#1EFF00"}
	require.Equal(t, def, m.Label("nope"))
	require.Equal(t, def, m.Label(""))
}

func TestAddLabel(t *testing.T) {
	m := NewPickerDataModel()
	m.AddLabel(Label{Name: "Good", Color: "#FFFF0000"})
	require.Equal(t, "#FFFF0000", m.Label("Good").Color)

	labels := m.Labels()
	require.Len(t, labels, 4)
	require.Equal(t, "Good", labels[3].Name)

	m.AddLabel(Label{Name: "Good", Color: "#FF00FF00"})
	require.Len(t, m.Labels(), 4)
}

func TestScenarioSingleCoordinate(t *testing.T) {
	m := NewPickerDataModel()
	require.Zero(t, m.Len())

	id := m.CreateMicrograph("a.mrc")
	require.Equal(t, 1, m.Len())

	mic, ok := m.Micrograph(id)
	require.True(t, ok)
	mic.AddCoordinate(NewCoordinate(10, 20, "Manual"))
	require.Equal(t, 1, mic.Len())

	var got []*Coordinate
	mic.Each(func(_ int, e Entry) {
		got = append(got, e.(*Coordinate))
	})
	require.Len(t, got, 1)
	require.Equal(t, 10.0, got[0].X)
	require.Equal(t, 20.0, got[0].Y)
	require.Equal(t, "Manual", got[0].Label())
}

func TestRegisterMicrograph(t *testing.T) {
	m := NewPickerDataModel()
	var added []int
	m.OnMicrographAdded(func(mic *Micrograph) { added = append(added, mic.ID()) })

	require.NoError(t, m.RegisterMicrograph(NewMicrograph(7, "b.mrc")))
	mic, ok := m.Micrograph(7)
	require.True(t, ok)
	require.Equal(t, "b.mrc", mic.Path())

	err := m.RegisterMicrograph(NewMicrograph(7, "c.mrc"))
	require.ErrorIs(t, err, ErrDuplicateID)

	require.Greater(t, m.NextID(), 7)

	anon := NewMicrograph(0, "d.mrc")
	require.NoError(t, m.RegisterMicrograph(anon))
	require.NotZero(t, anon.ID())

	require.Equal(t, []int{7, anon.ID()}, added)
	require.Equal(t, []int{7, anon.ID()}, m.IDs())
}

func TestBoxSize(t *testing.T) {
	m := NewPickerDataModel()
	_, ok := m.BoxSize()
	require.False(t, ok)

	m.SetBoxSize(64)
	size, ok := m.BoxSize()
	require.True(t, ok)
	require.Equal(t, 64, size)
}

func TestNotifyCoordinateChanged(t *testing.T) {
	m := NewPickerDataModel()
	var events []CoordinateEvent
	m.OnCoordinateChanged(func(ev CoordinateEvent) { events = append(events, ev) })

	m.NotifyCoordinateChanged(CoordinateEvent{MicrographID: 3, Kind: CoordinateAdded, Count: 1})
	require.Len(t, events, 1)
	require.Equal(t, "added", events[0].Kind.String())
	require.Equal(t, 1, events[0].Count)
}

func TestLabelNames(t *testing.T) {
	m := NewPickerDataModel()
	id := m.CreateMicrograph("a.mrc")
	mic, _ := m.Micrograph(id)
	mic.AddCoordinate(NewCoordinate(1, 1, "Manual"))
	mic.AddCoordinate(NewCoordinate(2, 2, "Auto"))
	mic.AddCoordinate(NewCoordinate(3, 3, "Auto"))

	require.Equal(t, []string{"Auto", "Manual"}, m.LabelNames())
	require.Equal(t, map[string]int{"Auto": 2, "Manual": 1}, mic.LabelCounts())
	require.Equal(t, 3, m.TotalCoordinates())
}
