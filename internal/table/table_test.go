package table

import (
	"testing"

	"github.com/stretchr/testify/require"

	"em-picker/internal/picking"
)

func TestAppendAndSetCount(t *testing.T) {
	m := New()
	var changed []int
	m.OnChanged(func(row int) { changed = append(changed, row) })

	m.Append(4, "/data/a.mrc", 0)
	m.Append(9, "/data/b.mrc", 3)
	m.Append(4, "/data/dup.mrc", 0)
	require.Equal(t, 2, m.Len())
	require.Equal(t, 1, m.IndexOf(9))
	require.Equal(t, -1, m.IndexOf(5))

	m.SetCount(9, 2)
	m.SetCount(9, 2)
	m.SetCount(5, 1)

	row, ok := m.Row(1)
	require.True(t, ok)
	require.Equal(t, Row{ID: 9, Name: "b.mrc", Count: 2}, row)
	require.Equal(t, []int{0, 1, 1}, changed)

	_, ok = m.Row(2)
	require.False(t, ok)
}

func TestBind(t *testing.T) {
	model := picking.NewPickerDataModel()
	first := model.CreateMicrograph("a.mrc")

	m := New()
	m.Bind(model)
	second := model.CreateMicrograph("b.mrc")
	require.Equal(t, 2, m.Len())

	model.NotifyCoordinateChanged(picking.CoordinateEvent{MicrographID: second, Kind: picking.CoordinateAdded, Count: 7})
	row, _ := m.Row(m.IndexOf(second))
	require.Equal(t, 7, row.Count)

	row, _ = m.Row(m.IndexOf(first))
	require.Equal(t, "a.mrc", row.Name)
}
