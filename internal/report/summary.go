// Package report summarizes a picking session and renders it as PDF.
package report

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"em-picker/internal/picking"
)

// MicrographStat is one micrograph line of a summary.
type MicrographStat struct {
	ID        int
	Name      string
	Count     int
	Filaments int
	Labels    map[string]int
}

// Summary holds session-wide statistics.
type Summary struct {
	Title       string
	BoxSize     int
	Micrographs []MicrographStat
	Total       int
	MeanCount   float64
	StdCount    float64
	LabelTotals map[string]int

	// Filament length statistics in pixels; zero when there are none.
	MeanFilamentLength float64
	StdFilamentLength  float64
}

// Summarize computes statistics over every micrograph in model.
func Summarize(title string, model *picking.PickerDataModel) Summary {
	s := Summary{Title: title, LabelTotals: make(map[string]int)}
	s.BoxSize, _ = model.BoxSize()

	var counts, lengths []float64
	for _, mic := range model.Micrographs() {
		ms := MicrographStat{ID: mic.ID(), Name: mic.Name(), Count: mic.Len(), Labels: mic.LabelCounts()}
		mic.Each(func(_ int, e picking.Entry) {
			if f, ok := e.(*picking.Filament); ok {
				ms.Filaments++
				lengths = append(lengths, f.Length())
			}
		})
		for name, n := range ms.Labels {
			s.LabelTotals[name] += n
		}
		s.Total += ms.Count
		counts = append(counts, float64(ms.Count))
		s.Micrographs = append(s.Micrographs, ms)
	}

	s.MeanCount, s.StdCount = meanStd(counts)
	s.MeanFilamentLength, s.StdFilamentLength = meanStd(lengths)
	return s
}

func meanStd(x []float64) (float64, float64) {
	switch len(x) {
	case 0:
		return 0, 0
	case 1:
		return x[0], 0
	}
	return stat.MeanStdDev(x, nil)
}

// LabelNames returns the label names of the summary, sorted.
func (s Summary) LabelNames() []string {
	names := make([]string, 0, len(s.LabelTotals))
	for name := range s.LabelTotals {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
