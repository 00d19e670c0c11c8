package picking

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidSpec is returned when a coordinate specification cannot be decoded.
var ErrInvalidSpec = errors.New("invalid coordinate specification")

// CoordinateSpec describes one micrograph entry before it is materialized:
// either a Single point or a filament Pair.
type CoordinateSpec interface {
	// Entry builds the coordinate(s) described by the spec.
	Entry() Entry
	isSpec()
}

// Single is a single labeled point.
type Single struct {
	X, Y  float64
	Label string
}

func (s Single) Entry() Entry {
	return NewCoordinate(s.X, s.Y, defaultLabel(s.Label))
}

func (Single) isSpec() {}

// Pair is a filament given by its two endpoints and a shared label.
type Pair struct {
	X1, Y1 float64
	X2, Y2 float64
	Label  string
}

func (p Pair) Entry() Entry {
	return NewFilament(p.X1, p.Y1, p.X2, p.Y2, defaultLabel(p.Label))
}

func (Pair) isSpec() {}

func defaultLabel(name string) string {
	if strings.TrimSpace(name) == "" {
		return LabelDefault
	}
	return name
}

// SpecFromValues decodes a positional coordinate row:
//
//	x, y                 -> Single labelled Default
//	x, y, label          -> Single (Default when label is blank)
//	x1, y1, x2, y2       -> Pair labelled Default
//	x1, y1, x2, y2, label -> Pair sharing label (Default when blank)
//
// Numbers may be any Go numeric type, json.Number-like strings or numeric strings.
func SpecFromValues(values ...any) (CoordinateSpec, error) {
	switch len(values) {
	case 2, 3:
		xy, err := numbers(values[:2])
		if err != nil {
			return nil, err
		}
		s := Single{X: xy[0], Y: xy[1], Label: LabelDefault}
		if len(values) == 3 {
			label, err := labelValue(values[2])
			if err != nil {
				return nil, err
			}
			s.Label = defaultLabel(label)
		}
		return s, nil
	case 4, 5:
		pts, err := numbers(values[:4])
		if err != nil {
			return nil, err
		}
		p := Pair{X1: pts[0], Y1: pts[1], X2: pts[2], Y2: pts[3], Label: LabelDefault}
		if len(values) == 5 {
			label, err := labelValue(values[4])
			if err != nil {
				return nil, err
			}
			p.Label = defaultLabel(label)
		}
		return p, nil
	default:
		return nil, fmt.Errorf("%w: %d values %v", ErrInvalidSpec, len(values), values)
	}
}

func numbers(values []any) ([]float64, error) {
	out := make([]float64, len(values))
	for i, v := range values {
		f, err := toFloat(v)
		if err != nil {
			return nil, fmt.Errorf("%w: value %d: %v", ErrInvalidSpec, i, err)
		}
		out[i] = f
	}
	return out, nil
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint:
		return float64(n), nil
	case uint32:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	case fmt.Stringer:
		return strconv.ParseFloat(n.String(), 64)
	case string:
		return strconv.ParseFloat(strings.TrimSpace(n), 64)
	default:
		return 0, fmt.Errorf("not a number: %T", v)
	}
}

func labelValue(v any) (string, error) {
	switch s := v.(type) {
	case string:
		return s, nil
	case nil:
		return "", nil
	default:
		return "", fmt.Errorf("%w: label must be a string, got %T", ErrInvalidSpec, v)
	}
}
