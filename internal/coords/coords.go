// Package coords reads and writes coordinate files: plain text lists, EMAN
// .box files and JSON picking files.
package coords

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"em-picker/internal/picking"
)

// ErrFormat is returned for lines or documents that cannot be parsed.
var ErrFormat = errors.New("malformed coordinate file")

// Triple is one parsed coordinate.
type Triple struct {
	X, Y  float64
	Label string
}

// Coordinate converts t into a model coordinate.
func (t Triple) Coordinate() *picking.Coordinate {
	return picking.NewCoordinate(t.X, t.Y, t.Label)
}

// ParseText reads whitespace separated "x y [label]" lines.
// Blank lines and lines starting with '#' are skipped.
func ParseText(r io.Reader) ([]Triple, error) {
	var out []Triple
	err := scanLines(r, func(n int, fields []string) error {
		if len(fields) < 2 {
			return fmt.Errorf("line %d: want x y [label]: %w", n, ErrFormat)
		}
		x, y, err := parseXY(fields[0], fields[1])
		if err != nil {
			return fmt.Errorf("line %d: %v: %w", n, err, ErrFormat)
		}
		label := picking.LabelManual
		if len(fields) > 2 {
			label = fields[2]
		}
		out = append(out, Triple{X: x, Y: y, Label: label})
		return nil
	})
	return out, err
}

// ParseBox reads EMAN box lines "x y w h" where x,y is the top-left corner.
// Lines with only two or three columns are read as ParseText does.
func ParseBox(r io.Reader) ([]Triple, error) {
	var out []Triple
	err := scanLines(r, func(n int, fields []string) error {
		if len(fields) < 2 {
			return fmt.Errorf("line %d: want x y w h: %w", n, ErrFormat)
		}
		x, y, err := parseXY(fields[0], fields[1])
		if err != nil {
			return fmt.Errorf("line %d: %v: %w", n, err, ErrFormat)
		}
		if len(fields) < 4 {
			label := picking.LabelManual
			if len(fields) == 3 {
				label = fields[2]
			}
			out = append(out, Triple{X: x, Y: y, Label: label})
			return nil
		}
		w, h, err := parseXY(fields[2], fields[3])
		if err != nil {
			return fmt.Errorf("line %d: %v: %w", n, err, ErrFormat)
		}
		out = append(out, Triple{X: x + w/2, Y: y + h/2, Label: picking.LabelManual})
		return nil
	})
	return out, err
}

// ParseFile parses path, choosing the format from its extension.
func ParseFile(path string) ([]Triple, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var triples []Triple
	if strings.EqualFold(filepath.Ext(path), ".box") {
		triples, err = ParseBox(f)
	} else {
		triples, err = ParseText(f)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return triples, nil
}

// WriteBox writes the single coordinates of mic as EMAN box lines.
// Filaments are skipped.
func WriteBox(w io.Writer, mic *picking.Micrograph, boxSize int) error {
	bw := bufio.NewWriter(w)
	half := float64(boxSize) / 2
	var err error
	mic.Each(func(_ int, e picking.Entry) {
		c, ok := e.(*picking.Coordinate)
		if !ok || err != nil {
			return
		}
		_, err = fmt.Fprintf(bw, "%d\t%d\t%d\t%d\n", int(c.X-half), int(c.Y-half), boxSize, boxSize)
	})
	if err != nil {
		return err
	}
	return bw.Flush()
}

func scanLines(r io.Reader, fn func(n int, fields []string) error) error {
	sc := bufio.NewScanner(r)
	n := 0
	for sc.Scan() {
		n++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := fn(n, strings.Fields(line)); err != nil {
			return err
		}
	}
	return sc.Err()
}

func parseXY(a, b string) (float64, float64, error) {
	x, err := strconv.ParseFloat(a, 64)
	if err != nil {
		return 0, 0, err
	}
	y, err := strconv.ParseFloat(b, 64)
	if err != nil {
		return 0, 0, err
	}
	return x, y, nil
}
