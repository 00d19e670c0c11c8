package coords

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"em-picker/internal/picking"
)

// Box is the particle box declared by a picking file.
type Box struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type pickingDoc struct {
	Micrograph  string  `json:"micrograph"`
	Box         *Box    `json:"box,omitempty"`
	Coordinates [][]any `json:"coordinates"`
}

// ParsePicking decodes a picking document into an unregistered micrograph
// (id 0). Box is zero when the document declares none.
func ParsePicking(data []byte) (*picking.Micrograph, Box, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var doc pickingDoc
	if err := dec.Decode(&doc); err != nil {
		return nil, Box{}, fmt.Errorf("parse picking file: %v: %w", err, ErrFormat)
	}
	if doc.Micrograph == "" {
		return nil, Box{}, fmt.Errorf("parse picking file: missing micrograph: %w", ErrFormat)
	}

	mic, err := picking.NewMicrographFromValues(0, doc.Micrograph, doc.Coordinates)
	if err != nil {
		return nil, Box{}, fmt.Errorf("parse picking file: %w", err)
	}
	var box Box
	if doc.Box != nil {
		box = *doc.Box
	}
	return mic, box, nil
}

// ReadPicking reads and decodes a picking file.
func ReadPicking(path string) (*picking.Micrograph, Box, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, Box{}, err
	}
	return ParsePicking(data)
}

// MarshalPicking encodes mic in the picking document format.
func MarshalPicking(mic *picking.Micrograph, boxSize int) ([]byte, error) {
	doc := pickingDoc{
		Micrograph:  mic.Path(),
		Coordinates: make([][]any, 0, mic.Len()),
	}
	if boxSize > 0 {
		doc.Box = &Box{Width: boxSize, Height: boxSize}
	}
	mic.Each(func(_ int, e picking.Entry) {
		switch v := e.(type) {
		case *picking.Coordinate:
			doc.Coordinates = append(doc.Coordinates, []any{v.X, v.Y, v.Label()})
		case *picking.Filament:
			doc.Coordinates = append(doc.Coordinates,
				[]any{v.Start.X, v.Start.Y, v.End.X, v.End.Y, v.Label()})
		}
	})
	return json.MarshalIndent(doc, "", "  ")
}

// WritePicking writes mic to path in the picking document format.
func WritePicking(path string, mic *picking.Micrograph, boxSize int) error {
	data, err := MarshalPicking(mic, boxSize)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
