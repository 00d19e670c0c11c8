package app

import (
	"fmt"
	"log"

	"em-picker/internal/image"
	"em-picker/internal/picker"
	"em-picker/internal/picking"
	"em-picker/internal/report"
	"em-picker/pkg/geometry"
)

const thumbnailSize = 600

// ExportReport writes a PDF summary of the session to path. Up to maxThumbs
// micrographs are added as annotated thumbnails; unreadable images are skipped.
func (s *State) ExportReport(path, title string, maxThumbs int) error {
	var thumbs []report.Thumbnail
	for _, mic := range s.Model.Micrographs() {
		if len(thumbs) >= maxThumbs {
			break
		}
		img, err := s.LoadImage(mic.Path(), image.DisplayOptions{Lowpass: s.Config.Display.Lowpass})
		if err != nil {
			log.Printf("Report: skipping thumbnail for %s: %v", mic.Name(), err)
			continue
		}
		marked := image.Overlay(img, Marks(s.Session, mic))
		thumbs = append(thumbs, report.Thumbnail{
			Name:  fmt.Sprintf("%s (%d)", mic.Name(), mic.Len()),
			Image: image.Thumbnail(marked, thumbnailSize),
		})
	}

	if err := report.WritePDF(path, s.Report(title), thumbs); err != nil {
		return s.fail(err)
	}
	log.Printf("Wrote report %s (%d thumbnails)", path, len(thumbs))
	return nil
}

// Marks converts the entries of mic to outlines drawn the way the picker shows them.
func Marks(session *picker.Session, mic *picking.Micrograph) []image.Mark {
	box := float64(session.BoxSize())
	var marks []image.Mark
	mic.Each(func(_ int, e picking.Entry) {
		col := session.Model.Label(e.Label()).RGBA()
		switch v := e.(type) {
		case *picking.Filament:
			a, b := v.Start.Point(), v.End.Point()
			band := []geometry.Point2D{a, b}
			if session.Shape == picker.ShapeSegment {
				band = geometry.SegmentBand(a, b, box)
			}
			marks = append(marks, image.Mark{Shape: image.MarkSegment, Band: band, Color: col})
		case *picking.Coordinate:
			m := image.Mark{Bounds: geometry.CenteredRect(v.Point(), box, box), Color: col}
			switch session.Shape {
			case picker.ShapeCircle:
				m.Shape = image.MarkCircle
			case picker.ShapeCenter:
				m.Shape = image.MarkDot
			default:
				m.Shape = image.MarkRect
			}
			marks = append(marks, m)
		}
	})
	return marks
}
