package report

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// Thumbnail is an annotated micrograph image added after the tables.
type Thumbnail struct {
	Name  string
	Image image.Image
}

const (
	pageW   = 210.0
	margin  = 15.0
	rowH    = 6.0
	chartH  = 50.0
	maxRows = 40
)

// WritePDF renders s, plus optional thumbnails, to path.
func WritePDF(path string, s Summary, thumbs []Thumbnail) error {
	p := gofpdf.New("P", "mm", "A4", "")
	p.SetTitle(s.Title, true)
	p.SetMargins(margin, margin, margin)
	p.AddPage()

	p.SetFont("Helvetica", "B", 16)
	p.CellFormat(0, 10, s.Title, "", 1, "L", false, 0, "")
	p.SetFont("Helvetica", "", 9)
	p.CellFormat(0, 5, time.Now().Format("2006-01-02 15:04"), "", 1, "L", false, 0, "")
	p.Ln(3)

	p.SetFont("Helvetica", "", 11)
	line := func(format string, args ...any) {
		p.CellFormat(0, rowH, fmt.Sprintf(format, args...), "", 1, "L", false, 0, "")
	}
	line("Micrographs: %d", len(s.Micrographs))
	line("Coordinates: %d", s.Total)
	line("Box size: %d px", s.BoxSize)
	line("Per micrograph: %.1f +/- %.1f", s.MeanCount, s.StdCount)
	if s.MeanFilamentLength > 0 {
		line("Filament length: %.1f +/- %.1f px", s.MeanFilamentLength, s.StdFilamentLength)
	}
	p.Ln(3)

	drawCountChart(p, s)
	drawLabelTable(p, s)
	drawMicrographTable(p, s)

	for _, th := range thumbs {
		if err := addThumbnail(p, th); err != nil {
			return err
		}
	}

	if err := p.Error(); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return p.OutputFileAndClose(path)
}

func drawCountChart(p *gofpdf.Fpdf, s Summary) {
	if len(s.Micrographs) == 0 {
		return
	}
	maxCount := 1
	for _, m := range s.Micrographs {
		if m.Count > maxCount {
			maxCount = m.Count
		}
	}

	x0, y0 := margin, p.GetY()
	width := pageW - 2*margin
	barW := width / float64(len(s.Micrographs))

	p.SetDrawColor(0, 0, 0)
	p.SetLineWidth(0.3)
	p.Line(x0, y0+chartH, x0+width, y0+chartH)

	p.SetFillColor(0x1E, 0xA0, 0x00)
	for i, m := range s.Micrographs {
		h := chartH * float64(m.Count) / float64(maxCount)
		p.Rect(x0+float64(i)*barW+barW*0.1, y0+chartH-h, barW*0.8, h, "F")
	}

	// Mean line.
	p.SetDrawColor(0x00, 0x12, 0xFF)
	my := y0 + chartH - chartH*s.MeanCount/float64(maxCount)
	p.Line(x0, my, x0+width, my)

	p.SetY(y0 + chartH + 4)
}

func drawLabelTable(p *gofpdf.Fpdf, s Summary) {
	names := s.LabelNames()
	if len(names) == 0 {
		return
	}
	p.SetFont("Helvetica", "B", 11)
	p.CellFormat(60, rowH, "Label", "B", 0, "L", false, 0, "")
	p.CellFormat(30, rowH, "Count", "B", 1, "R", false, 0, "")
	p.SetFont("Helvetica", "", 10)
	for _, name := range names {
		p.CellFormat(60, rowH, name, "", 0, "L", false, 0, "")
		p.CellFormat(30, rowH, fmt.Sprintf("%d", s.LabelTotals[name]), "", 1, "R", false, 0, "")
	}
	p.Ln(4)
}

func drawMicrographTable(p *gofpdf.Fpdf, s Summary) {
	p.SetFont("Helvetica", "B", 11)
	p.CellFormat(15, rowH, "Id", "B", 0, "L", false, 0, "")
	p.CellFormat(100, rowH, "Micrograph", "B", 0, "L", false, 0, "")
	p.CellFormat(30, rowH, "Coordinates", "B", 0, "R", false, 0, "")
	p.CellFormat(30, rowH, "Filaments", "B", 1, "R", false, 0, "")

	p.SetFont("Helvetica", "", 10)
	for i, m := range s.Micrographs {
		if i == maxRows {
			p.CellFormat(0, rowH, fmt.Sprintf("... %d more", len(s.Micrographs)-maxRows), "", 1, "L", false, 0, "")
			break
		}
		p.CellFormat(15, rowH, fmt.Sprintf("%d", m.ID), "", 0, "L", false, 0, "")
		p.CellFormat(100, rowH, truncate(m.Name, 55), "", 0, "L", false, 0, "")
		p.CellFormat(30, rowH, fmt.Sprintf("%d", m.Count), "", 0, "R", false, 0, "")
		p.CellFormat(30, rowH, fmt.Sprintf("%d", m.Filaments), "", 1, "R", false, 0, "")
	}
}

func addThumbnail(p *gofpdf.Fpdf, th Thumbnail) error {
	var buf bytes.Buffer
	if err := png.Encode(&buf, th.Image); err != nil {
		return fmt.Errorf("encode thumbnail %s: %w", th.Name, err)
	}
	name := "thumb-" + th.Name
	p.RegisterImageOptionsReader(name, gofpdf.ImageOptions{ImageType: "PNG"}, &buf)

	p.AddPage()
	p.SetFont("Helvetica", "B", 12)
	p.CellFormat(0, 8, th.Name, "", 1, "L", false, 0, "")

	b := th.Image.Bounds()
	w := pageW - 2*margin
	h := w * float64(b.Dy()) / float64(b.Dx())
	if maxH := 297.0 - 2*margin - 10; h > maxH {
		h = maxH
		w = h * float64(b.Dx()) / float64(b.Dy())
	}
	p.ImageOptions(name, margin, p.GetY(), w, h, false, gofpdf.ImageOptions{ImageType: "PNG"}, 0, "")
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

// Text renders s as plain text, one micrograph per line.
func Text(s Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", s.Title)
	fmt.Fprintf(&b, "micrographs=%d coordinates=%d box=%d mean=%.2f std=%.2f\n",
		len(s.Micrographs), s.Total, s.BoxSize, s.MeanCount, s.StdCount)
	for _, m := range s.Micrographs {
		fmt.Fprintf(&b, "%d\t%s\t%d\n", m.ID, m.Name, m.Count)
	}
	for _, name := range s.LabelNames() {
		fmt.Fprintf(&b, "label %s\t%d\n", name, s.LabelTotals[name])
	}
	return b.String()
}
