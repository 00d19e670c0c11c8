// Package image opens micrographs and prepares them for display.
package image

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

// ErrClosed is returned by Read after Close.
var ErrClosed = errors.New("image source closed")

// Dim is the size of an image source: X by Y pixels, Z slices per volume
// and N volumes or frames.
type Dim struct {
	X, Y, Z, N int
}

// Frame is one 2D slice as float samples in row-major order.
type Frame struct {
	Width, Height int
	Pix           []float32
}

// At returns the sample at x, y.
func (f *Frame) At(x, y int) float32 {
	return f.Pix[y*f.Width+x]
}

// Source reads slices from a micrograph file.
type Source struct {
	path string
	dim  Dim

	// MRC sources read slices lazily.
	mrc *mrcFile

	// Raster sources are decoded once.
	frame *Frame

	closed bool
}

// Open opens path. MRC files are read lazily; other formats are decoded now.
func Open(path string) (*Source, error) {
	if isMRC(path) {
		m, err := openMRC(path)
		if err != nil {
			return nil, err
		}
		return &Source{path: path, dim: m.dim(), mrc: m}, nil
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	frame := FrameFromImage(img)
	return &Source{
		path:  path,
		dim:   Dim{X: frame.Width, Y: frame.Height, Z: 1, N: 1},
		frame: frame,
	}, nil
}

// Path returns the file path.
func (s *Source) Path() string { return s.path }

// Dim returns the source dimensions.
func (s *Source) Dim() Dim { return s.dim }

// PixelSize returns the sampling in Angstrom per pixel, or 0 when unknown.
func (s *Source) PixelSize() float64 {
	if s.mrc == nil {
		return 0
	}
	return s.mrc.pixelSize()
}

// Read returns slice index (0-based).
func (s *Source) Read(index int) (*Frame, error) {
	if s.closed {
		return nil, ErrClosed
	}
	if s.mrc != nil {
		return s.mrc.slice(index)
	}
	if index != 0 {
		return nil, fmt.Errorf("slice %d out of range 0..0", index)
	}
	return s.frame, nil
}

// Close releases the underlying file.
func (s *Source) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if s.mrc != nil {
		return s.mrc.close()
	}
	return nil
}

// FrameFromImage converts img to gray float samples.
func FrameFromImage(img image.Image) *Frame {
	b := img.Bounds()
	f := &Frame{Width: b.Dx(), Height: b.Dy(), Pix: make([]float32, b.Dx()*b.Dy())}
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			g := color.Gray16Model.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray16)
			f.Pix[y*f.Width+x] = float32(g.Y)
		}
	}
	return f
}

// SupportedFormats returns the list of supported image formats.
func SupportedFormats() []string {
	return []string{".mrc", ".mrcs", ".tiff", ".tif", ".png", ".jpg", ".jpeg", ".bmp"}
}

// IsSupportedFormat checks if the given path has a supported image format.
func IsSupportedFormat(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, format := range SupportedFormats() {
		if ext == format {
			return true
		}
	}
	return false
}

func isMRC(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".mrc" || ext == ".mrcs"
}
