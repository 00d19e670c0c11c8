package image

import (
	"encoding/binary"
	"fmt"
	"image"
	"math"

	"gocv.io/x/gocv"
)

// DisplayOptions controls how a frame is turned into a viewable image.
type DisplayOptions struct {
	// Lowpass is the gaussian sigma in pixels; 0 disables filtering.
	Lowpass float64
	// Invert flips the gray scale.
	Invert bool
}

// Display min-max normalizes frame to 8-bit gray.
func Display(frame *Frame, opts DisplayOptions) (*image.Gray, error) {
	if frame == nil || frame.Width == 0 || frame.Height == 0 {
		return nil, fmt.Errorf("empty frame")
	}

	src, err := frameToMat(frame)
	if err != nil {
		return nil, err
	}
	defer func() { src.Close() }()

	if opts.Lowpass > 0 {
		blurred := gocv.NewMat()
		gocv.GaussianBlur(src, &blurred, image.Point{}, opts.Lowpass, opts.Lowpass, gocv.BorderDefault)
		src.Close()
		src = blurred
	}

	norm := gocv.NewMat()
	defer norm.Close()
	gocv.Normalize(src, &norm, 0, 255, gocv.NormMinMax)

	gray := gocv.NewMat()
	defer gray.Close()
	norm.ConvertTo(&gray, gocv.MatTypeCV8U)

	out := image.NewGray(image.Rect(0, 0, frame.Width, frame.Height))
	copy(out.Pix, gray.ToBytes())
	if opts.Invert {
		for i, v := range out.Pix {
			out.Pix[i] = 255 - v
		}
	}
	return out, nil
}

// Stats returns the mean and standard deviation of frame.
func Stats(frame *Frame) (mean, std float64, err error) {
	src, err := frameToMat(frame)
	if err != nil {
		return 0, 0, err
	}
	defer src.Close()

	m := gocv.NewMat()
	defer m.Close()
	s := gocv.NewMat()
	defer s.Close()
	gocv.MeanStdDev(src, &m, &s)
	return m.GetDoubleAt(0, 0), s.GetDoubleAt(0, 0), nil
}

func frameToMat(frame *Frame) (gocv.Mat, error) {
	raw := make([]byte, 0, 4*len(frame.Pix))
	for _, v := range frame.Pix {
		raw = binary.LittleEndian.AppendUint32(raw, math.Float32bits(v))
	}
	mat, err := gocv.NewMatFromBytes(frame.Height, frame.Width, gocv.MatTypeCV32F, raw)
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("frame to mat: %w", err)
	}
	return mat, nil
}
