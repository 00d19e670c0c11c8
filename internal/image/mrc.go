package image

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
)

const mrcHeaderSize = 1024

// MRC data modes.
const (
	mrcInt8    = 0
	mrcInt16   = 1
	mrcFloat32 = 2
	mrcUint16  = 6
)

type mrcHeader struct {
	NX, NY, NZ int32
	Mode       int32
	Start      [3]int32
	MX, MY, MZ int32
	CellA      [3]float32
	_          [3]float32 // cell angles
	_          [3]int32   // axis mapping
	_          [3]float32 // min, max, mean
	_          int32      // space group
	NSymBT     int32
}

type mrcFile struct {
	file   *os.File
	order  binary.ByteOrder
	hdr    mrcHeader
	offset int64
	stack  bool
}

func openMRC(path string) (*mrcFile, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}

	raw := make([]byte, mrcHeaderSize)
	if _, err := io.ReadFull(file, raw); err != nil {
		file.Close()
		return nil, fmt.Errorf("read mrc header: %w", err)
	}

	// Machine stamp at byte 212: 0x44 0x44 little endian, 0x11 0x11 big endian.
	var order binary.ByteOrder = binary.LittleEndian
	if raw[212] == 0x11 {
		order = binary.BigEndian
	}

	m := &mrcFile{file: file, order: order}
	if _, err := binary.Decode(raw, order, &m.hdr); err != nil {
		file.Close()
		return nil, fmt.Errorf("decode mrc header: %w", err)
	}
	if m.hdr.NX <= 0 || m.hdr.NY <= 0 || m.hdr.NZ <= 0 {
		file.Close()
		return nil, fmt.Errorf("not a valid MRC file: %dx%dx%d", m.hdr.NX, m.hdr.NY, m.hdr.NZ)
	}
	bps := bytesPerSample(m.hdr.Mode)
	if bps == 0 {
		file.Close()
		return nil, fmt.Errorf("unsupported MRC mode %d", m.hdr.Mode)
	}
	if m.hdr.NSymBT < 0 {
		file.Close()
		return nil, fmt.Errorf("not a valid MRC file: extended header size %d", m.hdr.NSymBT)
	}
	m.offset = mrcHeaderSize + int64(m.hdr.NSymBT)

	// The dimensions are int32, so the data size fits in int64.
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("stat image: %w", err)
	}
	need := int64(m.hdr.NX) * int64(m.hdr.NY) * int64(m.hdr.NZ) * int64(bps)
	if m.offset+need > info.Size() {
		file.Close()
		return nil, fmt.Errorf("truncated MRC file: %dx%dx%d mode %d needs %d bytes, have %d",
			m.hdr.NX, m.hdr.NY, m.hdr.NZ, m.hdr.Mode, m.offset+need, info.Size())
	}
	m.stack = strings.EqualFold(filepath.Ext(path), ".mrcs")
	return m, nil
}

func bytesPerSample(mode int32) int {
	switch mode {
	case mrcInt8:
		return 1
	case mrcInt16, mrcUint16:
		return 2
	case mrcFloat32:
		return 4
	}
	return 0
}

func (m *mrcFile) dim() Dim {
	if m.stack {
		return Dim{X: int(m.hdr.NX), Y: int(m.hdr.NY), Z: 1, N: int(m.hdr.NZ)}
	}
	return Dim{X: int(m.hdr.NX), Y: int(m.hdr.NY), Z: int(m.hdr.NZ), N: 1}
}

func (m *mrcFile) pixelSize() float64 {
	if m.hdr.MX <= 0 {
		return 0
	}
	return float64(m.hdr.CellA[0]) / float64(m.hdr.MX)
}

func (m *mrcFile) slice(index int) (*Frame, error) {
	if index < 0 || index >= int(m.hdr.NZ) {
		return nil, fmt.Errorf("slice %d out of range 0..%d", index, m.hdr.NZ-1)
	}
	w, h := int(m.hdr.NX), int(m.hdr.NY)
	bps := bytesPerSample(m.hdr.Mode)
	size := int64(w) * int64(h) * int64(bps)

	raw := make([]byte, size)
	if _, err := m.file.ReadAt(raw, m.offset+int64(index)*size); err != nil {
		return nil, fmt.Errorf("read slice %d: %w", index, err)
	}

	f := &Frame{Width: w, Height: h, Pix: make([]float32, w*h)}
	for i := range f.Pix {
		b := raw[i*bps:]
		switch m.hdr.Mode {
		case mrcInt8:
			f.Pix[i] = float32(int8(b[0]))
		case mrcInt16:
			f.Pix[i] = float32(int16(m.order.Uint16(b)))
		case mrcUint16:
			f.Pix[i] = float32(m.order.Uint16(b))
		case mrcFloat32:
			f.Pix[i] = math.Float32frombits(m.order.Uint32(b))
		}
	}
	return f, nil
}

func (m *mrcFile) close() error {
	return m.file.Close()
}

// WriteMRC writes frame as a single-slice float32 MRC file.
func WriteMRC(path string, frame *Frame, pixelSize float64) error {
	hdr := mrcHeader{
		NX: int32(frame.Width), NY: int32(frame.Height), NZ: 1,
		Mode: mrcFloat32,
		MX:   int32(frame.Width), MY: int32(frame.Height), MZ: 1,
	}
	hdr.CellA = [3]float32{
		float32(pixelSize * float64(frame.Width)),
		float32(pixelSize * float64(frame.Height)),
		float32(pixelSize),
	}

	raw := make([]byte, mrcHeaderSize, mrcHeaderSize+4*len(frame.Pix))
	if _, err := binary.Encode(raw, binary.LittleEndian, hdr); err != nil {
		return err
	}
	copy(raw[208:], "MAP ")
	raw[212], raw[213] = 0x44, 0x44
	for _, v := range frame.Pix {
		raw = binary.LittleEndian.AppendUint32(raw, math.Float32bits(v))
	}
	return os.WriteFile(path, raw, 0o644)
}
