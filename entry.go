package tamaed

import (
	"fmt"
	"image"
	"image/color"
	"sync"

	record "github.com/bodgit/tamaed/image"
	"golang.org/x/image/draw"
)

// Entry is a contiguous run of firmware bytes recognised as one resource.
// The set of implementations is closed; *Image is the only one.
type Entry interface {
	Offset() int
	Size() int
	End() int
	Kind() Kind
	Bytes() []byte

	entry()
}

type span struct {
	offset int
	b      []byte
}

func (s span) Offset() int   { return s.offset }
func (s span) Size() int     { return len(s.b) }
func (s span) End() int      { return s.offset + len(s.b) }
func (s span) Bytes() []byte { return s.b }
func (s span) entry()        {}

// MalformedRecordError is a header-shaped candidate whose bytes could not be
// turned into a record.
type MalformedRecordError struct {
	Offset int
	Err    error
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed record at offset %d: %v", e.Offset, e.Err)
}

func (e *MalformedRecordError) Unwrap() error {
	return e.Err
}

// Image is an indexed-color bitmap record. The palette and pixels are decoded
// on first use and kept; it is safe for concurrent use.
type Image struct {
	span
	header record.Header

	mu      sync.Mutex
	palette color.Palette
	pixels  *image.Paletted
}

func newImage(offset int, b []byte) (*Image, error) {
	h, err := record.ParseHeader(b)
	if err != nil {
		return nil, &MalformedRecordError{Offset: offset, Err: err}
	}
	if len(b) != h.Size() {
		return nil, &MalformedRecordError{
			Offset: offset,
			Err:    fmt.Errorf("record is %d bytes, header declares %d", len(b), h.Size()),
		}
	}
	return &Image{
		span:   span{offset: offset, b: b},
		header: h,
	}, nil
}

// Kind returns KindImage.
func (m *Image) Kind() Kind { return KindImage }

// Width returns the width in pixels.
func (m *Image) Width() int { return m.header.Width }

// Height returns the height in pixels.
func (m *Image) Height() int { return m.header.Height }

// Colors returns the number of palette entries.
func (m *Image) Colors() int { return m.header.Colors }

// PaletteBytes returns the raw palette words.
func (m *Image) PaletteBytes() []byte {
	return m.b[record.HeaderSize : record.HeaderSize+m.header.PaletteSize()]
}

// PixelBytes returns the packed palette indices.
func (m *Image) PixelBytes() []byte {
	return m.b[record.HeaderSize+m.header.PaletteSize():]
}

func (m *Image) decodePalette() (color.Palette, error) {
	if m.palette != nil {
		return m.palette, nil
	}
	p, err := record.DecodePalette(m.PaletteBytes())
	if err != nil {
		return nil, err
	}
	m.palette = p
	return p, nil
}

// Palette returns the decoded palette. It is shared with every other caller
// and with Pixels, so it must not be modified.
func (m *Image) Palette() (color.Palette, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.decodePalette()
}

// Pixels returns the decoded bitmap. A failed decode is not remembered. The
// bitmap is cached and shared with every other caller, so it must not be
// modified; use Scaled or copy it first.
func (m *Image) Pixels() (*image.Paletted, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.pixels != nil {
		return m.pixels, nil
	}
	p, err := m.decodePalette()
	if err != nil {
		return nil, err
	}
	pm, err := record.DecodePixels(m.PixelBytes(), p, m.header.Width, m.header.Height)
	if err != nil {
		return nil, err
	}
	m.pixels = pm
	return pm, nil
}

// Scaled returns the bitmap enlarged by an integer factor using
// nearest-neighbour sampling. A scale below 1 is treated as 1.
func (m *Image) Scaled(scale int) (*image.RGBA, error) {
	pm, err := m.Pixels()
	if err != nil {
		return nil, err
	}
	if scale < 1 {
		scale = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, pm.Rect.Dx()*scale, pm.Rect.Dy()*scale))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), pm, pm.Bounds(), draw.Src, nil)
	return dst, nil
}
