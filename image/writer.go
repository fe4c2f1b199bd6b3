package image

import (
	"image"
	"image/color"
	"image/draw"
	"io"

	"github.com/ericpauley/go-quantize/quantize"
)

type encoder struct {
	w io.Writer
}

func (e *encoder) writePixels(m *image.Paletted) error {
	b := m.Bounds()
	n := b.Dx() * b.Dy()
	ppb := pixelsPerByte(len(m.Palette))

	buf := make([]byte, (n+ppb-1)/ppb)
	for i := 0; i < n; i++ {
		idx := m.ColorIndexAt(b.Min.X+i%b.Dx(), b.Min.Y+i/b.Dx())
		if ppb == 2 {
			// Even pixels in the low nibble, odd pixels in the high nibble
			buf[i>>1] |= (idx & 0x0f) << (uint(i&1) * 4)
		} else {
			buf[i] = idx
		}
	}

	_, err := e.w.Write(buf)
	return err
}

func (e *encoder) encode(m *image.Paletted) error {
	b := m.Bounds()
	h := Header{
		Width:  b.Dx(),
		Height: b.Dy(),
		Colors: len(m.Palette),
	}

	if _, err := e.w.Write(h.Bytes()); err != nil {
		return err
	}

	if _, err := e.w.Write(EncodePalette(m.Palette)); err != nil {
		return err
	}

	return e.writePixels(m)
}

// Encode writes the Image m to w in the firmware's record format. Images with
// a palette of more than MaxColors colors, or without a palette at all, are
// quantized first.
func Encode(w io.Writer, m image.Image) error {
	b := m.Bounds()
	if b.Dx() < 1 || b.Dx() > MaxWidth || b.Dy() < 1 || b.Dy() > MaxHeight {
		return ErrInvalidSize
	}

	pm, _ := m.(*image.Paletted)
	if pm == nil {
		if cp, ok := m.ColorModel().(color.Palette); ok && len(cp) <= MaxColors {
			pm = image.NewPaletted(b, cp)
			for y := b.Min.Y; y < b.Max.Y; y++ {
				for x := b.Min.X; x < b.Max.X; x++ {
					pm.Set(x, y, cp.Convert(m.At(x, y)))
				}
			}
		}
	}
	if pm == nil || len(pm.Palette) > MaxColors || len(pm.Palette) == 0 {
		q := quantize.MedianCutQuantizer{}
		pm = image.NewPaletted(b, q.Quantize(make(color.Palette, 0, MaxColors), m))
		draw.Draw(pm, b, m, b.Min, draw.Src)
	}

	e := encoder{w: w}

	return e.encode(pm)
}
