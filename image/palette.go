package image

import (
	"encoding/binary"
	"errors"
	"image/color"
	"math"
)

// ErrInvalidPaletteLength is returned when palette data is not a whole number
// of 16-bit color words.
var ErrInvalidPaletteLength = errors.New("image: invalid palette length")

const (
	redBits   = 5
	greenBits = 6
	blueBits  = 5
)

// Scale an n-bit channel to 8 bits, rounding to nearest
func expand(v uint16, bits uint) uint8 {
	max := float64(uint16(1)<<bits - 1)
	return uint8(math.Round(float64(v) / max * 255))
}

// Reduce an 8-bit channel to n bits, rounding to nearest
func reduce(v uint8, bits uint) uint16 {
	max := float64(uint16(1)<<bits - 1)
	return uint16(math.Round(float64(v) / 255 * max))
}

// DecodePalette decodes b as a sequence of big-endian 16-bit color words. Each
// color is returned as a color.RGBA and is fully opaque.
func DecodePalette(b []byte) (color.Palette, error) {
	if len(b)%colorBytes != 0 {
		return nil, ErrInvalidPaletteLength
	}
	p := make(color.Palette, len(b)/colorBytes)
	for i := range p {
		// Color is packed as BBBBBGGGGGGRRRRR
		w := binary.BigEndian.Uint16(b[i*colorBytes:])
		p[i] = color.RGBA{
			R: expand(w&0x1f, redBits),
			G: expand(w>>5&0x3f, greenBits),
			B: expand(w>>11, blueBits),
			A: 0xff,
		}
	}
	return p, nil
}

// EncodePalette packs each color of p into a big-endian 16-bit word. Alpha is
// discarded.
func EncodePalette(p color.Palette) []byte {
	b := make([]byte, len(p)*colorBytes)
	for i, c := range p {
		rgba := color.RGBAModel.Convert(c).(color.RGBA)
		w := reduce(rgba.B, blueBits)<<11 | reduce(rgba.G, greenBits)<<5 | reduce(rgba.R, redBits)
		binary.BigEndian.PutUint16(b[i*colorBytes:], w)
	}
	return b
}
