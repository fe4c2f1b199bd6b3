/*
Package image implements a decoder and encoder for the indexed-colour bitmap
records embedded in Tamagotchi On firmware.

A record starts with a six byte header: width, height and number of colors,
each a single byte, followed by the three marker bytes 0x00, 0x01 and 0xff.
The marker has only been observed, never documented. Width and height are
between 1 and 128 pixels.

The palette follows, one big-endian 16-bit word per color packed as
BBBBBGGGGGGRRRRR. Pixel data fills the rest of the record as palette
indices; when the palette has 16 colors or fewer each byte holds two pixels
with the low nibble first, otherwise each byte holds one pixel. There is no
compression so a record is 6 + 2*colors + ceil(width*height/pixelsPerByte)
bytes long.
*/
package image

import (
	"errors"
	"fmt"
)

const (
	// HeaderSize is the number of bytes before the palette
	HeaderSize = 6

	// MaxWidth and MaxHeight bound the dimensions of a record
	MaxWidth  = 128
	MaxHeight = 128

	// MaxColors is the largest palette a record can declare
	MaxColors = 255

	nibbleColors = 16
	colorBytes   = 2
)

var marker = [3]byte{0x00, 0x01, 0xff}

var errBadHeader = errors.New("image: invalid header")

// Header describes the fixed part of a record.
type Header struct {
	Width  int
	Height int
	Colors int
}

// MatchHeader reports whether b starts with a valid record header. It does
// the same checks as ParseHeader without describing a failure, so it can be
// called at every offset of a buffer without allocating.
func MatchHeader(b []byte) (Header, bool) {
	if len(b) < HeaderSize {
		return Header{}, false
	}
	h := Header{
		Width:  int(b[0]),
		Height: int(b[1]),
		Colors: int(b[2]),
	}
	if h.Width < 1 || h.Width > MaxWidth ||
		h.Height < 1 || h.Height > MaxHeight ||
		h.Colors < 1 ||
		b[3] != marker[0] || b[4] != marker[1] || b[5] != marker[2] {
		return Header{}, false
	}
	return h, true
}

// ParseHeader validates the first HeaderSize bytes of b as a record header.
func ParseHeader(b []byte) (Header, error) {
	if h, ok := MatchHeader(b); ok {
		return h, nil
	}
	if len(b) < HeaderSize {
		return Header{}, ErrNotEnough
	}
	h := Header{
		Width:  int(b[0]),
		Height: int(b[1]),
		Colors: int(b[2]),
	}
	switch {
	case h.Width < 1 || h.Width > MaxWidth:
		return Header{}, fmt.Errorf("%w: width %d", errBadHeader, h.Width)
	case h.Height < 1 || h.Height > MaxHeight:
		return Header{}, fmt.Errorf("%w: height %d", errBadHeader, h.Height)
	case h.Colors < 1:
		return Header{}, fmt.Errorf("%w: no colors", errBadHeader)
	case b[3] != marker[0] || b[4] != marker[1] || b[5] != marker[2]:
		return Header{}, fmt.Errorf("%w: bad marker % x", errBadHeader, b[3:HeaderSize])
	}
	return Header{}, errBadHeader
}

// PixelsPerByte returns 2 for nibble-packed records and 1 otherwise.
func (h Header) PixelsPerByte() int {
	return pixelsPerByte(h.Colors)
}

// PaletteSize returns the number of bytes holding the palette.
func (h Header) PaletteSize() int {
	return h.Colors * colorBytes
}

// PixelSize returns the number of bytes holding the pixel indices.
func (h Header) PixelSize() int {
	ppb := h.PixelsPerByte()
	return (h.Width*h.Height + ppb - 1) / ppb
}

// Size returns the total length of the record in bytes.
func (h Header) Size() int {
	return HeaderSize + h.PaletteSize() + h.PixelSize()
}

// Bytes returns the header in wire format.
func (h Header) Bytes() []byte {
	return []byte{byte(h.Width), byte(h.Height), byte(h.Colors), marker[0], marker[1], marker[2]}
}

func pixelsPerByte(colors int) int {
	if colors > nibbleColors {
		return 1
	}
	return 2
}
