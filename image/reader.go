package image

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
)

var (
	// ErrNotEnough is returned when the pixel data is too short for the
	// declared dimensions.
	ErrNotEnough = errors.New("image: not enough image data")

	// ErrInvalidSize is returned for dimensions outside 1 to MaxWidth by
	// 1 to MaxHeight.
	ErrInvalidSize = errors.New("image: invalid image size")

	// ErrPaletteIndexOutOfRange matches any *PaletteIndexError.
	ErrPaletteIndexOutOfRange = errors.New("image: palette index out of range")
)

// PaletteIndexError reports a pixel referring to a color the palette doesn't
// have.
type PaletteIndexError struct {
	Pixel  int
	Index  int
	Colors int
}

func (e *PaletteIndexError) Error() string {
	return fmt.Sprintf("image: pixel %d uses palette index %d, palette has %d colors", e.Pixel, e.Index, e.Colors)
}

// Is makes errors.Is(err, ErrPaletteIndexOutOfRange) true.
func (e *PaletteIndexError) Is(target error) bool {
	return target == ErrPaletteIndexOutOfRange
}

func readFull(r io.Reader, b []byte) error {
	_, err := io.ReadFull(r, b)
	if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return err
}

func upperNibble(b byte) byte {
	return b >> 4
}

func lowerNibble(b byte) byte {
	return b & 0x0f
}

// DecodePixels unpacks width*height palette indices from b. Palettes of 16
// colors or fewer use two pixels per byte, low nibble first. Every index is
// checked against the palette so the returned image only holds valid colors.
func DecodePixels(b []byte, p color.Palette, width, height int) (*image.Paletted, error) {
	if width < 1 || width > MaxWidth || height < 1 || height > MaxHeight {
		return nil, ErrInvalidSize
	}
	n := width * height
	ppb := pixelsPerByte(len(p))
	if len(b) < (n+ppb-1)/ppb {
		return nil, ErrNotEnough
	}

	m := image.NewPaletted(image.Rect(0, 0, width, height), p)
	for i := 0; i < n; i++ {
		var idx byte
		if ppb == 2 {
			if i&1 == 0 {
				idx = lowerNibble(b[i>>1])
			} else {
				idx = upperNibble(b[i>>1])
			}
		} else {
			idx = b[i]
		}
		if int(idx) >= len(p) {
			return nil, &PaletteIndexError{Pixel: i, Index: int(idx), Colors: len(p)}
		}
		m.Pix[i] = idx
	}
	return m, nil
}

type decoder struct {
	r io.Reader

	header  Header
	palette color.Palette
	image   *image.Paletted

	tmp [HeaderSize]byte
}

func (d *decoder) readHeader() error {
	if err := readFull(d.r, d.tmp[:]); err != nil {
		return err
	}
	h, err := ParseHeader(d.tmp[:])
	if err != nil {
		return err
	}
	d.header = h
	return nil
}

func (d *decoder) readPalette() error {
	b := make([]byte, d.header.PaletteSize())
	if err := readFull(d.r, b); err != nil {
		return err
	}
	p, err := DecodePalette(b)
	if err != nil {
		return err
	}
	d.palette = p
	return nil
}

func (d *decoder) readPixels() error {
	b := make([]byte, d.header.PixelSize())
	if err := readFull(d.r, b); err != nil {
		return err
	}
	m, err := DecodePixels(b, d.palette, d.header.Width, d.header.Height)
	if err != nil {
		return err
	}
	d.image = m
	return nil
}

func (d *decoder) decode(r io.Reader, configOnly bool) error {
	d.r = r

	if err := d.readHeader(); err != nil {
		if err != io.ErrUnexpectedEOF {
			return err
		}
		return ErrNotEnough
	}

	if err := d.readPalette(); err != nil {
		if err != io.ErrUnexpectedEOF {
			return err
		}
		return ErrNotEnough
	}

	if configOnly {
		return nil
	}

	if err := d.readPixels(); err != nil {
		if err != io.ErrUnexpectedEOF {
			return err
		}
		return ErrNotEnough
	}

	return nil
}

// Decode reads a record from r and returns it as an image.Image. Any trailing
// data after the record is left unread.
func Decode(r io.Reader) (image.Image, error) {
	var d decoder
	if err := d.decode(r, false); err != nil {
		return nil, err
	}
	return d.image, nil
}

// DecodeConfig returns the color model and dimensions of a record without
// decoding the pixel data.
func DecodeConfig(r io.Reader) (image.Config, error) {
	var d decoder
	if err := d.decode(r, true); err != nil {
		return image.Config{}, err
	}
	return image.Config{
		ColorModel: d.palette,
		Width:      d.header.Width,
		Height:     d.header.Height,
	}, nil
}

func init() {
	image.RegisterFormat("tamagotchi", "???\x00\x01\xff", Decode, DecodeConfig)
}
