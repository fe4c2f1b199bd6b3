package image

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	black = color.RGBA{0x00, 0x00, 0x00, 0xff}
	white = color.RGBA{0xff, 0xff, 0xff, 0xff}
	red   = color.RGBA{0xff, 0x00, 0x00, 0xff}
	green = color.RGBA{0x00, 0xff, 0x00, 0xff}
	blue  = color.RGBA{0x00, 0x00, 0xff, 0xff}
)

func TestParseHeader(t *testing.T) {
	tables := []struct {
		name string
		b    []byte
		want Header
		err  bool
	}{
		{"valid", []byte{4, 4, 2, 0x00, 0x01, 0xff}, Header{4, 4, 2}, false},
		{"largest", []byte{128, 128, 255, 0x00, 0x01, 0xff}, Header{128, 128, 255}, false},
		{"zero width", []byte{0, 4, 2, 0x00, 0x01, 0xff}, Header{}, true},
		{"wide", []byte{129, 4, 2, 0x00, 0x01, 0xff}, Header{}, true},
		{"zero height", []byte{4, 0, 2, 0x00, 0x01, 0xff}, Header{}, true},
		{"tall", []byte{4, 129, 2, 0x00, 0x01, 0xff}, Header{}, true},
		{"no colors", []byte{4, 4, 0, 0x00, 0x01, 0xff}, Header{}, true},
		{"bad marker", []byte{4, 4, 2, 0x00, 0x01, 0xfe}, Header{}, true},
		{"short", []byte{4, 4, 2, 0x00, 0x01}, Header{}, true},
	}

	for _, table := range tables {
		t.Run(table.name, func(t *testing.T) {
			h, ok := MatchHeader(table.b)
			assert.Equal(t, !table.err, ok)
			assert.Equal(t, table.want, h)

			h, err := ParseHeader(table.b)
			if table.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, table.want, h)
		})
	}
}

func TestMatchHeaderAllocs(t *testing.T) {
	b := make([]byte, 4096)
	rand.New(rand.NewSource(1)).Read(b)

	allocs := testing.AllocsPerRun(10, func() {
		for i := range b {
			MatchHeader(b[i:])
		}
	})
	assert.Equal(t, 0.0, allocs)
}

func TestHeaderSize(t *testing.T) {
	tables := []struct {
		header Header
		ppb    int
		size   int
	}{
		{Header{4, 4, 2}, 2, 6 + 4 + 8},
		{Header{3, 3, 16}, 2, 6 + 32 + 5},
		{Header{3, 3, 17}, 1, 6 + 34 + 9},
		{Header{1, 1, 1}, 2, 6 + 2 + 1},
	}

	for _, table := range tables {
		assert.Equal(t, table.ppb, table.header.PixelsPerByte())
		assert.Equal(t, table.size, table.header.Size())
	}
}

func TestDecodePalette(t *testing.T) {
	p, err := DecodePalette([]byte{0xff, 0xff, 0x00, 0x00, 0xf8, 0x00, 0x07, 0xe0, 0x00, 0x1f})
	require.NoError(t, err)
	assert.Equal(t, color.Palette{white, black, blue, green, red}, p)

	// Half-scale channels round to nearest
	p, err = DecodePalette([]byte{0x00, 0x10})
	require.NoError(t, err)
	assert.Equal(t, color.Palette{color.RGBA{0x84, 0x00, 0x00, 0xff}}, p)

	p, err = DecodePalette(nil)
	require.NoError(t, err)
	assert.Len(t, p, 0)

	_, err = DecodePalette([]byte{0xff, 0xff, 0x00})
	assert.Equal(t, ErrInvalidPaletteLength, err)
}

func TestEncodePalette(t *testing.T) {
	b := []byte{0xff, 0xff, 0x00, 0x00, 0xf8, 0x00, 0x07, 0xe0, 0x00, 0x1f, 0x12, 0x34}
	p, err := DecodePalette(b)
	require.NoError(t, err)
	assert.Equal(t, b, EncodePalette(p))
}

func TestDecodePixels(t *testing.T) {
	p := color.Palette{black, white, red}

	// Low nibble first
	m, err := DecodePixels([]byte{0x21}, p, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, p[1], m.At(0, 0))
	assert.Equal(t, p[2], m.At(1, 0))

	// Odd pixel count ignores the final high nibble
	m, err = DecodePixels([]byte{0x10, 0xf2}, p, 3, 1)
	require.NoError(t, err)
	assert.Equal(t, []uint8{0, 1, 2}, m.Pix)

	_, err = DecodePixels([]byte{0x10}, p, 3, 1)
	assert.Equal(t, ErrNotEnough, err)

	_, err = DecodePixels([]byte{0x31}, p, 2, 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPaletteIndexOutOfRange))
	var pie *PaletteIndexError
	require.True(t, errors.As(err, &pie))
	assert.Equal(t, PaletteIndexError{Pixel: 1, Index: 3, Colors: 3}, *pie)
}

func TestDecodePixels8Bit(t *testing.T) {
	p := make(color.Palette, 17)
	for i := range p {
		p[i] = color.RGBA{uint8(i), 0, 0, 0xff}
	}

	m, err := DecodePixels([]byte{16, 0, 3, 7}, p, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, p[16], m.At(0, 0))
	assert.Equal(t, p[0], m.At(1, 0))
	assert.Equal(t, p[3], m.At(0, 1))
	assert.Equal(t, p[7], m.At(1, 1))

	_, err = DecodePixels([]byte{17, 0, 0, 0}, p, 2, 2)
	assert.True(t, errors.Is(err, ErrPaletteIndexOutOfRange))
}

func TestDecodePixelsSize(t *testing.T) {
	for _, colors := range []int{1, 2, 16, 17, 255} {
		p := make(color.Palette, colors)
		for i := range p {
			p[i] = black
		}
		h := Header{Width: 5, Height: 7, Colors: colors}
		m, err := DecodePixels(make([]byte, h.PixelSize()), p, h.Width, h.Height)
		require.NoError(t, err)
		assert.Len(t, m.Pix, 35)
		assert.Equal(t, image.Rect(0, 0, 5, 7), m.Bounds())
	}
}

func TestDecodePixelsInvalidSize(t *testing.T) {
	p := color.Palette{black, white}

	tables := []struct {
		name          string
		width, height int
	}{
		{"negative width", -1, 5},
		{"zero width", 0, 1},
		{"zero height", 5, 0},
		{"wide", 129, 1},
		{"tall", 1, 129},
	}

	for _, table := range tables {
		t.Run(table.name, func(t *testing.T) {
			m, err := DecodePixels(make([]byte, 256), p, table.width, table.height)
			assert.Nil(t, m)
			assert.True(t, errors.Is(err, ErrInvalidSize))
		})
	}
}

func record() []byte {
	return []byte{
		2, 2, 2, 0x00, 0x01, 0xff,
		0x00, 0x00, 0xff, 0xff,
		0x10, 0x01,
	}
}

func TestDecode(t *testing.T) {
	m, err := Decode(bytes.NewReader(record()))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 2, 2), m.Bounds())
	assert.Equal(t, black, m.At(0, 0))
	assert.Equal(t, white, m.At(1, 0))
	assert.Equal(t, white, m.At(0, 1))
	assert.Equal(t, black, m.At(1, 1))

	_, err = Decode(bytes.NewReader(record()[:11]))
	assert.Equal(t, ErrNotEnough, err)

	_, err = Decode(bytes.NewReader(record()[:8]))
	assert.Equal(t, ErrNotEnough, err)
}

func TestDecodeConfig(t *testing.T) {
	c, err := DecodeConfig(bytes.NewReader(record()[:10]))
	require.NoError(t, err)
	assert.Equal(t, 2, c.Width)
	assert.Equal(t, 2, c.Height)
	assert.Equal(t, color.Palette{black, white}, c.ColorModel)
}

func TestRegisteredFormat(t *testing.T) {
	m, format, err := image.Decode(bytes.NewReader(record()))
	require.NoError(t, err)
	assert.Equal(t, "tamagotchi", format)
	assert.Equal(t, 2, m.Bounds().Dx())
}

func TestEncode(t *testing.T) {
	tables := []struct {
		name    string
		palette color.Palette
	}{
		{"nibble", color.Palette{black, white, red}},
		{"byte", append(make(color.Palette, 0, 20), black, white, red, green, blue,
			black, black, black, black, black, black, black, black, black, black, black, black, black)},
	}

	for _, table := range tables {
		t.Run(table.name, func(t *testing.T) {
			src := image.NewPaletted(image.Rect(0, 0, 3, 3), table.palette)
			for i := range src.Pix {
				src.Pix[i] = uint8(i % 5 % len(table.palette))
			}

			b := new(bytes.Buffer)
			require.NoError(t, Encode(b, src))

			h, err := ParseHeader(b.Bytes())
			require.NoError(t, err)
			assert.Equal(t, Header{3, 3, len(table.palette)}, h)
			assert.Equal(t, h.Size(), b.Len())

			m, err := Decode(bytes.NewReader(b.Bytes()))
			require.NoError(t, err)
			for y := 0; y < 3; y++ {
				for x := 0; x < 3; x++ {
					assert.Equal(t, src.At(x, y), m.At(x, y))
				}
			}
		})
	}
}

func TestEncodeQuantizes(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			if x < 2 {
				src.Set(x, y, red)
			} else {
				src.Set(x, y, blue)
			}
		}
	}

	b := new(bytes.Buffer)
	require.NoError(t, Encode(b, src))

	m, err := Decode(bytes.NewReader(b.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 4, 4), m.Bounds())
}

func TestEncodeWrongSize(t *testing.T) {
	err := Encode(new(bytes.Buffer), image.NewRGBA(image.Rect(0, 0, 129, 1)))
	assert.True(t, errors.Is(err, ErrInvalidSize))
	err = Encode(new(bytes.Buffer), image.NewRGBA(image.Rect(0, 0, 0, 0)))
	assert.True(t, errors.Is(err, ErrInvalidSize))
}
