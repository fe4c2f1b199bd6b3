package tamaed

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
)

const (
	// DefaultChunkSize is the number of bytes drawn in one column of the
	// overview
	DefaultChunkSize = 2048

	// DefaultBytesPerPixel is the number of bytes drawn as one cell
	DefaultBytesPerPixel = 8
)

// ErrInvalidProjectionConfig is returned when the chunk size isn't a positive
// multiple of the bytes per pixel.
var ErrInvalidProjectionConfig = errors.New("chunk size must be a multiple of bytes per pixel")

// entryCursor walks the entries of a map once, in cell units
type entryCursor struct {
	entries []Entry
	bpp     int

	start, end int
	color      color.RGBA
}

func (c *entryCursor) next() {
	if len(c.entries) == 0 {
		c.start, c.end = math.MaxInt, math.MaxInt
		c.color = DefaultColor
		return
	}
	e := c.entries[0]
	c.entries = c.entries[1:]
	c.start = e.Offset() / c.bpp
	c.end = e.End() / c.bpp
	c.color = KindColor(e.Kind())
}

// Project draws an overview of m covering totalSize bytes. Each column holds
// chunkSize bytes and each cell bytesPerPixel bytes; addresses fill a column
// top to bottom before moving right. Cells covered by an entry take the color
// of its kind and cells inside highlight are drawn in HighlightColor.
func Project(m *Map, totalSize int, highlight Range, chunkSize, bytesPerPixel int) (*image.RGBA, error) {
	if chunkSize <= 0 || bytesPerPixel <= 0 || chunkSize%bytesPerPixel != 0 {
		return nil, fmt.Errorf("%w: chunk size %d, bytes per pixel %d", ErrInvalidProjectionConfig, chunkSize, bytesPerPixel)
	}

	height := chunkSize / bytesPerPixel
	width := 0
	if totalSize > 0 {
		width = (totalSize + chunkSize - 1) / chunkSize
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))

	c := entryCursor{bpp: bytesPerPixel}
	if m != nil {
		c.entries = m.entries
	}
	c.next()

	selStart := highlight.Start / bytesPerPixel
	selEnd := highlight.End / bytesPerPixel

	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			i := x*height + y
			col := DefaultColor
			if i >= c.start {
				col = c.color
				// The cell holding an entry's end still takes its color
				for i == c.end {
					c.next()
				}
			}
			if i >= selStart && i < selEnd {
				col = HighlightColor
			}
			img.SetRGBA(x, y, col)
		}
	}

	return img, nil
}
