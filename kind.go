package tamaed

import "image/color"

// Kind identifies the type of resource an Entry holds.
type Kind int

const (
	// KindUnknown covers bytes no scanner recognised. It is never
	// materialized as an Entry.
	KindUnknown Kind = iota
	KindImage
)

func (k Kind) String() string {
	switch k {
	case KindImage:
		return "image"
	default:
		return "unknown"
	}
}

var (
	// DefaultColor marks unclassified bytes in map views
	DefaultColor = color.RGBA{100, 100, 100, 255}

	// HighlightColor marks the highlighted range in map views
	HighlightColor = color.RGBA{255, 55, 55, 255}
)

var kindColors = map[Kind]color.RGBA{
	KindImage: {255, 255, 0, 255},
}

// KindColor returns the color used to draw entries of kind k.
func KindColor(k Kind) color.RGBA {
	if c, ok := kindColors[k]; ok {
		return c
	}
	return DefaultColor
}
