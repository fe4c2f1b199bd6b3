package tamaed

import (
	"image/color"
	"sort"
)

// Range is a half-open byte range [Start, End).
type Range struct {
	Start int
	End   int
}

// Len returns the number of bytes in the range.
func (r Range) Len() int {
	if r.End < r.Start {
		return 0
	}
	return r.End - r.Start
}

// Map is the ordered list of entries found by one scan of one firmware
// buffer. Entries are sorted by offset and never overlap. Bytes outside any
// entry are unclassified.
type Map struct {
	entries   []Entry
	size      int
	malformed int
}

// Len returns the number of entries.
func (m *Map) Len() int {
	return len(m.entries)
}

// Size returns the length of the scanned buffer.
func (m *Map) Size() int {
	return m.size
}

// Malformed returns how many candidates passed the header check but could
// not be turned into an entry. Records found by Scan always agree with their
// header, so this is zero unless the record constructor rejects one.
func (m *Map) Malformed() int {
	return m.malformed
}

// Entry returns the i'th entry.
func (m *Map) Entry(i int) Entry {
	return m.entries[i]
}

// Entries returns all entries in offset order. The slice must not be
// modified.
func (m *Map) Entries() []Entry {
	return m.entries
}

// Images returns every image entry in offset order.
func (m *Map) Images() []*Image {
	var images []*Image
	for _, e := range m.entries {
		if i, ok := e.(*Image); ok {
			images = append(images, i)
		}
	}
	return images
}

// first returns the index of the first entry ending after pos
func (m *Map) first(pos int) int {
	return sort.Search(len(m.entries), func(i int) bool {
		return m.entries[i].End() > pos
	})
}

// Intersect returns the entries overlapping [a, b) in offset order.
func (m *Map) Intersect(a, b int) []Entry {
	var out []Entry
	for i := m.first(a); i < len(m.entries) && m.entries[i].Offset() < b; i++ {
		out = append(out, m.entries[i])
	}
	return out
}

// At returns the entry covering pos, or nil if pos is unclassified.
func (m *Map) At(pos int) Entry {
	i := m.first(pos)
	if i < len(m.entries) && m.entries[i].Offset() <= pos {
		return m.entries[i]
	}
	return nil
}

// Colors returns one color per position in [a, b): the color of the kind of
// the entry covering it or DefaultColor for unclassified bytes.
func (m *Map) Colors(a, b int) []color.RGBA {
	if b <= a {
		return nil
	}
	out := make([]color.RGBA, b-a)
	i := m.first(a)
	for pos := a; pos < b; pos++ {
		for i < len(m.entries) && m.entries[i].End() <= pos {
			i++
		}
		if i < len(m.entries) && m.entries[i].Offset() <= pos {
			out[pos-a] = KindColor(m.entries[i].Kind())
		} else {
			out[pos-a] = DefaultColor
		}
	}
	return out
}
