package tamaed

import (
	"crypto/sha1"
	"fmt"
	"image"
	"log"
	"os"

	"github.com/edsrzf/mmap-go"
)

// RowSize is the number of bytes in one row of a hex view
const RowSize = 16

// Firmware is a firmware buffer together with its map. Changing the buffer
// means building a new Firmware.
type Firmware struct {
	Name string
	Data []byte
	Map  *Map

	mapping mmap.MMap
}

// NewFirmware scans b, which is borrowed rather than copied.
func NewFirmware(name string, b []byte, logger *log.Logger) *Firmware {
	return &Firmware{
		Name: name,
		Data: b,
		Map:  NewScanner(logger).Scan(b),
	}
}

// LoadFirmware maps file read-only and scans it. The Firmware must be closed
// once it is no longer needed.
func LoadFirmware(file string, logger *log.Logger) (*Firmware, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}

	// Zero-length files can't be mapped
	if info.Size() == 0 {
		return NewFirmware(file, nil, logger), nil
	}

	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("mapping %s: %w", file, err)
	}

	fw := NewFirmware(file, m, logger)
	fw.mapping = m

	return fw, nil
}

// Close releases the mapping made by LoadFirmware. The buffer and any entry
// bytes must not be used afterwards.
func (fw *Firmware) Close() error {
	if fw.mapping == nil {
		return nil
	}
	err := fw.mapping.Unmap()
	fw.mapping = nil
	return err
}

// SHA1 returns the upper case hex SHA-1 of the buffer.
func (fw *Firmware) SHA1() string {
	return fmt.Sprintf("%X", sha1.Sum(fw.Data))
}

// Page returns the byte range of a hex view page of at least pageSize bytes
// starting near offset. The size is rounded up to whole rows and the range is
// kept inside the buffer where possible.
func (fw *Firmware) Page(offset, pageSize int) Range {
	if pageSize < RowSize {
		pageSize = RowSize
	}
	pageSize = (pageSize + RowSize - 1) / RowSize * RowSize

	if max := len(fw.Data) - pageSize; offset > max {
		offset = max
	}
	if offset < 0 {
		offset = 0
	}

	end := offset + pageSize
	if end > len(fw.Data) {
		end = len(fw.Data)
	}

	return Range{Start: offset, End: end}
}

// Project draws an overview of the whole buffer with r highlighted.
func (fw *Firmware) Project(r Range, chunkSize, bytesPerPixel int) (*image.RGBA, error) {
	return Project(fw.Map, len(fw.Data), r, chunkSize, bytesPerPixel)
}
