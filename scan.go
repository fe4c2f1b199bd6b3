package tamaed

import (
	"errors"
	"io"
	"log"

	record "github.com/bodgit/tamaed/image"
)

// Candidates need this many bytes from their offset to the end of the buffer
// before they are considered at all
const minRemaining = 11

// Scanner walks a firmware buffer looking for image records.
type Scanner struct {
	logger   *log.Logger
	newImage func(int, []byte) (*Image, error)
}

// NewScanner returns a Scanner that reports malformed candidates to logger.
func NewScanner(logger *log.Logger) *Scanner {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Scanner{
		logger:   logger,
		newImage: newImage,
	}
}

// Scan returns the records found in b using a Scanner that logs nothing.
func Scan(b []byte) *Map {
	return NewScanner(nil).Scan(b)
}

// match tries to recognise a record at offset. It returns nil without an
// error when the bytes don't look like a record header.
func (s *Scanner) match(b []byte, offset int) (Entry, error) {
	if len(b)-offset < minRemaining {
		return nil, nil
	}

	h, ok := record.MatchHeader(b[offset:])
	if !ok {
		return nil, nil
	}

	size := h.Size()
	if offset+size > len(b) {
		return nil, nil
	}

	// The header has been checked and the record fits, so newImage only
	// fails here if the two disagree
	i, err := s.newImage(offset, b[offset:offset+size:offset+size])
	if err != nil {
		return nil, err
	}
	return i, nil
}

// Scan walks b from the start. A recognised record is skipped over in its
// entirety, so entries never overlap; anything else moves on by one byte.
func (s *Scanner) Scan(b []byte) *Map {
	m := &Map{size: len(b)}
	for offset := 0; offset < len(b); {
		e, err := s.match(b, offset)
		if err != nil {
			m.malformed++
			var mre *MalformedRecordError
			if !errors.As(err, &mre) {
				err = &MalformedRecordError{Offset: offset, Err: err}
			}
			s.logger.Printf("Skipping candidate: %v\n", err)
			offset++
			continue
		}
		if e == nil {
			offset++
			continue
		}
		m.entries = append(m.entries, e)
		offset += e.Size()
	}
	return m
}
