/*
Package tamaed is a library for finding and extracting the bitmap resources
embedded in Tamagotchi On firmware images.

There is no table of contents in the firmware so records are found by
scanning for byte patterns that look like a record header. The scan is
heuristic: it can miss records and, rarely, mistake other bytes for one.
*/
package tamaed

import (
	"errors"
	"io"
	"log"
)

type Tamaed struct {
	db     *Catalog
	logger *log.Logger
}

// New returns a Tamaed using the catalogue db, which may be nil if nothing is
// going to be imported.
func New(db *Catalog, logger *log.Logger) *Tamaed {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Tamaed{
		db:     db,
		logger: logger,
	}
}

// Load reads and scans a firmware file.
func (t *Tamaed) Load(file string) (*Firmware, error) {
	fw, err := LoadFirmware(file, t.logger)
	if err != nil {
		return nil, err
	}
	t.logger.Printf("Found %d entries in \"%s\", %d malformed candidates\n", fw.Map.Len(), file, fw.Map.Malformed())
	return fw, nil
}

// Import stores fw in the catalogue.
func (t *Tamaed) Import(fw *Firmware) error {
	if t.db == nil {
		return errors.New("no catalogue")
	}
	n, err := t.db.Import(fw)
	if err != nil {
		return err
	}
	if skipped := len(fw.Map.Images()) - n; skipped > 0 {
		t.logger.Printf("%d images in \"%s\" could not be decoded\n", skipped, fw.Name)
	}
	return nil
}
