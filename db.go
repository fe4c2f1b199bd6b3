package tamaed

import (
	"bytes"
	"database/sql"
	"fmt"
	"image/png"

	_ "github.com/mattn/go-sqlite3"
)

// Catalog is a sqlite database of scanned firmware and the entries found in
// each.
type Catalog struct {
	db *sql.DB
}

// CatalogEntry is one row of the entry table.
type CatalogEntry struct {
	Offset int
	Size   int
	Kind   Kind
	Width  int
	Height int
	Colors int
	// PNG is nil if the image could not be decoded
	PNG []byte
}

// CatalogFirmware is one row of the firmware table.
type CatalogFirmware struct {
	SHA1    string
	Name    string
	Size    int
	Entries int
}

func NewCatalog(file string) (*Catalog, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("%s?_foreign_keys=on", file))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)

	if _, err = db.Exec("CREATE TABLE IF NOT EXISTS firmware (id INTEGER PRIMARY KEY NOT NULL, sha1 TEXT NOT NULL UNIQUE, name TEXT NOT NULL, size INTEGER NOT NULL)"); err != nil {
		return nil, err
	}

	if _, err = db.Exec("CREATE TABLE IF NOT EXISTS entry (firmware_id INTEGER NOT NULL, address INTEGER NOT NULL, size INTEGER NOT NULL, kind INTEGER NOT NULL, width INTEGER, height INTEGER, colors INTEGER, png BLOB, UNIQUE(firmware_id, address), FOREIGN KEY(firmware_id) REFERENCES firmware(id))"); err != nil {
		return nil, err
	}

	return &Catalog{
		db: db,
	}, nil
}

func (c *Catalog) Close() error {
	return c.db.Close()
}

func (c *Catalog) addFirmware(tx *sql.Tx, sha, name string, size int) (int64, error) {
	var id int64
	switch err := tx.QueryRow("SELECT id FROM firmware WHERE sha1 = ?", sha).Scan(&id); err {
	case sql.ErrNoRows:
		result, err := tx.Exec("INSERT INTO firmware (sha1, name, size) VALUES (?, ?, ?)", sha, name, size)
		if err != nil {
			return 0, err
		}
		return result.LastInsertId()
	case nil:
		return id, nil
	default:
		return 0, err
	}
}

func (c *Catalog) addImage(tx *sql.Tx, firmware int64, i *Image) (bool, error) {
	var blob []byte
	if pm, err := i.Pixels(); err == nil {
		b := new(bytes.Buffer)
		if err := png.Encode(b, pm); err != nil {
			return false, err
		}
		blob = b.Bytes()
	}
	if _, err := tx.Exec("INSERT OR REPLACE INTO entry (firmware_id, address, size, kind, width, height, colors, png) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		firmware, i.Offset(), i.Size(), int(i.Kind()), i.Width(), i.Height(), i.Colors(), blob); err != nil {
		return false, err
	}
	return blob != nil, nil
}

// Import stores fw and its entries, replacing anything stored for the same
// firmware contents before. It returns the number of images that decoded.
func (c *Catalog) Import(fw *Firmware) (int, error) {
	tx, err := c.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	id, err := c.addFirmware(tx, fw.SHA1(), fw.Name, len(fw.Data))
	if err != nil {
		return 0, err
	}

	if _, err = tx.Exec("DELETE FROM entry WHERE firmware_id = ?", id); err != nil {
		return 0, err
	}

	var decoded int
	for _, i := range fw.Map.Images() {
		ok, err := c.addImage(tx, id, i)
		if err != nil {
			return 0, err
		}
		if ok {
			decoded++
		}
	}

	return decoded, tx.Commit()
}

// Firmwares lists every imported firmware.
func (c *Catalog) Firmwares() ([]CatalogFirmware, error) {
	rows, err := c.db.Query("SELECT f.sha1, f.name, f.size, COUNT(e.address) FROM firmware AS f LEFT JOIN entry AS e ON e.firmware_id = f.id GROUP BY f.id ORDER BY f.name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CatalogFirmware
	for rows.Next() {
		var f CatalogFirmware
		if err := rows.Scan(&f.SHA1, &f.Name, &f.Size, &f.Entries); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// Entries lists the entries stored for the firmware with the given SHA-1, in
// offset order.
func (c *Catalog) Entries(sha string) ([]CatalogEntry, error) {
	rows, err := c.db.Query("SELECT e.address, e.size, e.kind, e.width, e.height, e.colors, e.png FROM entry AS e JOIN firmware AS f ON e.firmware_id = f.id WHERE f.sha1 = ? ORDER BY e.address", sha)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CatalogEntry
	for rows.Next() {
		var e CatalogEntry
		var kind int
		var width, height, colors sql.NullInt64
		if err := rows.Scan(&e.Offset, &e.Size, &kind, &width, &height, &colors, &e.PNG); err != nil {
			return nil, err
		}
		e.Kind = Kind(kind)
		e.Width, e.Height, e.Colors = int(width.Int64), int(height.Int64), int(colors.Int64)
		out = append(out, e)
	}
	return out, rows.Err()
}

// FindImage returns the PNG stored for the entry at offset of the firmware
// with the given SHA-1. It returns nil if there is no such entry or it did
// not decode.
func (c *Catalog) FindImage(sha string, offset int) ([]byte, error) {
	var b []byte
	switch err := c.db.QueryRow("SELECT e.png FROM entry AS e JOIN firmware AS f ON e.firmware_id = f.id WHERE f.sha1 = ? AND e.address = ?", sha, offset).Scan(&b); err {
	case sql.ErrNoRows:
		return nil, nil
	case nil:
		return b, nil
	default:
		return nil, err
	}
}
