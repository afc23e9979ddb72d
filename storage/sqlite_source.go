package storage

import (
	"database/sql"
	"os"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// NewSQLiteSource opens an existing SQLite file and returns a
// source reading the given table.
func NewSQLiteSource(path, table string) (*SQLSource, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, eris.Wrapf(err, "storage: sqlite: path %q", path)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "storage: sqlite: open")
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, eris.Wrap(err, "storage: sqlite: ping")
	}

	src, err := newSQLSource(db, "sqlite", table)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return src, nil
}
