package storage

import (
	"database/sql"
	"time"

	_ "github.com/lib/pq"
	"github.com/rotisserie/eris"
)

// NewPostgresSource opens a connection to PostgreSQL, waits for it to come
// up, and returns a source reading the given table.
func NewPostgresSource(dsn, table string) (*SQLSource, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "storage: postgres: open")
	}

	for i := 0; i < 10; i++ {
		if err = db.Ping(); err == nil {
			break
		}
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		_ = db.Close()
		return nil, eris.Wrap(err, "storage: postgres: ping failed after retries")
	}

	src, err := newSQLSource(db, "postgres", table)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return src, nil
}
