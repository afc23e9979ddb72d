package storage

import (
	"context"
	"database/sql"
	"regexp"

	"github.com/rotisserie/eris"

	"deals-dashboard/models"
)

var identRegexp = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SQLSource reads a whole table from a database/sql connection. It backs
// both the PostgreSQL and SQLite sources.
type SQLSource struct {
	db    *sql.DB
	table string
	name  string
}

func newSQLSource(db *sql.DB, name, table string) (*SQLSource, error) {
	if !identRegexp.MatchString(table) {
		return nil, eris.Errorf("storage: invalid table name %q", table)
	}
	return &SQLSource{db: db, table: table, name: name}, nil
}

// Load selects every row of the table. Column order follows the table
// definition; NULL becomes "" and other values their string form.
func (s *SQLSource) Load(ctx context.Context) (*models.Table, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT * FROM "`+s.table+`"`)
	if err != nil {
		return nil, eris.Wrapf(err, "storage: %s: query %s", s.name, s.table)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, eris.Wrapf(err, "storage: %s: columns", s.name)
	}

	t := &models.Table{Columns: cols}
	for rows.Next() {
		vals := make([]sql.NullString, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, eris.Wrapf(err, "storage: %s: scan row", s.name)
		}

		row := make(models.RawRow, len(cols))
		for i, c := range cols {
			row[c] = vals[i].String
		}
		t.Rows = append(t.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrapf(err, "storage: %s: iterate rows", s.name)
	}
	return t, nil
}

// Close closes the underlying connection pool.
func (s *SQLSource) Close() error {
	return s.db.Close()
}
