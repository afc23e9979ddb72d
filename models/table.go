package models

// RawRow maps a source column name to its untyped cell value.
// Sources convert every cell to a string; SQL NULL and missing cells are "".
type RawRow map[string]string

// Table is a schema-loose, row-oriented table as delivered by a source.
// Columns keeps the header order so fingerprints are stable.
type Table struct {
	Columns []string
	Rows    []RawRow
}

// NewTable builds a Table from a header row and positional records.
// Short records are padded with blanks; extra cells are ignored.
func NewTable(header []string, records [][]string) *Table {
	t := &Table{
		Columns: append([]string(nil), header...),
		Rows:    make([]RawRow, 0, len(records)),
	}
	for _, rec := range records {
		row := make(RawRow, len(header))
		for i, col := range header {
			if i < len(rec) {
				row[col] = rec[i]
			} else {
				row[col] = ""
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}
