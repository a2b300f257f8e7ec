package core

import "strings"

// Table is an immutable in-memory CSV: ordered column names and ordered rows
// of cells aligned by position to those names.
//
// Column names are kept exactly as they appear in the source header.
// Duplicate names are preserved positionally, never merged.
type Table struct {
	columns []string
	rows    [][]string
}

// NewTable builds a Table from a header and rows.
// Every row must have exactly len(columns) cells; a mismatch is reported as a
// MalformedRow LoadError whose Line is the 1-based record number (header = 1),
// which matches the input line of a Table without multi-line cells.
// The inputs are copied so later mutation by the caller cannot alter the Table.
//
// A CRLF pair inside a cell is stored as LF, the form Load produces, so that
// Load(Serialize(t)) equals t.
func NewTable(columns []string, rows [][]string) (*Table, error) {
	t := &Table{
		columns: normalizeCells(columns),
		rows:    make([][]string, len(rows)),
	}
	for i, row := range rows {
		if len(row) != len(columns) {
			return nil, &LoadError{
				Kind:     MalformedRow,
				Line:     i + 2,
				Expected: len(columns),
				Got:      len(row),
			}
		}
		t.rows[i] = normalizeCells(row)
	}
	return t, nil
}

// Columns returns a copy of the column names in header order.
func (t *Table) Columns() []string {
	return cloneStrings(t.columns)
}

// NumColumns returns the number of columns.
func (t *Table) NumColumns() int {
	return len(t.columns)
}

// NumRows returns the number of data rows (header excluded).
func (t *Table) NumRows() int {
	return len(t.rows)
}

// Row returns a copy of the i-th data row.
func (t *Table) Row(i int) []string {
	return cloneStrings(t.rows[i])
}

// Rows returns a deep copy of all data rows.
func (t *Table) Rows() [][]string {
	out := make([][]string, len(t.rows))
	for i, row := range t.rows {
		out[i] = cloneStrings(row)
	}
	return out
}

// Cell returns the value at (row, col) by position.
func (t *Table) Cell(row, col int) string {
	return t.rows[row][col]
}

// ColumnIndex returns the position of the first column named name,
// or -1 when the table has no such column. Matching is case-sensitive.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Head returns a table holding at most the first n rows.
// A negative n is treated as zero.
func (t *Table) Head(n int) *Table {
	if n < 0 {
		n = 0
	}
	if n > len(t.rows) {
		n = len(t.rows)
	}
	head := &Table{
		columns: cloneStrings(t.columns),
		rows:    make([][]string, n),
	}
	for i := 0; i < n; i++ {
		head.rows[i] = cloneStrings(t.rows[i])
	}
	return head
}

// Equal reports whether two tables have identical columns and cells.
func (t *Table) Equal(other *Table) bool {
	if t == nil || other == nil {
		return t == other
	}
	if !equalStrings(t.columns, other.columns) || len(t.rows) != len(other.rows) {
		return false
	}
	for i := range t.rows {
		if !equalStrings(t.rows[i], other.rows[i]) {
			return false
		}
	}
	return true
}

func cloneStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}

// normalizeCells copies s, replacing each CRLF with LF.
func normalizeCells(s []string) []string {
	out := cloneStrings(s)
	for i, v := range out {
		if strings.Contains(v, "\r\n") {
			out[i] = strings.ReplaceAll(v, "\r\n", "\n")
		}
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
