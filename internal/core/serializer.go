package core

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
)

// Serialize renders t as CSV: the header, then each row, every record
// terminated by "\n". Cells holding a comma, a double quote or a line break
// are quoted with embedded quotes doubled.
func Serialize(t *Table) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, t); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write streams the CSV rendering of t to w.
func Write(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)

	if err := writeRecord(w, cw, t.columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, row := range t.rows {
		if err := writeRecord(w, cw, row); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// writeRecord writes one record. encoding/csv renders a record made of a
// single empty cell as a bare newline, which a reader skips as a blank line;
// such records are written as `""` instead so they survive a reload.
func writeRecord(w io.Writer, cw *csv.Writer, record []string) error {
	if len(record) == 1 && record[0] == "" {
		cw.Flush()
		if err := cw.Error(); err != nil {
			return err
		}
		_, err := io.WriteString(w, "\"\"\n")
		return err
	}
	return cw.Write(record)
}
