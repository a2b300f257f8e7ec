package core

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

// DefaultEncoding is the charset assumed when LoadOptions.Encoding is empty.
const DefaultEncoding = "utf-8"

// LoadOptions controls how raw bytes are turned into a Table.
type LoadOptions struct {
	// Encoding names the input charset (e.g. "utf-8", "windows-1252", "latin1").
	// Empty means DefaultEncoding. Non UTF-8 input is decoded to UTF-8 before
	// parsing; invalid UTF-8 sequences are replaced when Encoding is UTF-8.
	Encoding string
}

// Load parses UTF-8 CSV bytes into a Table.
func Load(data []byte) (*Table, error) {
	return LoadReader(bytes.NewReader(data), LoadOptions{})
}

// LoadReader reads a complete CSV document from r.
//
// The first record is the header. Every following record must have the same
// number of cells. A leading byte order mark is skipped. Blank lines are
// ignored.
func LoadReader(r io.Reader, opts LoadOptions) (*Table, error) {
	src, err := prepareInput(r, opts.Encoding)
	if err != nil {
		return nil, err
	}

	cr := csv.NewReader(src)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, &LoadError{Kind: EmptyFile}
	}
	if err != nil {
		return nil, parseFailure(err, 1)
	}

	var rows [][]string
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, parseFailure(err, 0)
		}
		if len(record) != len(header) {
			line, _ := cr.FieldPos(0)
			return nil, &LoadError{
				Kind:     MalformedRow,
				Line:     line,
				Expected: len(header),
				Got:      len(record),
			}
		}
		rows = append(rows, record)
	}

	return &Table{columns: header, rows: rowsOrEmpty(rows)}, nil
}

// prepareInput strips a BOM and normalizes the byte stream to UTF-8.
func prepareInput(r io.Reader, encoding string) (io.Reader, error) {
	name := strings.ToLower(strings.TrimSpace(encoding))
	if name == "" {
		name = DefaultEncoding
	}

	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEncoding, encoding)
	}

	bomless := NewBOMSkippingReader(r)
	if canonical, _ := htmlindex.Name(enc); canonical == "utf-8" {
		return NewStreamingUTF8Sanitizer(bomless), nil
	}
	return transform.NewReader(bomless, enc.NewDecoder()), nil
}

// parseFailure turns a csv.Reader error into a LoadError. Errors from the
// underlying reader (decoding, I/O) are wrapped as-is.
func parseFailure(err error, line int) error {
	var pe *csv.ParseError
	if !errors.As(err, &pe) {
		return fmt.Errorf("read csv: %w", err)
	}
	if pe.StartLine > 0 {
		line = pe.StartLine
	}
	return &LoadError{Kind: MalformedRow, Line: line, Err: pe.Err}
}

func rowsOrEmpty(rows [][]string) [][]string {
	if rows == nil {
		return [][]string{}
	}
	return rows
}
