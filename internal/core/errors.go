package core

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors. Use errors.Is to test for them; the concrete values
// returned by the loader and projector carry more detail.
var (
	// ErrEmptyFile means the input had no header line.
	ErrEmptyFile = errors.New("empty file")

	// ErrMalformedRow means a data row did not have as many cells as the header,
	// or the CSV could not be parsed at that record.
	ErrMalformedRow = errors.New("malformed row")

	// ErrNoColumnsSelected is a caller-level precondition failure: projection
	// was requested with a selection that retains no columns.
	ErrNoColumnsSelected = errors.New("no columns selected")

	// ErrUnknownColumn is returned by strict projection when a requested
	// column does not exist in the table.
	ErrUnknownColumn = errors.New("unknown column")

	// ErrNoDefaultMatch means none of the default columns exist in the table.
	ErrNoDefaultMatch = errors.New("no default columns matched")

	// ErrUnknownEncoding is returned when LoadOptions names a charset that
	// cannot be resolved.
	ErrUnknownEncoding = errors.New("unknown encoding")
)

// LoadErrorKind classifies loader failures.
type LoadErrorKind int

const (
	EmptyFile LoadErrorKind = iota + 1
	MalformedRow
)

func (k LoadErrorKind) String() string {
	switch k {
	case EmptyFile:
		return "EmptyFile"
	case MalformedRow:
		return "MalformedRow"
	default:
		return fmt.Sprintf("LoadErrorKind(%d)", int(k))
	}
}

// LoadError describes why an input could not be loaded into a Table.
type LoadError struct {
	Kind LoadErrorKind

	// Line is the 1-based input line on which the offending record starts
	// (header = 1). Multi-line cells and blank lines count, so it can exceed
	// the record number. NewTable has no input text and reports the record
	// number instead. Zero for EmptyFile.
	Line int

	// Expected and Got are the header and row cell counts for a ragged row.
	// Both are zero when the row failed to parse for another reason.
	Expected int
	Got      int

	// Err is the underlying parse error, if any.
	Err error
}

func (e *LoadError) Error() string {
	switch e.Kind {
	case EmptyFile:
		return "empty file: no header line"
	case MalformedRow:
		if e.Err != nil {
			return fmt.Sprintf("malformed row at line %d: invalid csv: %v", e.Line, e.Err)
		}
		return fmt.Sprintf("malformed row at line %d: expected %d cells, got %d", e.Line, e.Expected, e.Got)
	default:
		return "load error"
	}
}

// Is lets errors.Is match a LoadError against ErrEmptyFile or ErrMalformedRow.
func (e *LoadError) Is(target error) bool {
	switch target {
	case ErrEmptyFile:
		return e.Kind == EmptyFile
	case ErrMalformedRow:
		return e.Kind == MalformedRow
	}
	return false
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// UnknownColumnsError lists requested columns that are not in the table.
type UnknownColumnsError struct {
	Columns []string
}

func (e *UnknownColumnsError) Error() string {
	quoted := make([]string, len(e.Columns))
	for i, c := range e.Columns {
		quoted[i] = fmt.Sprintf("%q", c)
	}
	return "unknown column: " + strings.Join(quoted, ", ")
}

func (e *UnknownColumnsError) Is(target error) bool {
	return target == ErrUnknownColumn
}
