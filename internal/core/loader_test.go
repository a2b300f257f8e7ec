package core_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/csvcleaner/internal/core"
)

func TestLoad_HeaderAndRows(t *testing.T) {
	tbl, err := core.Load([]byte("Name,Email\nAnn,a@x.com\nBo,b@x.com\n"))
	require.NoError(t, err)

	assert.Equal(t, []string{"Name", "Email"}, tbl.Columns())
	assert.Equal(t, 2, tbl.NumRows())
	assert.Equal(t, [][]string{{"Ann", "a@x.com"}, {"Bo", "b@x.com"}}, tbl.Rows())
}

func TestLoad_Quoting(t *testing.T) {
	input := "Name,Note\n" +
		`"Doe, Jane","He said, ""hi"""` + "\n" +
		`Ann,"two` + "\n" + `lines"` + "\n"

	tbl, err := core.Load([]byte(input))
	require.NoError(t, err)
	require.Equal(t, 2, tbl.NumRows())

	assert.Equal(t, []string{"Doe, Jane", `He said, "hi"`}, tbl.Row(0))
	assert.Equal(t, []string{"Ann", "two\nlines"}, tbl.Row(1))
}

func TestLoad_CRLFAndBlankLines(t *testing.T) {
	tbl, err := core.Load([]byte("A,B\r\n\r\n1,2\r\n\r\n3,4\r\n"))
	require.NoError(t, err)

	assert.Equal(t, [][]string{{"1", "2"}, {"3", "4"}}, tbl.Rows())
}

func TestLoad_HeaderOnly(t *testing.T) {
	tbl, err := core.Load([]byte("A,B,C\n"))
	require.NoError(t, err)

	assert.Equal(t, 3, tbl.NumColumns())
	assert.Equal(t, 0, tbl.NumRows())
}

func TestLoad_DuplicateHeadersPreserved(t *testing.T) {
	tbl, err := core.Load([]byte("id,name,id\n1,Ann,2\n"))
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "name", "id"}, tbl.Columns())
	assert.Equal(t, 0, tbl.ColumnIndex("id"))
}

func TestLoad_EmptyFile(t *testing.T) {
	inputs := map[string][]byte{
		"no bytes":    {},
		"blank lines": []byte("\n\n\r\n"),
		"only BOM":    {0xEF, 0xBB, 0xBF},
	}

	for name, input := range inputs {
		t.Run(name, func(t *testing.T) {
			_, err := core.Load(input)
			require.Error(t, err)
			assert.ErrorIs(t, err, core.ErrEmptyFile)

			var le *core.LoadError
			require.True(t, errors.As(err, &le))
			assert.Equal(t, core.EmptyFile, le.Kind)
		})
	}
}

func TestLoad_MalformedRow(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		line     int
		expected int
		got      int
	}{
		{
			name:     "short row",
			input:    "A,B,C\n1,2\n",
			line:     2,
			expected: 3,
			got:      2,
		},
		{
			name:     "long row after valid rows",
			input:    "A,B\n1,2\n3,4,5\n",
			line:     3,
			expected: 2,
			got:      3,
		},
		{
			name:     "line counts multi-line cells",
			input:    "A,B\n\"x\ny\",2\n3\n",
			line:     4,
			expected: 2,
			got:      1,
		},
		{
			name:     "line counts blank lines, not records",
			input:    "A,B\n\"multi\nline\",x\n\n1\n",
			line:     5,
			expected: 2,
			got:      1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl, err := core.Load([]byte(tt.input))
			require.Error(t, err)
			assert.Nil(t, tbl)
			assert.ErrorIs(t, err, core.ErrMalformedRow)

			var le *core.LoadError
			require.True(t, errors.As(err, &le))
			assert.Equal(t, core.MalformedRow, le.Kind)
			assert.Equal(t, tt.line, le.Line)
			assert.Equal(t, tt.expected, le.Expected)
			assert.Equal(t, tt.got, le.Got)
		})
	}
}

func TestLoad_BOMStrippedFromHeader(t *testing.T) {
	input := append([]byte{0xEF, 0xBB, 0xBF}, []byte("Email Address,Company Name\nx@y.z,Acme\n")...)

	tbl, err := core.Load(input)
	require.NoError(t, err)

	assert.Equal(t, 0, tbl.ColumnIndex("Email Address"))
}

func TestLoad_InvalidUTF8Replaced(t *testing.T) {
	tbl, err := core.Load([]byte("Name\nJos\xe9\n"))
	require.NoError(t, err)

	assert.Equal(t, "Jos?", tbl.Cell(0, 0))
}

func TestLoadReader_Encoding(t *testing.T) {
	input := []byte("Name,City\nJos\xe9,Z\xfcrich\n")

	for _, enc := range []string{"windows-1252", "latin1", "ISO-8859-1"} {
		t.Run(enc, func(t *testing.T) {
			tbl, err := core.LoadReader(bytes.NewReader(input), core.LoadOptions{Encoding: enc})
			require.NoError(t, err)
			assert.Equal(t, []string{"José", "Zürich"}, tbl.Row(0))
		})
	}
}

func TestLoadReader_UnknownEncoding(t *testing.T) {
	_, err := core.LoadReader(strings.NewReader("A\n1\n"), core.LoadOptions{Encoding: "klingon"})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrUnknownEncoding)
}

func TestNewTable_RejectsRaggedRows(t *testing.T) {
	_, err := core.NewTable([]string{"A", "B"}, [][]string{{"1", "2"}, {"3"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrMalformedRow)
}

func TestNewTable_CopiesInput(t *testing.T) {
	cols := []string{"A"}
	rows := [][]string{{"1"}}
	tbl, err := core.NewTable(cols, rows)
	require.NoError(t, err)

	cols[0] = "changed"
	rows[0][0] = "changed"

	assert.Equal(t, []string{"A"}, tbl.Columns())
	assert.Equal(t, "1", tbl.Cell(0, 0))
}

func TestTable_Head(t *testing.T) {
	tbl, err := core.Load([]byte("n\n1\n2\n3\n4\n5\n6\n7\n"))
	require.NoError(t, err)

	assert.Equal(t, 5, tbl.Head(5).NumRows())
	assert.Equal(t, 7, tbl.Head(50).NumRows())
	assert.Equal(t, 0, tbl.Head(-1).NumRows())
	assert.Equal(t, []string{"1"}, tbl.Head(5).Row(0))
}
