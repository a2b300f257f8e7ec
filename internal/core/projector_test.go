package core_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/csvcleaner/internal/core"
)

func mustTable(t *testing.T, columns []string, rows [][]string) *core.Table {
	t.Helper()
	tbl, err := core.NewTable(columns, rows)
	require.NoError(t, err)
	return tbl
}

func TestProject_SingleColumn(t *testing.T) {
	tbl := mustTable(t, []string{"Name", "Email"}, [][]string{{"Ann", "a@x.com"}})

	res := core.Project(tbl, []string{"Email"})

	assert.Equal(t, []string{"Email"}, res.Table.Columns())
	assert.Equal(t, [][]string{{"a@x.com"}}, res.Table.Rows())
	assert.Equal(t, 2, res.TotalColumns)
	assert.Equal(t, 1, res.KeptColumns)
	assert.Equal(t, 1, res.DroppedColumns)
	assert.Equal(t, 1, res.Rows)
	assert.InDelta(t, 50.0, res.ReductionPercent, 1e-9)
	assert.Empty(t, res.Skipped)
}

func TestProject_ReductionPercent(t *testing.T) {
	cols := make([]string, 10)
	for i := range cols {
		cols[i] = fmt.Sprintf("c%d", i)
	}
	tbl := mustTable(t, cols, nil)

	res := core.Project(tbl, []string{"c1", "c3", "c5", "c7"})

	assert.Equal(t, 4, res.KeptColumns)
	assert.Equal(t, 6, res.DroppedColumns)
	assert.InDelta(t, 60.0, res.ReductionPercent, 1e-9)
	assert.Equal(t, "60.0", res.ReductionLabel())
}

func TestProject_RequestOrderWins(t *testing.T) {
	tbl := mustTable(t,
		[]string{"A", "B", "C"},
		[][]string{{"a1", "b1", "c1"}, {"a2", "b2", "c2"}, {"a3", "b3", "c3"}},
	)

	res := core.Project(tbl, []string{"C", "A"})

	assert.Equal(t, []string{"C", "A"}, res.Table.Columns())
	assert.Equal(t, [][]string{{"c1", "a1"}, {"c2", "a2"}, {"c3", "a3"}}, res.Table.Rows())
}

func TestProject_CellsMatchSource(t *testing.T) {
	tbl := mustTable(t,
		[]string{"A", "B", "C", "D"},
		[][]string{{"1", "2", "3", "4"}, {"5", "6", "7", "8"}},
	)
	requested := []string{"D", "B"}

	res := core.Project(tbl, requested)

	for r := 0; r < tbl.NumRows(); r++ {
		for c, name := range requested {
			assert.Equal(t, tbl.Cell(r, tbl.ColumnIndex(name)), res.Table.Cell(r, c))
		}
	}
}

func TestProject_UnknownColumnsSkipped(t *testing.T) {
	tbl := mustTable(t, []string{"A", "B"}, [][]string{{"1", "2"}})

	res := core.Project(tbl, []string{"Z", "B", "a"})

	assert.Equal(t, []string{"B"}, res.Table.Columns())
	assert.Equal(t, []string{"Z", "a"}, res.Skipped)
}

func TestProject_RepeatedRequestKeptOnce(t *testing.T) {
	tbl := mustTable(t, []string{"A", "B"}, [][]string{{"1", "2"}})

	res := core.Project(tbl, []string{"B", "A", "B"})

	assert.Equal(t, []string{"B", "A"}, res.Table.Columns())
	assert.Equal(t, 2, res.KeptColumns)
}

func TestProject_DuplicateHeaderUsesFirst(t *testing.T) {
	tbl := mustTable(t, []string{"id", "id"}, [][]string{{"first", "second"}})

	res := core.Project(tbl, []string{"id"})

	assert.Equal(t, [][]string{{"first"}}, res.Table.Rows())
}

func TestProject_EmptySelection(t *testing.T) {
	tbl := mustTable(t, []string{"A", "B"}, [][]string{{"1", "2"}, {"3", "4"}})

	for name, requested := range map[string][]string{
		"nil":          nil,
		"none matched": {"X", "Y"},
	} {
		t.Run(name, func(t *testing.T) {
			res := core.Project(tbl, requested)

			assert.True(t, res.Empty())
			assert.Equal(t, 0, res.Table.NumColumns())
			assert.Equal(t, 0, res.Table.NumRows())
			assert.Equal(t, 0, res.Rows)
			assert.InDelta(t, 100.0, res.ReductionPercent, 1e-9)
		})
	}
}

func TestProject_NoColumnsInSource(t *testing.T) {
	tbl := mustTable(t, nil, nil)

	res := core.Project(tbl, []string{"A"})

	assert.Equal(t, 0, res.TotalColumns)
	assert.Zero(t, res.ReductionPercent)
	assert.Equal(t, "0.0", res.ReductionLabel())
}

func TestProject_SourceUntouched(t *testing.T) {
	tbl := mustTable(t, []string{"A", "B"}, [][]string{{"1", "2"}})

	_ = core.Project(tbl, []string{"B"})

	assert.Equal(t, []string{"A", "B"}, tbl.Columns())
	assert.Equal(t, [][]string{{"1", "2"}}, tbl.Rows())
}

func TestProjectStrict(t *testing.T) {
	tbl := mustTable(t, []string{"Name", "Email"}, [][]string{{"Ann", "a@x.com"}})

	t.Run("all known", func(t *testing.T) {
		res, err := core.ProjectStrict(tbl, []string{"Email", "Name"})
		require.NoError(t, err)
		assert.Equal(t, []string{"Email", "Name"}, res.Table.Columns())
	})

	t.Run("unknown columns listed", func(t *testing.T) {
		_, err := core.ProjectStrict(tbl, []string{"Email", "Phone", "name"})
		require.Error(t, err)
		assert.ErrorIs(t, err, core.ErrUnknownColumn)

		var uce *core.UnknownColumnsError
		require.ErrorAs(t, err, &uce)
		assert.Equal(t, []string{"Phone", "name"}, uce.Columns)
		assert.Equal(t, `unknown column: "Phone", "name"`, err.Error())
	})

	t.Run("empty selection", func(t *testing.T) {
		_, err := core.ProjectStrict(tbl, nil)
		assert.ErrorIs(t, err, core.ErrNoColumnsSelected)
	})
}

func TestIntersect(t *testing.T) {
	cols := []string{"A", "B", "C"}

	assert.Equal(t, []string{"B"}, core.Intersect(cols, []string{"B", "Z"}))

	none := core.Intersect(cols, []string{"X", "Y"})
	assert.NotNil(t, none)
	assert.Empty(t, none)

	assert.Equal(t, []string{"C", "A"}, core.Intersect(cols, []string{"C", "A", "C"}))
	assert.Empty(t, core.Intersect(nil, []string{"A"}))
}

func TestSelectAllAndMinimal(t *testing.T) {
	tbl := mustTable(t,
		[]string{"First Name", "Internal ID", "Email Address"},
		[][]string{{"Ann", "7", "a@x.com"}},
	)
	defaults := []string{"Last Name", "First Name", "Email Address"}

	assert.Equal(t, tbl.Columns(), core.SelectAll(tbl))
	assert.Equal(t, []string{"First Name", "Email Address"}, core.SelectMinimal(tbl, defaults))

	none := core.SelectMinimal(tbl, []string{"Website"})
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestReductionLabel(t *testing.T) {
	tests := []struct {
		percent float64
		want    string
	}{
		{0, "0.0"},
		{50, "50.0"},
		{100.0 * 2 / 3, "66.7"},
		{100.0 / 3, "33.3"},
		{12.25, "12.3"},
	}

	for _, tt := range tests {
		res := core.ProjectionResult{ReductionPercent: tt.percent}
		assert.Equal(t, tt.want, res.ReductionLabel(), "percent %v", tt.percent)
	}
}
