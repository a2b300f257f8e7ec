package core

import (
	"github.com/shopspring/decimal"
)

// ProjectionResult is a projected table plus the statistics shown to users.
type ProjectionResult struct {
	Table *Table

	TotalColumns   int
	KeptColumns    int
	DroppedColumns int
	Rows           int

	// ReductionPercent is (1 - kept/total) * 100, or 0 for a table without
	// columns.
	ReductionPercent float64

	// Skipped lists requested names that are not columns of the source table,
	// in request order.
	Skipped []string
}

// Empty reports whether the projection retained no columns.
func (r ProjectionResult) Empty() bool {
	return r.KeptColumns == 0
}

// ReductionLabel formats ReductionPercent with one decimal place,
// e.g. "60.0". Halves round away from zero.
func (r ProjectionResult) ReductionLabel() string {
	return decimal.NewFromFloat(r.ReductionPercent).StringFixed(1)
}

// Project keeps the requested columns of t, in the requested order.
//
// Names that are not columns of t are skipped and reported in
// ProjectionResult.Skipped. A name requested more than once is kept once, at
// its first position. When the header itself repeats a name, the first
// occurrence is used.
//
// A selection that retains nothing yields a result with zero columns and zero
// rows. Callers should treat that as ErrNoColumnsSelected before offering the
// output for download.
func Project(t *Table, requested []string) ProjectionResult {
	kept, positions, skipped := resolveSelection(t, requested)

	out := &Table{columns: kept, rows: [][]string{}}
	if len(kept) > 0 {
		out.rows = make([][]string, len(t.rows))
		for i, row := range t.rows {
			projected := make([]string, len(positions))
			for j, pos := range positions {
				projected[j] = row[pos]
			}
			out.rows[i] = projected
		}
	}

	total := t.NumColumns()
	return ProjectionResult{
		Table:            out,
		TotalColumns:     total,
		KeptColumns:      len(kept),
		DroppedColumns:   total - len(kept),
		Rows:             out.NumRows(),
		ReductionPercent: reductionPercent(total, len(kept)),
		Skipped:          skipped,
	}
}

// ProjectStrict is Project for programmatic callers that want a typo in a
// column name to fail loudly. It returns an *UnknownColumnsError naming every
// requested column missing from t, and ErrNoColumnsSelected when the
// selection is empty.
func ProjectStrict(t *Table, requested []string) (ProjectionResult, error) {
	res := Project(t, requested)
	if len(res.Skipped) > 0 {
		return ProjectionResult{}, &UnknownColumnsError{Columns: res.Skipped}
	}
	if res.Empty() {
		return ProjectionResult{}, ErrNoColumnsSelected
	}
	return res, nil
}

// Intersect returns the names in defaults that also appear in columns,
// ordered as in defaults. It never returns nil: no match is an empty slice,
// which lets callers tell "nothing matched" apart from "nothing loaded".
func Intersect(columns, defaults []string) []string {
	present := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		present[c] = struct{}{}
	}

	out := make([]string, 0, len(defaults))
	seen := make(map[string]struct{}, len(defaults))
	for _, d := range defaults {
		if _, ok := present[d]; !ok {
			continue
		}
		if _, dup := seen[d]; dup {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	return out
}

// SelectAll returns every column of t in header order.
func SelectAll(t *Table) []string {
	return t.Columns()
}

// SelectMinimal returns the default columns present in t.
// The result is empty, not nil, when none match.
func SelectMinimal(t *Table, defaults []string) []string {
	return Intersect(t.columns, defaults)
}

func resolveSelection(t *Table, requested []string) (kept []string, positions []int, skipped []string) {
	kept = make([]string, 0, len(requested))
	positions = make([]int, 0, len(requested))
	seen := make(map[string]struct{}, len(requested))

	for _, name := range requested {
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}

		pos := t.ColumnIndex(name)
		if pos < 0 {
			skipped = append(skipped, name)
			continue
		}
		kept = append(kept, name)
		positions = append(positions, pos)
	}
	return kept, positions, skipped
}

func reductionPercent(total, kept int) float64 {
	if total == 0 {
		return 0
	}
	return (1 - float64(kept)/float64(total)) * 100
}
