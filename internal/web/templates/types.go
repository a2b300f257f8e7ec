// Package templates renders the cleaner's HTML pages. The components are
// written in .templ files; the *_templ.go files are generated from them with
// `templ generate`.
package templates

import (
	"fmt"

	"github.com/JonMunkholm/csvcleaner/internal/core"
	"github.com/JonMunkholm/csvcleaner/internal/history"
)

// IndexData feeds the upload page.
type IndexData struct {
	MaxFileSizeMB  int64
	Encoding       string
	HistoryEnabled bool
	History        []history.Entry
}

// ColumnOption is one checkbox in the column picker.
type ColumnOption struct {
	Name     string
	Selected bool
}

// SessionData feeds the column selection page.
type SessionData struct {
	ID       string
	FileName string
	Rows     int
	Columns  []ColumnOption
	Profiles []string

	// Ready is true when at least one column is selected, so the preview
	// and download are shown.
	Ready bool
	// Result is the projection of the current selection.
	Result core.ProjectionResult
	// Preview holds the first rows of Result.Table.
	Preview *core.Table

	DownloadName string
	// Loaded shows the upload confirmation.
	Loaded bool
	Notice string
}

func sessionPath(id, action string) string {
	return "/s/" + id + "/" + action
}

func columnID(i int) string {
	return fmt.Sprintf("col-%d", i)
}

func reductionMessage(res core.ProjectionResult) string {
	return fmt.Sprintf("File size reduced by approximately %s%% by removing %d columns",
		res.ReductionLabel(), res.DroppedColumns)
}
