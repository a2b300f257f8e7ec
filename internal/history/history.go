// Package history records completed exports. It is optional: without a
// database the server uses NopStore and the UI hides the history list.
package history

import (
	"context"
	"time"

	"github.com/JonMunkholm/csvcleaner/internal/core"
)

// Source identifies which surface produced an export.
type Source string

const (
	SourceWeb Source = "web"
	SourceAPI Source = "api"
	SourceCLI Source = "cli"
)

// Entry is one completed export.
type Entry struct {
	ID               string    `json:"id"`
	Source           Source    `json:"source"`
	FileName         string    `json:"fileName"`
	OutputName       string    `json:"outputName"`
	Rows             int       `json:"rows"`
	TotalColumns     int       `json:"totalColumns"`
	KeptColumns      int       `json:"keptColumns"`
	ReductionPercent float64   `json:"reductionPercent"`
	Columns          []string  `json:"columns"`
	IPAddress        string    `json:"ipAddress,omitempty"`
	UserAgent        string    `json:"userAgent,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
}

// NewEntry describes an export of fileName produced from res.
func NewEntry(source Source, fileName, outputName string, res core.ProjectionResult) Entry {
	var cols []string
	if res.Table != nil {
		cols = res.Table.Columns()
	}
	return Entry{
		Source:           source,
		FileName:         fileName,
		OutputName:       outputName,
		Rows:             res.Rows,
		TotalColumns:     res.TotalColumns,
		KeptColumns:      res.KeptColumns,
		ReductionPercent: res.ReductionPercent,
		Columns:          cols,
	}
}

// Recorder stores and lists exports.
type Recorder interface {
	Record(ctx context.Context, e Entry) error
	Recent(ctx context.Context, limit int) ([]Entry, error)
	Enabled() bool
}

// NopStore discards entries.
type NopStore struct{}

func (NopStore) Record(context.Context, Entry) error { return nil }

func (NopStore) Recent(context.Context, int) ([]Entry, error) { return []Entry{}, nil }

func (NopStore) Enabled() bool { return false }
