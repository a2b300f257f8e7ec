// Package session keeps the per-user state of the interactive cleaner: the
// loaded table, the file name and the current column selection. The core
// package stays stateless; a Session owns one Table and calls the core
// functions with it.
package session

import (
	"sync"
	"time"

	"github.com/JonMunkholm/csvcleaner/internal/core"
)

// State is the position of a session in the cleaning flow.
type State int

const (
	// StateNoFile means nothing has been uploaded.
	StateNoFile State = iota
	// StateLoaded means a file is loaded but no column is selected.
	StateLoaded
	// StateReady means the selection is non-empty; preview and download work.
	StateReady
)

func (s State) String() string {
	switch s {
	case StateNoFile:
		return "no_file"
	case StateLoaded:
		return "loaded"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

// Session is one user's cleaning state. Safe for concurrent use.
type Session struct {
	ID        string
	FileName  string
	CreatedAt time.Time

	mu        sync.Mutex
	table     *core.Table
	selection []string
	lastUsed  time.Time
}

// New returns a session for an uploaded table with an empty selection.
func New(id, fileName string, t *core.Table, now time.Time) *Session {
	return &Session{
		ID:        id,
		FileName:  fileName,
		CreatedAt: now,
		table:     t,
		lastUsed:  now,
	}
}

// State reports where the session is in the flow.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.table == nil:
		return StateNoFile
	case len(s.selection) == 0:
		return StateLoaded
	default:
		return StateReady
	}
}

// Table returns the loaded table, or nil.
func (s *Session) Table() *core.Table {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.table
}

// Selection returns a copy of the selected column names in output order.
func (s *Session) Selection() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string{}, s.selection...)
}

// IsSelected reports whether column is in the selection.
func (s *Session) IsSelected(column string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.selection {
		if c == column {
			return true
		}
	}
	return false
}

// Select replaces the selection. Names not in the table and repeats are
// dropped; the kept names are returned.
func (s *Session) Select(columns []string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.table == nil {
		return []string{}
	}
	s.selection = core.Intersect(s.table.Columns(), columns)
	return append([]string{}, s.selection...)
}

// SelectAll selects every column in header order.
func (s *Session) SelectAll() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.table == nil {
		return []string{}
	}
	s.selection = core.SelectAll(s.table)
	return append([]string{}, s.selection...)
}

// SelectMinimal selects the defaults present in the table. When none match
// the selection is left unchanged and core.ErrNoDefaultMatch is returned.
func (s *Session) SelectMinimal(defaults []string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.table == nil {
		return []string{}, core.ErrNoDefaultMatch
	}
	picked := core.SelectMinimal(s.table, defaults)
	if len(picked) == 0 {
		return picked, core.ErrNoDefaultMatch
	}
	s.selection = picked
	return append([]string{}, picked...), nil
}

// Result projects the table onto the current selection.
func (s *Session) Result() core.ProjectionResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.table == nil {
		return core.ProjectionResult{}
	}
	return core.Project(s.table, s.selection)
}

// Export is a serialized projection ready for download.
type Export struct {
	FileName string
	Data     []byte
	Result   core.ProjectionResult
}

// Export serializes the current projection. It fails with
// core.ErrNoColumnsSelected when nothing is selected.
func (s *Session) Export(suffix string) (Export, error) {
	res := s.Result()
	if res.Empty() {
		return Export{}, core.ErrNoColumnsSelected
	}

	data, err := core.Serialize(res.Table)
	if err != nil {
		return Export{}, err
	}

	return Export{
		FileName: core.OutputFilename(s.FileName, suffix),
		Data:     data,
		Result:   res,
	}, nil
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastUsed = now
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}
