package web

import (
	"net/http"

	"github.com/JonMunkholm/csvcleaner/internal/core"
	"github.com/JonMunkholm/csvcleaner/internal/history"
	"github.com/JonMunkholm/csvcleaner/internal/logging"
)

// InspectResponse describes an uploaded file without cleaning it.
type InspectResponse struct {
	FileName       string   `json:"fileName"`
	Columns        []string `json:"columns"`
	Rows           int      `json:"rows"`
	Profile        string   `json:"profile"`
	DefaultMatches []string `json:"defaultMatches"`
	OutputName     string   `json:"outputName"`
}

// HistoryResponse wraps the recent exports list.
type HistoryResponse struct {
	Enabled bool            `json:"enabled"`
	Entries []history.Entry `json:"entries"`
}

// handleAPIProfiles lists the configured column profiles.
func (s *Server) handleAPIProfiles(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.profiles.All())
}

// handleAPIInspect returns the header, row count and profile matches of an
// uploaded file.
func (s *Server) handleAPIInspect(w http.ResponseWriter, r *http.Request) {
	fileName, t, err := s.loadUpload(w, r)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	p, err := s.profiles.Lookup(r.FormValue("profile"))
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	writeJSON(w, InspectResponse{
		FileName:       fileName,
		Columns:        t.Columns(),
		Rows:           t.NumRows(),
		Profile:        p.Name,
		DefaultMatches: core.SelectMinimal(t, p.Columns),
		OutputName:     core.OutputFilename(fileName, s.cfg.Columns.Suffix),
	})
}

// handleAPIClean projects an uploaded file and returns the cleaned CSV.
//
// Form fields:
//   - file: the CSV file (required)
//   - columns: repeated, the columns to keep in output order
//   - profile: used when no columns are given (default "default")
//   - strict: when true, unknown column names fail with SEL002
//   - encoding: input charset (default from LOAD_ENCODING)
func (s *Server) handleAPIClean(w http.ResponseWriter, r *http.Request) {
	fileName, t, err := s.loadUpload(w, r)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	res, err := s.projectRequest(r, t)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	data, err := core.Serialize(res.Table)
	if err != nil {
		respondError(w, r, err, http.StatusInternalServerError)
		return
	}

	if len(res.Skipped) > 0 {
		logging.FromContext(r.Context()).Debug("requested columns not in file", "skipped", res.Skipped)
	}

	outName := core.OutputFilename(fileName, s.cfg.Columns.Suffix)
	s.recordExport(r, history.NewEntry(history.SourceAPI, fileName, outName, res))

	setResultHeaders(w, res)
	writeCSV(w, outName, data)
}

// projectRequest applies the column choice of an API request. Explicit
// columns may be checked strictly; a profile is always matched against the
// header, keeping the names the file has.
func (s *Server) projectRequest(r *http.Request, t *core.Table) (core.ProjectionResult, error) {
	if requested := formValues(r, "columns"); len(requested) > 0 {
		if parseBoolParam(r, "strict") {
			return core.ProjectStrict(t, requested)
		}
		res := core.Project(t, requested)
		if res.Empty() {
			return core.ProjectionResult{}, core.ErrNoColumnsSelected
		}
		return res, nil
	}

	defaults, err := s.profiles.Columns(r.FormValue("profile"))
	if err != nil {
		return core.ProjectionResult{}, err
	}
	picked := core.SelectMinimal(t, defaults)
	if len(picked) == 0 {
		return core.ProjectionResult{}, core.ErrNoDefaultMatch
	}
	return core.Project(t, picked), nil
}

// handleAPIHistory lists recent exports, newest first.
func (s *Server) handleAPIHistory(w http.ResponseWriter, r *http.Request) {
	limit := parseIntParam(r, "limit", s.cfg.Database.HistoryLimit)

	entries, err := s.history.Recent(r.Context(), limit)
	if err != nil {
		respondError(w, r, err, http.StatusInternalServerError)
		return
	}

	writeJSON(w, HistoryResponse{Enabled: s.history.Enabled(), Entries: entries})
}
