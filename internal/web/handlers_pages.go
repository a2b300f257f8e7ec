package web

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/csvcleaner/internal/core"
	"github.com/JonMunkholm/csvcleaner/internal/history"
	"github.com/JonMunkholm/csvcleaner/internal/logging"
	"github.com/JonMunkholm/csvcleaner/internal/profile"
	"github.com/JonMunkholm/csvcleaner/internal/session"
	"github.com/JonMunkholm/csvcleaner/internal/web/templates"
)

const (
	noticeLoaded  = "loaded"
	noticeNoMatch = "nomatch"
)

const msgNoMatch = "No matching columns found in your CSV file. Your file doesn't contain any of the expected column names; use Select All or select columns manually."

// handleIndex renders the upload page.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := templates.IndexData{
		MaxFileSizeMB:  s.cfg.Upload.MaxFileSize >> 20,
		Encoding:       s.cfg.Load.Encoding,
		HistoryEnabled: s.history.Enabled(),
	}

	if data.HistoryEnabled {
		entries, err := s.history.Recent(r.Context(), s.cfg.Database.HistoryLimit)
		if err != nil {
			logging.FromContext(r.Context()).Warn("history unavailable", "error", err)
		}
		data.History = entries
	}

	templates.IndexPage(data).Render(r.Context(), w)
}

// handleUpload loads the posted file into a new session preselected with the
// default profile, then redirects to the session page.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	fileName, t, err := s.loadUpload(w, r)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	defaults, err := s.profiles.Columns(profile.DefaultName)
	if err != nil {
		respondError(w, r, err, http.StatusInternalServerError)
		return
	}

	sess := s.sessions.Create(fileName, t, defaults)
	logging.WithFields(r.Context(), "session_id", sess.ID, "file", fileName).Info("file loaded",
		"rows", t.NumRows(),
		"columns", t.NumColumns(),
		"preselected", len(sess.Selection()),
	)

	s.redirectToSession(w, r, sess.ID, noticeLoaded)
}

// handleSession renders column selection, preview and download for a session.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}

	t := sess.Table()
	res := sess.Result()

	columns := make([]templates.ColumnOption, 0, t.NumColumns())
	for _, name := range t.Columns() {
		columns = append(columns, templates.ColumnOption{Name: name, Selected: sess.IsSelected(name)})
	}

	data := templates.SessionData{
		ID:           sess.ID,
		FileName:     sess.FileName,
		Rows:         t.NumRows(),
		Columns:      columns,
		Profiles:     s.profiles.Names(),
		Ready:        sess.State() == session.StateReady,
		Result:       res,
		Preview:      res.Table.Head(s.cfg.Upload.PreviewRows),
		DownloadName: core.OutputFilename(sess.FileName, s.cfg.Columns.Suffix),
	}
	switch r.URL.Query().Get("notice") {
	case noticeLoaded:
		data.Loaded = true
	case noticeNoMatch:
		data.Notice = msgNoMatch
	}

	templates.SessionPage(data).Render(r.Context(), w)
}

// handleSelect replaces the selection with the checked columns.
func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}

	kept := sess.Select(formValues(r, "columns"))
	logging.WithFields(r.Context(), "session_id", sess.ID).Debug("selection updated", "kept", len(kept))

	s.redirectToSession(w, r, sess.ID, "")
}

// handleSelectAll selects every column.
func (s *Server) handleSelectAll(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}
	sess.SelectAll()
	s.redirectToSession(w, r, sess.ID, "")
}

// handleSelectMinimal selects the columns of a profile that the file has.
// When none match the selection is kept and a warning is shown.
func (s *Server) handleSelectMinimal(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}

	defaults, err := s.profiles.Columns(r.FormValue("profile"))
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	if _, err := sess.SelectMinimal(defaults); err != nil {
		if errors.Is(err, core.ErrNoDefaultMatch) {
			s.redirectToSession(w, r, sess.ID, noticeNoMatch)
			return
		}
		respondError(w, r, err, statusFor(err))
		return
	}
	s.redirectToSession(w, r, sess.ID, "")
}

// handleReset discards the session and returns to the upload page.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.sessions.Delete(chi.URLParam(r, "sessionID"))
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleDownload serves the cleaned file and records the export.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}

	exp, err := sess.Export(s.cfg.Columns.Suffix)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	s.recordExport(r, history.NewEntry(history.SourceWeb, sess.FileName, exp.FileName, exp.Result))
	writeCSV(w, exp.FileName, exp.Data)
}

// lookupSession resolves {sessionID}, writing a 404 page when it is gone.
func (s *Server) lookupSession(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, err := s.sessions.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return nil, false
	}
	return sess, true
}

func (s *Server) redirectToSession(w http.ResponseWriter, r *http.Request, id, notice string) {
	target := "/s/" + url.PathEscape(id)
	if notice != "" {
		target += "?notice=" + url.QueryEscape(notice)
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// recordExport stores a history entry. Failures are only logged.
func (s *Server) recordExport(r *http.Request, e history.Entry) {
	ctx := withClientMetadata(r.Context(), r)
	logger := logging.WithFields(ctx, "file", e.FileName, "output", e.OutputName, "source", e.Source)

	if err := s.history.Record(ctx, e); err != nil {
		logger.Error("failed to record export", "error", err)
		return
	}
	logger.Info("export completed",
		"rows", e.Rows,
		"kept_columns", e.KeptColumns,
		"total_columns", e.TotalColumns,
	)
}
