package web

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/JonMunkholm/csvcleaner/internal/core"
	"github.com/JonMunkholm/csvcleaner/internal/logging"
)

// multipartMemory is how much of a multipart body is held in memory before
// spilling to temporary files.
const multipartMemory = 32 << 20

// loadUpload reads the "file" part of a multipart request and loads it as a
// table under the load limiter. An "encoding" form value overrides the
// configured default charset.
func (s *Server) loadUpload(w http.ResponseWriter, r *http.Request) (string, *core.Table, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Upload.MaxFileSize)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			return "", nil, fmt.Errorf("file too large: %w", err)
		}
		return "", nil, fmt.Errorf("%w: %v", errNoFile, err)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return "", nil, errNoFile
	}
	defer file.Close()

	encoding := strings.TrimSpace(r.FormValue("encoding"))
	if encoding == "" {
		encoding = s.cfg.Load.Encoding
	}

	counted := core.NewCountingReader(file)
	t, err := s.limiter.Load(r.Context(), counted, core.LoadOptions{Encoding: encoding})
	if err != nil {
		return "", nil, err
	}
	logging.FromContext(r.Context()).Debug("upload loaded",
		"file", header.Filename,
		"bytes", counted.BytesRead,
		"rows", t.NumRows(),
		"columns", t.NumColumns(),
	)
	return header.Filename, t, nil
}

// writeCSV sends data as a file download named fileName.
func writeCSV(w http.ResponseWriter, fileName string, data []byte) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": fileName}))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Write(data)
}

// setResultHeaders exposes projection statistics to API clients.
func setResultHeaders(w http.ResponseWriter, res core.ProjectionResult) {
	h := w.Header()
	h.Set("X-Rows", strconv.Itoa(res.Rows))
	h.Set("X-Columns-Total", strconv.Itoa(res.TotalColumns))
	h.Set("X-Columns-Kept", strconv.Itoa(res.KeptColumns))
	h.Set("X-Reduction-Percent", res.ReductionLabel())
}

// parseIntParam parses a positive integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}

// parseBoolParam reads a boolean form value; anything unparsable is false.
func parseBoolParam(r *http.Request, name string) bool {
	b, _ := strconv.ParseBool(r.FormValue(name))
	return b
}

// formValues returns the non-empty values of a repeated form field.
func formValues(r *http.Request, name string) []string {
	var out []string
	for _, v := range r.Form[name] {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
