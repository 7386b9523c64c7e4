package http

import (
	"bytes"
	"io"
	"net/http"
	"strconv"

	"socios/internal/core"
	"socios/internal/export"
	applog "socios/internal/log"
	"socios/internal/metrics"
)

const (
	contentTypeCSV  = "text/csv; charset=utf-8"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type exportWriter func(io.Writer, []core.RosterEntry, []string) error

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	s.export(w, r, "csv", contentTypeCSV, export.WriteCSV)
}

func (s *Server) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	s.export(w, r, "xlsx", contentTypeXLSX, export.WriteXLSX)
}

// export writes the rows matching the current filter with the selected
// columns. Without a fields parameter the default columns are used.
func (s *Server) export(w http.ResponseWriter, r *http.Request, format, contentType string, write exportWriter) {
	ctx := r.Context()
	query := r.URL.Query()

	keys, ok := ParseExportKeys(query)
	if !ok {
		keys = export.DefaultKeys()
	}

	roster, err := s.members.List(ctx, ParseRosterFilter(query))
	if err != nil {
		s.writeServiceError(w, r, err, applog.ComponentExport, applog.OpExport)
		return
	}

	var buf bytes.Buffer
	if err := write(&buf, roster.Entries, keys); err != nil {
		s.writeServiceError(w, r, err, applog.ComponentExport, applog.OpExport)
		return
	}

	metrics.Exports.WithLabelValues(format).Inc()
	s.log.LogExport(ctx, format, len(roster.Entries), len(keys))

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+exportFilename(format, s.now())+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
