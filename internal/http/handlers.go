package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"socios/internal/auth"
	"socios/internal/core"
	"socios/internal/export"
	applog "socios/internal/log"
	"socios/internal/middleware/trace"
	"socios/internal/services"
)

// pageData is shared by every full page.
type pageData struct {
	Actor          core.Actor
	Tab            string
	PendingCount   int
	SearchDebounce time.Duration
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": s.now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady performs readiness check with dependency verification
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]interface{})

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	if err := s.store.Ping(ctx); err != nil {
		checks["store"] = fmt.Sprintf("failed: %v", err)
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["store"] = "ok"
	}

	stats := s.members.RosterCache().Stats()
	checks["roster_cache"] = map[string]interface{}{
		"entries": s.members.RosterCache().Size(),
		"hits":    stats.Hits,
		"misses":  stats.Misses,
	}
	rl := s.rateLimiter.GetMetrics()
	checks["rate_limiter"] = map[string]interface{}{
		"active_clients": rl.ClientCount,
		"limited":        rl.TotalHits,
	}

	writeJSON(w, httpStatus, map[string]interface{}{
		"status":    status,
		"timestamp": s.now().Format(time.RFC3339),
		"checks":    checks,
	})
}

type rosterPage struct {
	pageData
	Table         rosterTable
	Localities    []string
	ExportFields  []export.Field
	DocumentTypes []core.DocumentType
}

// handleIndex renders the roster page.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	filter := ParseRosterFilter(r.URL.Query())

	table, err := s.rosterTable(ctx, filter)
	if err != nil {
		s.writeServiceError(w, r, err, applog.ComponentMembers, applog.OpList)
		return
	}
	localities, err := s.members.Localities(ctx)
	if err != nil {
		s.writeServiceError(w, r, err, applog.ComponentMembers, applog.OpList)
		return
	}

	s.render(w, r, "index.html", rosterPage{
		pageData:      s.page(ctx, "members"),
		Table:         table,
		Localities:    localities,
		ExportFields:  export.Fields,
		DocumentTypes: core.DocumentTypes(),
	})
}

func (s *Server) page(ctx context.Context, tab string) pageData {
	actor := auth.FromContext(ctx)
	n, err := s.deletions.PendingCount(ctx, actor)
	if err != nil {
		applog.FromContext(ctx).WarnContext(ctx, "Failed to count pending deletion requests", applog.FieldError, err)
	}
	return pageData{Actor: actor, Tab: tab, PendingCount: n, SearchDebounce: s.searchDebounce}
}

// render executes a template into a buffer so a failure never leaves a
// half-written page behind.
func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data interface{}) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		s.log.LogError(r.Context(), "Template execution failed", err, applog.ComponentTemplate, applog.OpRender,
			applog.NewFields().WithRequestID(trace.GetRequestID(r.Context())))
		InternalServerError("Error al generar la página").Write(w)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// writeServiceError maps service errors to status codes and a toast.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error, component, op string) {
	var partial *services.ApprovedNotDeletedError
	if errors.As(err, &partial) {
		s.log.LogError(r.Context(), "Deletion approved but document still exists", err, component, op,
			applog.NewFields().WithDeletionRequest(partial.RequestID, string(core.RequestApproved)))
		InternalServerError("La solicitud fue aprobada pero el documento no se pudo eliminar").
			TriggerWarningNotification("Solicitud aprobada, pero el documento no se eliminó. Reintente desde la cola de solicitudes.").
			TriggerDeletionInconsistent(partial.RequestID, partial.DocumentID).
			Write(w)
		return
	}

	status, msg := classifyError(err)
	if status == http.StatusInternalServerError {
		s.log.LogError(r.Context(), "Request failed", err, component, op, applog.NewFields())
	} else {
		applog.FromContext(r.Context()).DebugContext(r.Context(), "Request rejected",
			applog.FieldOperation, op, applog.FieldStatusCode, status, applog.FieldError, err)
	}
	ErrorResponse(status, msg).TriggerErrorNotification(msg).Write(w)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
