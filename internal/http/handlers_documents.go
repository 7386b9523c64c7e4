package http

import (
	"context"
	"net/http"

	"socios/internal/auth"
	"socios/internal/core"
	applog "socios/internal/log"
	"socios/internal/services"
)

type documentsList struct {
	Actor core.Actor
	Query string
	Rows  []services.MemberDocuments
}

type documentsPage struct {
	pageData
	List          documentsList
	DocumentTypes []core.DocumentType
}

func (s *Server) documentsList(ctx context.Context, query string) (documentsList, error) {
	rows, err := s.members.DocumentsOverview(ctx, query)
	if err != nil {
		return documentsList{}, err
	}
	return documentsList{Actor: auth.FromContext(ctx), Query: query, Rows: rows}, nil
}

func (s *Server) handleDocumentsPage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	list, err := s.documentsList(ctx, sanitizeInput(r.URL.Query().Get("q")))
	if err != nil {
		s.writeServiceError(w, r, err, applog.ComponentMembers, applog.OpList)
		return
	}
	s.render(w, r, "documents.html", documentsPage{
		pageData:      s.page(ctx, "documents"),
		List:          list,
		DocumentTypes: core.DocumentTypes(),
	})
}

func (s *Server) handleDocumentsList(w http.ResponseWriter, r *http.Request) {
	list, err := s.documentsList(r.Context(), sanitizeInput(r.URL.Query().Get("q")))
	if err != nil {
		s.writeServiceError(w, r, err, applog.ComponentMembers, applog.OpList)
		return
	}
	s.render(w, r, "documents_list", list)
}

func (s *Server) handleAddDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, errResp := ParseBody(r)
	if errResp != nil {
		errResp.Write(w)
		return
	}
	doc, err := ParseDocument(p)
	if err != nil {
		s.writeServiceError(w, r, err, applog.ComponentMembers, applog.OpCreate)
		return
	}

	actor := auth.FromContext(ctx)
	created, err := s.members.AddDocument(ctx, actor, doc)
	if err != nil {
		s.writeServiceError(w, r, err, applog.ComponentMembers, applog.OpCreate)
		return
	}
	fields := applog.NewFields().
		WithComponent(applog.ComponentMembers).
		WithOperation(applog.OpCreate).
		WithDocument(created.ID, string(created.Type)).
		WithActor(actor.ID, core.FormatRoles(actor.Roles))
	fields[applog.FieldMemberID] = created.MemberID
	applog.FromContext(ctx).InfoContext(ctx, "Document added", fields.ToSlice()...)

	NewHTMXResponse().
		TriggerDocumentsChanged().
		TriggerDialogClose().
		TriggerFormReset().
		TriggerSuccessNotification(created.Type.Label() + " agregado").
		Write(w)
}

// handleDeleteDocument runs the deletion workflow: sensitive documents
// deleted by non-admins become a pending request.
func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := auth.FromContext(ctx)

	outcome, err := s.deletions.RequestDeletion(ctx, actor, r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err, applog.ComponentDeletion, applog.OpDelete)
		return
	}

	b := NewHTMXResponse().TriggerDocumentsChanged()
	if outcome.Immediate {
		b.TriggerSuccessNotification(outcome.Document.Type.Label() + " eliminado")
	} else {
		pending, err := s.deletions.PendingCount(ctx, actor)
		if err != nil {
			applog.FromContext(ctx).WarnContext(ctx, "Failed to count pending deletion requests", applog.FieldError, err)
		}
		b.TriggerRequestsChanged(pending).
			TriggerNotification(NotificationInfo, "Solicitud de eliminación enviada al administrador", 5000)
	}
	b.Write(w)
}
