package http

import (
	"context"
	"net/http"

	"socios/internal/auth"
	"socios/internal/core"
	applog "socios/internal/log"

	"golang.org/x/sync/errgroup"
)

// requestsList is the admin queue: pending requests, approved requests whose
// document survived, and the full history.
type requestsList struct {
	Pending      []core.DeletionRequestView
	Inconsistent []core.DeletionRequestView
	History      []core.DeletionRequestView
}

type requestsPage struct {
	pageData
	List requestsList
}

func (s *Server) requestsList(ctx context.Context, actor core.Actor) (requestsList, error) {
	var out requestsList
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		out.Pending, err = s.deletions.ListPending(gctx, actor)
		return err
	})
	g.Go(func() error {
		var err error
		out.Inconsistent, err = s.deletions.ListInconsistent(gctx, actor)
		return err
	})
	g.Go(func() error {
		var err error
		out.History, err = s.deletions.ListAll(gctx, actor)
		return err
	})
	if err := g.Wait(); err != nil {
		return requestsList{}, err
	}
	return out, nil
}

func (s *Server) handleRequestsPage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	list, err := s.requestsList(ctx, auth.FromContext(ctx))
	if err != nil {
		s.writeServiceError(w, r, err, applog.ComponentDeletion, applog.OpList)
		return
	}
	s.render(w, r, "requests.html", requestsPage{pageData: s.page(ctx, "requests"), List: list})
}

func (s *Server) handleRequestsList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	list, err := s.requestsList(ctx, auth.FromContext(ctx))
	if err != nil {
		s.writeServiceError(w, r, err, applog.ComponentDeletion, applog.OpList)
		return
	}
	s.render(w, r, "requests_list", list)
}

func (s *Server) handleApproveRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := auth.FromContext(ctx)
	_, err := s.deletions.Approve(ctx, actor, r.PathValue("id"))
	s.afterTransition(w, r, actor, err, applog.OpApprove, "Solicitud aprobada y documento eliminado")
}

func (s *Server) handleRejectRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := auth.FromContext(ctx)
	_, err := s.deletions.Reject(ctx, actor, r.PathValue("id"))
	s.afterTransition(w, r, actor, err, applog.OpReject, "Solicitud rechazada, el documento se conserva")
}

func (s *Server) handleReconcileRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := auth.FromContext(ctx)
	err := s.deletions.Reconcile(ctx, actor, r.PathValue("id"))
	s.afterTransition(w, r, actor, err, applog.OpReconcile, "Documento eliminado")
}

// afterTransition answers every queue action. The partial failure of an
// approval is reported through writeServiceError; the queue page reloads on
// its deletion:inconsistent trigger.
func (s *Server) afterTransition(w http.ResponseWriter, r *http.Request, actor core.Actor, err error, op, okMsg string) {
	if err != nil {
		s.writeServiceError(w, r, err, applog.ComponentDeletion, op)
		return
	}

	pending, cerr := s.deletions.PendingCount(r.Context(), actor)
	if cerr != nil {
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Failed to count pending deletion requests", applog.FieldError, cerr)
	}
	NewHTMXResponse().
		TriggerRequestsChanged(pending).
		TriggerDocumentsChanged().
		TriggerSuccessNotification(okMsg).
		Write(w)
}
