package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"socios/internal/amqp"
	"socios/internal/core"
	applog "socios/internal/log"
	"socios/internal/metrics"
	"socios/internal/ports"
)

// DeletionOutcome tells the caller which path a delete took.
type DeletionOutcome struct {
	// Immediate is true when the document was removed without approval.
	Immediate bool
	Document  core.Document
	// Request is the created request when approval is needed.
	Request *core.DeletionRequest
}

// DeletionService runs the document deletion workflow: immediate deletes for
// admins and non-sensitive types, a Pending request otherwise.
type DeletionService struct {
	store  ports.Store
	events EventPublisher
	log    *applog.StructuredLogger
	now    func() time.Time
}

func NewDeletionService(store ports.Store, events EventPublisher, logger *applog.Logger) *DeletionService {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &DeletionService{
		store:  store,
		events: events,
		log:    applog.NewStructuredLogger(logger.WithComponent(applog.ComponentDeletion)),
		now:    time.Now,
	}
}

func (s *DeletionService) RequestDeletion(ctx context.Context, actor core.Actor, documentID string) (DeletionOutcome, error) {
	if actor.Anonymous() {
		return DeletionOutcome{}, ErrForbidden
	}
	doc, err := s.store.GetDocument(ctx, documentID)
	if err != nil {
		return DeletionOutcome{}, err
	}

	if actor.DeletesImmediately(doc.Type) {
		if err := s.store.DeleteDocument(ctx, doc.ID); err != nil {
			return DeletionOutcome{}, fmt.Errorf("delete document: %w", err)
		}
		metrics.DeletionOutcomes.WithLabelValues(metrics.OutcomeImmediate).Inc()
		requestID := s.approvePendingFor(ctx, actor, doc)
		s.log.LogDeletionTransition(ctx, requestID, doc.ID, statusDeleted, actor.ID, applog.OpDelete)
		publish(ctx, s.events, amqp.NewRosterEvent(amqp.DocumentDeleted, doc.MemberID).WithDocument(doc.ID).WithRequest(requestID).WithActor(actor.ID))
		return DeletionOutcome{Immediate: true, Document: doc}, nil
	}

	if _, ok, err := s.store.PendingRequestForDocument(ctx, doc.ID); err != nil {
		return DeletionOutcome{}, err
	} else if ok {
		return DeletionOutcome{}, ErrRequestAlreadyPending
	}

	req, err := s.store.CreateDeletionRequest(ctx, core.DeletionRequest{
		DocumentID:   doc.ID,
		MemberID:     doc.MemberID,
		RequestedBy:  actor.ID,
		DocumentType: doc.Type,
		DocumentLink: doc.Link,
		Status:       core.RequestPending,
		CreatedAt:    s.now(),
	})
	if errors.Is(err, ports.ErrConflict) {
		return DeletionOutcome{}, ErrRequestAlreadyPending
	}
	if err != nil {
		return DeletionOutcome{}, fmt.Errorf("create deletion request: %w", err)
	}

	metrics.DeletionOutcomes.WithLabelValues(metrics.OutcomeRequested).Inc()
	s.refreshPendingGauge(ctx)
	s.log.LogDeletionTransition(ctx, req.ID, doc.ID, string(req.Status), actor.ID, applog.OpCreate)
	publish(ctx, s.events, amqp.NewRosterEvent(amqp.DeletionRequested, doc.MemberID).WithDocument(doc.ID).WithRequest(req.ID).WithActor(actor.ID))
	return DeletionOutcome{Document: doc, Request: &req}, nil
}

// Approve marks the request Approved and then deletes the document. The two
// steps are separate store calls: when the delete fails the request stays
// Approved and an *ApprovedNotDeletedError is returned.
func (s *DeletionService) Approve(ctx context.Context, actor core.Actor, requestID string) (core.DeletionRequest, error) {
	req, err := s.resolve(ctx, actor, requestID, core.RequestApproved)
	if err != nil {
		return core.DeletionRequest{}, err
	}

	if err := s.deleteDocument(ctx, req); err != nil {
		metrics.DeletionOutcomes.WithLabelValues(metrics.OutcomePartialFailure).Inc()
		slog.ErrorContext(ctx, "Deletion request approved but document delete failed",
			applog.FieldComponent, applog.ComponentDeletion,
			applog.FieldDeletionID, req.ID,
			applog.FieldDocumentID, req.DocumentID,
			applog.FieldError, err)
		publish(ctx, s.events, amqp.NewRosterEvent(amqp.DeletionPartialFailure, req.MemberID).WithDocument(req.DocumentID).WithRequest(req.ID).WithActor(actor.ID))
		return req, &ApprovedNotDeletedError{RequestID: req.ID, DocumentID: req.DocumentID, Err: err}
	}

	metrics.DeletionOutcomes.WithLabelValues(metrics.OutcomeApproved).Inc()
	publish(ctx, s.events, amqp.NewRosterEvent(amqp.DeletionApproved, req.MemberID).WithDocument(req.DocumentID).WithRequest(req.ID).WithActor(actor.ID))
	return req, nil
}

// Reject marks the request Rejected; the document is kept.
func (s *DeletionService) Reject(ctx context.Context, actor core.Actor, requestID string) (core.DeletionRequest, error) {
	req, err := s.resolve(ctx, actor, requestID, core.RequestRejected)
	if err != nil {
		return core.DeletionRequest{}, err
	}
	metrics.DeletionOutcomes.WithLabelValues(metrics.OutcomeRejected).Inc()
	publish(ctx, s.events, amqp.NewRosterEvent(amqp.DeletionRejected, req.MemberID).WithDocument(req.DocumentID).WithRequest(req.ID).WithActor(actor.ID))
	return req, nil
}

// Reconcile retries the document delete of an Approved request.
func (s *DeletionService) Reconcile(ctx context.Context, actor core.Actor, requestID string) error {
	if !actor.CanManageRequests() {
		return ErrForbidden
	}
	req, err := s.store.GetDeletionRequest(ctx, requestID)
	if err != nil {
		return err
	}
	if req.Status != core.RequestApproved {
		return ErrRequestNotApproved
	}
	if err := s.deleteDocument(ctx, req); err != nil {
		return &ApprovedNotDeletedError{RequestID: req.ID, DocumentID: req.DocumentID, Err: err}
	}

	metrics.DeletionOutcomes.WithLabelValues(metrics.OutcomeReconciled).Inc()
	s.log.LogDeletionTransition(ctx, req.ID, req.DocumentID, string(req.Status), actor.ID, applog.OpReconcile)
	publish(ctx, s.events, amqp.NewRosterEvent(amqp.DocumentDeleted, req.MemberID).WithDocument(req.DocumentID).WithRequest(req.ID).WithActor(actor.ID))
	return nil
}

func (s *DeletionService) ListPending(ctx context.Context, actor core.Actor) ([]core.DeletionRequestView, error) {
	if !actor.CanManageRequests() {
		return nil, ErrForbidden
	}
	return s.store.ListDeletionRequests(ctx, core.RequestPending)
}

// ListAll returns every request, newest first.
func (s *DeletionService) ListAll(ctx context.Context, actor core.Actor) ([]core.DeletionRequestView, error) {
	if !actor.CanManageRequests() {
		return nil, ErrForbidden
	}
	return s.store.ListDeletionRequests(ctx, "")
}

// PendingCount feeds the badge of the requests tab. Non-admins always see zero.
func (s *DeletionService) PendingCount(ctx context.Context, actor core.Actor) (int, error) {
	if !actor.CanManageRequests() {
		return 0, nil
	}
	n, err := s.store.CountPending(ctx)
	if err != nil {
		return 0, err
	}
	metrics.PendingRequests.Set(float64(n))
	return n, nil
}

func (s *DeletionService) ListInconsistent(ctx context.Context, actor core.Actor) ([]core.DeletionRequestView, error) {
	if !actor.CanManageRequests() {
		return nil, ErrForbidden
	}
	return s.Inconsistent(ctx)
}

// Inconsistent returns Approved requests whose document still exists.
func (s *DeletionService) Inconsistent(ctx context.Context) ([]core.DeletionRequestView, error) {
	approved, err := s.store.ListDeletionRequests(ctx, core.RequestApproved)
	if err != nil {
		return nil, err
	}
	if len(approved) == 0 {
		metrics.InconsistentRequests.Set(0)
		return nil, nil
	}
	docs, err := s.store.ListDocuments(ctx)
	if err != nil {
		return nil, err
	}
	exists := make(map[string]bool, len(docs))
	for _, d := range docs {
		exists[d.ID] = true
	}
	var out []core.DeletionRequestView
	for _, r := range approved {
		if exists[r.DocumentID] {
			out = append(out, r)
		}
	}
	metrics.InconsistentRequests.Set(float64(len(out)))
	return out, nil
}

func (s *DeletionService) resolve(ctx context.Context, actor core.Actor, requestID string, status core.RequestStatus) (core.DeletionRequest, error) {
	if !actor.CanManageRequests() {
		return core.DeletionRequest{}, ErrForbidden
	}
	req, err := s.store.GetDeletionRequest(ctx, requestID)
	if err != nil {
		return core.DeletionRequest{}, err
	}
	if req.Status != core.RequestPending {
		return core.DeletionRequest{}, ErrRequestNotPending
	}

	at := s.now()
	err = s.store.ResolveDeletionRequest(ctx, req.ID, status, actor.ID, at)
	if errors.Is(err, ports.ErrConflict) {
		return core.DeletionRequest{}, ErrRequestNotPending
	}
	if err != nil {
		return core.DeletionRequest{}, fmt.Errorf("resolve deletion request: %w", err)
	}

	req.Status = status
	if status == core.RequestApproved {
		req.ApprovedBy, req.ApprovedAt = actor.ID, at
	}
	s.refreshPendingGauge(ctx)
	op := applog.OpReject
	if status == core.RequestApproved {
		op = applog.OpApprove
	}
	s.log.LogDeletionTransition(ctx, req.ID, req.DocumentID, string(status), actor.ID, op)
	return req, nil
}

// statusDeleted is logged for documents removed without a request.
const statusDeleted = "Deleted"

// approvePendingFor closes a Pending request whose document was just deleted
// directly, so the queue never points at a missing document. The request is
// Approved by the deleting actor. It returns the request id, or "" when there
// was none. Failures are logged; the delete itself already succeeded.
func (s *DeletionService) approvePendingFor(ctx context.Context, actor core.Actor, doc core.Document) string {
	pending, ok, err := s.store.PendingRequestForDocument(ctx, doc.ID)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to look up pending request for deleted document",
			applog.FieldComponent, applog.ComponentDeletion,
			applog.FieldDocumentID, doc.ID,
			applog.FieldError, err)
		return ""
	}
	if !ok {
		return ""
	}
	err = s.store.ResolveDeletionRequest(ctx, pending.ID, core.RequestApproved, actor.ID, s.now())
	if errors.Is(err, ports.ErrConflict) {
		// Resolved concurrently by someone else.
		return pending.ID
	}
	if err != nil {
		slog.ErrorContext(ctx, "Failed to approve pending request for deleted document",
			applog.FieldComponent, applog.ComponentDeletion,
			applog.FieldDeletionID, pending.ID,
			applog.FieldDocumentID, doc.ID,
			applog.FieldError, err)
		return pending.ID
	}
	s.refreshPendingGauge(ctx)
	s.log.LogDeletionTransition(ctx, pending.ID, doc.ID, string(core.RequestApproved), actor.ID, applog.OpApprove)
	publish(ctx, s.events, amqp.NewRosterEvent(amqp.DeletionApproved, doc.MemberID).WithDocument(doc.ID).WithRequest(pending.ID).WithActor(actor.ID))
	return pending.ID
}

// deleteDocument treats an already missing document as deleted.
func (s *DeletionService) deleteDocument(ctx context.Context, req core.DeletionRequest) error {
	err := s.store.DeleteDocument(ctx, req.DocumentID)
	if err == nil || errors.Is(err, ports.ErrNotFound) {
		return nil
	}
	return err
}

func (s *DeletionService) refreshPendingGauge(ctx context.Context) {
	if n, err := s.store.CountPending(ctx); err == nil {
		metrics.PendingRequests.Set(float64(n))
	}
}
