package services

import (
	"context"
	"errors"
	"testing"

	"socios/internal/amqp"
	"socios/internal/core"
)

func newDeletionService(t *testing.T) (*DeletionService, *failingStore, *recordingPublisher) {
	t.Helper()
	store := newStore(t)
	pub := &recordingPublisher{}
	return NewDeletionService(store, pub, quietLogger()), store, pub
}

func TestRequestDeletionPaths(t *testing.T) {
	tests := []struct {
		name          string
		actor         core.Actor
		docType       core.DocumentType
		wantImmediate bool
	}{
		{"admin deletes sensitive directly", admin, core.DocLocationPlans, true},
		{"admin deletes receipt directly", admin, core.DocPaymentReceipt, true},
		{"engineer deletes receipt directly", engineer, core.DocPaymentReceipt, true},
		{"user deletes other directly", member, core.DocOther, true},
		{"engineer requests plans", engineer, core.DocLocationPlans, false},
		{"user requests memo", member, core.DocDescriptiveMemo, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store, pub := newDeletionService(t)
			ctx := context.Background()
			m := seedMember(t, store, "40000001", "Ana", "Quispe")
			doc := seedDocument(t, store, m.ID, tt.docType)

			out, err := svc.RequestDeletion(ctx, tt.actor, doc.ID)
			if err != nil {
				t.Fatalf("RequestDeletion: %v", err)
			}
			if out.Immediate != tt.wantImmediate {
				t.Fatalf("Immediate = %v, want %v", out.Immediate, tt.wantImmediate)
			}

			_, getErr := store.GetDocument(ctx, doc.ID)
			pending, _ := store.CountPending(ctx)
			if tt.wantImmediate {
				if !errors.Is(getErr, ErrNotFound) {
					t.Errorf("document should be gone, got %v", getErr)
				}
				if pending != 0 || out.Request != nil {
					t.Errorf("immediate delete must not create a request (pending=%d)", pending)
				}
				if k := pub.kinds(); len(k) != 1 || k[0] != amqp.DocumentDeleted {
					t.Errorf("unexpected events %v", k)
				}
				return
			}
			if getErr != nil {
				t.Errorf("document must be kept while pending: %v", getErr)
			}
			if pending != 1 || out.Request == nil {
				t.Fatalf("expected exactly one pending request, got %d", pending)
			}
			req := out.Request
			if req.Status != core.RequestPending || req.RequestedBy != tt.actor.ID || req.DocumentLink != doc.Link || req.DocumentType != doc.Type {
				t.Errorf("unexpected request snapshot %+v", req)
			}
		})
	}
}

func TestDirectDeleteApprovesPendingRequest(t *testing.T) {
	svc, store, pub := newDeletionService(t)
	ctx := context.Background()
	m := seedMember(t, store, "40000009", "Rosa", "Huaman")
	doc := seedDocument(t, store, m.ID, core.DocLocationPlans)

	out, err := svc.RequestDeletion(ctx, member, doc.ID)
	if err != nil || out.Request == nil {
		t.Fatalf("RequestDeletion by member: out=%+v err=%v", out, err)
	}

	direct, err := svc.RequestDeletion(ctx, admin, doc.ID)
	if err != nil {
		t.Fatalf("RequestDeletion by admin: %v", err)
	}
	if !direct.Immediate {
		t.Fatal("admin delete should be immediate")
	}

	req, err := store.GetDeletionRequest(ctx, out.Request.ID)
	if err != nil {
		t.Fatalf("GetDeletionRequest: %v", err)
	}
	if req.Status != core.RequestApproved || req.ApprovedBy != admin.ID {
		t.Errorf("request = %s by %q, want Approved by %q", req.Status, req.ApprovedBy, admin.ID)
	}
	pending, err := svc.ListPending(ctx, admin)
	if err != nil {
		t.Fatalf("ListPending: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("pending queue still holds %d requests", len(pending))
	}
	inconsistent, err := svc.Inconsistent(ctx)
	if err != nil || len(inconsistent) != 0 {
		t.Errorf("Inconsistent() = %v, %v; want none", inconsistent, err)
	}

	want := []amqp.EventKind{amqp.DeletionRequested, amqp.DeletionApproved, amqp.DocumentDeleted}
	got := pub.kinds()
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestRequestDeletionErrors(t *testing.T) {
	svc, store, _ := newDeletionService(t)
	ctx := context.Background()
	m := seedMember(t, store, "40000002", "Luis", "Rojas")
	doc := seedDocument(t, store, m.ID, core.DocLocationPlans)

	_, err := svc.RequestDeletion(ctx, nobody, doc.ID)
	mustFail(t, err, ErrForbidden)

	_, err = svc.RequestDeletion(ctx, member, "missing")
	mustFail(t, err, ErrNotFound)

	if _, err := svc.RequestDeletion(ctx, member, doc.ID); err != nil {
		t.Fatalf("first request: %v", err)
	}
	_, err = svc.RequestDeletion(ctx, engineer, doc.ID)
	mustFail(t, err, ErrRequestAlreadyPending)
}

func requestFor(t *testing.T, svc *DeletionService, store *failingStore) (core.Document, core.DeletionRequest) {
	t.Helper()
	m := seedMember(t, store, "50000001", "Rosa", "Mendoza")
	doc := seedDocument(t, store, m.ID, core.DocDescriptiveMemo)
	out, err := svc.RequestDeletion(context.Background(), engineer, doc.ID)
	if err != nil || out.Request == nil {
		t.Fatalf("request deletion: %v", err)
	}
	return doc, *out.Request
}

func TestApproveDeletesDocument(t *testing.T) {
	svc, store, pub := newDeletionService(t)
	ctx := context.Background()
	doc, req := requestFor(t, svc, store)

	_, err := svc.Approve(ctx, engineer, req.ID)
	mustFail(t, err, ErrForbidden)

	got, err := svc.Approve(ctx, admin, req.ID)
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if got.Status != core.RequestApproved || got.ApprovedBy != admin.ID || got.ApprovedAt.IsZero() {
		t.Errorf("unexpected approved request %+v", got)
	}
	if _, err := store.GetDocument(ctx, doc.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("document should be deleted, got %v", err)
	}
	stored, _ := store.GetDeletionRequest(ctx, req.ID)
	if stored.Status != core.RequestApproved || stored.ApprovedBy != admin.ID {
		t.Errorf("stored request not approved: %+v", stored)
	}

	_, err = svc.Approve(ctx, admin, req.ID)
	mustFail(t, err, ErrRequestNotPending)
	_, err = svc.Reject(ctx, admin, req.ID)
	mustFail(t, err, ErrRequestNotPending)

	kinds := pub.kinds()
	if kinds[len(kinds)-1] != amqp.DeletionApproved {
		t.Errorf("expected approval event last, got %v", kinds)
	}
}

func TestApproveWithFailedDeleteStaysApproved(t *testing.T) {
	svc, store, pub := newDeletionService(t)
	ctx := context.Background()
	doc, req := requestFor(t, svc, store)
	store.deleteDocErr = errors.New("storage unavailable")

	_, err := svc.Approve(ctx, admin, req.ID)
	if !errors.Is(err, ErrApprovedButNotDeleted) {
		t.Fatalf("expected ErrApprovedButNotDeleted, got %v", err)
	}
	var partial *ApprovedNotDeletedError
	if !errors.As(err, &partial) || partial.RequestID != req.ID || partial.DocumentID != doc.ID {
		t.Fatalf("expected *ApprovedNotDeletedError for the request, got %#v", err)
	}

	stored, _ := store.GetDeletionRequest(ctx, req.ID)
	if stored.Status != core.RequestApproved {
		t.Errorf("request must stay Approved, got %s", stored.Status)
	}
	if _, err := store.GetDocument(ctx, doc.ID); err != nil {
		t.Errorf("document should still exist: %v", err)
	}
	kinds := pub.kinds()
	if kinds[len(kinds)-1] != amqp.DeletionPartialFailure {
		t.Errorf("expected partial failure event, got %v", kinds)
	}

	inconsistent, err := svc.ListInconsistent(ctx, admin)
	if err != nil || len(inconsistent) != 1 || inconsistent[0].ID != req.ID {
		t.Fatalf("ListInconsistent = %v, %v", inconsistent, err)
	}

	// Still failing: reconcile reports the same condition.
	err = svc.Reconcile(ctx, admin, req.ID)
	mustFail(t, err, ErrApprovedButNotDeleted)

	store.deleteDocErr = nil
	if err := svc.Reconcile(ctx, admin, req.ID); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if _, err := store.GetDocument(ctx, doc.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("document should be gone after reconcile, got %v", err)
	}
	if left, _ := svc.Inconsistent(ctx); len(left) != 0 {
		t.Errorf("expected no inconsistent requests, got %v", left)
	}
}

func TestApproveWhenDocumentAlreadyGone(t *testing.T) {
	svc, store, _ := newDeletionService(t)
	ctx := context.Background()
	doc, req := requestFor(t, svc, store)
	if err := store.Store.DeleteDocument(ctx, doc.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := svc.Approve(ctx, admin, req.ID); err != nil {
		t.Errorf("missing document should count as deleted, got %v", err)
	}
}

func TestRejectKeepsDocument(t *testing.T) {
	svc, store, _ := newDeletionService(t)
	ctx := context.Background()
	doc, req := requestFor(t, svc, store)

	got, err := svc.Reject(ctx, admin, req.ID)
	if err != nil {
		t.Fatalf("Reject: %v", err)
	}
	if got.Status != core.RequestRejected || got.ApprovedBy != "" {
		t.Errorf("unexpected rejected request %+v", got)
	}
	if _, err := store.GetDocument(ctx, doc.ID); err != nil {
		t.Errorf("document must be preserved: %v", err)
	}

	err = svc.Reconcile(ctx, admin, req.ID)
	mustFail(t, err, ErrRequestNotApproved)

	// A fresh request is allowed once the previous one is resolved.
	if _, err := svc.RequestDeletion(ctx, member, doc.ID); err != nil {
		t.Errorf("new request after rejection: %v", err)
	}
}

func TestListingsAreAdminOnly(t *testing.T) {
	svc, store, _ := newDeletionService(t)
	ctx := context.Background()
	requestFor(t, svc, store)

	_, err := svc.ListPending(ctx, engineer)
	mustFail(t, err, ErrForbidden)
	_, err = svc.ListAll(ctx, member)
	mustFail(t, err, ErrForbidden)
	_, err = svc.ListInconsistent(ctx, engineer)
	mustFail(t, err, ErrForbidden)

	if n, _ := svc.PendingCount(ctx, engineer); n != 0 {
		t.Errorf("non-admin badge should be 0, got %d", n)
	}
	if n, _ := svc.PendingCount(ctx, admin); n != 1 {
		t.Errorf("admin badge should be 1, got %d", n)
	}

	pending, err := svc.ListPending(ctx, admin)
	if err != nil || len(pending) != 1 {
		t.Fatalf("ListPending = %v, %v", pending, err)
	}
	if pending[0].MemberDNI != "50000001" || pending[0].MemberName != "Rosa Mendoza" || pending[0].RequestedByEmail != engineer.Email {
		t.Errorf("unexpected view %+v", pending[0])
	}
}

func TestPublisherFailureDoesNotFailWrite(t *testing.T) {
	svc, store, pub := newDeletionService(t)
	pub.err = errors.New("broker down")
	m := seedMember(t, store, "60000001", "Ana", "Quispe")
	doc := seedDocument(t, store, m.ID, core.DocOther)

	out, err := svc.RequestDeletion(context.Background(), member, doc.ID)
	if err != nil || !out.Immediate {
		t.Fatalf("expected immediate delete despite broker error, got %+v %v", out, err)
	}
}
