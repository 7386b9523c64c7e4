// Package ports declares the storage contracts the services depend on.
// The SQLite repository and the in-memory store both satisfy Store.
package ports

import (
	"context"
	"errors"
	"time"

	"socios/internal/core"
)

var (
	// ErrNotFound is returned when the addressed row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned by conditional updates whose precondition no longer holds.
	ErrConflict = errors.New("conflict")
)

type (
	MemberStore interface {
		// ListMembers returns all members ordered by paternal surname.
		ListMembers(ctx context.Context) ([]core.Member, error)
		GetMember(ctx context.Context, id string) (core.Member, error)
		CreateMember(ctx context.Context, m core.Member) (core.Member, error)
		UpdateMember(ctx context.Context, m core.Member) error
		// DeleteMember removes the member and its documents.
		DeleteMember(ctx context.Context, id string) error
		// SetLotMeasured updates the flag on every listed member and returns
		// how many rows changed.
		SetLotMeasured(ctx context.Context, ids []string, measured bool) (int, error)
	}

	IncomeStore interface {
		// ListIncomes returns every record in creation order.
		ListIncomes(ctx context.Context) ([]core.IncomeRecord, error)
		CreateIncome(ctx context.Context, r core.IncomeRecord) (core.IncomeRecord, error)
	}

	DocumentStore interface {
		ListDocuments(ctx context.Context) ([]core.Document, error)
		GetDocument(ctx context.Context, id string) (core.Document, error)
		CreateDocument(ctx context.Context, d core.Document) (core.Document, error)
		// DeleteDocument returns ErrNotFound when nothing was removed.
		DeleteDocument(ctx context.Context, id string) error
	}

	DeletionRequestStore interface {
		CreateDeletionRequest(ctx context.Context, r core.DeletionRequest) (core.DeletionRequest, error)
		GetDeletionRequest(ctx context.Context, id string) (core.DeletionRequest, error)
		// PendingRequestForDocument reports the pending request for a document, if any.
		PendingRequestForDocument(ctx context.Context, documentID string) (core.DeletionRequest, bool, error)
		// ListDeletionRequests returns requests newest first; an empty status lists all.
		ListDeletionRequests(ctx context.Context, status core.RequestStatus) ([]core.DeletionRequestView, error)
		// ResolveDeletionRequest moves a Pending request to status. It returns
		// ErrConflict when the request is no longer Pending.
		ResolveDeletionRequest(ctx context.Context, id string, status core.RequestStatus, by string, at time.Time) error
		CountPending(ctx context.Context) (int, error)
	}

	UserStore interface {
		GetUser(ctx context.Context, id string) (core.User, error)
		// SaveUser inserts the user or replaces its email and roles.
		SaveUser(ctx context.Context, u core.User) error
	}

	// Store is the full persistence surface used by the server.
	Store interface {
		MemberStore
		IncomeStore
		DocumentStore
		DeletionRequestStore
		UserStore
		Ping(ctx context.Context) error
		Close() error
	}
)
