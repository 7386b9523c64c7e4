package services

import (
	"errors"
	"fmt"

	"socios/internal/ports"
)

var (
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound aliases the storage sentinel so callers need only this package.
	ErrNotFound              = ports.ErrNotFound
	ErrInvalid               = errors.New("invalid input")
	ErrDuplicate             = errors.New("already exists")
	ErrRequestNotPending     = errors.New("deletion request is not pending")
	ErrRequestAlreadyPending = errors.New("document already has a pending deletion request")
	ErrRequestNotApproved    = errors.New("deletion request is not approved")
	ErrApprovedButNotDeleted = errors.New("request approved but document not deleted")
)

// ApprovedNotDeletedError reports an approval that was recorded while the
// document delete that should follow it failed. The request stays Approved.
type ApprovedNotDeletedError struct {
	RequestID  string
	DocumentID string
	Err        error
}

func (e *ApprovedNotDeletedError) Error() string {
	return fmt.Sprintf("deletion request %s approved but document %s was not deleted: %v", e.RequestID, e.DocumentID, e.Err)
}

func (e *ApprovedNotDeletedError) Unwrap() error { return e.Err }

func (e *ApprovedNotDeletedError) Is(target error) bool {
	return target == ErrApprovedButNotDeleted
}

func invalid(err error) error {
	return fmt.Errorf("%w: %w", ErrInvalid, err)
}
