package core

// Actor is the identity on whose behalf an operation runs. It is resolved once
// per request and handed explicitly to every decision point.
type Actor struct {
	User
}

// NewActor wraps a resolved user.
func NewActor(u User) Actor {
	return Actor{User: u}
}

// Anonymous reports whether no user was resolved.
func (a Actor) Anonymous() bool {
	return a.ID == ""
}

func (a Actor) IsAdmin() bool {
	return a.HasRole(RoleAdmin)
}

func (a Actor) IsEngineer() bool {
	return a.HasRole(RoleEngineer)
}

// CanEditStatus gates lot-measured toggles, document uploads and the delete pill.
func (a Actor) CanEditStatus() bool {
	return a.IsAdmin() || a.IsEngineer()
}

// CanManageRequests gates the deletion-request queue.
func (a Actor) CanManageRequests() bool {
	return a.IsAdmin()
}

// CanBatchMeasure gates the batch lot-measurement tool.
func (a Actor) CanBatchMeasure() bool {
	return a.IsEngineer()
}

// DeletesImmediately reports whether a delete of a document of type t by this
// actor bypasses the approval queue.
func (a Actor) DeletesImmediately(t DocumentType) bool {
	return a.IsAdmin() || !t.Sensitive()
}
