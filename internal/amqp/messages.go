package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventKind names what changed in the roster.
type EventKind string

const (
	MemberChanged          EventKind = "member.changed"
	MemberDeleted          EventKind = "member.deleted"
	IncomeRecorded         EventKind = "income.recorded"
	DocumentAdded          EventKind = "document.added"
	DocumentDeleted        EventKind = "document.deleted"
	DeletionRequested      EventKind = "deletion.requested"
	DeletionApproved       EventKind = "deletion.approved"
	DeletionRejected       EventKind = "deletion.rejected"
	DeletionPartialFailure EventKind = "deletion.partial_failure"
)

// RosterEvent is a lightweight notification that something in the roster
// changed. It carries ids only; consumers reload what they need.
type RosterEvent struct {
	Kind       EventKind `json:"kind"`
	MemberID   string    `json:"member_id,omitempty"`
	DocumentID string    `json:"document_id,omitempty"`
	RequestID  string    `json:"request_id,omitempty"`
	ActorID    string    `json:"actor_id,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

func NewRosterEvent(kind EventKind, memberID string) *RosterEvent {
	return &RosterEvent{
		Kind:      kind,
		MemberID:  memberID,
		Timestamp: time.Now(),
	}
}

// WithDocument sets the document id and returns the event for chaining.
func (e *RosterEvent) WithDocument(id string) *RosterEvent {
	e.DocumentID = id
	return e
}

func (e *RosterEvent) WithRequest(id string) *RosterEvent {
	e.RequestID = id
	return e
}

func (e *RosterEvent) WithActor(id string) *RosterEvent {
	e.ActorID = id
	return e
}

// ToJSON converts the message to JSON bytes
func (e *RosterEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// RosterEventFromJSON decodes an event and rejects messages without a kind.
func RosterEventFromJSON(data []byte) (*RosterEvent, error) {
	var ev RosterEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	if ev.Kind == "" {
		return nil, fmt.Errorf("roster event without kind")
	}
	return &ev, nil
}
