package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"socios/internal/amqp"
	"socios/internal/core"
	applog "socios/internal/log"
	"socios/internal/ports"
	"socios/internal/storage/memory"
)

var (
	admin    = core.NewActor(core.User{ID: "admin-1", Email: "admin@example.com", Roles: []core.Role{core.RoleAdmin}})
	engineer = core.NewActor(core.User{ID: "eng-1", Email: "ing@example.com", Roles: []core.Role{core.RoleEngineer}})
	member   = core.NewActor(core.User{ID: "user-1", Email: "socio@example.com", Roles: []core.Role{core.RoleUser}})
	nobody   = core.Actor{}
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []amqp.RosterEvent
	err    error
}

func (p *recordingPublisher) PublishEvent(_ context.Context, ev *amqp.RosterEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, *ev)
	return p.err
}

func (p *recordingPublisher) kinds() []amqp.EventKind {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]amqp.EventKind, len(p.events))
	for i, e := range p.events {
		out[i] = e.Kind
	}
	return out
}

// failingStore wraps the memory store and makes selected calls fail.
type failingStore struct {
	*memory.Store
	deleteDocErr error
	incomesErr   error
}

func (s *failingStore) DeleteDocument(ctx context.Context, id string) error {
	if s.deleteDocErr != nil {
		return s.deleteDocErr
	}
	return s.Store.DeleteDocument(ctx, id)
}

func (s *failingStore) ListIncomes(ctx context.Context) ([]core.IncomeRecord, error) {
	if s.incomesErr != nil {
		return nil, s.incomesErr
	}
	return s.Store.ListIncomes(ctx)
}

func quietLogger() *applog.Logger {
	return applog.New(applog.Config{Handler: slog.NewTextHandler(io.Discard, nil)})
}

func newStore(t *testing.T) *failingStore {
	t.Helper()
	s := memory.New(admin.User, engineer.User, member.User)
	return &failingStore{Store: s}
}

func seedMember(t *testing.T, store ports.Store, dni, names, paternal string) core.Member {
	t.Helper()
	m, err := store.CreateMember(context.Background(), core.Member{DNI: dni, FirstNames: names, PaternalSurname: paternal, Locality: "Centro"})
	if err != nil {
		t.Fatalf("seed member: %v", err)
	}
	return m
}

func seedDocument(t *testing.T, store ports.Store, memberID string, typ core.DocumentType) core.Document {
	t.Helper()
	d, err := store.CreateDocument(context.Background(), core.Document{MemberID: memberID, Type: typ, Link: "https://drive.example/" + string(typ)})
	if err != nil {
		t.Fatalf("seed document: %v", err)
	}
	return d
}

func mustFail(t *testing.T, err, want error) {
	t.Helper()
	if !errors.Is(err, want) {
		t.Fatalf("expected %v, got %v", want, err)
	}
}
