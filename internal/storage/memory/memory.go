// Package memory is an in-process Store used by tests and the local demo backend.
package memory

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"socios/internal/core"
	"socios/internal/ports"

	"github.com/google/uuid"
)

type Store struct {
	mu        sync.Mutex
	members   map[string]core.Member
	incomes   []core.IncomeRecord
	documents []core.Document
	requests  []core.DeletionRequest
	users     map[string]core.User
	nextIncID int64
	now       func() time.Time
}

var _ ports.Store = (*Store)(nil)

func New(users ...core.User) *Store {
	s := &Store{
		members: make(map[string]core.Member),
		users:   make(map[string]core.User),
		now:     time.Now,
	}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

// NewFromFiles seeds users from seed_users.txt in base. Without a seed file a
// single admin "dev" exists.
func NewFromFiles(base string) *Store {
	users := SeedUsers(base)
	if len(users) == 0 {
		users = []core.User{{ID: "dev", Email: "dev@localhost", Roles: []core.Role{core.RoleAdmin}}}
	}
	return New(users...)
}

// SeedUsers reads seed_users.txt in base. Each line is
// "id,email,role[,role...]"; users without roles get the user role.
func SeedUsers(base string) []core.User {
	var users []core.User
	for _, line := range readLines(filepath.Join(base, "seed_users.txt")) {
		parts := strings.SplitN(line, ",", 3)
		if len(parts) < 2 {
			continue
		}
		u := core.User{ID: strings.TrimSpace(parts[0]), Email: strings.TrimSpace(parts[1])}
		if len(parts) == 3 {
			u.Roles = core.ParseRoles(parts[2])
		}
		if len(u.Roles) == 0 {
			u.Roles = []core.Role{core.RoleUser}
		}
		users = append(users, u)
	}
	return users
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

func (s *Store) ListMembers(_ context.Context) ([]core.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Member, 0, len(s.members))
	for _, m := range s.members {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.PaternalSurname != b.PaternalSurname {
			return a.PaternalSurname < b.PaternalSurname
		}
		if a.MaternalSurname != b.MaternalSurname {
			return a.MaternalSurname < b.MaternalSurname
		}
		if a.FirstNames != b.FirstNames {
			return a.FirstNames < b.FirstNames
		}
		return a.ID < b.ID
	})
	return out, nil
}

func (s *Store) GetMember(_ context.Context, id string) (core.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.members[id]
	if !ok {
		return core.Member{}, fmt.Errorf("member %s: %w", id, ports.ErrNotFound)
	}
	return m, nil
}

func (s *Store) CreateMember(_ context.Context, m core.Member) (core.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dniTaken(m.DNI, "") {
		return core.Member{}, fmt.Errorf("member dni %s: %w", m.DNI, ports.ErrConflict)
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = s.now()
	}
	s.members[m.ID] = m
	return m, nil
}

func (s *Store) UpdateMember(_ context.Context, m core.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.members[m.ID]
	if !ok {
		return fmt.Errorf("member %s: %w", m.ID, ports.ErrNotFound)
	}
	if s.dniTaken(m.DNI, m.ID) {
		return fmt.Errorf("member dni %s: %w", m.DNI, ports.ErrConflict)
	}
	m.CreatedAt = old.CreatedAt
	s.members[m.ID] = m
	return nil
}

func (s *Store) dniTaken(dni, exceptID string) bool {
	for id, m := range s.members {
		if id != exceptID && m.DNI == dni {
			return true
		}
	}
	return false
}

func (s *Store) DeleteMember(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.members[id]; !ok {
		return fmt.Errorf("member %s: %w", id, ports.ErrNotFound)
	}
	delete(s.members, id)
	docs := s.documents[:0]
	for _, d := range s.documents {
		if d.MemberID != id {
			docs = append(docs, d)
		}
	}
	s.documents = docs
	reqs := s.requests[:0]
	for _, r := range s.requests {
		if r.MemberID != id {
			reqs = append(reqs, r)
		}
	}
	s.requests = reqs
	return nil
}

func (s *Store) SetLotMeasured(_ context.Context, ids []string, measured bool) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, id := range ids {
		m, ok := s.members[id]
		if !ok {
			continue
		}
		m.IsLotMeasured = measured
		s.members[id] = m
		n++
	}
	return n, nil
}

func (s *Store) ListIncomes(_ context.Context) ([]core.IncomeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]core.IncomeRecord(nil), s.incomes...)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) CreateIncome(_ context.Context, r core.IncomeRecord) (core.IncomeRecord, error) {
	if err := r.Validate(); err != nil {
		return core.IncomeRecord{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextIncID++
	r.ID = s.nextIncID
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.now()
	}
	s.incomes = append(s.incomes, r)
	return r, nil
}

func (s *Store) ListDocuments(_ context.Context) ([]core.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Document(nil), s.documents...), nil
}

func (s *Store) GetDocument(_ context.Context, id string) (core.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.documents {
		if d.ID == id {
			return d, nil
		}
	}
	return core.Document{}, fmt.Errorf("document %s: %w", id, ports.ErrNotFound)
}

func (s *Store) CreateDocument(_ context.Context, d core.Document) (core.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.members[d.MemberID]; !ok {
		return core.Document{}, fmt.Errorf("member %s: %w", d.MemberID, ports.ErrNotFound)
	}
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	s.documents = append(s.documents, d)
	return d, nil
}

func (s *Store) DeleteDocument(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, d := range s.documents {
		if d.ID == id {
			s.documents = append(s.documents[:i], s.documents[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("document %s: %w", id, ports.ErrNotFound)
}

func (s *Store) CreateDeletionRequest(_ context.Context, r core.DeletionRequest) (core.DeletionRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.requests {
		if existing.DocumentID == r.DocumentID && existing.Status == core.RequestPending {
			return core.DeletionRequest{}, fmt.Errorf("pending request for document %s: %w", r.DocumentID, ports.ErrConflict)
		}
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.now()
	}
	r.Status = core.RequestPending
	r.ApprovedBy = ""
	r.ApprovedAt = time.Time{}
	s.requests = append(s.requests, r)
	return r, nil
}

func (s *Store) GetDeletionRequest(_ context.Context, id string) (core.DeletionRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.requestIndex(id); i >= 0 {
		return s.requests[i], nil
	}
	return core.DeletionRequest{}, fmt.Errorf("deletion request %s: %w", id, ports.ErrNotFound)
}

func (s *Store) requestIndex(id string) int {
	for i, r := range s.requests {
		if r.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) PendingRequestForDocument(_ context.Context, documentID string) (core.DeletionRequest, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.requests {
		if r.DocumentID == documentID && r.Status == core.RequestPending {
			return r, true, nil
		}
	}
	return core.DeletionRequest{}, false, nil
}

func (s *Store) ListDeletionRequests(_ context.Context, status core.RequestStatus) ([]core.DeletionRequestView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.DeletionRequestView
	for _, r := range s.requests {
		if status != "" && r.Status != status {
			continue
		}
		v := core.DeletionRequestView{DeletionRequest: r}
		if m, ok := s.members[r.MemberID]; ok {
			v.MemberDNI = m.DNI
			v.MemberName = m.FullName()
		}
		if u, ok := s.users[r.RequestedBy]; ok {
			v.RequestedByEmail = u.Email
		}
		out = append(out, v)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) ResolveDeletionRequest(_ context.Context, id string, status core.RequestStatus, by string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.requestIndex(id)
	if i < 0 {
		return fmt.Errorf("deletion request %s: %w", id, ports.ErrNotFound)
	}
	r := s.requests[i]
	if r.Status != core.RequestPending {
		return fmt.Errorf("deletion request %s is %s: %w", id, r.Status, ports.ErrConflict)
	}
	r.Status = status
	r.ApprovedBy, r.ApprovedAt = "", time.Time{}
	if status == core.RequestApproved {
		r.ApprovedBy, r.ApprovedAt = by, at
	}
	s.requests[i] = r
	return nil
}

func (s *Store) CountPending(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.requests {
		if r.Status == core.RequestPending {
			n++
		}
	}
	return n, nil
}

func (s *Store) GetUser(_ context.Context, id string) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return core.User{}, fmt.Errorf("user %s: %w", id, ports.ErrNotFound)
	}
	return u, nil
}

func (s *Store) SaveUser(_ context.Context, u core.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
	return nil
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return dedupe(out)
}

// dedupe drops repeated lines, keeping the first occurrence in input order.
func dedupe(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
