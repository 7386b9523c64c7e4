package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"socios/internal/amqp"
	"socios/internal/cache"
	"socios/internal/core"
	"socios/internal/metrics"
	"socios/internal/ports"

	"golang.org/x/sync/errgroup"
)

const rosterKey = "roster"

// Roster is the enriched member list plus the income load error, if any.
// Entries are shared with the cache and must be treated as read-only.
type Roster struct {
	Entries []core.RosterEntry
	Total   int
	// IncomeErr is set when incomes could not be loaded; entries then carry
	// no income data.
	IncomeErr error
}

// MemberDocuments is one row of the documents page.
type MemberDocuments struct {
	Entry     core.RosterEntry
	Documents []core.Document
	// Pending holds the ids of documents with a pending deletion request.
	Pending map[string]bool
}

// MemberService orchestrates roster reads and member writes.
type MemberService struct {
	store  ports.Store
	events EventPublisher
	roster *cache.LRUCache[Roster]
}

func NewMemberService(store ports.Store, events EventPublisher, rosterTTL time.Duration) *MemberService {
	return &MemberService{
		store:  store,
		events: events,
		roster: cache.NewLRUCache[Roster](1, rosterTTL),
	}
}

// RosterCache exposes the cache so the server can register it for cleanup.
func (s *MemberService) RosterCache() *cache.LRUCache[Roster] {
	return s.roster
}

// Invalidate drops the cached roster.
func (s *MemberService) Invalidate() {
	s.roster.Purge()
}

// Roster loads members and incomes concurrently and enriches them. A failed
// income load degrades to members without income data.
func (s *MemberService) Roster(ctx context.Context) (Roster, error) {
	if r, ok := s.roster.Get(rosterKey); ok {
		metrics.RosterLoads.WithLabelValues("cache_hit").Inc()
		return r, nil
	}

	var (
		members   []core.Member
		incomes   []core.IncomeRecord
		incomeErr error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		members, err = s.store.ListMembers(gctx)
		if err != nil {
			return fmt.Errorf("load members: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		incomes, incomeErr = s.store.ListIncomes(gctx)
		return nil
	})
	if err := g.Wait(); err != nil {
		return Roster{}, err
	}

	if incomeErr != nil {
		slog.ErrorContext(ctx, "Failed to load incomes, showing members without income data",
			"component", "members",
			"error", incomeErr)
		metrics.RosterLoads.WithLabelValues("degraded").Inc()
		entries := core.Enrich(members, nil)
		return Roster{Entries: entries, Total: len(entries), IncomeErr: incomeErr}, nil
	}

	entries := core.Enrich(members, core.AggregateIncome(incomes))
	r := Roster{Entries: entries, Total: len(entries)}
	s.roster.Set(rosterKey, r)
	metrics.RosterLoads.WithLabelValues("loaded").Inc()
	return r, nil
}

// List applies the filter to the roster. Total keeps the unfiltered count.
func (s *MemberService) List(ctx context.Context, f core.RosterFilter) (Roster, error) {
	r, err := s.Roster(ctx)
	if err != nil {
		return Roster{}, err
	}
	r.Entries = f.Apply(r.Entries)
	return r, nil
}

func (s *MemberService) Localities(ctx context.Context) ([]string, error) {
	r, err := s.Roster(ctx)
	if err != nil {
		return nil, err
	}
	return core.Localities(r.Entries), nil
}

func (s *MemberService) Get(ctx context.Context, id string) (core.RosterEntry, error) {
	r, err := s.Roster(ctx)
	if err != nil {
		return core.RosterEntry{}, err
	}
	for _, e := range r.Entries {
		if e.ID == id {
			return e, nil
		}
	}
	return core.RosterEntry{}, fmt.Errorf("member %s: %w", id, ErrNotFound)
}

func (s *MemberService) Create(ctx context.Context, actor core.Actor, m core.Member) (core.Member, error) {
	if !actor.IsAdmin() {
		return core.Member{}, ErrForbidden
	}
	normalizeMember(&m)
	if err := m.Validate(); err != nil {
		return core.Member{}, invalid(err)
	}
	created, err := s.store.CreateMember(ctx, m)
	if err != nil {
		return core.Member{}, duplicate(err, m.DNI)
	}
	s.changed(ctx, amqp.NewRosterEvent(amqp.MemberChanged, created.ID).WithActor(actor.ID))
	return created, nil
}

func (s *MemberService) Update(ctx context.Context, actor core.Actor, m core.Member) error {
	if !actor.IsAdmin() {
		return ErrForbidden
	}
	normalizeMember(&m)
	if err := m.Validate(); err != nil {
		return invalid(err)
	}
	if err := s.store.UpdateMember(ctx, m); err != nil {
		return duplicate(err, m.DNI)
	}
	s.changed(ctx, amqp.NewRosterEvent(amqp.MemberChanged, m.ID).WithActor(actor.ID))
	return nil
}

// UpdateStatus changes only the review flags of a member.
func (s *MemberService) UpdateStatus(ctx context.Context, actor core.Actor, id string, st core.MemberFlags) error {
	if !actor.CanEditStatus() {
		return ErrForbidden
	}
	m, err := s.store.GetMember(ctx, id)
	if err != nil {
		return err
	}
	st.Apply(&m)
	normalizeMember(&m)
	if err := m.Validate(); err != nil {
		return invalid(err)
	}
	if err := s.store.UpdateMember(ctx, m); err != nil {
		return err
	}
	s.changed(ctx, amqp.NewRosterEvent(amqp.MemberChanged, id).WithActor(actor.ID))
	return nil
}

func (s *MemberService) Delete(ctx context.Context, actor core.Actor, id string) error {
	if !actor.IsAdmin() {
		return ErrForbidden
	}
	if err := s.store.DeleteMember(ctx, id); err != nil {
		return err
	}
	s.changed(ctx, amqp.NewRosterEvent(amqp.MemberDeleted, id).WithActor(actor.ID))
	return nil
}

// SetLotMeasured toggles the flag of a single member.
func (s *MemberService) SetLotMeasured(ctx context.Context, actor core.Actor, id string, measured bool) error {
	if !actor.CanEditStatus() {
		return ErrForbidden
	}
	n, err := s.store.SetLotMeasured(ctx, []string{id}, measured)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("member %s: %w", id, ErrNotFound)
	}
	s.changed(ctx, amqp.NewRosterEvent(amqp.MemberChanged, id).WithActor(actor.ID))
	return nil
}

// MarkLotsMeasured is the batch measurement tool. It returns how many members changed.
func (s *MemberService) MarkLotsMeasured(ctx context.Context, actor core.Actor, ids []string, measured bool) (int, error) {
	if !actor.CanBatchMeasure() {
		return 0, ErrForbidden
	}
	ids = uniqueNonEmpty(ids)
	if len(ids) == 0 {
		return 0, invalid(errors.New("no members selected"))
	}
	n, err := s.store.SetLotMeasured(ctx, ids, measured)
	if err != nil {
		return 0, err
	}
	s.changed(ctx, amqp.NewRosterEvent(amqp.MemberChanged, "").WithActor(actor.ID))
	return n, nil
}

// RecordIncome stores an income or, with a negative amount, a refund.
func (s *MemberService) RecordIncome(ctx context.Context, actor core.Actor, r core.IncomeRecord) (core.IncomeRecord, error) {
	if !actor.IsAdmin() {
		return core.IncomeRecord{}, ErrForbidden
	}
	r.DNI = strings.TrimSpace(r.DNI)
	r.ReceiptNumber = strings.TrimSpace(r.ReceiptNumber)
	if err := r.Validate(); err != nil {
		return core.IncomeRecord{}, invalid(err)
	}
	created, err := s.store.CreateIncome(ctx, r)
	if err != nil {
		return core.IncomeRecord{}, err
	}
	s.changed(ctx, amqp.NewRosterEvent(amqp.IncomeRecorded, "").WithActor(actor.ID))
	return created, nil
}

// DocumentsOverview lists members matching search with their documents.
func (s *MemberService) DocumentsOverview(ctx context.Context, search string) ([]MemberDocuments, error) {
	r, err := s.Roster(ctx)
	if err != nil {
		return nil, err
	}

	var (
		docs    []core.Document
		pending []core.DeletionRequestView
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		docs, err = s.store.ListDocuments(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		pending, err = s.store.ListDeletionRequests(gctx, core.RequestPending)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load documents: %w", err)
	}

	byMember := make(map[string][]core.Document)
	for _, d := range docs {
		byMember[d.MemberID] = append(byMember[d.MemberID], d)
	}
	pendingDocs := make(map[string]bool, len(pending))
	for _, p := range pending {
		pendingDocs[p.DocumentID] = true
	}

	var out []MemberDocuments
	for _, e := range r.Entries {
		if !core.MatchesSearch(e, search) {
			continue
		}
		row := MemberDocuments{Entry: e, Documents: byMember[e.ID], Pending: map[string]bool{}}
		for _, d := range row.Documents {
			if pendingDocs[d.ID] {
				row.Pending[d.ID] = true
			}
		}
		out = append(out, row)
	}
	return out, nil
}

// AddDocument attaches a document link to a member.
func (s *MemberService) AddDocument(ctx context.Context, actor core.Actor, d core.Document) (core.Document, error) {
	if !actor.CanEditStatus() {
		return core.Document{}, ErrForbidden
	}
	d.Link = strings.TrimSpace(d.Link)
	if err := d.Validate(); err != nil {
		return core.Document{}, invalid(err)
	}
	if _, err := s.store.GetMember(ctx, d.MemberID); err != nil {
		return core.Document{}, err
	}
	created, err := s.store.CreateDocument(ctx, d)
	if err != nil {
		return core.Document{}, err
	}
	publish(ctx, s.events, amqp.NewRosterEvent(amqp.DocumentAdded, d.MemberID).WithDocument(created.ID).WithActor(actor.ID))
	return created, nil
}

func (s *MemberService) changed(ctx context.Context, ev *amqp.RosterEvent) {
	s.Invalidate()
	publish(ctx, s.events, ev)
}

func duplicate(err error, dni string) error {
	if errors.Is(err, ports.ErrConflict) {
		return fmt.Errorf("%w: DNI %s", ErrDuplicate, dni)
	}
	return err
}

func normalizeMember(m *core.Member) {
	for _, p := range []*string{
		&m.DNI, &m.FirstNames, &m.PaternalSurname, &m.MaternalSurname, &m.Phone,
		&m.Locality, &m.Block, &m.Lot, &m.Observation, &m.PaymentObservationDetail,
	} {
		*p = strings.TrimSpace(*p)
	}
	if !m.IsObserved {
		m.Observation = ""
	}
	if !m.IsPaymentObserved {
		m.PaymentObservationDetail = ""
	}
}

func uniqueNonEmpty(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	var out []string
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
