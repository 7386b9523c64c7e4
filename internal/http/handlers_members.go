package http

import (
	"context"
	"fmt"
	"net/http"

	"socios/internal/auth"
	"socios/internal/core"
	applog "socios/internal/log"
)

// rosterTable feeds the members_table partial.
type rosterTable struct {
	Actor   core.Actor
	Filter  core.RosterFilter
	Entries []core.RosterEntry
	Total   int
	// IncomeUnavailable is set when incomes failed to load.
	IncomeUnavailable bool
}

func (s *Server) rosterTable(ctx context.Context, filter core.RosterFilter) (rosterTable, error) {
	roster, err := s.members.List(ctx, filter)
	if err != nil {
		return rosterTable{}, err
	}
	return rosterTable{
		Actor:             auth.FromContext(ctx),
		Filter:            filter,
		Entries:           roster.Entries,
		Total:             roster.Total,
		IncomeUnavailable: roster.IncomeErr != nil,
	}, nil
}

// handleMembersTable renders the filtered table for the debounced search box
// and the locality/status selects.
func (s *Server) handleMembersTable(w http.ResponseWriter, r *http.Request) {
	table, err := s.rosterTable(r.Context(), ParseRosterFilter(r.URL.Query()))
	if err != nil {
		s.writeServiceError(w, r, err, applog.ComponentMembers, applog.OpList)
		return
	}
	s.render(w, r, "members_table", table)
}

func (s *Server) handleCreateMember(w http.ResponseWriter, r *http.Request) {
	p, errResp := ParseBody(r)
	if errResp != nil {
		errResp.Write(w)
		return
	}
	m, err := ParseMember(p, s.now())
	if err != nil {
		s.writeServiceError(w, r, err, applog.ComponentMembers, applog.OpCreate)
		return
	}

	actor := auth.FromContext(r.Context())
	created, err := s.members.Create(r.Context(), actor, m)
	if err != nil {
		s.writeServiceError(w, r, err, applog.ComponentMembers, applog.OpCreate)
		return
	}
	s.logMember(r, "Member created", created, applog.OpCreate)

	NewHTMXResponse().
		TriggerRosterChanged().
		TriggerDialogClose().
		TriggerFormReset().
		TriggerSuccessNotification(fmt.Sprintf("Socio %s registrado", created.FullName())).
		Write(w)
}

// handleUpdateMember saves the edit dialog. Review flags are edited from the
// status dialog and are kept as stored.
func (s *Server) handleUpdateMember(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")

	p, errResp := ParseBody(r)
	if errResp != nil {
		errResp.Write(w)
		return
	}
	m, err := ParseMember(p, s.now())
	if err != nil {
		s.writeServiceError(w, r, err, applog.ComponentMembers, applog.OpUpdate)
		return
	}

	current, err := s.members.Get(ctx, id)
	if err != nil {
		s.writeServiceError(w, r, err, applog.ComponentMembers, applog.OpUpdate)
		return
	}
	m.ID = id
	m.CreatedAt = current.CreatedAt
	current.Flags().Apply(&m)

	if err := s.members.Update(ctx, auth.FromContext(ctx), m); err != nil {
		s.writeServiceError(w, r, err, applog.ComponentMembers, applog.OpUpdate)
		return
	}
	s.logMember(r, "Member updated", m, applog.OpUpdate)

	NewHTMXResponse().
		TriggerRosterChanged().
		TriggerDialogClose().
		TriggerSuccessNotification("Datos del socio actualizados").
		Write(w)
}

func (s *Server) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, errResp := ParseBody(r)
	if errResp != nil {
		errResp.Write(w)
		return
	}
	if err := s.members.UpdateStatus(ctx, auth.FromContext(ctx), r.PathValue("id"), ParseFlags(p)); err != nil {
		s.writeServiceError(w, r, err, applog.ComponentMembers, applog.OpUpdate)
		return
	}

	NewHTMXResponse().
		TriggerRosterChanged().
		TriggerDialogClose().
		TriggerSuccessNotification("Estado actualizado").
		Write(w)
}

func (s *Server) handleDeleteMember(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")
	if err := s.members.Delete(ctx, auth.FromContext(ctx), id); err != nil {
		s.writeServiceError(w, r, err, applog.ComponentMembers, applog.OpDelete)
		return
	}
	s.logMember(r, "Member deleted", core.Member{ID: id}, applog.OpDelete)

	NewHTMXResponse().
		TriggerRosterChanged().
		TriggerSuccessNotification("Socio eliminado").
		Write(w)
}

func (s *Server) handleSetLotMeasured(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, errResp := ParseBody(r)
	if errResp != nil {
		errResp.Write(w)
		return
	}
	measured := p.Bool("measured")
	if err := s.members.SetLotMeasured(ctx, auth.FromContext(ctx), r.PathValue("id"), measured); err != nil {
		s.writeServiceError(w, r, err, applog.ComponentMembers, applog.OpUpdate)
		return
	}

	msg := "Lote marcado como no medido"
	if measured {
		msg = "Lote marcado como medido"
	}
	NewHTMXResponse().TriggerRosterChanged().TriggerSuccessNotification(msg).Write(w)
}

// handleBatchLotMeasured is the engineers' batch tool. measured defaults to
// true when the form omits it.
func (s *Server) handleBatchLotMeasured(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, errResp := ParseBody(r)
	if errResp != nil {
		errResp.Write(w)
		return
	}
	measured := p.Get("measured") == "" || p.Bool("measured")

	n, err := s.members.MarkLotsMeasured(ctx, auth.FromContext(ctx), p.Values("ids"), measured)
	if err != nil {
		s.writeServiceError(w, r, err, applog.ComponentMembers, applog.OpUpdate)
		return
	}
	applog.FromContext(ctx).InfoContext(ctx, "Lots marked in batch",
		applog.FieldComponent, applog.ComponentMembers,
		applog.FieldActorID, auth.FromContext(ctx).ID,
		applog.FieldRows, n,
		"measured", measured)

	NewHTMXResponse().
		TriggerRosterChanged().
		TriggerFormReset().
		TriggerSuccessNotification(fmt.Sprintf("%d lotes actualizados", n)).
		Write(w)
}

// handleRecordIncome stores an income or, with a negative amount, a refund.
func (s *Server) handleRecordIncome(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, errResp := ParseBody(r)
	if errResp != nil {
		errResp.Write(w)
		return
	}
	rec, err := ParseIncome(p)
	if err != nil {
		s.writeServiceError(w, r, err, applog.ComponentMembers, applog.OpCreate)
		return
	}

	actor := auth.FromContext(ctx)
	created, err := s.members.RecordIncome(ctx, actor, rec)
	if err != nil {
		s.writeServiceError(w, r, err, applog.ComponentMembers, applog.OpCreate)
		return
	}
	applog.FromContext(ctx).InfoContext(ctx, "Income recorded",
		applog.FieldComponent, applog.ComponentMembers,
		applog.FieldDNI, created.DNI,
		applog.FieldAmountCents, created.Amount.Cents,
		applog.FieldActorID, actor.ID)

	msg := "Ingreso de " + created.Amount.Soles() + " registrado"
	if created.Amount.Cents < 0 {
		msg = "Devolución de " + core.Money{Cents: -created.Amount.Cents}.Soles() + " registrada"
	}
	NewHTMXResponse().
		TriggerRosterChanged().
		TriggerDialogClose().
		TriggerFormReset().
		TriggerSuccessNotification(msg).
		Write(w)
}

func (s *Server) logMember(r *http.Request, msg string, m core.Member, op string) {
	ctx := r.Context()
	actor := auth.FromContext(ctx)
	fields := applog.NewFields().
		WithComponent(applog.ComponentMembers).
		WithOperation(op).
		WithMember(m.ID, m.DNI).
		WithActor(actor.ID, core.FormatRoles(actor.Roles))
	applog.FromContext(ctx).InfoContext(ctx, msg, fields.ToSlice()...)
}
