package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"socios/internal/core"
	"socios/internal/ports"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// timeLayout keeps stored timestamps lexically sortable.
const timeLayout = "2006-01-02 15:04:05.000000000"

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	now     func() time.Time
}

var _ ports.Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		now:     time.Now,
	}, nil
}

// dsn enables foreign keys so deleting a member cascades to its documents.
func dsn(path string) string {
	return path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) withTx(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(r.queries.WithTx(tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Members

func (r *SQLiteRepository) ListMembers(ctx context.Context) ([]core.Member, error) {
	rows, err := r.queries.ListMembers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	members := make([]core.Member, len(rows))
	for i, row := range rows {
		members[i] = memberFromRow(row)
	}
	return members, nil
}

func (r *SQLiteRepository) GetMember(ctx context.Context, id string) (core.Member, error) {
	row, err := r.queries.GetMember(ctx, id)
	if err != nil {
		return core.Member{}, fmt.Errorf("get member %s: %w", id, mapErr(err))
	}
	return memberFromRow(row), nil
}

func (r *SQLiteRepository) CreateMember(ctx context.Context, m core.Member) (core.Member, error) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = r.now()
	}
	if err := r.queries.CreateMember(ctx, memberToRow(m)); err != nil {
		return core.Member{}, fmt.Errorf("create member: %w", mapErr(err))
	}

	slog.InfoContext(ctx, "Member saved to SQLite", "id", m.ID, "dni", m.DNI)
	return m, nil
}

func (r *SQLiteRepository) UpdateMember(ctx context.Context, m core.Member) error {
	n, err := r.queries.UpdateMember(ctx, memberToRow(m))
	if err != nil {
		return fmt.Errorf("update member %s: %w", m.ID, mapErr(err))
	}
	if n == 0 {
		return fmt.Errorf("update member %s: %w", m.ID, ports.ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) DeleteMember(ctx context.Context, id string) error {
	err := r.withTx(ctx, func(q *Queries) error {
		if err := q.DeleteDocumentsByMember(ctx, id); err != nil {
			return fmt.Errorf("delete documents of member %s: %w", id, err)
		}
		n, err := q.DeleteMember(ctx, id)
		if err != nil {
			return fmt.Errorf("delete member %s: %w", id, err)
		}
		if n == 0 {
			return fmt.Errorf("delete member %s: %w", id, ports.ErrNotFound)
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Member deleted from SQLite", "id", id)
	return nil
}

func (r *SQLiteRepository) SetLotMeasured(ctx context.Context, ids []string, measured bool) (int, error) {
	var changed int
	err := r.withTx(ctx, func(q *Queries) error {
		for _, id := range ids {
			n, err := q.SetLotMeasured(ctx, SetLotMeasuredParams{IsLotMeasured: measured, ID: id})
			if err != nil {
				return fmt.Errorf("set lot measured for %s: %w", id, err)
			}
			changed += int(n)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return changed, nil
}

// Incomes

func (r *SQLiteRepository) ListIncomes(ctx context.Context) ([]core.IncomeRecord, error) {
	rows, err := r.queries.ListIncomes(ctx)
	if err != nil {
		return nil, fmt.Errorf("list incomes: %w", err)
	}
	records := make([]core.IncomeRecord, len(rows))
	for i, row := range rows {
		records[i] = incomeFromRow(row)
	}
	return records, nil
}

func (r *SQLiteRepository) CreateIncome(ctx context.Context, rec core.IncomeRecord) (core.IncomeRecord, error) {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = r.now()
	}
	row, err := r.queries.CreateIncome(ctx, CreateIncomeParams{
		Dni:           rec.DNI,
		AmountCents:   rec.Amount.Cents,
		ReceiptNumber: rec.ReceiptNumber,
		CreatedAt:     formatTime(rec.CreatedAt),
	})
	if err != nil {
		return core.IncomeRecord{}, fmt.Errorf("create income: %w", mapErr(err))
	}

	slog.InfoContext(ctx, "Income saved to SQLite",
		"id", row.ID,
		"dni", row.Dni,
		"amount_cents", row.AmountCents)

	return incomeFromRow(row), nil
}

// Documents

func (r *SQLiteRepository) ListDocuments(ctx context.Context) ([]core.Document, error) {
	rows, err := r.queries.ListDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	docs := make([]core.Document, len(rows))
	for i, row := range rows {
		docs[i] = documentFromRow(row)
	}
	return docs, nil
}

func (r *SQLiteRepository) GetDocument(ctx context.Context, id string) (core.Document, error) {
	row, err := r.queries.GetDocument(ctx, id)
	if err != nil {
		return core.Document{}, fmt.Errorf("get document %s: %w", id, mapErr(err))
	}
	return documentFromRow(row), nil
}

func (r *SQLiteRepository) CreateDocument(ctx context.Context, d core.Document) (core.Document, error) {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	err := r.queries.CreateDocument(ctx, Document{
		ID:           d.ID,
		MemberID:     d.MemberID,
		DocumentType: string(d.Type),
		Link:         d.Link,
		CreatedAt:    formatTime(r.now()),
	})
	if err != nil {
		return core.Document{}, fmt.Errorf("create document: %w", mapErr(err))
	}
	return d, nil
}

func (r *SQLiteRepository) DeleteDocument(ctx context.Context, id string) error {
	n, err := r.queries.DeleteDocument(ctx, id)
	if err != nil {
		return fmt.Errorf("delete document %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("delete document %s: %w", id, ports.ErrNotFound)
	}

	slog.InfoContext(ctx, "Document deleted from SQLite", "id", id)
	return nil
}

// Deletion requests

func (r *SQLiteRepository) CreateDeletionRequest(ctx context.Context, req core.DeletionRequest) (core.DeletionRequest, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = r.now()
	}
	req.Status = core.RequestPending
	err := r.queries.CreateDeletionRequest(ctx, DeletionRequest{
		ID:           req.ID,
		DocumentID:   req.DocumentID,
		MemberID:     req.MemberID,
		RequestedBy:  req.RequestedBy,
		DocumentType: string(req.DocumentType),
		DocumentLink: req.DocumentLink,
		CreatedAt:    formatTime(req.CreatedAt),
	})
	if err != nil {
		return core.DeletionRequest{}, fmt.Errorf("create deletion request: %w", mapErr(err))
	}
	return req, nil
}

func (r *SQLiteRepository) GetDeletionRequest(ctx context.Context, id string) (core.DeletionRequest, error) {
	row, err := r.queries.GetDeletionRequest(ctx, id)
	if err != nil {
		return core.DeletionRequest{}, fmt.Errorf("get deletion request %s: %w", id, mapErr(err))
	}
	return deletionRequestFromRow(row), nil
}

func (r *SQLiteRepository) PendingRequestForDocument(ctx context.Context, documentID string) (core.DeletionRequest, bool, error) {
	row, err := r.queries.GetPendingRequestForDocument(ctx, documentID)
	if errors.Is(err, sql.ErrNoRows) {
		return core.DeletionRequest{}, false, nil
	}
	if err != nil {
		return core.DeletionRequest{}, false, fmt.Errorf("get pending request for document %s: %w", documentID, err)
	}
	return deletionRequestFromRow(row), true, nil
}

func (r *SQLiteRepository) ListDeletionRequests(ctx context.Context, status core.RequestStatus) ([]core.DeletionRequestView, error) {
	rows, err := r.queries.ListDeletionRequests(ctx, string(status))
	if err != nil {
		return nil, fmt.Errorf("list deletion requests: %w", err)
	}
	views := make([]core.DeletionRequestView, len(rows))
	for i, row := range rows {
		views[i] = core.DeletionRequestView{
			DeletionRequest:  deletionRequestFromRow(row.DeletionRequest),
			MemberDNI:        row.MemberDni.String,
			MemberName:       row.MemberName.String,
			RequestedByEmail: row.RequestedByEmail.String,
		}
	}
	return views, nil
}

func (r *SQLiteRepository) ResolveDeletionRequest(ctx context.Context, id string, status core.RequestStatus, by string, at time.Time) error {
	arg := ResolveDeletionRequestParams{Status: string(status), ID: id}
	if status == core.RequestApproved {
		arg.ApprovedBy = sql.NullString{String: by, Valid: by != ""}
		arg.ApprovedAt = sql.NullString{String: formatTime(at), Valid: !at.IsZero()}
	}
	n, err := r.queries.ResolveDeletionRequest(ctx, arg)
	if err != nil {
		return fmt.Errorf("resolve deletion request %s: %w", id, err)
	}
	if n == 0 {
		if _, err := r.queries.GetDeletionRequest(ctx, id); errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("resolve deletion request %s: %w", id, ports.ErrNotFound)
		}
		return fmt.Errorf("resolve deletion request %s: %w", id, ports.ErrConflict)
	}

	slog.InfoContext(ctx, "Deletion request resolved", "id", id, "status", status)
	return nil
}

func (r *SQLiteRepository) CountPending(ctx context.Context) (int, error) {
	n, err := r.queries.CountPendingRequests(ctx)
	if err != nil {
		return 0, fmt.Errorf("count pending requests: %w", err)
	}
	return int(n), nil
}

// Users

func (r *SQLiteRepository) GetUser(ctx context.Context, id string) (core.User, error) {
	row, err := r.queries.GetUser(ctx, id)
	if err != nil {
		return core.User{}, fmt.Errorf("get user %s: %w", id, mapErr(err))
	}
	return core.User{ID: row.ID, Email: row.Email, Roles: core.ParseRoles(row.Roles)}, nil
}

func (r *SQLiteRepository) SaveUser(ctx context.Context, u core.User) error {
	err := r.queries.UpsertUser(ctx, User{
		ID:        u.ID,
		Email:     u.Email,
		Roles:     core.FormatRoles(u.Roles),
		CreatedAt: formatTime(r.now()),
	})
	if err != nil {
		return fmt.Errorf("save user %s: %w", u.ID, mapErr(err))
	}
	return nil
}

// mapErr translates driver errors into the port sentinels.
func mapErr(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ports.ErrNotFound
	}
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return fmt.Errorf("%w: %v", ports.ErrConflict, err)
	}
	return err
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func memberFromRow(row Member) core.Member {
	return core.Member{
		ID:                       row.ID,
		DNI:                      row.Dni,
		FirstNames:               row.FirstNames,
		PaternalSurname:          row.PaternalSurname,
		MaternalSurname:          row.MaternalSurname,
		BirthDate:                row.BirthDate,
		Age:                      int(row.Age),
		Phone:                    row.Phone,
		EconomicSituation:        row.EconomicSituation,
		DNIAddress:               row.DniAddress,
		DNIRegion:                row.DniRegion,
		DNIProvince:              row.DniProvince,
		DNIDistrict:              row.DniDistrict,
		Locality:                 row.Locality,
		HomeAddress:              row.HomeAddress,
		HomeRegion:               row.HomeRegion,
		HomeProvince:             row.HomeProvince,
		HomeDistrict:             row.HomeDistrict,
		Block:                    row.Block,
		Lot:                      row.Lot,
		IsObserved:               row.IsObserved,
		Observation:              row.Observation,
		IsPaymentObserved:        row.IsPaymentObserved,
		PaymentObservationDetail: row.PaymentObservationDetail,
		IsLotMeasured:            row.IsLotMeasured,
		CreatedAt:                parseTime(row.CreatedAt),
	}
}

func memberToRow(m core.Member) Member {
	return Member{
		ID:                       m.ID,
		Dni:                      m.DNI,
		FirstNames:               m.FirstNames,
		PaternalSurname:          m.PaternalSurname,
		MaternalSurname:          m.MaternalSurname,
		BirthDate:                m.BirthDate,
		Age:                      int64(m.Age),
		Phone:                    m.Phone,
		EconomicSituation:        m.EconomicSituation,
		DniAddress:               m.DNIAddress,
		DniRegion:                m.DNIRegion,
		DniProvince:              m.DNIProvince,
		DniDistrict:              m.DNIDistrict,
		Locality:                 m.Locality,
		HomeAddress:              m.HomeAddress,
		HomeRegion:               m.HomeRegion,
		HomeProvince:             m.HomeProvince,
		HomeDistrict:             m.HomeDistrict,
		Block:                    m.Block,
		Lot:                      m.Lot,
		IsObserved:               m.IsObserved,
		Observation:              m.Observation,
		IsPaymentObserved:        m.IsPaymentObserved,
		PaymentObservationDetail: m.PaymentObservationDetail,
		IsLotMeasured:            m.IsLotMeasured,
		CreatedAt:                formatTime(m.CreatedAt),
	}
}

func incomeFromRow(row Income) core.IncomeRecord {
	return core.IncomeRecord{
		ID:            row.ID,
		DNI:           row.Dni,
		Amount:        core.Money{Cents: row.AmountCents},
		ReceiptNumber: row.ReceiptNumber,
		CreatedAt:     parseTime(row.CreatedAt),
	}
}

func documentFromRow(row Document) core.Document {
	return core.Document{
		ID:       row.ID,
		MemberID: row.MemberID,
		Type:     core.DocumentType(row.DocumentType),
		Link:     row.Link,
	}
}

func deletionRequestFromRow(row DeletionRequest) core.DeletionRequest {
	return core.DeletionRequest{
		ID:           row.ID,
		DocumentID:   row.DocumentID,
		MemberID:     row.MemberID,
		RequestedBy:  row.RequestedBy,
		DocumentType: core.DocumentType(row.DocumentType),
		DocumentLink: row.DocumentLink,
		Status:       core.RequestStatus(row.Status),
		ApprovedBy:   row.ApprovedBy.String,
		ApprovedAt:   parseTime(row.ApprovedAt.String),
		CreatedAt:    parseTime(row.CreatedAt),
	}
}
