package storage

import (
	"context"
	"database/sql"
)

const memberColumns = `id, dni, first_names, paternal_surname, maternal_surname, birth_date, age, phone,
    economic_situation, dni_address, dni_region, dni_province, dni_district, locality,
    home_address, home_region, home_province, home_district, block, lot,
    is_observed, observation, is_payment_observed, payment_observation_detail, is_lot_measured, created_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMember(row rowScanner) (Member, error) {
	var i Member
	err := row.Scan(
		&i.ID,
		&i.Dni,
		&i.FirstNames,
		&i.PaternalSurname,
		&i.MaternalSurname,
		&i.BirthDate,
		&i.Age,
		&i.Phone,
		&i.EconomicSituation,
		&i.DniAddress,
		&i.DniRegion,
		&i.DniProvince,
		&i.DniDistrict,
		&i.Locality,
		&i.HomeAddress,
		&i.HomeRegion,
		&i.HomeProvince,
		&i.HomeDistrict,
		&i.Block,
		&i.Lot,
		&i.IsObserved,
		&i.Observation,
		&i.IsPaymentObserved,
		&i.PaymentObservationDetail,
		&i.IsLotMeasured,
		&i.CreatedAt,
	)
	return i, err
}

const listMembers = `-- name: ListMembers :many
SELECT ` + memberColumns + `
FROM members
ORDER BY paternal_surname, maternal_surname, first_names, id
`

func (q *Queries) ListMembers(ctx context.Context) ([]Member, error) {
	rows, err := q.db.QueryContext(ctx, listMembers)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Member
	for rows.Next() {
		i, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getMember = `-- name: GetMember :one
SELECT ` + memberColumns + `
FROM members
WHERE id = ?
`

func (q *Queries) GetMember(ctx context.Context, id string) (Member, error) {
	return scanMember(q.db.QueryRowContext(ctx, getMember, id))
}

const createMember = `-- name: CreateMember :exec
INSERT INTO members (` + memberColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

func (q *Queries) CreateMember(ctx context.Context, arg Member) error {
	_, err := q.db.ExecContext(ctx, createMember,
		arg.ID,
		arg.Dni,
		arg.FirstNames,
		arg.PaternalSurname,
		arg.MaternalSurname,
		arg.BirthDate,
		arg.Age,
		arg.Phone,
		arg.EconomicSituation,
		arg.DniAddress,
		arg.DniRegion,
		arg.DniProvince,
		arg.DniDistrict,
		arg.Locality,
		arg.HomeAddress,
		arg.HomeRegion,
		arg.HomeProvince,
		arg.HomeDistrict,
		arg.Block,
		arg.Lot,
		arg.IsObserved,
		arg.Observation,
		arg.IsPaymentObserved,
		arg.PaymentObservationDetail,
		arg.IsLotMeasured,
		arg.CreatedAt,
	)
	return err
}

const updateMember = `-- name: UpdateMember :execrows
UPDATE members SET
    dni = ?, first_names = ?, paternal_surname = ?, maternal_surname = ?, birth_date = ?, age = ?,
    phone = ?, economic_situation = ?, dni_address = ?, dni_region = ?, dni_province = ?,
    dni_district = ?, locality = ?, home_address = ?, home_region = ?, home_province = ?,
    home_district = ?, block = ?, lot = ?, is_observed = ?, observation = ?,
    is_payment_observed = ?, payment_observation_detail = ?, is_lot_measured = ?
WHERE id = ?
`

func (q *Queries) UpdateMember(ctx context.Context, arg Member) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateMember,
		arg.Dni,
		arg.FirstNames,
		arg.PaternalSurname,
		arg.MaternalSurname,
		arg.BirthDate,
		arg.Age,
		arg.Phone,
		arg.EconomicSituation,
		arg.DniAddress,
		arg.DniRegion,
		arg.DniProvince,
		arg.DniDistrict,
		arg.Locality,
		arg.HomeAddress,
		arg.HomeRegion,
		arg.HomeProvince,
		arg.HomeDistrict,
		arg.Block,
		arg.Lot,
		arg.IsObserved,
		arg.Observation,
		arg.IsPaymentObserved,
		arg.PaymentObservationDetail,
		arg.IsLotMeasured,
		arg.ID,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteMember = `-- name: DeleteMember :execrows
DELETE FROM members WHERE id = ?
`

func (q *Queries) DeleteMember(ctx context.Context, id string) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteMember, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteDocumentsByMember = `-- name: DeleteDocumentsByMember :exec
DELETE FROM documents WHERE member_id = ?
`

func (q *Queries) DeleteDocumentsByMember(ctx context.Context, memberID string) error {
	_, err := q.db.ExecContext(ctx, deleteDocumentsByMember, memberID)
	return err
}

const setLotMeasured = `-- name: SetLotMeasured :execrows
UPDATE members SET is_lot_measured = ? WHERE id = ?
`

type SetLotMeasuredParams struct {
	IsLotMeasured bool
	ID            string
}

func (q *Queries) SetLotMeasured(ctx context.Context, arg SetLotMeasuredParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, setLotMeasured, arg.IsLotMeasured, arg.ID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const listIncomes = `-- name: ListIncomes :many
SELECT id, dni, amount_cents, receipt_number, created_at
FROM incomes
ORDER BY created_at, id
`

func (q *Queries) ListIncomes(ctx context.Context) ([]Income, error) {
	rows, err := q.db.QueryContext(ctx, listIncomes)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Income
	for rows.Next() {
		var i Income
		if err := rows.Scan(
			&i.ID,
			&i.Dni,
			&i.AmountCents,
			&i.ReceiptNumber,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createIncome = `-- name: CreateIncome :one
INSERT INTO incomes (dni, amount_cents, receipt_number, created_at)
VALUES (?, ?, ?, ?)
RETURNING id, dni, amount_cents, receipt_number, created_at
`

type CreateIncomeParams struct {
	Dni           string
	AmountCents   int64
	ReceiptNumber string
	CreatedAt     string
}

func (q *Queries) CreateIncome(ctx context.Context, arg CreateIncomeParams) (Income, error) {
	row := q.db.QueryRowContext(ctx, createIncome,
		arg.Dni,
		arg.AmountCents,
		arg.ReceiptNumber,
		arg.CreatedAt,
	)
	var i Income
	err := row.Scan(
		&i.ID,
		&i.Dni,
		&i.AmountCents,
		&i.ReceiptNumber,
		&i.CreatedAt,
	)
	return i, err
}

const listDocuments = `-- name: ListDocuments :many
SELECT id, member_id, document_type, link, created_at
FROM documents
ORDER BY created_at, id
`

func (q *Queries) ListDocuments(ctx context.Context) ([]Document, error) {
	rows, err := q.db.QueryContext(ctx, listDocuments)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Document
	for rows.Next() {
		var i Document
		if err := rows.Scan(
			&i.ID,
			&i.MemberID,
			&i.DocumentType,
			&i.Link,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getDocument = `-- name: GetDocument :one
SELECT id, member_id, document_type, link, created_at
FROM documents
WHERE id = ?
`

func (q *Queries) GetDocument(ctx context.Context, id string) (Document, error) {
	row := q.db.QueryRowContext(ctx, getDocument, id)
	var i Document
	err := row.Scan(
		&i.ID,
		&i.MemberID,
		&i.DocumentType,
		&i.Link,
		&i.CreatedAt,
	)
	return i, err
}

const createDocument = `-- name: CreateDocument :exec
INSERT INTO documents (id, member_id, document_type, link, created_at)
VALUES (?, ?, ?, ?, ?)
`

func (q *Queries) CreateDocument(ctx context.Context, arg Document) error {
	_, err := q.db.ExecContext(ctx, createDocument,
		arg.ID,
		arg.MemberID,
		arg.DocumentType,
		arg.Link,
		arg.CreatedAt,
	)
	return err
}

const deleteDocument = `-- name: DeleteDocument :execrows
DELETE FROM documents WHERE id = ?
`

func (q *Queries) DeleteDocument(ctx context.Context, id string) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteDocument, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deletionRequestColumns = `dr.id, dr.document_id, dr.member_id, dr.requested_by, dr.document_type,
    dr.document_link, dr.status, dr.approved_by, dr.approved_at, dr.created_at`

func scanDeletionRequest(row rowScanner, extra ...interface{}) (DeletionRequest, error) {
	var i DeletionRequest
	dest := []interface{}{
		&i.ID,
		&i.DocumentID,
		&i.MemberID,
		&i.RequestedBy,
		&i.DocumentType,
		&i.DocumentLink,
		&i.Status,
		&i.ApprovedBy,
		&i.ApprovedAt,
		&i.CreatedAt,
	}
	err := row.Scan(append(dest, extra...)...)
	return i, err
}

const createDeletionRequest = `-- name: CreateDeletionRequest :exec
INSERT INTO deletion_requests (id, document_id, member_id, requested_by, document_type, document_link, status, created_at)
VALUES (?, ?, ?, ?, ?, ?, 'Pending', ?)
`

func (q *Queries) CreateDeletionRequest(ctx context.Context, arg DeletionRequest) error {
	_, err := q.db.ExecContext(ctx, createDeletionRequest,
		arg.ID,
		arg.DocumentID,
		arg.MemberID,
		arg.RequestedBy,
		arg.DocumentType,
		arg.DocumentLink,
		arg.CreatedAt,
	)
	return err
}

const getDeletionRequest = `-- name: GetDeletionRequest :one
SELECT ` + deletionRequestColumns + `
FROM deletion_requests dr
WHERE dr.id = ?
`

func (q *Queries) GetDeletionRequest(ctx context.Context, id string) (DeletionRequest, error) {
	return scanDeletionRequest(q.db.QueryRowContext(ctx, getDeletionRequest, id))
}

const getPendingRequestForDocument = `-- name: GetPendingRequestForDocument :one
SELECT ` + deletionRequestColumns + `
FROM deletion_requests dr
WHERE dr.document_id = ? AND dr.status = 'Pending'
LIMIT 1
`

func (q *Queries) GetPendingRequestForDocument(ctx context.Context, documentID string) (DeletionRequest, error) {
	return scanDeletionRequest(q.db.QueryRowContext(ctx, getPendingRequestForDocument, documentID))
}

const listDeletionRequests = `-- name: ListDeletionRequests :many
SELECT ` + deletionRequestColumns + `,
    m.dni, TRIM(m.first_names || ' ' || m.paternal_surname || ' ' || m.maternal_surname), u.email
FROM deletion_requests dr
LEFT JOIN members m ON m.id = dr.member_id
LEFT JOIN users u ON u.id = dr.requested_by
WHERE (? = '' OR dr.status = ?)
ORDER BY dr.created_at DESC, dr.id DESC
`

func (q *Queries) ListDeletionRequests(ctx context.Context, status string) ([]DeletionRequestRow, error) {
	rows, err := q.db.QueryContext(ctx, listDeletionRequests, status, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []DeletionRequestRow
	for rows.Next() {
		var i DeletionRequestRow
		dr, err := scanDeletionRequest(rows, &i.MemberDni, &i.MemberName, &i.RequestedByEmail)
		if err != nil {
			return nil, err
		}
		i.DeletionRequest = dr
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const resolveDeletionRequest = `-- name: ResolveDeletionRequest :execrows
UPDATE deletion_requests
SET status = ?, approved_by = ?, approved_at = ?
WHERE id = ? AND status = 'Pending'
`

type ResolveDeletionRequestParams struct {
	Status     string
	ApprovedBy sql.NullString
	ApprovedAt sql.NullString
	ID         string
}

func (q *Queries) ResolveDeletionRequest(ctx context.Context, arg ResolveDeletionRequestParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, resolveDeletionRequest,
		arg.Status,
		arg.ApprovedBy,
		arg.ApprovedAt,
		arg.ID,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const countPendingRequests = `-- name: CountPendingRequests :one
SELECT COUNT(*) FROM deletion_requests WHERE status = 'Pending'
`

func (q *Queries) CountPendingRequests(ctx context.Context) (int64, error) {
	row := q.db.QueryRowContext(ctx, countPendingRequests)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const getUser = `-- name: GetUser :one
SELECT id, email, roles, created_at FROM users WHERE id = ?
`

func (q *Queries) GetUser(ctx context.Context, id string) (User, error) {
	row := q.db.QueryRowContext(ctx, getUser, id)
	var i User
	err := row.Scan(
		&i.ID,
		&i.Email,
		&i.Roles,
		&i.CreatedAt,
	)
	return i, err
}

const upsertUser = `-- name: UpsertUser :exec
INSERT INTO users (id, email, roles, created_at)
VALUES (?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET email = excluded.email, roles = excluded.roles
`

func (q *Queries) UpsertUser(ctx context.Context, arg User) error {
	_, err := q.db.ExecContext(ctx, upsertUser,
		arg.ID,
		arg.Email,
		arg.Roles,
		arg.CreatedAt,
	)
	return err
}
