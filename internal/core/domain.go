package core

import (
	"errors"
	"strings"
	"time"
	"unicode"
)

const (
	RoleAdmin    Role = "admin"
	RoleEngineer Role = "engineer"
	RoleUser     Role = "user"
)

const (
	RequestPending  RequestStatus = "Pending"
	RequestApproved RequestStatus = "Approved"
	RequestRejected RequestStatus = "Rejected"
)

type (
	Role string

	RequestStatus string

	Money struct {
		Cents int64
	}

	// Member is a socio titular with its lot assignment and review flags.
	Member struct {
		ID                string
		DNI               string
		FirstNames        string
		PaternalSurname   string
		MaternalSurname   string
		BirthDate         string // YYYY-MM-DD, optional
		Age               int
		Phone             string
		EconomicSituation string

		DNIAddress  string
		DNIRegion   string
		DNIProvince string
		DNIDistrict string

		Locality     string
		HomeAddress  string
		HomeRegion   string
		HomeProvince string
		HomeDistrict string

		Block string // Mz
		Lot   string

		IsObserved               bool
		Observation              string
		IsPaymentObserved        bool
		PaymentObservationDetail string
		IsLotMeasured            bool

		CreatedAt time.Time
	}

	IncomeRecord struct {
		ID            int64
		DNI           string
		Amount        Money // signed, refunds are negative
		ReceiptNumber string
		CreatedAt     time.Time
	}

	Document struct {
		ID       string
		MemberID string
		Type     DocumentType
		Link     string
	}

	DeletionRequest struct {
		ID           string
		DocumentID   string
		MemberID     string
		RequestedBy  string
		DocumentType DocumentType
		DocumentLink string
		Status       RequestStatus
		ApprovedBy   string
		ApprovedAt   time.Time
		CreatedAt    time.Time
	}

	// DeletionRequestView joins a request with the member and requester it refers to.
	DeletionRequestView struct {
		DeletionRequest
		MemberDNI        string
		MemberName       string
		RequestedByEmail string
	}

	User struct {
		ID    string
		Email string
		Roles []Role
	}
)

var (
	ErrInvalidDNI       = errors.New("invalid DNI: must be 8 digits")
	ErrEmptyNames       = errors.New("empty first names")
	ErrEmptySurname     = errors.New("empty paternal surname")
	ErrInvalidAge       = errors.New("invalid age")
	ErrInvalidBirthDate = errors.New("invalid birth date")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyLink        = errors.New("empty document link")
	ErrMissingMember    = errors.New("missing member")
	ErrUnknownDocType   = errors.New("unknown document type")
	ErrFieldTooLong     = errors.New("field too long")
	ErrReceiptTooLong   = errors.New("receipt number too long (max 50 characters)")
)

// FullName is "names paternal maternal" with surrounding blanks removed.
func (m Member) FullName() string {
	return strings.TrimSpace(m.FirstNames + " " + m.PaternalSurname + " " + m.MaternalSurname)
}

// Surnames is "paternal maternal".
func (m Member) Surnames() string {
	return strings.TrimSpace(m.PaternalSurname + " " + m.MaternalSurname)
}

// LotLabel renders the block/lot pair as shown in dialogs ("B-10").
func (m Member) LotLabel() string {
	mz, lote := m.Block, m.Lot
	if mz == "" {
		mz = "N/A"
	}
	if lote == "" {
		lote = "N/A"
	}
	return mz + "-" + lote
}

func (m Member) Validate() error {
	if !isDNI(m.DNI) {
		return ErrInvalidDNI
	}
	if strings.TrimSpace(m.FirstNames) == "" {
		return ErrEmptyNames
	}
	if strings.TrimSpace(m.PaternalSurname) == "" {
		return ErrEmptySurname
	}
	if m.Age < 0 || m.Age > 130 {
		return ErrInvalidAge
	}
	if m.BirthDate != "" {
		if _, err := time.Parse("2006-01-02", m.BirthDate); err != nil {
			return ErrInvalidBirthDate
		}
	}
	for _, v := range []string{
		m.FirstNames, m.PaternalSurname, m.MaternalSurname, m.Phone, m.Locality,
		m.Block, m.Lot, m.DNIAddress, m.HomeAddress, m.Observation, m.PaymentObservationDetail,
	} {
		if len(v) > 200 {
			return ErrFieldTooLong
		}
	}
	return nil
}

func (r IncomeRecord) Validate() error {
	if !isDNI(r.DNI) {
		return ErrInvalidDNI
	}
	if r.Amount.Cents == 0 {
		return ErrInvalidAmount
	}
	if len(r.ReceiptNumber) > 50 {
		return ErrReceiptTooLong
	}
	return nil
}

func (d Document) Validate() error {
	if strings.TrimSpace(d.MemberID) == "" {
		return ErrMissingMember
	}
	if !d.Type.IsValid() {
		return ErrUnknownDocType
	}
	if strings.TrimSpace(d.Link) == "" {
		return ErrEmptyLink
	}
	if len(d.Link) > 2048 {
		return ErrFieldTooLong
	}
	return nil
}

func (s RequestStatus) IsValid() bool {
	switch s {
	case RequestPending, RequestApproved, RequestRejected:
		return true
	default:
		return false
	}
}

// HasRole reports whether the user holds role.
func (u User) HasRole(role Role) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// ParseRoles splits a comma separated role list, dropping blanks and duplicates.
func ParseRoles(s string) []Role {
	var out []Role
	seen := map[Role]struct{}{}
	for _, part := range strings.Split(s, ",") {
		r := Role(strings.ToLower(strings.TrimSpace(part)))
		if r == "" {
			continue
		}
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out
}

// FormatRoles is the inverse of ParseRoles.
func FormatRoles(roles []Role) string {
	parts := make([]string, len(roles))
	for i, r := range roles {
		parts[i] = string(r)
	}
	return strings.Join(parts, ",")
}

func isDNI(s string) bool {
	if len(s) != 8 {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
