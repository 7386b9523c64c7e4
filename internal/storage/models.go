package storage

import "database/sql"

type User struct {
	ID        string
	Email     string
	Roles     string
	CreatedAt string
}

type Member struct {
	ID                       string
	Dni                      string
	FirstNames               string
	PaternalSurname          string
	MaternalSurname          string
	BirthDate                string
	Age                      int64
	Phone                    string
	EconomicSituation        string
	DniAddress               string
	DniRegion                string
	DniProvince              string
	DniDistrict              string
	Locality                 string
	HomeAddress              string
	HomeRegion               string
	HomeProvince             string
	HomeDistrict             string
	Block                    string
	Lot                      string
	IsObserved               bool
	Observation              string
	IsPaymentObserved        bool
	PaymentObservationDetail string
	IsLotMeasured            bool
	CreatedAt                string
}

type Income struct {
	ID            int64
	Dni           string
	AmountCents   int64
	ReceiptNumber string
	CreatedAt     string
}

type Document struct {
	ID           string
	MemberID     string
	DocumentType string
	Link         string
	CreatedAt    string
}

type DeletionRequest struct {
	ID           string
	DocumentID   string
	MemberID     string
	RequestedBy  string
	DocumentType string
	DocumentLink string
	Status       string
	ApprovedBy   sql.NullString
	ApprovedAt   sql.NullString
	CreatedAt    string
}

type DeletionRequestRow struct {
	DeletionRequest
	MemberDni        sql.NullString
	MemberName       sql.NullString
	RequestedByEmail sql.NullString
}
