// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data:
// member, income and document forms, roster filters and export selections.

package http

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"socios/internal/core"
)

// maxBodyBytes bounds every form or JSON body.
const maxBodyBytes = 1 << 20

// RequestBodyParser handles different content types for request body parsing.
// It supports both JSON and form-encoded data, commonly used with HTMX.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]interface{}
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser creates a parser for the given request.
// It reads the body once and stores it for subsequent parsing.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}
	if r.Body != nil {
		p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	}
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	if len(p.body) == 0 {
		p.formData = url.Values{}
		return nil
	}

	// Try JSON first if content looks like JSON
	if p.body[0] == '{' {
		p.jsonData = make(map[string]interface{})
		if err := json.Unmarshal(p.body, &p.jsonData); err != nil {
			p.err = err
			return err
		}
		return nil
	}

	// Fall back to form parsing
	p.formData, p.err = url.ParseQuery(string(p.body))
	return p.err
}

// Get returns a string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return strings.TrimSpace(sanitizeInput(stringValue(val)))
		}
		return ""
	}
	if p.formData != nil {
		return strings.TrimSpace(sanitizeInput(p.formData.Get(key)))
	}
	return ""
}

// Values returns every value of key. JSON arrays and repeated form fields
// are both supported.
func (p *RequestBodyParser) Values(key string) []string {
	var raw []string
	switch {
	case p.jsonData != nil:
		switch v := p.jsonData[key].(type) {
		case []interface{}:
			for _, item := range v {
				raw = append(raw, stringValue(item))
			}
		case nil:
		default:
			raw = append(raw, stringValue(v))
		}
	case p.formData != nil:
		raw = p.formData[key]
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if v = strings.TrimSpace(sanitizeInput(v)); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// Bool reads a checkbox or JSON boolean. Absent keys are false.
func (p *RequestBodyParser) Bool(key string) bool {
	return parseBool(p.Get(key))
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

// stringValue converts an interface{} to string.
func stringValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// parseBool accepts the values browsers and JSON clients send for checkboxes.
func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "on", "yes", "si", "sí":
		return true
	default:
		return false
	}
}

// ParseBody reads and parses the request body, returning an error response
// on failure. Returns a nil builder on success.
func ParseBody(r *http.Request) (*RequestBodyParser, *HTMXResponseBuilder) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		return nil, BadRequestError("Formato de solicitud inválido")
	}
	return p, nil
}

// ParseMember builds a member from the edit dialog fields. Age is derived
// from the birth date when it is left empty.
func ParseMember(p *RequestBodyParser, now time.Time) (core.Member, error) {
	m := core.Member{
		DNI:               p.Get("dni"),
		FirstNames:        p.Get("first_names"),
		PaternalSurname:   p.Get("paternal_surname"),
		MaternalSurname:   p.Get("maternal_surname"),
		BirthDate:         p.Get("birth_date"),
		Phone:             p.Get("phone"),
		EconomicSituation: p.Get("economic_situation"),

		DNIAddress:  p.Get("dni_address"),
		DNIRegion:   p.Get("dni_region"),
		DNIProvince: p.Get("dni_province"),
		DNIDistrict: p.Get("dni_district"),

		Locality:     p.Get("locality"),
		HomeAddress:  p.Get("home_address"),
		HomeRegion:   p.Get("home_region"),
		HomeProvince: p.Get("home_province"),
		HomeDistrict: p.Get("home_district"),

		Block: p.Get("block"),
		Lot:   p.Get("lot"),
	}
	ParseFlags(p).Apply(&m)

	if v := p.Get("age"); v != "" {
		age, err := strconv.Atoi(v)
		if err != nil {
			return core.Member{}, core.ErrInvalidAge
		}
		m.Age = age
	} else if m.BirthDate != "" {
		if born, err := time.Parse("2006-01-02", m.BirthDate); err == nil {
			m.Age = ageAt(born, now)
		}
	}
	return m, nil
}

// ParseFlags reads the review flags of the status dialog.
func ParseFlags(p *RequestBodyParser) core.MemberFlags {
	return core.MemberFlags{
		IsObserved:               p.Bool("is_observed"),
		Observation:              p.Get("observation"),
		IsPaymentObserved:        p.Bool("is_payment_observed"),
		PaymentObservationDetail: p.Get("payment_observation_detail"),
		IsLotMeasured:            p.Bool("is_lot_measured"),
	}
}

// ParseIncome reads an income or refund. Negative amounts are refunds.
func ParseIncome(p *RequestBodyParser) (core.IncomeRecord, error) {
	cents, err := core.ParseSignedDecimalToCents(p.Get("amount"))
	if err != nil {
		return core.IncomeRecord{}, err
	}
	return core.IncomeRecord{
		DNI:           p.Get("dni"),
		Amount:        core.Money{Cents: cents},
		ReceiptNumber: p.Get("receipt_number"),
	}, nil
}

// ParseDocument reads the attach-document form. The type may be a tag or a label.
func ParseDocument(p *RequestBodyParser) (core.Document, error) {
	t, err := core.ParseDocumentType(p.Get("type"))
	if err != nil {
		return core.Document{}, err
	}
	return core.Document{
		MemberID: p.Get("member_id"),
		Type:     t,
		Link:     p.Get("link"),
	}, nil
}

// ParseRosterFilter reads q, locality and status from the query string.
func ParseRosterFilter(query url.Values) core.RosterFilter {
	return core.RosterFilter{
		Search:   sanitizeInput(query.Get("q")),
		Locality: sanitizeInput(query.Get("locality")),
		Status:   sanitizeInput(query.Get("status")),
	}.Normalize()
}

// ParseExportKeys reads the selected export columns. Repeated "fields"
// parameters and comma separated lists are both accepted. ok is false when
// the parameter is absent altogether.
func ParseExportKeys(query url.Values) (keys []string, ok bool) {
	raw, ok := query["fields"]
	if !ok {
		return nil, false
	}
	for _, v := range raw {
		for _, k := range strings.Split(v, ",") {
			if k = strings.TrimSpace(k); k != "" {
				keys = append(keys, k)
			}
		}
	}
	return keys, true
}

// ageAt returns the completed years between born and now.
func ageAt(born, now time.Time) int {
	years := now.Year() - born.Year()
	if now.Month() < born.Month() || (now.Month() == born.Month() && now.Day() < born.Day()) {
		years--
	}
	if years < 0 {
		return 0
	}
	return years
}
