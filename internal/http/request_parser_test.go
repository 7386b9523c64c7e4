package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"strings"
	"testing"
	"time"

	"socios/internal/core"
)

func newParser(t *testing.T, body, contentType string) *RequestBodyParser {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	p, errResp := ParseBody(req)
	if errResp != nil {
		t.Fatalf("ParseBody(%q) failed", body)
	}
	return p
}

func TestRequestBodyParser_FormAndJSON(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		contentType string
		isJSON      bool
		dni         string
		ids         []string
		observed    bool
	}{
		{
			name:        "form",
			body:        "dni=12345678&ids=a&ids=b&is_observed=on",
			contentType: "application/x-www-form-urlencoded",
			dni:         "12345678",
			ids:         []string{"a", "b"},
			observed:    true,
		},
		{
			name:        "json",
			body:        `{"dni":"12345678","ids":["a","b"],"is_observed":true}`,
			contentType: "application/json",
			isJSON:      true,
			dni:         "12345678",
			ids:         []string{"a", "b"},
			observed:    true,
		},
		{
			name:   "json scalar becomes single value",
			body:   `{"dni":12345678,"ids":"a"}`,
			isJSON: true,
			dni:    "12345678",
			ids:    []string{"a"},
		},
		{
			name: "empty body",
			body: "",
			ids:  []string{},
		},
		{
			name:     "trims and drops blanks",
			body:     "dni=%2012345678%20&ids=&ids=%20c%20&is_observed=s%C3%AD",
			dni:      "12345678",
			ids:      []string{"c"},
			observed: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newParser(t, tt.body, tt.contentType)
			if p.IsJSON() != tt.isJSON {
				t.Errorf("IsJSON() = %v, want %v", p.IsJSON(), tt.isJSON)
			}
			if got := p.Get("dni"); got != tt.dni {
				t.Errorf("Get(dni) = %q, want %q", got, tt.dni)
			}
			if got := p.Values("ids"); !reflect.DeepEqual(got, tt.ids) {
				t.Errorf("Values(ids) = %#v, want %#v", got, tt.ids)
			}
			if got := p.Bool("is_observed"); got != tt.observed {
				t.Errorf("Bool(is_observed) = %v, want %v", got, tt.observed)
			}
		})
	}
}

func TestParseBody_InvalidJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"dni":`))
	p, errResp := ParseBody(req)
	if p != nil || errResp == nil {
		t.Fatal("expected an error response for malformed JSON")
	}
	rr := httptest.NewRecorder()
	errResp.Write(rr)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
}

func TestParseMember(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		body    string
		wantAge int
		wantErr error
	}{
		{"explicit age wins", "dni=12345678&first_names=Ana&paternal_surname=Quispe&age=40&birth_date=2000-01-01", 40, nil},
		{"age derived before birthday", "dni=12345678&first_names=Ana&paternal_surname=Quispe&birth_date=1990-06-16", 34, nil},
		{"age derived on birthday", "dni=12345678&first_names=Ana&paternal_surname=Quispe&birth_date=1990-06-15", 35, nil},
		{"unparseable birth date leaves age", "dni=12345678&first_names=Ana&paternal_surname=Quispe&birth_date=15/06/1990", 0, nil},
		{"invalid age", "dni=12345678&first_names=Ana&paternal_surname=Quispe&age=old", 0, core.ErrInvalidAge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := ParseMember(newParser(t, tt.body, ""), now)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if m.Age != tt.wantAge {
				t.Errorf("Age = %d, want %d", m.Age, tt.wantAge)
			}
			if m.DNI != "12345678" || m.FirstNames != "Ana" || m.PaternalSurname != "Quispe" {
				t.Errorf("identity not parsed: %+v", m)
			}
		})
	}
}

func TestParseMember_AddressesAndFlags(t *testing.T) {
	body := url.Values{
		"dni":                        {"87654321"},
		"first_names":                {"Luis"},
		"paternal_surname":           {"Mamani"},
		"maternal_surname":           {"Condori"},
		"locality":                   {"Santa Rosa"},
		"home_district":              {"Ate"},
		"dni_region":                 {"Puno"},
		"block":                      {"B"},
		"lot":                        {"12"},
		"is_payment_observed":        {"true"},
		"payment_observation_detail": {"Voucher ilegible"},
	}.Encode()

	m, err := ParseMember(newParser(t, body, ""), time.Now())
	if err != nil {
		t.Fatalf("ParseMember: %v", err)
	}
	if m.Locality != "Santa Rosa" || m.HomeDistrict != "Ate" || m.DNIRegion != "Puno" {
		t.Errorf("addresses not parsed: %+v", m)
	}
	if m.LotLabel() == "" || m.Block != "B" || m.Lot != "12" {
		t.Errorf("lot not parsed: %+v", m)
	}
	if !m.IsPaymentObserved || m.PaymentObservationDetail != "Voucher ilegible" || m.IsObserved {
		t.Errorf("flags not parsed: %+v", m.Flags())
	}
}

func TestParseIncome(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantCents int64
		wantErr   error
	}{
		{"payment", "dni=12345678&amount=150.50&receipt_number=R-001", 15050, nil},
		{"refund", "dni=12345678&amount=-20,00", -2000, nil},
		{"missing amount", "dni=12345678", 0, core.ErrInvalidAmount},
		{"garbage amount", "dni=12345678&amount=abc", 0, core.ErrInvalidAmount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := ParseIncome(newParser(t, tt.body, ""))
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if err == nil && rec.Amount.Cents != tt.wantCents {
				t.Errorf("Amount = %d, want %d", rec.Amount.Cents, tt.wantCents)
			}
		})
	}
}

func TestParseDocument(t *testing.T) {
	d, err := ParseDocument(newParser(t, "member_id=m1&type=Planos+de+ubicaci%C3%B3n&link=https://drive/x", ""))
	if err != nil {
		t.Fatalf("ParseDocument: %v", err)
	}
	if d.Type != core.DocLocationPlans || d.MemberID != "m1" || d.Link != "https://drive/x" {
		t.Errorf("unexpected document: %+v", d)
	}

	if _, err := ParseDocument(newParser(t, "member_id=m1&type=contrato&link=x", "")); !errors.Is(err, core.ErrUnknownDocType) {
		t.Errorf("err = %v, want ErrUnknownDocType", err)
	}
}

func TestParseRosterFilter(t *testing.T) {
	tests := []struct {
		query string
		want  core.RosterFilter
	}{
		{"", core.RosterFilter{Status: core.FilterAll}},
		{"q=+quispe+&locality=all&status=ACTIVE", core.RosterFilter{Search: "quispe", Status: core.FilterActive}},
		{"locality=Santa+Rosa&status=bogus", core.RosterFilter{Locality: "Santa Rosa", Status: core.FilterAll}},
		{"status=inactive", core.RosterFilter{Status: core.FilterInactive}},
	}

	for _, tt := range tests {
		q, _ := url.ParseQuery(tt.query)
		if got := ParseRosterFilter(q); got != tt.want {
			t.Errorf("ParseRosterFilter(%q) = %+v, want %+v", tt.query, got, tt.want)
		}
	}
}

func TestParseExportKeys(t *testing.T) {
	tests := []struct {
		query  string
		want   []string
		wantOK bool
	}{
		{"", nil, false},
		{"fields=", nil, true},
		{"fields=dni&fields=lote", []string{"dni", "lote"}, true},
		{"fields=dni,+mz+,lote", []string{"dni", "mz", "lote"}, true},
	}

	for _, tt := range tests {
		q, _ := url.ParseQuery(tt.query)
		got, ok := ParseExportKeys(q)
		if ok != tt.wantOK || !reflect.DeepEqual(got, tt.want) {
			t.Errorf("ParseExportKeys(%q) = %v, %v; want %v, %v", tt.query, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestSanitizeInput(t *testing.T) {
	if got := sanitizeInput("  Ana\x00 María\x07 "); got != "Ana María" {
		t.Errorf("sanitizeInput = %q", got)
	}
}
