package http

import (
	"encoding/json"
	"html/template"
	"strconv"
	"strings"
	"time"

	"socios/internal/core"
)

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	result := strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
	return result
}

// templateFuncs are available to every page and partial.
var templateFuncs = template.FuncMap{
	"soles": func(m core.Money) string { return m.Soles() },
	"yesno": core.YesNo,
	"date": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format("02/01/2006 15:04")
	},
	// ms renders a duration as an htmx delay ("300ms").
	"ms": func(d time.Duration) string {
		return strconv.FormatInt(d.Milliseconds(), 10) + "ms"
	},
	"memberForm": memberForm,
}

// memberForm serializes a member keyed by form field name so the edit and
// status dialogs can be prefilled client-side.
func memberForm(m core.Member) string {
	values := map[string]interface{}{
		"dni":                        m.DNI,
		"first_names":                m.FirstNames,
		"paternal_surname":           m.PaternalSurname,
		"maternal_surname":           m.MaternalSurname,
		"birth_date":                 m.BirthDate,
		"age":                        m.Age,
		"phone":                      m.Phone,
		"economic_situation":         m.EconomicSituation,
		"dni_address":                m.DNIAddress,
		"dni_region":                 m.DNIRegion,
		"dni_province":               m.DNIProvince,
		"dni_district":               m.DNIDistrict,
		"locality":                   m.Locality,
		"home_address":               m.HomeAddress,
		"home_region":                m.HomeRegion,
		"home_province":              m.HomeProvince,
		"home_district":              m.HomeDistrict,
		"block":                      m.Block,
		"lot":                        m.Lot,
		"is_observed":                m.IsObserved,
		"observation":                m.Observation,
		"is_payment_observed":        m.IsPaymentObserved,
		"payment_observation_detail": m.PaymentObservationDetail,
		"is_lot_measured":            m.IsLotMeasured,
	}
	b, err := json.Marshal(values)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// exportFilename names a download after the current day.
func exportFilename(ext string, now time.Time) string {
	return "socios_" + now.Format("2006-01-02") + "." + ext
}
