package core

import "testing"

func TestDocumentTypeTable(t *testing.T) {
	sensitive := map[DocumentType]bool{
		DocPaymentReceipt:  false,
		DocLocationPlans:   true,
		DocDescriptiveMemo: true,
		DocOther:           false,
	}
	for dt, want := range sensitive {
		if dt.Sensitive() != want {
			t.Errorf("%s.Sensitive() = %v, want %v", dt, dt.Sensitive(), want)
		}
		info := dt.Info()
		if info.Label == "" || info.BadgeClass == "" || info.DeleteTitle == "" {
			t.Errorf("%s has incomplete table entry: %+v", dt, info)
		}
	}
	if DocumentType("bogus").Sensitive() {
		t.Error("unknown type must not be sensitive")
	}
	if DocumentType("bogus").Label() != "Otro" {
		t.Error("unknown type should render as Otro")
	}
}

func TestParseDocumentType(t *testing.T) {
	cases := map[string]DocumentType{
		"Comprobante de Pago": DocPaymentReceipt,
		"planos de ubicación": DocLocationPlans,
		"MEMORIA DESCRIPTIVA": DocDescriptiveMemo,
		"descriptive_memo":    DocDescriptiveMemo,
		" location_plans ":    DocLocationPlans,
		"Otro":                DocOther,
	}
	for in, want := range cases {
		got, err := ParseDocumentType(in)
		if err != nil || got != want {
			t.Errorf("ParseDocumentType(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseDocumentType("contrato"); err == nil {
		t.Error("expected error for unknown label")
	}
}
