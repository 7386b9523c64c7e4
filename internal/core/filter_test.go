package core

import (
	"reflect"
	"testing"
)

func rosterFixture() []RosterEntry {
	return []RosterEntry{
		{Member: Member{ID: "1", DNI: "40112233", FirstNames: "Juan Carlos", PaternalSurname: "Quispe", MaternalSurname: "Mamani", Phone: "987654321", Locality: "Huaycán", Block: "B", Lot: "10"}, IsActive: true, ReceiptNumber: "R-2025-001"},
		{Member: Member{ID: "2", DNI: "40998877", FirstNames: "María", PaternalSurname: "Flores", MaternalSurname: "Quispe", Locality: "huaycán", Block: "C", Lot: "5"}},
		{Member: Member{ID: "3", DNI: "41000000", FirstNames: "Rosa", PaternalSurname: "Huamán", MaternalSurname: "Torres", Locality: "Pachacámac", Block: "A", Lot: "1"}, IsActive: true},
		{Member: Member{ID: "4", DNI: "41000001", FirstNames: "Pedro", PaternalSurname: "Ramos", Locality: ""}},
	}
}

func ids(entries []RosterEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.ID)
	}
	return out
}

func TestRosterFilter_Apply(t *testing.T) {
	tests := []struct {
		name   string
		filter RosterFilter
		want   []string
	}{
		{"no filter", RosterFilter{}, []string{"1", "2", "3", "4"}},
		{"locality all keyword", RosterFilter{Locality: "ALL"}, []string{"1", "2", "3", "4"}},
		{"locality case-insensitive exact", RosterFilter{Locality: "HUAYCÁN"}, []string{"1", "2"}},
		{"locality is not substring", RosterFilter{Locality: "Huay"}, []string{}},
		{"active only", RosterFilter{Status: "active"}, []string{"1", "3"}},
		{"inactive only", RosterFilter{Status: "inactive"}, []string{"2", "4"}},
		{"unknown status means all", RosterFilter{Status: "weird"}, []string{"1", "2", "3", "4"}},
		{"search DNI", RosterFilter{Search: "4099"}, []string{"2"}},
		{"search phone", RosterFilter{Search: "987"}, []string{"1"}},
		{"search receipt", RosterFilter{Search: "r-2025"}, []string{"1"}},
		{"search surname hits paternal and maternal", RosterFilter{Search: "quispe"}, []string{"1", "2"}},
		{"search full name", RosterFilter{Search: "carlos quispe mam"}, []string{"1"}},
		{"search surnames pair", RosterFilter{Search: "huamán torres"}, []string{"3"}},
		{"search block", RosterFilter{Search: "b"}, []string{"1"}},
		{"combined predicates", RosterFilter{Locality: "huaycán", Status: "active", Search: "juan"}, []string{"1"}},
		{"blank search", RosterFilter{Search: "   "}, []string{"1", "2", "3", "4"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(tt.filter.Apply(rosterFixture()))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Apply() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMatchesSearch_FullNameIsCaseInsensitive(t *testing.T) {
	e := RosterEntry{Member: Member{FirstNames: "Ana", PaternalSurname: "Pérez", MaternalSurname: "Soto"}}
	for _, q := range []string{"ANA PÉREZ", "ana pérez soto", "a pérez s", "PÉREZ SOTO"} {
		if !MatchesSearch(e, q) {
			t.Errorf("expected %q to match %q", q, e.FullName())
		}
	}
	if MatchesSearch(e, "soto ana") {
		t.Error("reordered name must not match")
	}
}

func TestLocalities(t *testing.T) {
	got := Localities(rosterFixture())
	want := []string{"Huaycán", "Pachacámac", "huaycán"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Localities() = %v, want %v", got, want)
	}
}
