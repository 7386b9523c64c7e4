package core

import "testing"

func TestAggregateIncome_SumsSignedAmounts(t *testing.T) {
	records := []IncomeRecord{
		{DNI: "11111111", Amount: Money{Cents: 3000}, ReceiptNumber: "R-1"},
		{DNI: "22222222", Amount: Money{Cents: 1000}},
		{DNI: "11111111", Amount: Money{Cents: 4000}, ReceiptNumber: "R-2"},
		{DNI: "11111111", Amount: Money{Cents: -500}, ReceiptNumber: "DEV-1"},
		{DNI: "", Amount: Money{Cents: 999}},
	}
	got := AggregateIncome(records)

	if len(got) != 2 {
		t.Fatalf("expected 2 DNIs, got %d", len(got))
	}
	if got["11111111"].TotalNet.Cents != 6500 {
		t.Fatalf("net for 11111111 = %d, want 6500", got["11111111"].TotalNet.Cents)
	}
	if got["11111111"].LatestPositiveReceipt != "R-2" {
		t.Fatalf("refund must not replace receipt, got %q", got["11111111"].LatestPositiveReceipt)
	}
	if got["22222222"].LatestPositiveReceipt != "" {
		t.Fatalf("record without receipt must leave it empty, got %q", got["22222222"].LatestPositiveReceipt)
	}
}

func TestAggregateIncome_ReceiptWithoutNumberKeepsPrevious(t *testing.T) {
	got := AggregateIncome([]IncomeRecord{
		{DNI: "11111111", Amount: Money{Cents: 6000}, ReceiptNumber: "R-1"},
		{DNI: "11111111", Amount: Money{Cents: 100}},
	})
	if got["11111111"].LatestPositiveReceipt != "R-1" {
		t.Fatalf("got %q, want R-1", got["11111111"].LatestPositiveReceipt)
	}
}

func TestIsActiveNet(t *testing.T) {
	cases := []struct {
		cents  int64
		active bool
	}{
		{0, true},
		{1, true},
		{2, false},
		{2500, false},
		{5000, false},
		{5001, true},
		{100000, true},
		{-1, false},
		{-10000, false},
	}
	for _, tc := range cases {
		if got := IsActiveNet(Money{Cents: tc.cents}); got != tc.active {
			t.Errorf("IsActiveNet(%d) = %v, want %v", tc.cents, got, tc.active)
		}
	}
}

func TestEnrich(t *testing.T) {
	members := []Member{
		{ID: "a", DNI: "11111111"},
		{ID: "b", DNI: "22222222"},
		{ID: "c", DNI: "33333333"},
	}
	summaries := AggregateIncome([]IncomeRecord{
		{DNI: "11111111", Amount: Money{Cents: 6000}, ReceiptNumber: "R-1"},
		{DNI: "22222222", Amount: Money{Cents: 2000}, ReceiptNumber: "R-2"},
	})

	got := Enrich(members, summaries)
	if len(got) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(got))
	}

	if !got[0].IsActive || got[0].ReceiptNumber != "R-1" || got[0].NetIncome.Cents != 6000 || !got[0].HasIncome {
		t.Fatalf("entry a = %+v", got[0])
	}
	if got[1].IsActive || got[1].ReceiptNumber != "" {
		t.Fatalf("inactive entry must not expose a receipt: %+v", got[1])
	}
	// No records: zero net, active by the zero rule, no receipt.
	if !got[2].IsActive || got[2].ReceiptNumber != "" || got[2].HasIncome {
		t.Fatalf("entry c = %+v", got[2])
	}
}

func TestStatusPrecedence(t *testing.T) {
	cases := []struct {
		entry RosterEntry
		label string
		exp   string
	}{
		{RosterEntry{Member: Member{IsObserved: true, IsPaymentObserved: true}, IsActive: true}, "Observado", "Observado (Admin)"},
		{RosterEntry{Member: Member{IsPaymentObserved: true}, IsActive: true}, "Pago Obs.", "Pago Observado"},
		{RosterEntry{IsActive: true}, "Activo", "Activo"},
		{RosterEntry{}, "Inactivo", "Inactivo"},
	}
	for i, tc := range cases {
		s := tc.entry.Status()
		if s.Label() != tc.label || s.ExportLabel() != tc.exp {
			t.Errorf("case %d: got %q/%q, want %q/%q", i, s.Label(), s.ExportLabel(), tc.label, tc.exp)
		}
	}
}
