package core

// Active thresholds, in cents. A member is active when the net income is
// exactly zero or one cent, or strictly above fifty.
const (
	activeFloorCents   int64 = 1
	activeMinimumCents int64 = 5000
)

// IncomeSummary is the per-DNI reduction of income records.
type IncomeSummary struct {
	TotalNet              Money
	LatestPositiveReceipt string
	Records               int
}

// RosterEntry is a member enriched with its derived payment state.
type RosterEntry struct {
	Member
	NetIncome     Money
	IsActive      bool
	ReceiptNumber string // empty unless active
	HasIncome     bool
}

// AggregateIncome reduces records into a summary per DNI. Records must be in
// chronological order: the receipt kept is the one of the last positive record
// that carries a receipt number. Refunds never replace it.
func AggregateIncome(records []IncomeRecord) map[string]IncomeSummary {
	out := make(map[string]IncomeSummary)
	for _, r := range records {
		if r.DNI == "" {
			continue
		}
		s := out[r.DNI]
		s.TotalNet.Cents += r.Amount.Cents
		s.Records++
		if r.Amount.Cents > 0 && r.ReceiptNumber != "" {
			s.LatestPositiveReceipt = r.ReceiptNumber
		}
		out[r.DNI] = s
	}
	return out
}

// IsActiveNet applies the activity threshold to a net income.
func IsActiveNet(net Money) bool {
	return net.Cents == 0 || net.Cents == activeFloorCents || net.Cents > activeMinimumCents
}

// Enrich derives NetIncome, IsActive and ReceiptNumber for every member.
// Members without income records get a zero net.
func Enrich(members []Member, summaries map[string]IncomeSummary) []RosterEntry {
	out := make([]RosterEntry, len(members))
	for i, m := range members {
		s, ok := summaries[m.DNI]
		e := RosterEntry{
			Member:    m,
			NetIncome: s.TotalNet,
			IsActive:  IsActiveNet(s.TotalNet),
			HasIncome: ok && s.Records > 0,
		}
		if e.IsActive {
			e.ReceiptNumber = s.LatestPositiveReceipt
		}
		out[i] = e
	}
	return out
}
