package core

// MemberStatus is the composite badge shown for a roster entry. Review flags
// take precedence over the income-derived state.
type MemberStatus int

const (
	StatusInactive MemberStatus = iota
	StatusActive
	StatusPaymentObserved
	StatusObserved
)

var statusLabels = map[MemberStatus]struct {
	table, export, class string
}{
	StatusObserved:        {"Observado", "Observado (Admin)", "badge badge-primary"},
	StatusPaymentObserved: {"Pago Obs.", "Pago Observado", "badge badge-warning"},
	StatusActive:          {"Activo", "Activo", "badge badge-success"},
	StatusInactive:        {"Inactivo", "Inactivo", "badge badge-muted"},
}

func (e RosterEntry) Status() MemberStatus {
	switch {
	case e.IsObserved:
		return StatusObserved
	case e.IsPaymentObserved:
		return StatusPaymentObserved
	case e.IsActive:
		return StatusActive
	default:
		return StatusInactive
	}
}

// Label is the short table label.
func (s MemberStatus) Label() string { return statusLabels[s].table }

// ExportLabel is the descriptive label written to exports.
func (s MemberStatus) ExportLabel() string { return statusLabels[s].export }

func (s MemberStatus) Class() string { return statusLabels[s].class }

// YesNo renders a flag the way the roster shows it.
func YesNo(b bool) string {
	if b {
		return "Sí"
	}
	return "No"
}
