package core

// MemberFlags are the review flags edited from the status dialog.
type MemberFlags struct {
	IsObserved               bool
	Observation              string
	IsPaymentObserved        bool
	PaymentObservationDetail string
	IsLotMeasured            bool
}

// Flags extracts the review flags of m.
func (m Member) Flags() MemberFlags {
	return MemberFlags{
		IsObserved:               m.IsObserved,
		Observation:              m.Observation,
		IsPaymentObserved:        m.IsPaymentObserved,
		PaymentObservationDetail: m.PaymentObservationDetail,
		IsLotMeasured:            m.IsLotMeasured,
	}
}

// Apply copies the flags onto m. Detail texts are dropped with their flag.
func (f MemberFlags) Apply(m *Member) {
	m.IsObserved = f.IsObserved
	m.Observation = ""
	if f.IsObserved {
		m.Observation = f.Observation
	}
	m.IsPaymentObserved = f.IsPaymentObserved
	m.PaymentObservationDetail = ""
	if f.IsPaymentObserved {
		m.PaymentObservationDetail = f.PaymentObservationDetail
	}
	m.IsLotMeasured = f.IsLotMeasured
}
