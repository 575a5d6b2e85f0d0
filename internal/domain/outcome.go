package domain

// PaymentOutcome is the tagged variant consumed by the outcome resolver.
// Mapping gateway status strings onto it is an adapter concern at the
// HTTP boundary.
type PaymentOutcome int

const (
	OutcomePending PaymentOutcome = iota
	OutcomeSuccess
	OutcomeFailure
)

func (o PaymentOutcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeFailure:
		return "failure"
	default:
		return "pending"
	}
}
