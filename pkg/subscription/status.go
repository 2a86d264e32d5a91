package subscription

// Status is the persisted status string of a subscription row.
type Status string

const (
	StatusTrial    Status = "trial"
	StatusActive   Status = "active"
	StatusExpired  Status = "expired"
	StatusCanceled Status = "canceled"

	// Legacy values still present in older rows.
	StatusTrialActive Status = "trial_active"
	StatusPastDue     Status = "past_due"
)

// IsTrial reports whether s is a trial status, including the legacy spelling.
func (s Status) IsTrial() bool {
	return s == StatusTrial || s == StatusTrialActive
}

// Known reports whether s is a status this package understands.
func (s Status) Known() bool {
	switch s {
	case StatusTrial, StatusTrialActive, StatusActive, StatusExpired, StatusCanceled, StatusPastDue:
		return true
	}
	return false
}

// Class is the lifecycle phase an organization is in at a given moment.
type Class string

const (
	ClassNone     Class = "none"
	ClassTrial    Class = "trial"
	ClassActive   Class = "active"
	ClassExpired  Class = "expired"
	ClassCanceled Class = "canceled"
)

// Entitled reports whether the class grants plan features and entitlements.
func (c Class) Entitled() bool {
	return c == ClassTrial || c == ClassActive
}

// settled maps a non-trial status onto its class.
// Unrecognized strings classify as none.
func settled(s Status) Class {
	switch s {
	case StatusActive:
		return ClassActive
	case StatusExpired, StatusPastDue:
		return ClassExpired
	case StatusCanceled:
		return ClassCanceled
	case StatusTrial, StatusTrialActive:
		// A trial that can no longer be checked against its window is past it.
		return ClassExpired
	default:
		return ClassNone
	}
}
