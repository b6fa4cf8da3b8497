package recommend

import "github.com/edroute/edroute/internal/domain/encounter"

// Policy carries the admission-control constraints for an encounter.
// It is always derived from the current urgency and never stored, so it
// cannot go stale.
type Policy struct {
	HighRisk      bool `json:"highRisk"`
	RejectAllowed bool `json:"rejectAllowed"`
}

// PolicyFor derives the policy from urgency. Critical encounters are
// high risk and may not be rejected by a hospital.
func PolicyFor(u encounter.Urgency) Policy {
	high := u == encounter.UrgencyCritical
	return Policy{HighRisk: high, RejectAllowed: !high}
}
