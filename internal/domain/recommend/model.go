package recommend

import "github.com/google/uuid"

// Recommendation is one ranked hospital candidate. It is derived on each
// call and never persisted as the source of truth.
type Recommendation struct {
	Rank              int       `json:"rank"`
	HospitalID        uuid.UUID `json:"hospitalId"`
	Name              string    `json:"name"`
	Eta               int       `json:"eta"`
	AcceptProbability int       `json:"acceptProbability"`
	DoorToTreatment   int       `json:"doorToTreatment"`
	Reasons           []string  `json:"reasons"`
}
