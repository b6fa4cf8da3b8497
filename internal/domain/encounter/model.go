package encounter

import (
	"time"

	"github.com/google/uuid"

	"github.com/edroute/edroute/pkg/geo"
)

// Condition classifies the presenting complaint. The set is closed:
// payloads carrying anything else are rejected at the boundary.
type Condition string

const (
	ConditionCardiac     Condition = "cardiac"
	ConditionTrauma      Condition = "trauma"
	ConditionRespiratory Condition = "respiratory"
	ConditionStroke      Condition = "stroke"
	ConditionOther       Condition = "other"
)

func (c Condition) Valid() bool {
	switch c {
	case ConditionCardiac, ConditionTrauma, ConditionRespiratory, ConditionStroke, ConditionOther:
		return true
	}
	return false
}

// Urgency drives both the admission policy and the ranking order.
type Urgency string

const (
	UrgencyCritical Urgency = "critical"
	UrgencyUrgent   Urgency = "urgent"
	UrgencyNormal   Urgency = "normal"
)

func (u Urgency) Valid() bool {
	switch u {
	case UrgencyCritical, UrgencyUrgent, UrgencyNormal:
		return true
	}
	return false
}

// Status tracks placement progress. Everything else on the record is
// immutable after creation.
type Status string

const (
	StatusOpen   Status = "open"
	StatusPlaced Status = "placed"
	StatusClosed Status = "closed"
)

// Encounter maps to the encounter table.
type Encounter struct {
	ID        uuid.UUID    `db:"id" json:"id"`
	PatientID string       `db:"patient_id" json:"patient_id"`
	Location  geo.Location `db:"location" json:"location"`
	Condition Condition    `db:"condition" json:"condition"`
	Urgency   Urgency      `db:"urgency" json:"urgency"`
	Status    Status       `db:"status" json:"status"`
	CreatedAt time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt time.Time    `db:"updated_at" json:"updated_at"`
}
