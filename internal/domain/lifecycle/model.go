package lifecycle

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status is the hospital-request state machine. PENDING is the only
// non-terminal state; terminal requests are kept forever for audit.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusAccepted Status = "ACCEPTED"
	StatusRejected Status = "REJECTED"
	StatusExpired  Status = "EXPIRED"
)

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool { return s != StatusPending }

// HospitalRequest maps to the hospital_request table: one outstanding ask
// to a specific hospital to take a specific encounter.
type HospitalRequest struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	EncounterID uuid.UUID  `db:"encounter_id" json:"encounter_id"`
	HospitalID  uuid.UUID  `db:"hospital_id" json:"hospital_id"`
	Status      Status     `db:"status" json:"status"`
	Reason      *string    `db:"reason" json:"reason,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	RespondedAt *time.Time `db:"responded_at" json:"responded_at,omitempty"`
	ExpiresAt   time.Time  `db:"expires_at" json:"expires_at"`
}

// ErrNotFound is returned when a request id is unknown.
var ErrNotFound = errors.New("hospital request not found")

// DuplicateRequestError means a non-terminal request already exists for
// the same (encounter, hospital) pair.
type DuplicateRequestError struct {
	EncounterID uuid.UUID
	HospitalID  uuid.UUID
}

func (e *DuplicateRequestError) Error() string {
	return fmt.Sprintf("request already open for encounter %s and hospital %s", e.EncounterID, e.HospitalID)
}

// InvalidTransitionError means the request was already terminal when a
// transition was attempted. The loser of a concurrent race sees this.
type InvalidTransitionError struct {
	RequestID uuid.UUID
	Status    Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("request %s is already %s", e.RequestID, e.Status)
}

// RejectionNotAllowedError enforces the no-reject rule for critical
// encounters. The request stays PENDING.
type RejectionNotAllowedError struct {
	RequestID uuid.UUID
}

func (e *RejectionNotAllowedError) Error() string {
	return fmt.Sprintf("request %s belongs to a critical encounter and cannot be rejected", e.RequestID)
}

// ValidationError marks input that failed schema checks.
type ValidationError struct{ msg string }

func (e *ValidationError) Error() string { return e.msg }
