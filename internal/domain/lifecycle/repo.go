package lifecycle

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	// Create persists a new PENDING request. Returns DuplicateRequestError
	// when a non-terminal request already exists for the pair.
	Create(ctx context.Context, r *HospitalRequest) error

	GetByID(ctx context.Context, id uuid.UUID) (*HospitalRequest, error)

	// Transition atomically moves a PENDING request to a terminal status.
	// Exactly one of two concurrent calls succeeds; the loser gets
	// InvalidTransitionError.
	Transition(ctx context.Context, id uuid.UUID, to Status, reason *string) (*HospitalRequest, error)

	ListByEncounter(ctx context.Context, encounterID uuid.UUID) ([]*HospitalRequest, error)

	// CountActive counts PENDING and ACCEPTED requests for an encounter.
	CountActive(ctx context.Context, encounterID uuid.UUID) (int, error)

	// ListExpired returns PENDING requests whose deadline passed before now.
	ListExpired(ctx context.Context, now time.Time, limit int) ([]*HospitalRequest, error)
}
