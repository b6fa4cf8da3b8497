package encounter

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound is returned when an encounter id is unknown.
var ErrNotFound = errors.New("encounter not found")

type Repository interface {
	Create(ctx context.Context, e *Encounter) error
	GetByID(ctx context.Context, id uuid.UUID) (*Encounter, error)
	List(ctx context.Context, limit, offset int) ([]*Encounter, int, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error
	UpdateUrgency(ctx context.Context, id uuid.UUID, urgency Urgency) error
}
