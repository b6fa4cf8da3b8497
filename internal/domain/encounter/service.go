package encounter

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ValidationError marks input that failed schema or enum checks. Nothing
// is mutated when one is returned.
type ValidationError struct{ msg string }

func (e *ValidationError) Error() string { return e.msg }

func invalidf(format string, args ...interface{}) error {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// CreateEncounter validates the payload and persists a new open encounter.
// Urgency defaults to normal when the caller omits it; the recommendation
// endpoint updates it on each run.
func (s *Service) CreateEncounter(ctx context.Context, e *Encounter) error {
	if e.PatientID == "" {
		return invalidf("patientId is required")
	}
	if !e.Condition.Valid() {
		return invalidf("invalid condition %q", e.Condition)
	}
	if e.Urgency == "" {
		e.Urgency = UrgencyNormal
	}
	if !e.Urgency.Valid() {
		return invalidf("invalid urgency %q", e.Urgency)
	}
	if err := e.Location.Validate(); err != nil {
		return invalidf("invalid location: %v", err)
	}
	e.ID = uuid.New()
	e.Status = StatusOpen
	e.CreatedAt = time.Now().UTC()
	e.UpdatedAt = e.CreatedAt
	return s.repo.Create(ctx, e)
}

func (s *Service) GetEncounter(ctx context.Context, id uuid.UUID) (*Encounter, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListEncounters(ctx context.Context, limit, offset int) ([]*Encounter, int, error) {
	return s.repo.List(ctx, limit, offset)
}

// MarkPlaced transitions the encounter to placed once a hospital has
// accepted it. Idempotent from the caller's point of view.
func (s *Service) MarkPlaced(ctx context.Context, id uuid.UUID) error {
	return s.repo.UpdateStatus(ctx, id, StatusPlaced)
}

func (s *Service) CloseEncounter(ctx context.Context, id uuid.UUID) error {
	return s.repo.UpdateStatus(ctx, id, StatusClosed)
}

// UpdateUrgency records the urgency supplied with the latest
// recommendation run so lifecycle guards see the current value.
func (s *Service) UpdateUrgency(ctx context.Context, id uuid.UUID, urgency Urgency) error {
	if !urgency.Valid() {
		return invalidf("invalid urgency %q", urgency)
	}
	return s.repo.UpdateUrgency(ctx, id, urgency)
}
