package recommend

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/edroute/edroute/internal/domain/audit"
	"github.com/edroute/edroute/internal/domain/directory"
	"github.com/edroute/edroute/internal/domain/encounter"
	"github.com/edroute/edroute/internal/platform/auth"
	"github.com/edroute/edroute/pkg/geo"
)

// ValidationError marks input that failed schema or enum checks.
type ValidationError struct{ msg string }

func (e *ValidationError) Error() string { return e.msg }

func invalidf(format string, args ...interface{}) error {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}

// DependencyError marks an unavailable collaborator. The recommendation
// fails closed when the hospital directory cannot be read.
type DependencyError struct {
	Dep string
	Err error
}

func (e *DependencyError) Error() string { return fmt.Sprintf("%s unavailable: %v", e.Dep, e.Err) }
func (e *DependencyError) Unwrap() error { return e.Err }

// HospitalLister is the read-only directory surface the engine consumes.
type HospitalLister interface {
	ListHospitals(ctx context.Context) ([]*directory.Hospital, error)
}

// EncounterStore is the slice of the encounter service this package needs.
type EncounterStore interface {
	GetEncounter(ctx context.Context, id uuid.UUID) (*encounter.Encounter, error)
	UpdateUrgency(ctx context.Context, id uuid.UUID, urgency encounter.Urgency) error
}

type Service struct {
	engine     *Engine
	hospitals  HospitalLister
	encounters EncounterStore
	audit      audit.Sink
}

func NewService(engine *Engine, hospitals HospitalLister, encounters EncounterStore, sink audit.Sink) *Service {
	return &Service{engine: engine, hospitals: hospitals, encounters: encounters, audit: sink}
}

// Result is one recommendation run: the derived policy plus the ranked list.
type Result struct {
	EncounterID     uuid.UUID
	Policy          Policy
	Recommendations []Recommendation
}

// Recommend validates the input, refreshes the encounter's urgency, scores
// every hospital in the directory, and records the read in the audit log.
// The audit write is best-effort; a directory failure aborts the run.
func (s *Service) Recommend(ctx context.Context, encounterID uuid.UUID, urgency encounter.Urgency, loc geo.Location) (*Result, error) {
	if !urgency.Valid() {
		return nil, invalidf("invalid urgency %q", urgency)
	}
	if err := loc.Validate(); err != nil {
		return nil, invalidf("invalid location: %v", err)
	}

	enc, err := s.encounters.GetEncounter(ctx, encounterID)
	if err != nil {
		return nil, err
	}
	if enc.Urgency != urgency {
		if err := s.encounters.UpdateUrgency(ctx, encounterID, urgency); err != nil {
			return nil, err
		}
	}

	hospitals, err := s.hospitals.ListHospitals(ctx)
	if err != nil {
		return nil, &DependencyError{Dep: "hospital directory", Err: err}
	}

	recs := s.engine.Score(urgency, loc, hospitals)

	s.audit.Append(ctx, &audit.Entry{
		ActorID:  actorFrom(ctx),
		Action:   audit.ActionRead,
		Resource: "recommendation",
		Details: map[string]interface{}{
			"encounter_id": encounterID.String(),
			"urgency":      string(urgency),
			"result_count": len(recs),
		},
	})

	return &Result{
		EncounterID:     encounterID,
		Policy:          PolicyFor(urgency),
		Recommendations: recs,
	}, nil
}

func actorFrom(ctx context.Context) string {
	if id := auth.UserIDFromContext(ctx); id != "" {
		return id
	}
	return "system"
}
