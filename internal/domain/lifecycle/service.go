package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/edroute/edroute/internal/domain/audit"
	"github.com/edroute/edroute/internal/domain/directory"
	"github.com/edroute/edroute/internal/domain/encounter"
	"github.com/edroute/edroute/internal/domain/recommend"
	"github.com/edroute/edroute/internal/platform/auth"
)

const sweepBatchSize = 100

// EncounterStore is the slice of the encounter service this package needs.
type EncounterStore interface {
	GetEncounter(ctx context.Context, id uuid.UUID) (*encounter.Encounter, error)
	MarkPlaced(ctx context.Context, id uuid.UUID) error
}

// HospitalGetter verifies that a selected hospital exists.
type HospitalGetter interface {
	GetHospital(ctx context.Context, id uuid.UUID) (*directory.Hospital, error)
}

// Notifier receives the signal that an encounter has no live requests left
// and needs a fresh recommendation run.
type Notifier interface {
	NeedsRecommendation(encounterID uuid.UUID)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(encounterID uuid.UUID)

func (f NotifierFunc) NeedsRecommendation(id uuid.UUID) { f(id) }

type Service struct {
	repo       Repository
	encounters EncounterStore
	hospitals  HospitalGetter
	audit      audit.Sink
	notifier   Notifier
	ttl        time.Duration
	logger     zerolog.Logger
}

func NewService(repo Repository, encounters EncounterStore, hospitals HospitalGetter,
	sink audit.Sink, notifier Notifier, ttl time.Duration, logger zerolog.Logger) *Service {
	return &Service{
		repo:       repo,
		encounters: encounters,
		hospitals:  hospitals,
		audit:      sink,
		notifier:   notifier,
		ttl:        ttl,
		logger:     logger,
	}
}

// Open creates a PENDING request for the (encounter, hospital) pair. At
// most one non-terminal request may exist per pair.
func (s *Service) Open(ctx context.Context, encounterID, hospitalID uuid.UUID) (*HospitalRequest, error) {
	if _, err := s.encounters.GetEncounter(ctx, encounterID); err != nil {
		return nil, err
	}
	if _, err := s.hospitals.GetHospital(ctx, hospitalID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	req := &HospitalRequest{
		ID:          uuid.New(),
		EncounterID: encounterID,
		HospitalID:  hospitalID,
		Status:      StatusPending,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.ttl),
	}
	if err := s.repo.Create(ctx, req); err != nil {
		return nil, err
	}
	s.writeAudit(ctx, req, "", StatusPending, nil)
	return req, nil
}

// Accept moves a PENDING request to ACCEPTED and marks the encounter
// placed. Multi-hospital accepts are allowed: other PENDING requests for
// the encounter stay open.
func (s *Service) Accept(ctx context.Context, requestID uuid.UUID) (*HospitalRequest, error) {
	req, err := s.repo.Transition(ctx, requestID, StatusAccepted, nil)
	if err != nil {
		return nil, err
	}
	if err := s.encounters.MarkPlaced(ctx, req.EncounterID); err != nil {
		s.logger.Error().Err(err).
			Str("encounter_id", req.EncounterID.String()).
			Msg("mark placed failed after accept")
	}
	s.writeAudit(ctx, req, StatusPending, StatusAccepted, nil)
	return req, nil
}

// Reject moves a PENDING request to REJECTED. The parent encounter's
// policy is re-derived first: critical encounters cannot be rejected, and
// if the policy cannot be verified the call fails rather than proceed.
func (s *Service) Reject(ctx context.Context, requestID uuid.UUID, reason string) (*HospitalRequest, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, &ValidationError{msg: "reason is required"}
	}

	req, err := s.repo.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	enc, err := s.encounters.GetEncounter(ctx, req.EncounterID)
	if err != nil {
		return nil, fmt.Errorf("verify rejection policy: %w", err)
	}
	if !recommend.PolicyFor(enc.Urgency).RejectAllowed {
		return nil, &RejectionNotAllowedError{RequestID: requestID}
	}

	updated, err := s.repo.Transition(ctx, requestID, StatusRejected, &reason)
	if err != nil {
		return nil, err
	}
	s.writeAudit(ctx, updated, StatusPending, StatusRejected, &reason)
	s.signalIfAbandoned(ctx, updated.EncounterID)
	return updated, nil
}

// Expire moves a PENDING request past its deadline to EXPIRED.
func (s *Service) Expire(ctx context.Context, requestID uuid.UUID) (*HospitalRequest, error) {
	req, err := s.repo.Transition(ctx, requestID, StatusExpired, nil)
	if err != nil {
		return nil, err
	}
	s.writeAudit(ctx, req, StatusPending, StatusExpired, nil)
	s.signalIfAbandoned(ctx, req.EncounterID)
	return req, nil
}

// SweepExpired expires every overdue PENDING request. Requests that race
// with a live accept or reject are skipped; the sweep is idempotent.
func (s *Service) SweepExpired(ctx context.Context) (int, error) {
	overdue, err := s.repo.ListExpired(ctx, time.Now().UTC(), sweepBatchSize)
	if err != nil {
		return 0, err
	}
	var n int
	for _, req := range overdue {
		if _, err := s.Expire(ctx, req.ID); err != nil {
			var ite *InvalidTransitionError
			if errors.As(err, &ite) {
				continue
			}
			s.logger.Error().Err(err).
				Str("request_id", req.ID.String()).
				Msg("expire failed")
			continue
		}
		n++
	}
	return n, nil
}

func (s *Service) GetRequest(ctx context.Context, id uuid.UUID) (*HospitalRequest, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListByEncounter(ctx context.Context, encounterID uuid.UUID) ([]*HospitalRequest, error) {
	return s.repo.ListByEncounter(ctx, encounterID)
}

// signalIfAbandoned emits NeedsRecommendation when a transition has left
// the encounter with zero live requests and it is not yet placed.
//
// The count runs after the transition commits, so two concurrent final
// transitions on the same encounter can both observe zero and each emit.
// Delivery is therefore at-least-once; consumers must treat the signal as
// a hint to re-check, not as a unique event.
func (s *Service) signalIfAbandoned(ctx context.Context, encounterID uuid.UUID) {
	n, err := s.repo.CountActive(ctx, encounterID)
	if err != nil {
		s.logger.Error().Err(err).
			Str("encounter_id", encounterID.String()).
			Msg("count active requests failed")
		return
	}
	if n != 0 {
		return
	}
	enc, err := s.encounters.GetEncounter(ctx, encounterID)
	if err != nil {
		s.logger.Error().Err(err).
			Str("encounter_id", encounterID.String()).
			Msg("load encounter failed")
		return
	}
	if enc.Status != encounter.StatusOpen {
		return
	}
	s.notifier.NeedsRecommendation(encounterID)
}

func (s *Service) writeAudit(ctx context.Context, req *HospitalRequest, from, to Status, reason *string) {
	details := map[string]interface{}{
		"request_id":   req.ID.String(),
		"encounter_id": req.EncounterID.String(),
		"hospital_id":  req.HospitalID.String(),
		"new_status":   string(to),
	}
	if from != "" {
		details["old_status"] = string(from)
	}
	if reason != nil {
		details["reason"] = *reason
	}
	s.audit.Append(ctx, &audit.Entry{
		ActorID:  actorFrom(ctx),
		Action:   audit.ActionWrite,
		Resource: "hospital-request",
		Details:  details,
	})
}

func actorFrom(ctx context.Context) string {
	if id := auth.UserIDFromContext(ctx); id != "" {
		return id
	}
	return "system"
}
