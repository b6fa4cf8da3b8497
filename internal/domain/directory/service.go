package directory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Service wraps the repository with a bounded read timeout so a slow
// directory backend cannot stall recommendation calls.
type Service struct {
	repo    Repository
	timeout time.Duration
}

func NewService(repo Repository, timeout time.Duration) *Service {
	return &Service{repo: repo, timeout: timeout}
}

// ListHospitals returns every hospital in the directory.
func (s *Service) ListHospitals(ctx context.Context) ([]*Hospital, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	hospitals, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list hospitals: %w", err)
	}
	return hospitals, nil
}

// ListHospitalsPage returns one page of hospitals plus the total count.
func (s *Service) ListHospitalsPage(ctx context.Context, limit, offset int) ([]*Hospital, int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	hospitals, total, err := s.repo.ListPage(ctx, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list hospitals: %w", err)
	}
	return hospitals, total, nil
}

// GetHospital returns a single hospital by id.
func (s *Service) GetHospital(ctx context.Context, id uuid.UUID) (*Hospital, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.repo.GetByID(ctx, id)
}

// UpsertHospital creates or replaces a hospital record. This is the write
// path used by the capacity management collaborator.
func (s *Service) UpsertHospital(ctx context.Context, h *Hospital) error {
	if err := h.Validate(); err != nil {
		return err
	}
	return s.repo.Upsert(ctx, h)
}

// Seed loads a batch of hospitals into the directory. All records are
// validated up front so a bad entry leaves the directory untouched.
func (s *Service) Seed(ctx context.Context, hospitals []*Hospital) (int, error) {
	for i, h := range hospitals {
		if err := h.Validate(); err != nil {
			return 0, fmt.Errorf("hospital %d (%q): %w", i, h.Name, err)
		}
	}
	for i, h := range hospitals {
		if err := s.repo.Upsert(ctx, h); err != nil {
			return i, fmt.Errorf("seed hospital %q: %w", h.Name, err)
		}
	}
	return len(hospitals), nil
}
