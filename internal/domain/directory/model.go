package directory

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/edroute/edroute/pkg/geo"
)

// Hospital maps to the hospital table. Records are owned by the capacity
// management collaborator; the matching core only reads them.
type Hospital struct {
	ID             uuid.UUID    `db:"id" json:"id"`
	Name           string       `db:"name" json:"name"`
	Location       geo.Location `db:"location" json:"location"`
	BaseEtaMinutes int          `db:"base_eta_minutes" json:"base_eta_minutes"`
	CapacityRatio  float64      `db:"capacity_ratio" json:"capacity_ratio"`
	Specialties    []string     `db:"specialties" json:"specialties"`
	CreatedAt      time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time    `db:"updated_at" json:"updated_at"`
}

// Validate checks a hospital record before it is written.
func (h *Hospital) Validate() error {
	if h.Name == "" {
		return fmt.Errorf("name is required")
	}
	if err := h.Location.Validate(); err != nil {
		return fmt.Errorf("location: %w", err)
	}
	if h.BaseEtaMinutes <= 0 {
		return fmt.Errorf("base_eta_minutes must be positive, got %d", h.BaseEtaMinutes)
	}
	if h.CapacityRatio < 0 || h.CapacityRatio > 1 {
		return fmt.Errorf("capacity_ratio %v out of range [0,1]", h.CapacityRatio)
	}
	return nil
}

// HasSpecialty reports whether the hospital lists the given condition tag.
func (h *Hospital) HasSpecialty(tag string) bool {
	for _, s := range h.Specialties {
		if s == tag {
			return true
		}
	}
	return false
}
