package recommend

import (
	"math"
	"sort"

	"github.com/edroute/edroute/internal/domain/directory"
	"github.com/edroute/edroute/internal/domain/encounter"
	"github.com/edroute/edroute/pkg/geo"
)

// DistanceFunc computes the travel distance between a pickup point and a
// hospital. The engine treats it as opaque, so a routed or geodesic
// implementation can replace the default without touching the scoring.
type DistanceFunc func(a, b geo.Location) float64

// Params are the tunable scoring constants. They are policy knobs, not
// derived truths, so they come from configuration rather than being
// hard-coded here.
type Params struct {
	EtaMultCritical     float64
	EtaMultUrgent       float64
	EtaMultNormal       float64
	DistanceWeight      float64
	AcceptBoostCritical float64
	DoorToTreatBase     float64
	DoorToTreatSpread   float64

	// Distance defaults to geo.Manhattan when nil.
	Distance DistanceFunc
}

// DefaultParams returns the standard scoring constants.
func DefaultParams() Params {
	return Params{
		EtaMultCritical:     0.8,
		EtaMultUrgent:       1.0,
		EtaMultNormal:       1.2,
		DistanceWeight:      10,
		AcceptBoostCritical: 1.2,
		DoorToTreatBase:     15,
		DoorToTreatSpread:   30,
	}
}

// Engine scores and ranks hospitals for an encounter. It holds no mutable
// state, so concurrent Score calls are safe.
type Engine struct {
	params Params
}

func NewEngine(params Params) *Engine {
	if params.Distance == nil {
		params.Distance = geo.Manhattan
	}
	return &Engine{params: params}
}

func (e *Engine) multiplier(u encounter.Urgency) float64 {
	switch u {
	case encounter.UrgencyCritical:
		return e.params.EtaMultCritical
	case encounter.UrgencyUrgent:
		return e.params.EtaMultUrgent
	default:
		return e.params.EtaMultNormal
	}
}

// doorToTreatment estimates minutes from hospital arrival to first
// intervention as a deterministic function of free capacity, clamped to
// the clinically plausible [15,45] window.
func (e *Engine) doorToTreatment(capacityRatio float64) int {
	v := e.params.DoorToTreatBase + (1-capacityRatio)*e.params.DoorToTreatSpread
	if v < 15 {
		v = 15
	}
	if v > 45 {
		v = 45
	}
	return int(math.Round(v))
}

// Score ranks every hospital for the given urgency and pickup location.
// Critical encounters sort fastest-first by ETA; urgent and normal sort
// likeliest-first by acceptance probability. Ties break on hospital id so
// the order is deterministic. Ranks are dense, 1..N.
func (e *Engine) Score(u encounter.Urgency, loc geo.Location, hospitals []*directory.Hospital) []Recommendation {
	mult := e.multiplier(u)
	boost := 1.0
	if u == encounter.UrgencyCritical {
		boost = e.params.AcceptBoostCritical
	}

	recs := make([]Recommendation, 0, len(hospitals))
	for _, h := range hospitals {
		dist := e.params.Distance(loc, h.Location)
		eta := int(math.Round(float64(h.BaseEtaMinutes) * (1 + dist*e.params.DistanceWeight) * mult))
		accept := int(math.Round(h.CapacityRatio * 100 * boost))
		if accept > 100 {
			accept = 100
		}

		var reasons []string
		if h.CapacityRatio > 0.7 {
			reasons = append(reasons, "high availability")
		}
		if eta < 15 {
			reasons = append(reasons, "fast arrival")
		}
		if accept > 80 {
			reasons = append(reasons, "high acceptance likelihood")
		}

		recs = append(recs, Recommendation{
			HospitalID:        h.ID,
			Name:              h.Name,
			Eta:               eta,
			AcceptProbability: accept,
			DoorToTreatment:   e.doorToTreatment(h.CapacityRatio),
			Reasons:           reasons,
		})
	}

	sort.SliceStable(recs, func(i, j int) bool {
		a, b := recs[i], recs[j]
		if u == encounter.UrgencyCritical {
			if a.Eta != b.Eta {
				return a.Eta < b.Eta
			}
		} else if a.AcceptProbability != b.AcceptProbability {
			return a.AcceptProbability > b.AcceptProbability
		}
		return a.HospitalID.String() < b.HospitalID.String()
	})

	for i := range recs {
		recs[i].Rank = i + 1
		if i == 0 && u == encounter.UrgencyCritical {
			recs[i].Reasons = append(recs[i].Reasons, "critical-priority placement")
		}
		if len(recs[i].Reasons) == 0 {
			recs[i].Reasons = []string{"standard recommendation"}
		}
	}
	return recs
}
