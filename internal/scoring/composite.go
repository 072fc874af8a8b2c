package scoring

import (
	"math"

	"risk-service/internal/models"
)

// NeutralScore is the prior for a subject with no breach history. It is a
// deliberate 0.5, not zero risk: an empty history is unknown, not clean.
const NeutralScore = 0.5

// Weights parameterizes the composite formula. Severity weights use the
// independent LOW/MEDIUM/HIGH/CRITICAL set; platform and device breadth
// contribute log-dampened side terms.
type Weights struct {
	Platforms float64
	Devices   float64
	Severity  map[models.Severity]float64
}

// DefaultWeights returns the production weight set.
func DefaultWeights() Weights {
	return Weights{
		Platforms: 0.05,
		Devices:   0.02,
		Severity: map[models.Severity]float64{
			models.SeverityLow:      0.1,
			models.SeverityMedium:   0.3,
			models.SeverityHigh:     0.6,
			models.SeverityCritical: 1.2,
		},
	}
}

// CompositeScore combines a subject's breach events and device fingerprint
// count into one bounded score in (0,1).
//
//	raw = w_platforms*ln(1+p) + w_devices*ln(1+d) + sum_s w_s*ln(1+n_s)
//	score = 1 / (1 + e^-raw)
//
// A subject with zero events short-circuits to the neutral prior so that a
// blank history is distinguishable from "many mild signals cancelled out".
func CompositeScore(events []models.BreachEvent, deviceCount int, w Weights) float64 {
	if len(events) == 0 {
		return NeutralScore
	}

	platforms := map[string]struct{}{}
	severityCounts := map[models.Severity]int{}
	for _, ev := range events {
		platforms[ev.OrgID] = struct{}{}
		severityCounts[ev.Severity]++
	}

	raw := w.Platforms * math.Log1p(float64(len(platforms)))
	raw += w.Devices * math.Log1p(float64(deviceCount))
	for severity, count := range severityCounts {
		if count == 0 {
			continue
		}
		weight, ok := w.Severity[severity]
		if !ok {
			weight = w.Severity[models.SeverityLow]
		}
		raw += weight * math.Log1p(float64(count))
	}

	return 1 / (1 + math.Exp(-raw))
}

// RefScore projects a composite score onto the 0-100 integer scale stored on
// the subject record.
func RefScore(score float64) int {
	return int(math.Round(score * 100))
}
