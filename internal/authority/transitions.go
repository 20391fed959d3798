package authority

import (
	"time"

	types "github.com/peakline/aeo-backend/internal/domain"
)

// Failure thresholds that derive engine status. Maintenance is an
// operator override and never derived here.
const (
	unavailableAfterFailures = 5
	degradedAfterFailures    = 3
)

// Reliability is only recomputed once the sample is large enough;
// below this the seeded value stands to avoid noisy early swings.
const reliabilityMinSamples = 10

const (
	weightMin = 0.5
	weightMax = 1.5

	degradedWeightCap = 0.75
)

// Outcome is one query attempt against an engine.
type Outcome struct {
	Success        bool
	ResponseTimeMs *int
}

// StatusFromFailures maps a consecutive-failure count to the derived
// engine status.
func StatusFromFailures(consecutiveFailures int) string {
	switch {
	case consecutiveFailures >= unavailableAfterFailures:
		return types.EngineStatusUnavailable
	case consecutiveFailures >= degradedAfterFailures:
		return types.EngineStatusDegraded
	default:
		return types.EngineStatusHealthy
	}
}

// ComputeWeight derives the authority weight from the quality signals,
// then applies the status overrides: unavailable engines are pinned to
// the floor, degraded engines capped.
func ComputeWeight(reliability, citationCompleteness, freshness float64, status string) float64 {
	w := 0.8 + 0.4*reliability/100 + 0.2*citationCompleteness/100 + 0.1*freshness/100
	if w < weightMin {
		w = weightMin
	}
	if w > weightMax {
		w = weightMax
	}
	switch status {
	case types.EngineStatusUnavailable:
		return weightMin
	case types.EngineStatusDegraded:
		if w > degradedWeightCap {
			return degradedWeightCap
		}
	}
	return w
}

// Next computes the authority row after one query outcome. It never
// touches the database; the registry applies the result with a
// version-guarded write.
func Next(cur types.EngineAuthority, outcome Outcome, now time.Time) types.EngineAuthority {
	next := cur

	next.TotalQueries = cur.TotalQueries + 1
	if outcome.Success {
		next.SuccessfulQueries = cur.SuccessfulQueries + 1
		next.ConsecutiveFailures = 0
		t := now
		next.LastSuccessfulQuery = &t
	} else {
		next.ConsecutiveFailures = cur.ConsecutiveFailures + 1
		t := now
		next.LastFailure = &t
	}

	if next.TotalQueries > reliabilityMinSamples {
		next.ReliabilityScore = 100 * float64(next.SuccessfulQueries) / float64(next.TotalQueries)
	}

	// The operator-set maintenance flag survives every outcome.
	if cur.Status != types.EngineStatusMaintenance {
		next.Status = StatusFromFailures(next.ConsecutiveFailures)
	}

	next.AuthorityWeight = ComputeWeight(next.ReliabilityScore, next.CitationCompleteness, next.FreshnessIndex, next.Status)

	if outcome.ResponseTimeMs != nil {
		prevTotal := float64(cur.TotalQueries)
		next.AvgResponseTimeMs = (cur.AvgResponseTimeMs*prevTotal + float64(*outcome.ResponseTimeMs)) / float64(next.TotalQueries)
	}

	next.UpdatedAt = now
	return next
}
