// Package aggregate computes consumption summaries over a window of stove
// samples.
//
// Fuel and runtime are lifetime counters, so the consumption inside a window
// is the spread between the counter extremes. That makes the computation
// independent of sample order and tolerant of timestamp jitter on the read
// path.
package aggregate

import (
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/vincentpoireau/Rika-firenet/internal/storage"
)

// ErrNoData reports an empty window. It is an expected outcome, not a
// failure: callers skip the write step and report "no data" instead.
var ErrNoData = errors.New("aggregate: no samples in window")

// Summary holds full-precision figures for one window. Rounding happens at
// the persistence boundary, not here.
type Summary struct {
	FuelConsumedKg         decimal.Decimal
	RuntimeConsumedHours   decimal.Decimal
	AvgRoomTemperature     float64
	AvgExternalTemperature *float64
	SampleCount            int
	Anomalous              bool
	AnomalyReason          string
}

// Compute aggregates a window of samples. The input may arrive in any order
// and is not mutated. An empty input yields ErrNoData.
//
// A counter decrease inside the window violates the monotonic-counter
// invariant (counter reset or device replacement); the summary is then
// flagged anomalous and the consumption figures must not be used.
func Compute(samples []storage.StoveSample) (Summary, error) {
	if len(samples) == 0 {
		return Summary{}, ErrNoData
	}

	minFuel, maxFuel := samples[0].FuelCounterKg, samples[0].FuelCounterKg
	minHours, maxHours := samples[0].RuntimeCounterHours, samples[0].RuntimeCounterHours

	roomSum := 0.0
	extSum := 0.0
	extCount := 0

	for _, sample := range samples {
		if sample.FuelCounterKg.LessThan(minFuel) {
			minFuel = sample.FuelCounterKg
		}
		if sample.FuelCounterKg.GreaterThan(maxFuel) {
			maxFuel = sample.FuelCounterKg
		}
		if sample.RuntimeCounterHours.LessThan(minHours) {
			minHours = sample.RuntimeCounterHours
		}
		if sample.RuntimeCounterHours.GreaterThan(maxHours) {
			maxHours = sample.RuntimeCounterHours
		}

		roomSum += sample.RoomTemperature
		if sample.ExternalTemperature != nil {
			extSum += *sample.ExternalTemperature
			extCount++
		}
	}

	summary := Summary{
		FuelConsumedKg:       maxFuel.Sub(minFuel),
		RuntimeConsumedHours: maxHours.Sub(minHours),
		AvgRoomTemperature:   roomSum / float64(len(samples)),
		SampleCount:          len(samples),
	}

	// The external reading is optional per sample; the average covers only
	// the samples that carry one and stays absent when none do.
	if extCount > 0 {
		avg := extSum / float64(extCount)
		summary.AvgExternalTemperature = &avg
	}

	if reason, ok := detectCounterReset(samples); ok {
		summary.Anomalous = true
		summary.AnomalyReason = reason
	}

	return summary, nil
}

// detectCounterReset reports whether either counter decreases along the
// timestamp order of the window. The spread above is non-negative by
// construction, so a mid-window counter reset only shows up as a decrease
// between chronologically adjacent samples.
func detectCounterReset(samples []storage.StoveSample) (string, bool) {
	ordered := make([]storage.StoveSample, len(samples))
	copy(ordered, samples)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Timestamp.Before(ordered[j].Timestamp)
	})

	for i := 1; i < len(ordered); i++ {
		prev, cur := ordered[i-1], ordered[i]
		if cur.FuelCounterKg.LessThan(prev.FuelCounterKg) {
			return counterResetReason("fuel", prev.FuelCounterKg, cur.FuelCounterKg, cur), true
		}
		if cur.RuntimeCounterHours.LessThan(prev.RuntimeCounterHours) {
			return counterResetReason("runtime", prev.RuntimeCounterHours, cur.RuntimeCounterHours, cur), true
		}
	}
	return "", false
}

func counterResetReason(name string, prev, cur decimal.Decimal, sample storage.StoveSample) string {
	return fmt.Sprintf("%s counter went backwards at %s: %s -> %s",
		name, sample.Timestamp.Format("2006-01-02T15:04:05Z07:00"), prev.String(), cur.String())
}
