package app

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/vincentpoireau/Rika-firenet/internal/aggregate"
	"github.com/vincentpoireau/Rika-firenet/internal/period"
	"github.com/vincentpoireau/Rika-firenet/internal/storage"
)

// Aggregate rolls the previous day, week, or month of raw samples into one
// summary record.
//
// The pipeline is a single pass: compute the window, read the samples,
// aggregate, upsert. The aggregate is keyed by the window's canonical period
// key and the upsert merges field by field, so re-running the same window is
// always safe. An empty window is a "no data" outcome, not an error.
func (a *App) Aggregate(ctx context.Context, opts AggregateOptions) error {
	loc, err := a.Config.Aggregation.Location()
	if err != nil {
		return err
	}

	// The clock is read once; all window math derives from this snapshot.
	now := time.Now()
	if opts.Now != nil {
		now = *opts.Now
	}

	win, err := period.Previous(now, opts.Kind, loc)
	if err != nil {
		return err
	}

	logger := a.Logger.With().
		Str("kind", opts.Kind.String()).
		Str("period_key", win.Key).
		Time("window_start", win.Start).
		Time("window_end", win.End).
		Logger()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	samples, skipped, err := store.ListSamplesBetween(ctx, win.Start, win.End)
	if err != nil {
		return err
	}
	if skipped > 0 {
		logger.Warn().Int("skipped", skipped).Msg("malformed samples skipped")
	}

	summary, err := aggregate.Compute(samples)
	if errors.Is(err, aggregate.ErrNoData) {
		logger.Info().Msg("no data for period; nothing written")
		return nil
	}
	if err != nil {
		return err
	}

	record := buildRecord(opts.Kind, win, summary)

	if summary.Anomalous {
		logger.Warn().
			Str("reason", summary.AnomalyReason).
			Int("samples", summary.SampleCount).
			Msg("counter anomaly detected; writing flagged record without consumption figures")
	}

	if err := store.UpsertAggregate(ctx, record); err != nil {
		return err
	}

	event := logger.Info().Int("samples", summary.SampleCount)
	if record.FuelConsumedKg != nil {
		event = event.Str("fuel_consumed_kg", record.FuelConsumedKg.StringFixed(2)).
			Str("runtime_consumed_hours", record.RuntimeConsumedHours.StringFixed(2))
	}
	if record.AvgRoomTemperature != nil {
		event = event.Float64("avg_room_temperature", *record.AvgRoomTemperature)
	}
	if record.AvgExternalTemperature != nil {
		event = event.Float64("avg_external_temperature", *record.AvgExternalTemperature)
	}
	event.Msg("aggregate stored")

	return nil
}

// buildRecord applies presentation rounding: consumption to 2 decimal
// places, temperature averages to 1. An anomalous summary keeps its averages
// but withholds the consumption figures; never a negative or clamped value.
func buildRecord(kind period.Kind, win period.Window, summary aggregate.Summary) storage.PeriodAggregate {
	record := storage.PeriodAggregate{
		PeriodKind:  kind.String(),
		PeriodKey:   win.Key,
		WindowStart: win.Start,
		WindowEnd:   win.End,
		SampleCount: summary.SampleCount,
		Anomalous:   summary.Anomalous,
	}

	avgRoom := roundTemp(summary.AvgRoomTemperature)
	record.AvgRoomTemperature = &avgRoom
	if summary.AvgExternalTemperature != nil {
		avgExt := roundTemp(*summary.AvgExternalTemperature)
		record.AvgExternalTemperature = &avgExt
	}

	if summary.Anomalous {
		reason := summary.AnomalyReason
		record.AnomalyReason = &reason
		return record
	}

	fuel := summary.FuelConsumedKg.Round(2)
	runtime := summary.RuntimeConsumedHours.Round(2)
	record.FuelConsumedKg = &fuel
	record.RuntimeConsumedHours = &runtime
	return record
}

func roundTemp(v float64) float64 {
	return math.Round(v*10) / 10
}
