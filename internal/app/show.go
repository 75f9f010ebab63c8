package app

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/vincentpoireau/Rika-firenet/internal/storage"
)

type sampleLister interface {
	ListRecentSamples(ctx context.Context, limit int) ([]storage.StoveSample, error)
}

type aggregateLister interface {
	ListAggregates(ctx context.Context, kind string, limit int) ([]storage.PeriodAggregate, error)
}

// Show prints recent samples or aggregates.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	if opts.Aggregates {
		return a.showAggregates(ctx, store, opts)
	}
	return a.showSamples(ctx, store, opts)
}

func (a *App) showSamples(ctx context.Context, store sampleLister, opts ShowOptions) error {
	samples, err := store.ListRecentSamples(ctx, opts.Limit)
	if err != nil {
		return err
	}
	if len(samples) == 0 {
		fmt.Fprintln(os.Stdout, "no samples found")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Time\tRoom °C\tTarget °C\tBurning\tFuel kg\tRuntime h\tExt °C")

	for _, sample := range samples {
		ext := "-"
		if sample.ExternalTemperature != nil {
			ext = fmt.Sprintf("%.1f", *sample.ExternalTemperature)
		}
		fmt.Fprintf(
			writer,
			"%s\t%.1f\t%.1f\t%t\t%s\t%s\t%s\n",
			sample.Timestamp.Format(time.RFC3339),
			sample.RoomTemperature,
			sample.ThermostatTarget,
			sample.IsBurning,
			sample.FuelCounterKg.StringFixed(2),
			sample.RuntimeCounterHours.StringFixed(2),
			ext,
		)
	}

	return writer.Flush()
}

func (a *App) showAggregates(ctx context.Context, store aggregateLister, opts ShowOptions) error {
	aggs, err := store.ListAggregates(ctx, opts.Kind.String(), opts.Limit)
	if err != nil {
		return err
	}
	if len(aggs) == 0 {
		fmt.Fprintln(os.Stdout, "no aggregates found")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Period\tFuel kg\tRuntime h\tAvg room °C\tAvg ext °C\tSamples\tAnomalous")

	for _, agg := range aggs {
		fuel, runtime := "-", "-"
		if agg.FuelConsumedKg != nil {
			fuel = agg.FuelConsumedKg.StringFixed(2)
		}
		if agg.RuntimeConsumedHours != nil {
			runtime = agg.RuntimeConsumedHours.StringFixed(2)
		}
		avgRoom, avgExt := "-", "-"
		if agg.AvgRoomTemperature != nil {
			avgRoom = fmt.Sprintf("%.1f", *agg.AvgRoomTemperature)
		}
		if agg.AvgExternalTemperature != nil {
			avgExt = fmt.Sprintf("%.1f", *agg.AvgExternalTemperature)
		}
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\t%s\t%s\t%d\t%t\n",
			agg.PeriodKey,
			fuel,
			runtime,
			avgRoom,
			avgExt,
			agg.SampleCount,
			agg.Anomalous,
		)
	}

	return writer.Flush()
}
