package app

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"

	"github.com/vincentpoireau/Rika-firenet/internal/storage"
)

// Export renders aggregate history as CSV and/or PNG.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}

	opts.MaxPoints = a.Config.ResolveMaxPoints(opts.MaxPoints)

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	aggs, err := a.loadAggregates(ctx, store, opts)
	if err != nil {
		return err
	}
	if len(aggs) == 0 {
		a.Logger.Info().Str("kind", opts.Kind.String()).Msg("no aggregates found for export window")
		return nil
	}

	a.Logger.Info().Int("exported", len(aggs)).Str("kind", opts.Kind.String()).Msg("exporting aggregates")

	if opts.CSVPath != "" {
		if err := writeAggregatesCSV(opts.CSVPath, aggs); err != nil {
			return err
		}
	}

	if opts.PNGPath != "" {
		if err := writeAggregatesPNG(opts.PNGPath, aggs); err != nil {
			return err
		}
	}

	return nil
}

func (a *App) loadAggregates(ctx context.Context, store *storage.Store, opts ExportOptions) ([]storage.PeriodAggregate, error) {
	if opts.From != nil || opts.To != nil {
		to := time.Now()
		if opts.To != nil {
			to = *opts.To
		}
		from := to.AddDate(-1, 0, 0)
		if opts.From != nil {
			from = *opts.From
		}
		if !from.Before(to) {
			return nil, errors.New("from must be before to")
		}
		return store.ListAggregatesBetween(ctx, opts.Kind.String(), from, to)
	}

	// No explicit range: take the most recent aggregates in chronological order.
	aggs, err := store.ListAggregates(ctx, opts.Kind.String(), opts.MaxPoints)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(aggs)-1; i < j; i, j = i+1, j-1 {
		aggs[i], aggs[j] = aggs[j], aggs[i]
	}
	return aggs, nil
}

func writeAggregatesCSV(path string, aggs []storage.PeriodAggregate) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"period_key", "window_start", "window_end", "fuel_consumed_kg", "runtime_consumed_hours", "avg_room_temperature", "avg_external_temperature", "sample_count", "anomalous"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, agg := range aggs {
		fuel, runtime := "", ""
		if agg.FuelConsumedKg != nil {
			fuel = agg.FuelConsumedKg.StringFixed(2)
		}
		if agg.RuntimeConsumedHours != nil {
			runtime = agg.RuntimeConsumedHours.StringFixed(2)
		}
		avgRoom, avgExt := "", ""
		if agg.AvgRoomTemperature != nil {
			avgRoom = fmt.Sprintf("%.1f", *agg.AvgRoomTemperature)
		}
		if agg.AvgExternalTemperature != nil {
			avgExt = fmt.Sprintf("%.1f", *agg.AvgExternalTemperature)
		}
		record := []string{
			agg.PeriodKey,
			agg.WindowStart.Format(time.RFC3339),
			agg.WindowEnd.Format(time.RFC3339),
			fuel,
			runtime,
			avgRoom,
			avgExt,
			fmt.Sprintf("%d", agg.SampleCount),
			fmt.Sprintf("%t", agg.Anomalous),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return writer.Error()
}

func writeAggregatesPNG(path string, aggs []storage.PeriodAggregate) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	x := make([]time.Time, 0, len(aggs))
	fuel := make([]float64, 0, len(aggs))
	room := make([]float64, 0, len(aggs))
	ext := make([]float64, 0, len(aggs))
	extX := make([]time.Time, 0, len(aggs))

	for _, agg := range aggs {
		if agg.FuelConsumedKg == nil {
			// Anomalous windows carry no consumption figure.
			continue
		}
		x = append(x, agg.WindowStart)
		fuel = append(fuel, agg.FuelConsumedKg.InexactFloat64())
		if agg.AvgRoomTemperature != nil {
			room = append(room, *agg.AvgRoomTemperature)
		} else {
			room = append(room, 0)
		}
		if agg.AvgExternalTemperature != nil {
			extX = append(extX, agg.WindowStart)
			ext = append(ext, *agg.AvgExternalTemperature)
		}
	}

	if len(x) < 2 {
		return errors.New("not enough aggregates to render a chart")
	}

	tempFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.1f")
	}
	graph := chart.Chart{
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatter,
		},
		YAxis: chart.YAxis{
			Name:           "Fuel (kg)",
			ValueFormatter: tempFormatter,
		},
		YAxisSecondary: chart.YAxis{
			Name:           "Temperature (°C)",
			ValueFormatter: tempFormatter,
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "Fuel consumed",
				XValues: x,
				YValues: fuel,
			},
			chart.TimeSeries{
				Name:    "Avg room temp",
				XValues: x,
				YValues: room,
				YAxis:   chart.YAxisSecondary,
			},
		},
	}
	if len(ext) >= 2 {
		graph.Series = append(graph.Series, chart.TimeSeries{
			Name:    "Avg external temp",
			XValues: extX,
			YValues: ext,
			YAxis:   chart.YAxisSecondary,
		})
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
