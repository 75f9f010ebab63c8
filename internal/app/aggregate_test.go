package app

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vincentpoireau/Rika-firenet/internal/aggregate"
	"github.com/vincentpoireau/Rika-firenet/internal/period"
	"github.com/vincentpoireau/Rika-firenet/internal/storage"
)

func dayWindow() period.Window {
	return period.Window{
		Start: time.Date(2024, time.March, 13, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, time.March, 13, 23, 59, 59, 999999999, time.UTC),
		Key:   "2024-03-13",
	}
}

func TestBuildRecordRounding(t *testing.T) {
	// Samples at 00:00/12:00/23:00 of one day: fuel 10.0 -> 12.5 -> 15.0,
	// runtime 100 -> 103 -> 106, room 20.0/21.5/19.0, one external 5.0.
	ext := 5.0
	samples := []storage.StoveSample{
		{
			Timestamp:           time.Date(2024, time.March, 13, 0, 0, 0, 0, time.UTC),
			RoomTemperature:     20.0,
			FuelCounterKg:       decimal.NewFromFloat(10.0),
			RuntimeCounterHours: decimal.NewFromFloat(100.0),
		},
		{
			Timestamp:           time.Date(2024, time.March, 13, 12, 0, 0, 0, time.UTC),
			RoomTemperature:     21.5,
			FuelCounterKg:       decimal.NewFromFloat(12.5),
			RuntimeCounterHours: decimal.NewFromFloat(103.0),
			ExternalTemperature: &ext,
		},
		{
			Timestamp:           time.Date(2024, time.March, 13, 23, 0, 0, 0, time.UTC),
			RoomTemperature:     19.0,
			FuelCounterKg:       decimal.NewFromFloat(15.0),
			RuntimeCounterHours: decimal.NewFromFloat(106.0),
		},
	}

	summary, err := aggregate.Compute(samples)
	if err != nil {
		t.Fatalf("Compute returned error: %v", err)
	}

	record := buildRecord(period.Day, dayWindow(), summary)

	if record.PeriodKind != "day" || record.PeriodKey != "2024-03-13" {
		t.Fatalf("period identity = %s/%s", record.PeriodKind, record.PeriodKey)
	}
	if record.FuelConsumedKg == nil || record.FuelConsumedKg.StringFixed(2) != "5.00" {
		t.Fatalf("fuel consumed = %v, want 5.00", record.FuelConsumedKg)
	}
	if record.RuntimeConsumedHours == nil || record.RuntimeConsumedHours.StringFixed(2) != "6.00" {
		t.Fatalf("runtime consumed = %v, want 6.00", record.RuntimeConsumedHours)
	}
	// Mean of 20.0/21.5/19.0 is 20.1666..., rounded to one decimal place.
	if record.AvgRoomTemperature == nil || *record.AvgRoomTemperature != 20.2 {
		t.Fatalf("avg room = %v, want 20.2", record.AvgRoomTemperature)
	}
	if record.AvgExternalTemperature == nil || *record.AvgExternalTemperature != 5.0 {
		t.Fatalf("avg external = %v, want 5.0", record.AvgExternalTemperature)
	}
	if record.SampleCount != 3 {
		t.Fatalf("sample count = %d, want 3", record.SampleCount)
	}
	if record.Anomalous {
		t.Fatal("record should not be anomalous")
	}
}

func TestBuildRecordAnomalyWithholdsConsumption(t *testing.T) {
	summary := aggregate.Summary{
		FuelConsumedKg:       decimal.NewFromFloat(947.0),
		RuntimeConsumedHours: decimal.NewFromFloat(3.0),
		AvgRoomTemperature:   20.0,
		SampleCount:          5,
		Anomalous:            true,
		AnomalyReason:        "fuel counter went backwards at 2024-03-13T23:00:00Z: 950 -> 3",
	}

	record := buildRecord(period.Day, dayWindow(), summary)

	if !record.Anomalous {
		t.Fatal("record must carry the anomaly flag")
	}
	if record.AnomalyReason == nil || *record.AnomalyReason == "" {
		t.Fatal("record must carry the anomaly reason")
	}
	if record.FuelConsumedKg != nil || record.RuntimeConsumedHours != nil {
		t.Fatal("anomalous record must not carry consumption figures")
	}
	if record.AvgRoomTemperature == nil {
		t.Fatal("temperature averages survive an anomalous window")
	}
}

func TestBuildRecordNoExternalAverage(t *testing.T) {
	summary := aggregate.Summary{
		FuelConsumedKg:       decimal.NewFromFloat(1.234),
		RuntimeConsumedHours: decimal.NewFromFloat(2.345),
		AvgRoomTemperature:   19.96,
		SampleCount:          2,
	}

	record := buildRecord(period.Week, period.Window{Key: "2024-W10"}, summary)

	if record.AvgExternalTemperature != nil {
		t.Fatal("missing external readings must stay absent, not zero")
	}
	if record.FuelConsumedKg.StringFixed(2) != "1.23" {
		t.Fatalf("fuel consumed = %s, want 1.23", record.FuelConsumedKg.StringFixed(2))
	}
	if record.RuntimeConsumedHours.StringFixed(2) != "2.35" {
		t.Fatalf("runtime consumed = %s, want 2.35", record.RuntimeConsumedHours.StringFixed(2))
	}
	if *record.AvgRoomTemperature != 20.0 {
		t.Fatalf("avg room = %v, want 20.0", *record.AvgRoomTemperature)
	}
}
