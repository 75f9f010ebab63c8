package storage

import (
	"time"

	"github.com/shopspring/decimal"
)

// StoveSample is one appliance reading taken at a polling tick.
//
// FuelCounterKg and RuntimeCounterHours are lifetime counters reported by the
// stove; they only ever grow unless the hardware is replaced.
type StoveSample struct {
	Timestamp           time.Time
	RoomTemperature     float64
	ThermostatTarget    float64
	IsBurning           bool
	FuelCounterKg       decimal.Decimal
	RuntimeCounterHours decimal.Decimal
	ExternalTemperature *float64
	CreatedAt           time.Time
}

// PeriodAggregate summarises one reporting window, keyed by (kind, key).
//
// Optional fields are pointers: a nil value on write means "leave whatever is
// already stored for this key untouched" (merge semantics), and a nil value on
// read means the figure was never computed.
type PeriodAggregate struct {
	PeriodKind             string
	PeriodKey              string
	WindowStart            time.Time
	WindowEnd              time.Time
	FuelConsumedKg         *decimal.Decimal
	RuntimeConsumedHours   *decimal.Decimal
	AvgRoomTemperature     *float64
	AvgExternalTemperature *float64
	SampleCount            int
	Anomalous              bool
	AnomalyReason          *string
	ComputedAt             time.Time
}
