package rika

import (
	"context"

	"github.com/shopspring/decimal"
)

// StoveStatus is the subset of the Firenet status payload the sampler needs.
type StoveStatus struct {
	RoomTemperature     float64
	ThermostatTarget    float64
	IsBurning           bool
	FuelCounterKg       decimal.Decimal
	RuntimeCounterHours decimal.Decimal
}

// StatusFetcher retrieves the current status of the connected stove.
type StatusFetcher interface {
	// EnsureSession logs in when needed and returns the discovered stove id.
	EnsureSession(ctx context.Context) (string, error)
	// FetchStatus reads the live status of the given stove.
	FetchStatus(ctx context.Context, stoveID string) (StoveStatus, error)
}
