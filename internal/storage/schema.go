package storage

import (
	"context"
	"fmt"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS stove_samples (
    id                    BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
    sample_ts             TIMESTAMPTZ NOT NULL,
    room_temperature      DOUBLE PRECISION,
    thermostat_target     DOUBLE PRECISION,
    is_burning            BOOLEAN,
    fuel_counter_kg       NUMERIC(12,3),
    runtime_counter_hours NUMERIC(12,3),
    external_temperature  DOUBLE PRECISION,
    created_at            TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS stove_samples_sample_ts_idx ON stove_samples (sample_ts);

CREATE TABLE IF NOT EXISTS stove_aggregates (
    period_kind              TEXT NOT NULL,
    period_key               TEXT NOT NULL,
    window_start             TIMESTAMPTZ NOT NULL,
    window_end               TIMESTAMPTZ NOT NULL,
    fuel_consumed_kg         NUMERIC(12,2),
    runtime_consumed_hours   NUMERIC(12,2),
    avg_room_temperature     DOUBLE PRECISION,
    avg_external_temperature DOUBLE PRECISION,
    sample_count             INTEGER NOT NULL DEFAULT 0,
    anomalous                BOOLEAN NOT NULL DEFAULT false,
    anomaly_reason           TEXT,
    computed_at              TIMESTAMPTZ NOT NULL DEFAULT now(),
    PRIMARY KEY (period_kind, period_key)
);
`

// EnsureSchema creates the sample and aggregate tables when they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, execErr := pool.Exec(ctx, schemaSQL); execErr != nil {
		return fmt.Errorf("ensure schema: %w", execErr)
	}
	return nil
}
