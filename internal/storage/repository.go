package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
	// ErrAggregateNotFound indicates no aggregate exists for a period key.
	ErrAggregateNotFound = errors.New("storage: aggregate not found")
)

const (
	insertSampleSQL = `INSERT INTO stove_samples (
        sample_ts,
        room_temperature,
        thermostat_target,
        is_burning,
        fuel_counter_kg,
        runtime_counter_hours,
        external_temperature
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7
    );`

	listSamplesBetweenSQL = `SELECT
        sample_ts,
        room_temperature,
        thermostat_target,
        is_burning,
        fuel_counter_kg,
        runtime_counter_hours,
        external_temperature,
        created_at
    FROM stove_samples
    WHERE sample_ts >= $1
      AND sample_ts <= $2
    ORDER BY sample_ts;`

	listRecentSamplesSQL = `SELECT
        sample_ts,
        room_temperature,
        thermostat_target,
        is_burning,
        fuel_counter_kg,
        runtime_counter_hours,
        external_temperature,
        created_at
    FROM stove_samples
    ORDER BY sample_ts DESC
    LIMIT $1;`

	upsertAggregateSQL = `INSERT INTO stove_aggregates (
        period_kind,
        period_key,
        window_start,
        window_end,
        fuel_consumed_kg,
        runtime_consumed_hours,
        avg_room_temperature,
        avg_external_temperature,
        sample_count,
        anomalous,
        anomaly_reason,
        computed_at
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,now()
    )
    ON CONFLICT (period_kind, period_key) DO UPDATE
    SET
        window_start             = EXCLUDED.window_start,
        window_end               = EXCLUDED.window_end,
        fuel_consumed_kg         = COALESCE(EXCLUDED.fuel_consumed_kg, stove_aggregates.fuel_consumed_kg),
        runtime_consumed_hours   = COALESCE(EXCLUDED.runtime_consumed_hours, stove_aggregates.runtime_consumed_hours),
        avg_room_temperature     = COALESCE(EXCLUDED.avg_room_temperature, stove_aggregates.avg_room_temperature),
        avg_external_temperature = COALESCE(EXCLUDED.avg_external_temperature, stove_aggregates.avg_external_temperature),
        sample_count             = EXCLUDED.sample_count,
        anomalous                = EXCLUDED.anomalous,
        anomaly_reason           = EXCLUDED.anomaly_reason,
        computed_at              = now();`

	getAggregateSQL = `SELECT
        period_kind,
        period_key,
        window_start,
        window_end,
        fuel_consumed_kg,
        runtime_consumed_hours,
        avg_room_temperature,
        avg_external_temperature,
        sample_count,
        anomalous,
        anomaly_reason,
        computed_at
    FROM stove_aggregates
    WHERE period_kind = $1
      AND period_key = $2;`

	listAggregatesSQL = `SELECT
        period_kind,
        period_key,
        window_start,
        window_end,
        fuel_consumed_kg,
        runtime_consumed_hours,
        avg_room_temperature,
        avg_external_temperature,
        sample_count,
        anomalous,
        anomaly_reason,
        computed_at
    FROM stove_aggregates
    WHERE period_kind = $1
    ORDER BY period_key DESC
    LIMIT $2;`

	listAggregatesBetweenSQL = `SELECT
        period_kind,
        period_key,
        window_start,
        window_end,
        fuel_consumed_kg,
        runtime_consumed_hours,
        avg_room_temperature,
        avg_external_temperature,
        sample_count,
        anomalous,
        anomaly_reason,
        computed_at
    FROM stove_aggregates
    WHERE period_kind = $1
      AND window_start >= $2
      AND window_end <= $3
    ORDER BY period_key;`

	tryAdvisoryLockSQL = `SELECT pg_try_advisory_lock($1);`
	advisoryUnlockSQL  = `SELECT pg_advisory_unlock($1);`
)

// SampleStore defines operations for raw sample persistence.
type SampleStore interface {
	InsertSample(ctx context.Context, sample StoveSample) error
	ListSamplesBetween(ctx context.Context, from, to time.Time) ([]StoveSample, int, error)
	ListRecentSamples(ctx context.Context, limit int) ([]StoveSample, error)
}

// AggregateStore defines operations for period aggregate persistence.
type AggregateStore interface {
	UpsertAggregate(ctx context.Context, agg PeriodAggregate) error
	GetAggregate(ctx context.Context, kind, key string) (PeriodAggregate, error)
	ListAggregates(ctx context.Context, kind string, limit int) ([]PeriodAggregate, error)
	ListAggregatesBetween(ctx context.Context, kind string, from, to time.Time) ([]PeriodAggregate, error)
}

// AdvisoryLocker exposes advisory lock helpers.
type AdvisoryLocker interface {
	TryAdvisoryLock(ctx context.Context, key int64) (unlock func(), acquired bool, err error)
}

// Store aggregates access to stove samples and period aggregates.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// TryAdvisoryLock attempts to acquire a postgres advisory lock and returns a release func.
func (s *Store) TryAdvisoryLock(ctx context.Context, key int64) (func(), bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, false, err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRow(ctx, tryAdvisoryLockSQL, key).Scan(&acquired); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !acquired {
		conn.Release()
		return nil, false, nil
	}

	unlock := func() {
		ctxUnlock, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_, _ = conn.Exec(ctxUnlock, advisoryUnlockSQL, key)
		conn.Release()
	}
	return unlock, true, nil
}

// InsertSample appends one raw stove sample.
func (s *Store) InsertSample(ctx context.Context, sample StoveSample) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	var ext interface{}
	if sample.ExternalTemperature != nil {
		ext = *sample.ExternalTemperature
	}

	_, execErr := pool.Exec(ctx, insertSampleSQL,
		sample.Timestamp,
		sample.RoomTemperature,
		sample.ThermostatTarget,
		sample.IsBurning,
		sample.FuelCounterKg.String(),
		sample.RuntimeCounterHours.String(),
		ext,
	)
	if execErr != nil {
		return fmt.Errorf("insert sample: %w", execErr)
	}
	return nil
}

// ListSamplesBetween lists samples whose timestamp lies in [from, to] inclusive.
// Rows missing a required counter field are skipped rather than failing the
// query; the second return value counts the skipped rows.
func (s *Store) ListSamplesBetween(ctx context.Context, from, to time.Time) ([]StoveSample, int, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, 0, err
	}

	rows, queryErr := pool.Query(ctx, listSamplesBetweenSQL, from, to)
	if queryErr != nil {
		return nil, 0, fmt.Errorf("list samples between: %w", queryErr)
	}
	defer rows.Close()

	samples := make([]StoveSample, 0)
	skipped := 0
	for rows.Next() {
		sample, ok, scanErr := scanStoveSample(rows)
		if scanErr != nil {
			return nil, skipped, scanErr
		}
		if !ok {
			skipped++
			continue
		}
		samples = append(samples, sample)
	}
	if rows.Err() != nil {
		return nil, skipped, rows.Err()
	}
	return samples, skipped, nil
}

// ListRecentSamples lists the most recent samples ordered by descending timestamp.
func (s *Store) ListRecentSamples(ctx context.Context, limit int) ([]StoveSample, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentSamplesSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent samples: %w", queryErr)
	}
	defer rows.Close()

	samples := make([]StoveSample, 0, limit)
	for rows.Next() {
		sample, ok, scanErr := scanStoveSample(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		if !ok {
			continue
		}
		samples = append(samples, sample)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return samples, nil
}

// UpsertAggregate writes an aggregate keyed by (period_kind, period_key).
// Existing rows are merged field by field: nil optional fields in agg leave
// the stored values untouched, so re-runs and partial writes never erase data.
func (s *Store) UpsertAggregate(ctx context.Context, agg PeriodAggregate) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	var fuel, runtime interface{}
	if agg.FuelConsumedKg != nil {
		fuel = agg.FuelConsumedKg.String()
	}
	if agg.RuntimeConsumedHours != nil {
		runtime = agg.RuntimeConsumedHours.String()
	}

	var avgRoom, avgExt interface{}
	if agg.AvgRoomTemperature != nil {
		avgRoom = *agg.AvgRoomTemperature
	}
	if agg.AvgExternalTemperature != nil {
		avgExt = *agg.AvgExternalTemperature
	}

	var reason interface{}
	if agg.AnomalyReason != nil {
		reason = *agg.AnomalyReason
	}

	_, execErr := pool.Exec(ctx, upsertAggregateSQL,
		agg.PeriodKind,
		agg.PeriodKey,
		agg.WindowStart,
		agg.WindowEnd,
		fuel,
		runtime,
		avgRoom,
		avgExt,
		agg.SampleCount,
		agg.Anomalous,
		reason,
	)
	if execErr != nil {
		return fmt.Errorf("upsert aggregate %s/%s: %w", agg.PeriodKind, agg.PeriodKey, execErr)
	}
	return nil
}

// GetAggregate fetches a single aggregate by period identity.
func (s *Store) GetAggregate(ctx context.Context, kind, key string) (PeriodAggregate, error) {
	pool, err := s.getPool()
	if err != nil {
		return PeriodAggregate{}, err
	}

	row := pool.QueryRow(ctx, getAggregateSQL, kind, key)
	agg, scanErr := scanPeriodAggregate(row)
	if scanErr != nil {
		if errors.Is(scanErr, pgx.ErrNoRows) {
			return PeriodAggregate{}, ErrAggregateNotFound
		}
		return PeriodAggregate{}, scanErr
	}
	return agg, nil
}

// ListAggregates lists the most recent aggregates of one kind.
func (s *Store) ListAggregates(ctx context.Context, kind string, limit int) ([]PeriodAggregate, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listAggregatesSQL, kind, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list aggregates: %w", queryErr)
	}
	defer rows.Close()

	return collectAggregates(rows, limit)
}

// ListAggregatesBetween lists aggregates of one kind whose window lies in [from, to].
func (s *Store) ListAggregatesBetween(ctx context.Context, kind string, from, to time.Time) ([]PeriodAggregate, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listAggregatesBetweenSQL, kind, from, to)
	if queryErr != nil {
		return nil, fmt.Errorf("list aggregates between: %w", queryErr)
	}
	defer rows.Close()

	return collectAggregates(rows, 0)
}

func collectAggregates(rows pgx.Rows, capacity int) ([]PeriodAggregate, error) {
	aggs := make([]PeriodAggregate, 0, capacity)
	for rows.Next() {
		agg, scanErr := scanPeriodAggregate(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		aggs = append(aggs, agg)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return aggs, nil
}

func scanStoveSample(rows pgx.Rows) (StoveSample, bool, error) {
	var (
		ts        time.Time
		roomTemp  sql.NullFloat64
		target    sql.NullFloat64
		burning   sql.NullBool
		fuelStr   sql.NullString
		hoursStr  sql.NullString
		extTemp   sql.NullFloat64
		createdAt time.Time
	)

	if err := rows.Scan(
		&ts,
		&roomTemp,
		&target,
		&burning,
		&fuelStr,
		&hoursStr,
		&extTemp,
		&createdAt,
	); err != nil {
		return StoveSample{}, false, err
	}

	// Required fields missing means the row is malformed; the caller skips it.
	if !fuelStr.Valid || !hoursStr.Valid || !roomTemp.Valid {
		return StoveSample{}, false, nil
	}

	fuel, err := decimal.NewFromString(fuelStr.String)
	if err != nil {
		return StoveSample{}, false, nil
	}
	hours, err := decimal.NewFromString(hoursStr.String)
	if err != nil {
		return StoveSample{}, false, nil
	}

	sample := StoveSample{
		Timestamp:           ts,
		RoomTemperature:     roomTemp.Float64,
		ThermostatTarget:    target.Float64,
		IsBurning:           burning.Valid && burning.Bool,
		FuelCounterKg:       fuel,
		RuntimeCounterHours: hours,
		CreatedAt:           createdAt,
	}
	if extTemp.Valid {
		value := extTemp.Float64
		sample.ExternalTemperature = &value
	}

	return sample, true, nil
}

func scanPeriodAggregate(row pgx.Row) (PeriodAggregate, error) {
	var (
		agg      PeriodAggregate
		fuelStr  sql.NullString
		hoursStr sql.NullString
		avgRoom  sql.NullFloat64
		avgExt   sql.NullFloat64
		reason   sql.NullString
	)

	if err := row.Scan(
		&agg.PeriodKind,
		&agg.PeriodKey,
		&agg.WindowStart,
		&agg.WindowEnd,
		&fuelStr,
		&hoursStr,
		&avgRoom,
		&avgExt,
		&agg.SampleCount,
		&agg.Anomalous,
		&reason,
		&agg.ComputedAt,
	); err != nil {
		return PeriodAggregate{}, err
	}

	if fuelStr.Valid {
		fuel, err := decimal.NewFromString(fuelStr.String)
		if err != nil {
			return PeriodAggregate{}, fmt.Errorf("parse fuel consumed: %w", err)
		}
		agg.FuelConsumedKg = &fuel
	}
	if hoursStr.Valid {
		hours, err := decimal.NewFromString(hoursStr.String)
		if err != nil {
			return PeriodAggregate{}, fmt.Errorf("parse runtime consumed: %w", err)
		}
		agg.RuntimeConsumedHours = &hours
	}
	if avgRoom.Valid {
		value := avgRoom.Float64
		agg.AvgRoomTemperature = &value
	}
	if avgExt.Valid {
		value := avgExt.Float64
		agg.AvgExternalTemperature = &value
	}
	if reason.Valid {
		value := reason.String
		agg.AnomalyReason = &value
	}

	return agg, nil
}
