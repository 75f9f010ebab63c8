package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/vincentpoireau/Rika-firenet/internal/config"
	"github.com/vincentpoireau/Rika-firenet/internal/rika"
	"github.com/vincentpoireau/Rika-firenet/internal/scheduler"
	"github.com/vincentpoireau/Rika-firenet/internal/storage"
	"github.com/vincentpoireau/Rika-firenet/internal/weather"
)

// Sampler polls the stove and weather collaborators and persists one raw
// sample per tick.
type Sampler struct {
	scheduler *scheduler.Scheduler
	stove     rika.StatusFetcher
	weather   weather.Fetcher
	store     storage.SampleStore
	logger    zerolog.Logger

	locker  storage.AdvisoryLocker
	lockKey int64
}

// NewSampler constructs the polling service. The weather fetcher may be nil
// when the lookup is disabled.
func NewSampler(cfg *config.Config, sched *scheduler.Scheduler, stove rika.StatusFetcher, wx weather.Fetcher, store storage.SampleStore, logger zerolog.Logger) *Sampler {
	var locker storage.AdvisoryLocker
	if l, ok := store.(storage.AdvisoryLocker); ok {
		locker = l
	}

	return &Sampler{
		scheduler: sched,
		stove:     stove,
		weather:   wx,
		store:     store,
		logger:    logger.With().Str("component", "sampler").Logger(),
		locker:    locker,
		lockKey:   cfg.Scheduler.AdvisoryLockKey,
	}
}

// Run begins the aligned polling loop.
func (s *Sampler) Run(ctx context.Context) error {
	if s.scheduler == nil {
		return fmt.Errorf("scheduler not configured")
	}
	return s.scheduler.Run(ctx, s.ProcessTick)
}

// ProcessTick takes one sample. Concurrent deployments coordinate via a
// postgres advisory lock so only one instance writes per tick.
func (s *Sampler) ProcessTick(ctx context.Context, tick time.Time) error {
	unlock, proceed, err := s.acquireLock(ctx)
	if err != nil {
		return err
	}
	if !proceed {
		s.logger.Debug().Time("tick", tick).Msg("skip tick because advisory lock held elsewhere")
		return nil
	}
	if unlock != nil {
		defer unlock()
	}

	return s.takeSample(ctx, tick)
}

func (s *Sampler) takeSample(ctx context.Context, tick time.Time) error {
	stoveID, err := s.stove.EnsureSession(ctx)
	if err != nil {
		return fmt.Errorf("establish firenet session: %w", err)
	}

	status, err := s.stove.FetchStatus(ctx, stoveID)
	if err != nil {
		// Expired sessions show up as fetch failures; drop the session so
		// the next tick logs in again.
		if resettable, ok := s.stove.(interface{ Reset() }); ok {
			resettable.Reset()
		}
		return fmt.Errorf("fetch stove status: %w", err)
	}

	sample := storage.StoveSample{
		Timestamp:           tick,
		RoomTemperature:     status.RoomTemperature,
		ThermostatTarget:    status.ThermostatTarget,
		IsBurning:           status.IsBurning,
		FuelCounterKg:       status.FuelCounterKg,
		RuntimeCounterHours: status.RuntimeCounterHours,
	}

	if s.weather != nil {
		if temp, wErr := s.weather.CurrentTemperature(ctx); wErr != nil {
			s.logger.Warn().Err(wErr).Time("tick", tick).Msg("weather lookup failed; sample recorded without external temperature")
		} else {
			sample.ExternalTemperature = &temp
		}
	}

	if err := s.store.InsertSample(ctx, sample); err != nil {
		return fmt.Errorf("persist sample: %w", err)
	}

	event := s.logger.Info().Time("tick", tick).
		Float64("room_temperature", status.RoomTemperature).
		Bool("is_burning", status.IsBurning).
		Str("fuel_counter_kg", status.FuelCounterKg.String())
	if sample.ExternalTemperature != nil {
		event = event.Float64("external_temperature", *sample.ExternalTemperature)
	}
	event.Msg("sample recorded")

	return nil
}

func (s *Sampler) acquireLock(ctx context.Context) (func(), bool, error) {
	if s.lockKey == 0 || s.locker == nil {
		return nil, true, nil
	}
	unlock, acquired, err := s.locker.TryAdvisoryLock(ctx, s.lockKey)
	if err != nil {
		return nil, false, fmt.Errorf("acquire advisory lock: %w", err)
	}
	if !acquired {
		return nil, false, nil
	}
	return unlock, true, nil
}
