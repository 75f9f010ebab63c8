package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/vincentpoireau/Rika-firenet/internal/config"
	"github.com/vincentpoireau/Rika-firenet/internal/period"
	"github.com/vincentpoireau/Rika-firenet/internal/rika"
	"github.com/vincentpoireau/Rika-firenet/internal/scheduler"
	"github.com/vincentpoireau/Rika-firenet/internal/service"
	"github.com/vincentpoireau/Rika-firenet/internal/storage"
	"github.com/vincentpoireau/Rika-firenet/internal/weather"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

func (a *App) newStoveClient() *rika.Client {
	return rika.NewClient(rika.Options{
		BaseURL:   a.Config.Rika.BaseURL,
		Email:     a.Config.Rika.Email,
		Password:  a.Config.Rika.Password,
		Timeout:   a.Config.Rika.RequestTimeout,
		UserAgent: a.Config.Rika.UserAgent,
	}, a.Logger)
}

func (a *App) newWeatherClient() weather.Fetcher {
	if !a.Config.Weather.Enabled {
		return nil
	}
	return weather.NewClient(weather.Options{
		BaseURL:   a.Config.Weather.BaseURL,
		Latitude:  a.Config.Weather.Latitude,
		Longitude: a.Config.Weather.Longitude,
		Timeout:   a.Config.Weather.RequestTimeout,
	}, a.Logger)
}

// Run executes the long-running sampling service.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := a.Config.ValidateSampler(); err != nil {
		return err
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	sched := scheduler.New(scheduler.Options{
		Interval:     a.Config.Scheduler.Interval,
		AlignToStart: a.Config.Scheduler.AlignToBucket,
		StartupDelay: a.Config.Scheduler.StartupDelay,
	}, a.Logger)

	sampler := service.NewSampler(a.Config, sched, a.newStoveClient(), a.newWeatherClient(), store, a.Logger)

	a.Logger.Info().Dur("interval", a.Config.Scheduler.Interval).Msg("starting sampling service")
	err = sampler.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("sampling service terminated with error")
		return err
	}

	a.Logger.Info().Msg("sampling service stopped")
	return nil
}

// Migrate creates the database schema when missing.
func (a *App) Migrate(ctx context.Context) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	if err := store.EnsureSchema(ctx); err != nil {
		return err
	}
	a.Logger.Info().Msg("database schema ensured")
	return nil
}

// AggregateOptions configure one rollup invocation.
type AggregateOptions struct {
	Kind period.Kind
	// Now overrides the clock snapshot, for deterministic re-runs.
	Now *time.Time
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit      int
	Aggregates bool
	Kind       period.Kind
}

// ExportOptions hold parameters for exporting aggregate history.
type ExportOptions struct {
	Kind      period.Kind
	From      *time.Time
	To        *time.Time
	PNGPath   string
	CSVPath   string
	MaxPoints int
}
