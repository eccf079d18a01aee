package loadtest

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/lhotari/async-tokenbucket/pkg/config"
	"github.com/lhotari/async-tokenbucket/pkg/shutdown"
)

// App runs the token bucket load test: a metrics endpoint, a measured run
// against the bucket and optionally a baseline run for comparison.
type App struct {
	ctx    context.Context
	cancel context.CancelFunc
	cfg    *config.Config
	meter  *Meter
	server *MetricsServer
}

func NewApp(ctx context.Context, cfg *config.Config) *App {
	ctx, cancel := context.WithCancel(ctx)

	app := &App{
		ctx:    ctx,
		cancel: cancel,
		cfg:    cfg,
		meter:  NewMeter(),
	}
	if port := cfg.Loadtest.MetricsPort; port != "" {
		app.server = NewMetricsServer(ctx, port)
	}
	return app
}

// Start performs the runs and reports the results. The Gracefuller is
// released when the app is done, and the app cancels its own context, which
// stops the metrics server.
func (a *App) Start(gc shutdown.Gracefuller) {
	defer func() {
		a.cancel()
		gc.Done()
	}()

	if a.server != nil {
		go a.server.Start()
	}

	lt := a.cfg.Loadtest
	log.Info().Msgf("[loadtest] consuming with %d workers for %s (rate=%d/s, clock granularity=%s)",
		lt.Workers, lt.Duration, lt.Rate, lt.ClockGranularity)

	res, err := a.runBucket(a.ctx)
	if err != nil {
		log.Err(err).Msg("[loadtest] bucket run failed")
		return
	}
	log.Info().Msgf("[loadtest] bucket: %d ops in %s, %d ops/s, tokens left %d",
		res.Ops, res.Elapsed, res.OpsPerSecond(), res.TokensLeft)

	if lt.Baseline {
		base := a.runBaseline(a.ctx)
		log.Info().Msgf("[loadtest] baseline: %d ops in %s, %d ops/s",
			base.Ops, base.Elapsed, base.OpsPerSecond())
	}
}
