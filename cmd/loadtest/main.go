package main

import (
	"context"
	"runtime"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/lhotari/async-tokenbucket/internal/loadtest"
	"github.com/lhotari/async-tokenbucket/pkg/config"
	"github.com/lhotari/async-tokenbucket/pkg/shutdown"
)

const configPath = "loadtest.cfg.yaml"

// setMaxProcs sets the optimal GOMAXPROCS value based on the available CPUs
// and cgroup/docker CPU quotas (uses automaxprocs).
func setMaxProcs() {
	if _, err := maxprocs.Set(); err != nil {
		log.Err(err).Msg("[main] setting up GOMAXPROCS value failed")
		panic(err)
	}
	log.Info().Msgf("[main] optimized GOMAXPROCS=%d was set up", runtime.GOMAXPROCS(0))
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// optional .env, loaded into the process environment
	if err := godotenv.Load(); err == nil {
		log.Info().Msg("[main] .env loaded")
	}

	setMaxProcs()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Err(err).Msg("[config] failed to load")
		return
	}

	gracefulShutdown := shutdown.NewGraceful(ctx, cancel)
	gracefulShutdown.SetGracefulTimeout(time.Minute)

	app := loadtest.NewApp(ctx, cfg)

	gracefulShutdown.Add(1)
	go func() {
		app.Start(gracefulShutdown)
		cancel() // a finished run exits the process without waiting for a signal
	}()

	if err := gracefulShutdown.ListenCancelAndAwait(); err != nil {
		log.Err(err).Msg("[main] failed to gracefully shut down")
	}
}
