package loadtest

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/fasthttp/router"
	"github.com/rs/zerolog/log"
	"github.com/valyala/fasthttp"
)

// MetricsServer serves the Prometheus endpoint while a run is active.
type MetricsServer struct {
	ctx    context.Context
	port   string
	server *fasthttp.Server
}

func NewMetricsServer(ctx context.Context, port string) *MetricsServer {
	r := router.New()
	r.GET("/metrics", func(ctx *fasthttp.RequestCtx) {
		metrics.WritePrometheus(ctx, true)
	})
	r.GET("/healthz", func(ctx *fasthttp.RequestCtx) {
		ctx.SetStatusCode(fasthttp.StatusOK)
		ctx.SetBodyString("OK")
	})

	return &MetricsServer{
		ctx:  ctx,
		port: port,
		server: &fasthttp.Server{
			GetOnly:         true,
			CloseOnShutdown: true,
			Handler:         r.Handler,
		},
	}
}

// Start serves until the context is cancelled.
func (s *MetricsServer) Start() {
	port := s.port
	if !strings.HasPrefix(port, ":") {
		port = ":" + port
	}

	go func() {
		<-s.ctx.Done()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.server.ShutdownWithContext(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Warn().Msgf("[metrics-server] shutdown failed: %v", err)
		}
	}()

	log.Info().Msgf("[metrics-server] serving on %v", port)
	defer log.Info().Msgf("[metrics-server] stopped on %v", port)

	if err := s.server.ListenAndServe(port); err != nil {
		log.Error().Err(err).Msgf("[metrics-server] failed to listen and serve port %v", port)
	}
}
