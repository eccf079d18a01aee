package shutdown

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
)

// Gracefuller tracks in-flight units of work and blocks shutdown until they
// are done or the graceful timeout expires.
type Gracefuller interface {
	Add(delta int)
	Done()
	SetGracefulTimeout(timeout time.Duration)
	ListenCancelAndAwait() error
}

type Graceful struct {
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	timeout time.Duration
}

func NewGraceful(ctx context.Context, cancel context.CancelFunc) *Graceful {
	return &Graceful{
		ctx:     ctx,
		cancel:  cancel,
		timeout: 30 * time.Second,
	}
}

func (g *Graceful) Add(delta int) { g.wg.Add(delta) }

func (g *Graceful) Done() { g.wg.Done() }

func (g *Graceful) SetGracefulTimeout(timeout time.Duration) { g.timeout = timeout }

// ListenCancelAndAwait blocks until an OS signal arrives or the root context
// is cancelled, then cancels the application context and waits for all
// registered units of work to finish within the graceful timeout.
func (g *Graceful) ListenCancelAndAwait() error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		log.Info().Msgf("[shutdown] received %v, shutting down", sig)
	case <-g.ctx.Done():
	}

	g.cancel()

	doneCh := make(chan struct{})
	go func() {
		defer close(doneCh)
		g.wg.Wait()
	}()

	select {
	case <-doneCh:
		return nil
	case <-time.After(g.timeout):
		return errors.New("shutdown: graceful timeout exceeded")
	}
}
