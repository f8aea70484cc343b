// Package shutdown runs cleanup functions once when the process is asked to stop.
package shutdown

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/yourusername/modewatch/internal/output"
)

// Handler cancels a context on SIGINT or SIGTERM and then runs the registered
// cleanup functions in registration order, bounded by a timeout
type Handler struct {
	logger       output.Logger
	forceTimeout time.Duration

	mu    sync.Mutex
	funcs []func() error

	ctx        context.Context
	cancel     context.CancelFunc
	signalChan chan os.Signal
	done       chan struct{}
	once       sync.Once
}

// NewHandler creates a handler listening for termination signals
func NewHandler(logger output.Logger, forceTimeout time.Duration) *Handler {
	ctx, cancel := context.WithCancel(context.Background())
	h := &Handler{
		logger:       logger,
		forceTimeout: forceTimeout,
		ctx:          ctx,
		cancel:       cancel,
		signalChan:   make(chan os.Signal, 1),
		done:         make(chan struct{}),
	}

	signal.Notify(h.signalChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-h.signalChan:
			h.logger.Info("Received signal: %v", sig)
			h.Shutdown()
		case <-ctx.Done():
		}
	}()

	return h
}

// Context is canceled as soon as shutdown begins
func (h *Handler) Context() context.Context {
	return h.ctx
}

// RegisterShutdownFunc registers a cleanup function
func (h *Handler) RegisterShutdownFunc(fn func() error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.funcs = append(h.funcs, fn)
}

// Shutdown cancels the context and runs the cleanup functions. Only the first
// call has an effect.
func (h *Handler) Shutdown() {
	h.once.Do(func() {
		h.cancel()
		signal.Stop(h.signalChan)

		finished := make(chan struct{})
		go func() {
			h.runFuncs()
			close(finished)
		}()

		select {
		case <-finished:
			h.logger.Success("Shutdown completed")
		case <-time.After(h.forceTimeout):
			h.logger.Warning("Forced shutdown after %v", h.forceTimeout)
		}
		close(h.done)
	})
}

func (h *Handler) runFuncs() {
	h.mu.Lock()
	funcs := append([]func() error(nil), h.funcs...)
	h.mu.Unlock()

	for i, fn := range funcs {
		if err := fn(); err != nil {
			h.logger.Error("Shutdown function %d failed: %v", i+1, err)
		}
	}
}

// Done is closed when shutdown has completed
func (h *Handler) Done() <-chan struct{} {
	return h.done
}
