// Package runner provides process lifecycle management for the CLI commands.
// A task runs until it returns or the process is interrupted, then registered
// components are shut down within a bounded window.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// ShutdownFunc is a function that shuts down a component gracefully.
type ShutdownFunc func(ctx context.Context) error

// Task is the blocking body of a command. It must return once ctx is done.
type Task func(ctx context.Context) error

// Runner runs a Task with graceful shutdown.
type Runner struct {
	shutdownTimeout time.Duration
	logger          *slog.Logger
	signals         []os.Signal
	shutdownFuncs   []ShutdownFunc
	mu              sync.Mutex
}

// New creates a Runner that reacts to SIGINT and SIGTERM.
func New(shutdownTimeout time.Duration, logger *slog.Logger) *Runner {
	return &Runner{
		shutdownTimeout: shutdownTimeout,
		logger:          logger.With("component", "runner"),
		signals:         []os.Signal{syscall.SIGINT, syscall.SIGTERM},
		shutdownFuncs:   make([]ShutdownFunc, 0),
	}
}

// OnShutdown registers a function to be called during graceful shutdown.
// Shutdown functions are called in reverse order (LIFO) after the task stops,
// so a page registered after its emitter is closed before the emitter drains.
func (r *Runner) OnShutdown(name string, fn ShutdownFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shutdownFuncs = append(r.shutdownFuncs, func(ctx context.Context) error {
		r.logger.Info("shutting down component", "name", name)
		if err := fn(ctx); err != nil {
			r.logger.Error("component shutdown error", "name", name, "error", err)
			return err
		}
		r.logger.Info("component stopped", "name", name)
		return nil
	})
}

// Run starts task and blocks until it returns, a shutdown signal arrives, or
// ctx ends. Shutdown funcs run in every case. A task stopped by cancellation
// is not an error.
func (r *Runner) Run(ctx context.Context, task Task) error {
	runCtx, stop := signal.NotifyContext(ctx, r.signals...)
	defer stop()

	taskErr := make(chan error, 1)
	go func() {
		taskErr <- task(runCtx)
	}()

	var err error
	select {
	case err = <-taskErr:
		r.logger.Info("task finished")
	case <-runCtx.Done():
		r.logger.Info("shutdown signal received", "cause", context.Cause(runCtx))
		err = r.awaitTask(taskErr)
	}
	if errors.Is(err, context.Canceled) {
		err = nil
	}

	shutdownErr := r.gracefulShutdown()
	if err != nil {
		return fmt.Errorf("task error: %w", err)
	}
	return shutdownErr
}

// awaitTask gives an interrupted task the shutdown window to return.
func (r *Runner) awaitTask(taskErr <-chan error) error {
	timer := time.NewTimer(r.shutdownTimeout)
	defer timer.Stop()
	select {
	case err := <-taskErr:
		return err
	case <-timer.C:
		r.logger.Warn("task did not stop within shutdown timeout", "timeout", r.shutdownTimeout)
		return nil
	}
}

// gracefulShutdown runs the registered components in reverse order.
func (r *Runner) gracefulShutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), r.shutdownTimeout)
	defer cancel()

	r.mu.Lock()
	funcs := r.shutdownFuncs
	r.mu.Unlock()

	r.logger.Info("stopping registered components", "count", len(funcs), "timeout", r.shutdownTimeout)

	var errs []error
	for i := len(funcs) - 1; i >= 0; i-- {
		if err := funcs[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		r.logger.Error("shutdown completed with errors", "error_count", len(errs))
		return errs[0]
	}

	r.logger.Info("stopped gracefully")
	return nil
}
