// Package daemon assembles the persistence stores and long-running
// surfaces into one process with ordered startup and reverse-order
// shutdown.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"
)

const stopTimeout = 10 * time.Second

// Component is one unit of the daemon lifecycle. Start must not block;
// background work belongs in goroutines the component owns.
type Component struct {
	Name  string
	Start func() error
	Stop  func(ctx context.Context) error
}

// Daemon runs components in registration order and stops them in
// reverse.
type Daemon struct {
	logger     *slog.Logger
	components []Component
	started    []Component
}

// New creates an empty daemon.
func New(logger *slog.Logger) *Daemon {
	if logger == nil {
		logger = slog.Default()
	}
	return &Daemon{logger: logger.With("component", "daemon")}
}

// Add registers a component. Components start in the order they were
// added.
func (d *Daemon) Add(c Component) {
	d.components = append(d.components, c)
}

// Start starts every component in order. On failure, components already
// started are stopped in reverse before the error is returned.
func (d *Daemon) Start() error {
	for _, c := range d.components {
		if c.Start == nil {
			d.started = append(d.started, c)
			continue
		}
		if err := c.Start(); err != nil {
			d.logger.Error("component failed to start", "name", c.Name, "error", err)
			d.Stop()
			return fmt.Errorf("daemon: start %s: %w", c.Name, err)
		}
		d.logger.Debug("component started", "name", c.Name)
		d.started = append(d.started, c)
	}
	return nil
}

// Stop stops started components in reverse order. Errors are logged,
// not propagated, so every component gets its shutdown chance.
func (d *Daemon) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()

	for i := len(d.started) - 1; i >= 0; i-- {
		c := d.started[i]
		if c.Stop == nil {
			continue
		}
		if err := c.Stop(ctx); err != nil && !errors.Is(err, context.Canceled) {
			d.logger.Error("component failed to stop", "name", c.Name, "error", err)
		} else {
			d.logger.Debug("component stopped", "name", c.Name)
		}
	}
	d.started = nil
}

// Run starts all components and blocks until SIGINT or SIGTERM, then
// shuts down.
func (d *Daemon) Run() error {
	if err := d.Start(); err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	sig := <-sigCh
	d.logger.Info("shutdown signal received", "signal", sig.String())
	d.Stop()
	d.logger.Info("shutdown complete")
	return nil
}
