// Package worker runs a pool of goroutines that drain a queue through a handler.
package worker

import (
	"github.com/okian/pitchlens/pkg/logger"
)

type config struct {
	name   string
	logger logger.Logger
	gate   <-chan struct{}
}

// Option applies a configuration option to a worker or pool.
type Option func(*config)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(c *config) {
		if name != "" {
			c.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(l logger.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithGate holds workers back until gate is closed. Items stay queued until
// then, so producers run into backpressure instead of being dropped.
func WithGate(gate <-chan struct{}) Option {
	return func(c *config) {
		c.gate = gate
	}
}
