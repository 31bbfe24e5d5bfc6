// Package worker runs the background wallet-resolve pool.
package worker

import (
	"github.com/stackerlabs/stacker/pkg/logger"
)

// Option applies a configuration option to the ResolveWorker.
type Option func(*ResolveWorker)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(w *ResolveWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(logger logger.Logger) Option {
	return func(w *ResolveWorker) {
		if logger != nil {
			w.logger = logger
		}
	}
}
