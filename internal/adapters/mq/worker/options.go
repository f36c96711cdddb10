// Package worker drains a frame queue through the frame pipeline and hands
// the render parameters to a sink.
package worker

import (
	"github.com/okian/speakercam/pkg/logger"
)

// Option applies a configuration option to the StreamWorker.
type Option func(*StreamWorker)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(w *StreamWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(logger logger.Logger) Option {
	return func(w *StreamWorker) {
		if logger != nil {
			w.logger = logger
		}
	}
}
