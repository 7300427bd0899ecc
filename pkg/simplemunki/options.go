package simplemunki

import (
	"log/slog"
)

// Option is a functional option for configuring a store
type Option func(*store)

// WithRoot sets the repo root directory. Required.
func WithRoot(dir string) Option {
	return func(s *store) {
		s.root = dir
	}
}

// WithVersionControl sets the version control mirror for mutations
func WithVersionControl(vcs VersionControl) Option {
	return func(s *store) {
		s.vcs = vcs
	}
}

// WithProgressSink sets the sink for scan progress reports
func WithProgressSink(sink ProgressSink) Option {
	return func(s *store) {
		s.progress = sink
	}
}

// WithLogger sets the logger for the store
func WithLogger(logger *slog.Logger) Option {
	return func(s *store) {
		s.logger = logger
	}
}
