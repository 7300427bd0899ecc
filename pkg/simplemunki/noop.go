package simplemunki

import (
	"context"
	"log/slog"
)

// NoopVersionControl is a no-operation implementation of VersionControl.
// It is the default for stores built without WithVersionControl.
type NoopVersionControl struct{}

// NewNoopVersionControl creates a new no-operation version control mirror
func NewNoopVersionControl() VersionControl {
	return &NoopVersionControl{}
}

// RecordAdd does nothing and returns nil
func (n *NoopVersionControl) RecordAdd(ctx context.Context, path string, user string) error {
	return nil
}

// RecordRemove does nothing and returns nil
func (n *NoopVersionControl) RecordRemove(ctx context.Context, path string, user string) error {
	return nil
}

// NoopProgressSink is a no-operation implementation of ProgressSink.
// It is the default for stores built without WithProgressSink.
type NoopProgressSink struct{}

// NewNoopProgressSink creates a new no-operation progress sink
func NewNoopProgressSink() ProgressSink {
	return &NoopProgressSink{}
}

// Report does nothing
func (n *NoopProgressSink) Report(ctx context.Context, key string, message string) {
}

// LoggingProgressSink is a progress sink that logs reports but takes no
// other action. Useful for development and for CLI runs with no status
// backend.
type LoggingProgressSink struct {
	logger *slog.Logger
}

// NewLoggingProgressSink creates a progress sink that logs every report
func NewLoggingProgressSink(logger *slog.Logger) ProgressSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingProgressSink{logger: logger}
}

// Report logs the progress report
func (l *LoggingProgressSink) Report(ctx context.Context, key string, message string) {
	l.logger.Info("progress", "key", key, "message", message)
}
