package simplemunki

import (
	"context"
)

// VersionControl defines the interface for mirroring repo mutations into
// a version control system. Stores invoke it after the filesystem change
// has succeeded and only when the acting user is known; failures are
// logged and never rolled back.
type VersionControl interface {
	// RecordAdd is fired after the file at path was created or overwritten
	RecordAdd(ctx context.Context, path string, user string) error

	// RecordRemove is fired after the file at path was deleted
	RecordRemove(ctx context.Context, path string, user string) error
}

// ProgressSink defines the interface for progress reporting from
// long-running scans, so a UI can poll for the latest state.
type ProgressSink interface {
	// Report records the latest message for key, replacing any earlier one
	Report(ctx context.Context, key string, message string)
}
