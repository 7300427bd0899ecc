// Package status tracks progress reports from long-running repo scans
// so a UI can poll for them while the scan is still going.
//
// Recorder extends the ProgressSink contract of package simplemunki
// with retrieval and cleanup. Implementations live in the memory and
// postgres subpackages; memory suits a single server process, postgres
// suits several processes sharing one repo.
package status

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrStatusNotFound indicates no report exists for the key
var ErrStatusNotFound = errors.New("status not found")

// Status is the latest progress report for one key.
type Status struct {
	ID        uuid.UUID `json:"id"`
	Key       string    `json:"key"`
	Message   string    `json:"message"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Recorder defines the interface for storing and serving progress
// reports. Report never returns an error: progress is advisory and must
// not fail the operation being reported on, so implementations log
// their own failures.
type Recorder interface {
	// Report upserts the report for key
	Report(ctx context.Context, key string, message string)

	// Get returns the latest report for key
	Get(ctx context.Context, key string) (*Status, error)

	// Delete removes the report for key once consumers are done with it
	Delete(ctx context.Context, key string) error
}
