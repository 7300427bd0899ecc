// Package memory provides an in-memory status recorder, the default
// when no database is configured.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/simple-munki/pkg/simplemunki/status"
)

// Recorder implements status.Recorder using in-memory storage
type Recorder struct {
	mu      sync.RWMutex
	reports map[string]status.Status
}

// New creates a new in-memory status recorder
func New() status.Recorder {
	return &Recorder{
		reports: make(map[string]status.Status),
	}
}

// Report upserts the report for key, keeping the ID of an existing one
func (r *Recorder) Report(ctx context.Context, key string, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	report, exists := r.reports[key]
	if !exists {
		report = status.Status{ID: uuid.New(), Key: key}
	}
	report.Message = message
	report.UpdatedAt = time.Now().UTC()
	r.reports[key] = report
}

// Get returns the latest report for key
func (r *Recorder) Get(ctx context.Context, key string) (*status.Status, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	report, exists := r.reports[key]
	if !exists {
		return nil, status.ErrStatusNotFound
	}
	return &report, nil
}

// Delete removes the report for key
func (r *Recorder) Delete(ctx context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.reports[key]; !exists {
		return status.ErrStatusNotFound
	}
	delete(r.reports, key)
	return nil
}
