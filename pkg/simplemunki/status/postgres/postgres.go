// Package postgres provides a status recorder backed by PostgreSQL, for
// deployments where several server processes work against one repo.
//
// The schema lives in migrations/postgres.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/simple-munki/pkg/simplemunki/status"
)

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Recorder implements status.Recorder using PostgreSQL
type Recorder struct {
	db     DBTX
	logger *slog.Logger
}

// New creates a new PostgreSQL status recorder
func New(db DBTX) status.Recorder {
	return &Recorder{db: db, logger: slog.Default()}
}

// NewWithPool creates a new PostgreSQL status recorder with connection pool
func NewWithPool(pool *pgxpool.Pool) status.Recorder {
	return &Recorder{db: pool, logger: slog.Default()}
}

// Report upserts the report for key. Database failures are logged and
// swallowed: progress is advisory and must not fail the scan reporting it.
func (r *Recorder) Report(ctx context.Context, key string, message string) {
	query := `
		INSERT INTO repo_status (id, key, message, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (key) DO UPDATE
		SET message = EXCLUDED.message, updated_at = EXCLUDED.updated_at`

	_, err := r.db.Exec(ctx, query, uuid.New(), key, message, time.Now().UTC())
	if err != nil {
		r.logger.Error("recording status failed", "key", key,
			"error", r.handlePostgresError("report status", err))
	}
}

// Get returns the latest report for key
func (r *Recorder) Get(ctx context.Context, key string) (*status.Status, error) {
	query := `
		SELECT id, key, message, updated_at
		FROM repo_status
		WHERE key = $1`

	var report status.Status
	err := r.db.QueryRow(ctx, query, key).Scan(
		&report.ID, &report.Key, &report.Message, &report.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, status.ErrStatusNotFound
		}
		return nil, r.handlePostgresError("get status", err)
	}
	return &report, nil
}

// Delete removes the report for key
func (r *Recorder) Delete(ctx context.Context, key string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM repo_status WHERE key = $1`, key)
	if err != nil {
		return r.handlePostgresError("delete status", err)
	}
	if tag.RowsAffected() == 0 {
		return status.ErrStatusNotFound
	}
	return nil
}

// Error handling helper
func (r *Recorder) handlePostgresError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "42P01": // undefined_table
			return fmt.Errorf("repo_status table does not exist - database migration required")
		default:
			return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}
	return fmt.Errorf("database error in %s: %w", operation, err)
}
