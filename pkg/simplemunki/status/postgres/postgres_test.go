package postgres_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-munki/pkg/simplemunki/status"
	"github.com/tendant/simple-munki/pkg/simplemunki/status/postgres"
)

// setupRecorder connects to the database named by STATUS_DATABASE_URL
// and isolates the test behind a fresh key prefix.
func setupRecorder(t *testing.T) (status.Recorder, *pgxpool.Pool) {
	t.Helper()
	databaseURL := os.Getenv("STATUS_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("Skipping PostgreSQL integration test. Set STATUS_DATABASE_URL to run.")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, databaseURL)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, pool.Ping(ctx))

	return postgres.NewWithPool(pool), pool
}

func testKey(t *testing.T, name string) string {
	return fmt.Sprintf("%s_%d_%s", t.Name(), os.Getpid(), name)
}

func TestRecorderIntegration(t *testing.T) {
	recorder, pool := setupRecorder(t)
	ctx := context.Background()

	key := testKey(t, "manifests_list_process")
	t.Cleanup(func() {
		pool.Exec(context.Background(), "DELETE FROM repo_status WHERE key = $1", key)
	})

	t.Run("get before any report", func(t *testing.T) {
		_, err := recorder.Get(ctx, key)
		assert.ErrorIs(t, err, status.ErrStatusNotFound)
	})

	t.Run("report then get", func(t *testing.T) {
		recorder.Report(ctx, key, "Scanning site...")

		report, err := recorder.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, key, report.Key)
		assert.Equal(t, "Scanning site...", report.Message)
		assert.False(t, report.UpdatedAt.IsZero())
	})

	t.Run("report replaces the message and keeps the id", func(t *testing.T) {
		first, err := recorder.Get(ctx, key)
		require.NoError(t, err)

		recorder.Report(ctx, key, "Scanning groups...")

		second, err := recorder.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, "Scanning groups...", second.Message)
		assert.Equal(t, first.ID, second.ID)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, recorder.Delete(ctx, key))

		_, err := recorder.Get(ctx, key)
		assert.ErrorIs(t, err, status.ErrStatusNotFound)

		err = recorder.Delete(ctx, key)
		assert.ErrorIs(t, err, status.ErrStatusNotFound)
	})
}
