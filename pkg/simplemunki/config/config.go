// Package config assembles the repo stores and their collaborators from
// defaults, programmatic options and the environment.
package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/simple-munki/pkg/simplemunki"
	"github.com/tendant/simple-munki/pkg/simplemunki/gitmirror"
	"github.com/tendant/simple-munki/pkg/simplemunki/status"
	statusmemory "github.com/tendant/simple-munki/pkg/simplemunki/status/memory"
	statuspg "github.com/tendant/simple-munki/pkg/simplemunki/status/postgres"
)

// Option applies configuration to a ServerConfig instance.
type Option func(*ServerConfig) error

// Load constructs a ServerConfig by applying the supplied options on top
// of library defaults.
func Load(opts ...Option) (*ServerConfig, error) {
	cfg := defaults()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func defaults() ServerConfig {
	return ServerConfig{
		Port:              "8080",
		Environment:       "development",
		RepoDir:           "./munki_repo",
		GitPath:           "git",
		GitAuthorDomain:   "localhost",
		GitCommitterName:  "simple-munki",
		GitCommitterEmail: "simple-munki@localhost",
	}
}

// WithEnv applies environment variable overrides. A variable only
// overrides when it is set, so options applied earlier survive.
func WithEnv() Option {
	return func(c *ServerConfig) error {
		return cleanenv.ReadEnv(c)
	}
}

// ServerConfig represents server configuration for the simple-munki service
type ServerConfig struct {
	Port        string `env:"PORT"`
	Environment string `env:"ENVIRONMENT"` // development, production, testing

	// Repo configuration
	RepoDir string `env:"MUNKI_REPO_DIR"`

	// Git mirror configuration
	GitEnabled        bool   `env:"MUNKI_GIT_ENABLED"`
	GitPath           string `env:"MUNKI_GIT_PATH"`
	GitAuthorDomain   string `env:"MUNKI_GIT_AUTHOR_DOMAIN"`
	GitCommitterName  string `env:"MUNKI_GIT_COMMITTER_NAME"`
	GitCommitterEmail string `env:"MUNKI_GIT_COMMITTER_EMAIL"`

	// Status recorder configuration. An empty URL keeps reports in
	// memory; a postgres:// URL shares them between server processes.
	StatusDatabaseURL string `env:"STATUS_DATABASE_URL"`
	StatusDBSchema    string `env:"STATUS_DB_SCHEMA"`
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}
	if c.RepoDir == "" {
		return errors.New("repo dir is required")
	}
	if c.GitEnabled && c.GitPath == "" {
		return errors.New("git path is required when the git mirror is enabled")
	}
	if c.StatusDatabaseURL != "" && !isPostgresURL(c.StatusDatabaseURL) {
		return fmt.Errorf("unsupported STATUS_DATABASE_URL format: %s (leave empty for memory or use 'postgresql://...')", c.StatusDatabaseURL)
	}
	return nil
}

func isPostgresURL(url string) bool {
	return strings.HasPrefix(url, "postgres://") || strings.HasPrefix(url, "postgresql://")
}

// Stores bundles the configured repo components.
type Stores struct {
	Documents *simplemunki.DocumentStore
	Files     *simplemunki.FileStore
	Status    status.Recorder

	pool *pgxpool.Pool
}

// Close releases resources held by the stores, such as the status
// database pool.
func (s *Stores) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// BuildStores creates the document and file stores and their
// collaborators from the server configuration.
func (c *ServerConfig) BuildStores() (*Stores, error) {
	recorder, pool, err := c.buildStatusRecorder()
	if err != nil {
		return nil, fmt.Errorf("failed to build status recorder: %w", err)
	}

	options := []simplemunki.Option{
		simplemunki.WithRoot(c.RepoDir),
		simplemunki.WithProgressSink(recorder),
	}

	if c.GitEnabled {
		mirror, err := gitmirror.New(gitmirror.Config{
			RepoDir:        c.RepoDir,
			GitPath:        c.GitPath,
			AuthorDomain:   c.GitAuthorDomain,
			CommitterName:  c.GitCommitterName,
			CommitterEmail: c.GitCommitterEmail,
		})
		if err != nil {
			if pool != nil {
				pool.Close()
			}
			return nil, fmt.Errorf("failed to build git mirror: %w", err)
		}
		options = append(options, simplemunki.WithVersionControl(mirror))
	}

	documents, err := simplemunki.NewDocumentStore(options...)
	if err != nil {
		if pool != nil {
			pool.Close()
		}
		return nil, fmt.Errorf("failed to build document store: %w", err)
	}

	files, err := simplemunki.NewFileStore(simplemunki.WithRoot(c.RepoDir))
	if err != nil {
		if pool != nil {
			pool.Close()
		}
		return nil, fmt.Errorf("failed to build file store: %w", err)
	}

	return &Stores{
		Documents: documents,
		Files:     files,
		Status:    recorder,
		pool:      pool,
	}, nil
}

// buildStatusRecorder creates a Recorder based on the configuration
func (c *ServerConfig) buildStatusRecorder() (status.Recorder, *pgxpool.Pool, error) {
	if c.StatusDatabaseURL == "" {
		return statusmemory.New(), nil, nil
	}

	cfg, err := pgxpool.ParseConfig(c.StatusDatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse STATUS_DATABASE_URL: %w", err)
	}
	// Optionally set search_path for the connection
	schema := c.StatusDBSchema
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		if schema == "" {
			return nil
		}
		// set search_path for this session
		_, err := conn.Exec(ctx, fmt.Sprintf("SET search_path TO %s", schema))
		return err
	}
	pool, err := pgxpool.NewWithConfig(context.Background(), cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}
	return statuspg.NewWithPool(pool), pool, nil
}

// PingPostgres verifies connectivity to Postgres and optionally sets
// search_path for the session. It fails if the schema (when provided)
// does not exist.
func PingPostgres(databaseURL, schema string) error {
	if databaseURL == "" {
		return errors.New("database url is required")
	}
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return fmt.Errorf("failed to parse database url: %w", err)
	}
	if schema != "" {
		cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
			_, err := conn.Exec(ctx, fmt.Sprintf("SET search_path TO %s", schema))
			return err
		}
	}
	pool, err := pgxpool.NewWithConfig(context.Background(), cfg)
	if err != nil {
		return fmt.Errorf("failed to create pgx pool: %w", err)
	}
	defer pool.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}
