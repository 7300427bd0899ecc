// Package gitmirror records repo file mutations as git commits so the
// repo carries a history of who changed what.
//
// It shells out to the git executable rather than reimplementing git:
// the mirrored directory is an ordinary work tree that admins also use
// directly, and the system git respects their hooks and config. Mirror
// implements the VersionControl interface of package simplemunki.
package gitmirror

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
)

// Config for a Mirror.
type Config struct {
	// RepoDir is the directory whose mutations are mirrored. It must be
	// inside a git work tree.
	RepoDir string

	// GitPath is the git executable. Defaults to "git" resolved on PATH.
	GitPath string

	// AuthorDomain builds the commit author email as <user>@<domain>.
	// Defaults to "localhost".
	AuthorDomain string

	// CommitterName and CommitterEmail identify the service itself in
	// commits, separate from the acting user recorded as author.
	CommitterName  string
	CommitterEmail string

	Logger *slog.Logger
}

// Mirror commits repo file mutations to git, attributed to the acting
// user.
type Mirror struct {
	gitPath        string
	workTree       string
	authorDomain   string
	committerName  string
	committerEmail string
	logger         *slog.Logger

	// git serializes index access itself via .git/index.lock; holding a
	// lock here turns those failures into waiting instead.
	mu sync.Mutex
}

// New validates the git executable and the work tree and returns a
// Mirror for cfg.RepoDir.
func New(cfg Config) (*Mirror, error) {
	if cfg.RepoDir == "" {
		return nil, errors.New("repo dir is required")
	}
	gitPath := cfg.GitPath
	if gitPath == "" {
		gitPath = "git"
	}
	resolved, err := exec.LookPath(gitPath)
	if err != nil {
		return nil, fmt.Errorf("git executable not found: %w", err)
	}
	repoDir, err := filepath.Abs(cfg.RepoDir)
	if err != nil {
		return nil, err
	}

	m := &Mirror{
		gitPath:        resolved,
		authorDomain:   cfg.AuthorDomain,
		committerName:  cfg.CommitterName,
		committerEmail: cfg.CommitterEmail,
		logger:         cfg.Logger,
	}
	if m.authorDomain == "" {
		m.authorDomain = "localhost"
	}
	if m.committerName == "" {
		m.committerName = "simple-munki"
	}
	if m.committerEmail == "" {
		m.committerEmail = "simple-munki@localhost"
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}

	out, err := m.git(context.Background(), repoDir, "rev-parse", "--show-toplevel")
	if err != nil {
		return nil, fmt.Errorf("%s is not inside a git work tree: %w", repoDir, err)
	}
	m.workTree = strings.TrimSpace(out)
	return m, nil
}

// RecordAdd stages the file at path and commits it, attributed to user.
// Recording a file git already agrees with is a no-op, so retries are
// harmless.
func (m *Mirror) RecordAdd(ctx context.Context, path string, user string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rel, err := m.relPath(path)
	if err != nil {
		return err
	}
	if _, err := m.git(ctx, m.workTree, "add", "--", rel); err != nil {
		return err
	}
	return m.commit(ctx, rel, user, fmt.Sprintf("Update %s", rel))
}

// RecordRemove stages the removal of the file at path and commits it,
// attributed to user. Removing a file git never tracked is a no-op.
func (m *Mirror) RecordRemove(ctx context.Context, path string, user string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rel, err := m.relPath(path)
	if err != nil {
		return err
	}
	if _, err := m.git(ctx, m.workTree, "rm", "--ignore-unmatch", "-q", "--", rel); err != nil {
		return err
	}
	return m.commit(ctx, rel, user, fmt.Sprintf("Delete %s", rel))
}

// commit records the staged change to rel, unless nothing is staged.
func (m *Mirror) commit(ctx context.Context, rel, user, message string) error {
	// Exit 0 from diff --cached means the index matches HEAD for rel.
	if _, err := m.git(ctx, m.workTree, "diff", "--cached", "--quiet", "--", rel); err == nil {
		return nil
	}
	author := fmt.Sprintf("%s <%s@%s>", user, user, m.authorDomain)
	if _, err := m.git(ctx, m.workTree, "commit", "-q", "-m", message, "--author", author, "--", rel); err != nil {
		return err
	}
	m.logger.Info("committed to repo history", "path", rel, "user", user)
	return nil
}

// relPath resolves path to a work tree relative, slash separated path.
func (m *Mirror) relPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(m.workTree, abs)
	if err != nil {
		return "", err
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is outside the git work tree %s", path, m.workTree)
	}
	return filepath.ToSlash(rel), nil
}

func (m *Mirror) git(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, m.gitPath, args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"GIT_COMMITTER_NAME="+m.committerName,
		"GIT_COMMITTER_EMAIL="+m.committerEmail,
	)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("git %s: %w (%s)", args[0], err, strings.TrimSpace(out.String()))
	}
	m.logger.Debug("git", "args", args)
	return out.String(), nil
}
