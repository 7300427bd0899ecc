package simplemunki

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// store holds the root and collaborators shared by DocumentStore and
// FileStore.
type store struct {
	root     string
	vcs      VersionControl
	progress ProgressSink
	logger   *slog.Logger
}

func newStore(options ...Option) (store, error) {
	s := store{
		vcs:      NewNoopVersionControl(),
		progress: NewNoopProgressSink(),
		logger:   slog.Default(),
	}
	for _, option := range options {
		option(&s)
	}
	if s.root == "" {
		return store{}, errors.New("repo root is required")
	}
	return s, nil
}

// path resolves a slash-separated repo pathname to a filesystem path.
func (s *store) path(kind, pathname string) string {
	return filepath.Join(s.root, kind, filepath.FromSlash(pathname))
}

// makeParents creates missing intermediate directories for path.
func (s *store) makeParents(op, kind, pathname, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		s.logger.Error("creating parent directories failed",
			"kind", kind, "pathname", pathname, "error", err)
		return fileError(op, kind, pathname, ErrFileWrite, err)
	}
	return nil
}

// listFiles walks the directory for kind and returns slash-separated
// paths relative to it, in lexical order. The returned slice is never
// nil. Files whose name starts with a period are skipped everywhere.
// Directories for which prune returns true are not descended into.
// visit, when non-nil, observes each scanned directory ("" for the kind
// directory itself) before its entries. A kind path that does not exist,
// or that is a stray regular file, yields an empty list; unreadable
// subtrees are logged and skipped.
func (s *store) listFiles(kind string, prune func(name string) bool, visit func(subdir string)) ([]string, error) {
	kindDir := filepath.Join(s.root, kind)
	names := []string{}
	err := filepath.WalkDir(kindDir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			if path == kindDir && os.IsNotExist(err) {
				return filepath.SkipAll
			}
			s.logger.Warn("skipping unreadable path", "kind", kind, "path", path, "error", err)
			return nil
		}
		rel, err := filepath.Rel(kindDir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if entry.IsDir() {
			if path != kindDir && prune(entry.Name()) {
				return filepath.SkipDir
			}
			if visit != nil {
				if rel == "." {
					rel = ""
				}
				visit(rel)
			}
			return nil
		}
		// rel is "." only when the kind path is itself a regular file;
		// there is nothing to list under it.
		if rel == "." {
			return nil
		}
		if strings.HasPrefix(entry.Name(), ".") {
			return nil
		}
		names = append(names, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return names, nil
}

// recordAdd mirrors a create or overwrite at path. Mirror failures are
// logged, not surfaced: the filesystem change already happened.
func (s *store) recordAdd(ctx context.Context, path, kind, pathname, user string) {
	if user == "" {
		return
	}
	if err := s.vcs.RecordAdd(ctx, path, user); err != nil {
		s.logger.Warn("version control add failed",
			"kind", kind, "pathname", pathname, "user", user, "error", err)
	}
}

// recordRemove mirrors a removal at path, same contract as recordAdd.
func (s *store) recordRemove(ctx context.Context, path, kind, pathname, user string) {
	if user == "" {
		return
	}
	if err := s.vcs.RecordRemove(ctx, path, user); err != nil {
		s.logger.Warn("version control remove failed",
			"kind", kind, "pathname", pathname, "user", user, "error", err)
	}
}
