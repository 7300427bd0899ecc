package simplemunki

import (
	"context"
	"errors"
	"io"
	"os"
)

// controlDirs are version control and resource fork directories never
// shown in file listings.
var controlDirs = map[string]bool{
	".svn":         true,
	".git":         true,
	".AppleDouble": true,
}

// FileStore moves the opaque files of a repo: packages, icons, client
// resources and anything else addressed as raw bytes under a kind
// directory. File payloads are never mirrored to version control; bulk
// artifacts do not belong in the audit history.
type FileStore struct {
	store
}

// NewFileStore creates a FileStore rooted at the directory given with
// WithRoot.
func NewFileStore(options ...Option) (*FileStore, error) {
	s, err := newStore(options...)
	if err != nil {
		return nil, err
	}
	return &FileStore{store: s}, nil
}

// FullPath returns the absolute filesystem path for kind and pathname,
// suitable for handing to a webserver that serves the repo directly.
func (f *FileStore) FullPath(kind, pathname string) string {
	return f.path(kind, pathname)
}

// List returns the repo-relative paths of every file of kind, in lexical
// order. Control directories and dot-prefixed files are skipped.
func (f *FileStore) List(ctx context.Context, kind string) ([]string, error) {
	return f.listFiles(kind, func(name string) bool { return controlDirs[name] }, nil)
}

// New creates the file for kind at pathname from upload, creating
// missing parent directories. Fails with ErrFileAlreadyExists when
// anything is already at pathname.
func (f *FileStore) New(ctx context.Context, kind string, upload io.Reader, pathname, user string) error {
	path := f.path(kind, pathname)
	if _, err := os.Stat(path); err == nil {
		return fileError("create", kind, pathname, ErrFileAlreadyExists, nil)
	}
	if err := f.makeParents("create", kind, pathname, path); err != nil {
		return err
	}
	return f.Write(ctx, kind, upload, pathname, user)
}

// Write streams upload into the file for kind at pathname, overwriting
// whatever is there. Parent directories must already exist; New creates
// them.
func (f *FileStore) Write(ctx context.Context, kind string, upload io.Reader, pathname, user string) error {
	path := f.path(kind, pathname)
	file, err := os.Create(path)
	if err != nil {
		f.logger.Error("write failed", "kind", kind, "pathname", pathname, "error", err)
		return fileError("write", kind, pathname, ErrFileWrite, err)
	}
	_, err = io.Copy(file, upload)
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		f.logger.Error("write failed", "kind", kind, "pathname", pathname, "error", err)
		return fileError("write", kind, pathname, ErrFileWrite, err)
	}
	f.logger.Info("wrote file", "kind", kind, "pathname", pathname)
	return nil
}

// Delete removes the file for kind at pathname. Fails with
// ErrFileDoesNotExist when nothing is there and with ErrFileDelete when
// the path names a directory.
func (f *FileStore) Delete(ctx context.Context, kind, pathname, user string) error {
	path := f.path(kind, pathname)
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fileError("delete", kind, pathname, ErrFileDoesNotExist, nil)
		}
		f.logger.Error("delete failed", "kind", kind, "pathname", pathname, "error", err)
		return fileError("delete", kind, pathname, ErrFileDelete, err)
	}
	if info.IsDir() {
		err := errors.New("is a directory")
		f.logger.Error("delete failed", "kind", kind, "pathname", pathname, "error", err)
		return fileError("delete", kind, pathname, ErrFileDelete, err)
	}
	if err := os.Remove(path); err != nil {
		f.logger.Error("delete failed", "kind", kind, "pathname", pathname, "error", err)
		return fileError("delete", kind, pathname, ErrFileDelete, err)
	}
	f.logger.Info("deleted file", "kind", kind, "pathname", pathname)
	return nil
}
