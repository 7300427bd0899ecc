package simplemunki

import (
	"context"
	"errors"
	"os"
	"strings"
)

// DocumentStore reads and writes the plist documents of a repo:
// manifests, pkgsinfo and any other kind laid out as a directory of
// property list files under the repo root.
type DocumentStore struct {
	store
}

// NewDocumentStore creates a DocumentStore rooted at the directory given
// with WithRoot.
func NewDocumentStore(options ...Option) (*DocumentStore, error) {
	s, err := newStore(options...)
	if err != nil {
		return nil, err
	}
	return &DocumentStore{store: s}, nil
}

// List returns the repo-relative paths of every document of kind, in
// lexical order. Dot-prefixed files and directories are skipped. Each
// scanned subdirectory is reported to the progress sink under the key
// "<kind>_list_process" so a UI can follow a slow scan.
func (d *DocumentStore) List(ctx context.Context, kind string) ([]string, error) {
	key := kind + "_list_process"
	return d.listFiles(kind,
		func(name string) bool { return strings.HasPrefix(name, ".") },
		func(subdir string) { d.progress.Report(ctx, key, "Scanning "+subdir+"...") })
}

// New creates the document for kind at pathname and returns its
// serialized form. A nil content creates the starter template for the
// kind. Fails with ErrFileAlreadyExists when anything is already at
// pathname. The mutation is mirrored to version control when user is
// known.
func (d *DocumentStore) New(ctx context.Context, kind, pathname, user string, content Document) ([]byte, error) {
	path := d.path(kind, pathname)
	if _, err := os.Stat(path); err == nil {
		return nil, fileError("create", kind, pathname, ErrFileAlreadyExists, nil)
	}
	if err := d.makeParents("create", kind, pathname, path); err != nil {
		return nil, err
	}
	if content == nil {
		content = DefaultDocument(kind)
	}
	data, err := EncodeDocument(content)
	if err != nil {
		d.logger.Error("document encode failed", "kind", kind, "pathname", pathname, "error", err)
		return nil, fileError("create", kind, pathname, ErrFileWrite, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		d.logger.Error("create failed", "kind", kind, "pathname", pathname, "error", err)
		return nil, fileError("create", kind, pathname, ErrFileWrite, err)
	}
	d.logger.Info("created document", "kind", kind, "pathname", pathname)
	d.recordAdd(ctx, path, kind, pathname, user)
	return data, nil
}

// Read returns the parsed document for kind at pathname. Fails with
// ErrFileDoesNotExist when nothing is there and ErrFileRead when the
// file cannot be read. Parse failures are not errors: a file that does
// not parse as a property list reads back as an empty document, logged
// at warn.
func (d *DocumentStore) Read(ctx context.Context, kind, pathname string) (Document, error) {
	data, err := d.ReadRaw(ctx, kind, pathname)
	if err != nil {
		return nil, err
	}
	doc, err := DecodeDocument(data)
	if err != nil {
		d.logger.Warn("unparseable document", "kind", kind, "pathname", pathname, "error", err)
		return Document{}, nil
	}
	return doc, nil
}

// ReadRaw returns the stored bytes of the document for kind at pathname
// without parsing them. Catalog files carry plist arrays at the root,
// which do not fit Document; relaying their bytes is the only faithful
// way to serve them.
func (d *DocumentStore) ReadRaw(ctx context.Context, kind, pathname string) ([]byte, error) {
	path := d.path(kind, pathname)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fileError("read", kind, pathname, ErrFileDoesNotExist, nil)
		}
		d.logger.Error("read failed", "kind", kind, "pathname", pathname, "error", err)
		return nil, fileError("read", kind, pathname, ErrFileRead, err)
	}
	return data, nil
}

// Write stores data verbatim as the document for kind at pathname,
// creating it if absent and overwriting it if not. Callers serialize for
// themselves; EncodeDocument covers documents built in memory. The
// mutation is mirrored to version control when user is known.
func (d *DocumentStore) Write(ctx context.Context, data []byte, kind, pathname, user string) error {
	path := d.path(kind, pathname)
	if err := d.makeParents("write", kind, pathname, path); err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		d.logger.Error("write failed", "kind", kind, "pathname", pathname, "error", err)
		return fileError("write", kind, pathname, ErrFileWrite, err)
	}
	d.logger.Info("wrote document", "kind", kind, "pathname", pathname)
	d.recordAdd(ctx, path, kind, pathname, user)
	return nil
}

// Delete removes the document for kind at pathname. Fails with
// ErrFileDoesNotExist when nothing is there and with ErrFileDelete when
// the path names a directory rather than a document. The removal is
// mirrored to version control when user is known.
func (d *DocumentStore) Delete(ctx context.Context, kind, pathname, user string) error {
	path := d.path(kind, pathname)
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fileError("delete", kind, pathname, ErrFileDoesNotExist, nil)
		}
		d.logger.Error("delete failed", "kind", kind, "pathname", pathname, "error", err)
		return fileError("delete", kind, pathname, ErrFileDelete, err)
	}
	if info.IsDir() {
		err := errors.New("is a directory")
		d.logger.Error("delete failed", "kind", kind, "pathname", pathname, "error", err)
		return fileError("delete", kind, pathname, ErrFileDelete, err)
	}
	if err := os.Remove(path); err != nil {
		d.logger.Error("delete failed", "kind", kind, "pathname", pathname, "error", err)
		return fileError("delete", kind, pathname, ErrFileDelete, err)
	}
	d.logger.Info("deleted document", "kind", kind, "pathname", pathname)
	d.recordRemove(ctx, path, kind, pathname, user)
	return nil
}
