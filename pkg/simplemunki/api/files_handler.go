package api

import (
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/tendant/simple-munki/pkg/simplemunki"
)

// uploadField is the form field carrying the payload of a multipart
// upload.
const uploadField = "filedata"

// FilesHandler serves the opaque files of the repo: packages, icons and
// client resources, addressed as {kind}/path
type FilesHandler struct {
	store *simplemunki.FileStore
}

// NewFilesHandler creates a handler for file endpoints backed by store
func NewFilesHandler(store *simplemunki.FileStore) *FilesHandler {
	return &FilesHandler{store: store}
}

// Routes returns the router for file endpoints
func (h *FilesHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/{kind}", h.ListFiles)
	r.Get("/{kind}/*", h.DownloadFile)
	r.Post("/{kind}/*", h.CreateFile)
	r.Put("/{kind}/*", h.WriteFile)
	r.Delete("/{kind}/*", h.DeleteFile)
	return r
}

// ListFiles returns the repo-relative paths of every file of a kind
func (h *FilesHandler) ListFiles(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")
	paths, err := h.store.List(r.Context(), kind)
	if err != nil {
		slog.Error("Failed to list files", "kind", kind, "error", err)
		writeStoreError(w, err)
		return
	}
	render.JSON(w, r, paths)
}

// DownloadFile streams the stored bytes of one file. The store resolves
// the filesystem path; http.ServeFile handles ranges and content types.
func (h *FilesHandler) DownloadFile(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")
	pathname, ok := pathParam(w, r)
	if !ok {
		return
	}

	path := h.store.FullPath(kind, pathname)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		http.Error(w, kind+"/"+pathname+" not found", http.StatusNotFound)
		return
	}
	http.ServeFile(w, r, path)
}

// CreateFile stores an uploaded file at a path nothing occupies yet
func (h *FilesHandler) CreateFile(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")
	pathname, ok := pathParam(w, r)
	if !ok {
		return
	}

	upload, err := uploadBody(r)
	if err != nil {
		slog.Error("Invalid upload", "kind", kind, "pathname", pathname, "error", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	defer upload.Close()

	if err := h.store.New(r.Context(), kind, upload, pathname, remoteUser(r)); err != nil {
		slog.Error("Failed to create file", "kind", kind, "pathname", pathname, "error", err)
		writeStoreError(w, err)
		return
	}

	slog.Info("File created", "kind", kind, "pathname", pathname)
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, map[string]string{"path": pathname})
}

// WriteFile overwrites the file at a path with the uploaded bytes
func (h *FilesHandler) WriteFile(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")
	pathname, ok := pathParam(w, r)
	if !ok {
		return
	}

	upload, err := uploadBody(r)
	if err != nil {
		slog.Error("Invalid upload", "kind", kind, "pathname", pathname, "error", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	defer upload.Close()

	if err := h.store.Write(r.Context(), kind, upload, pathname, remoteUser(r)); err != nil {
		slog.Error("Failed to write file", "kind", kind, "pathname", pathname, "error", err)
		writeStoreError(w, err)
		return
	}

	slog.Info("File written", "kind", kind, "pathname", pathname)
	render.JSON(w, r, map[string]string{"path": pathname})
}

// DeleteFile removes the file at a path
func (h *FilesHandler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")
	pathname, ok := pathParam(w, r)
	if !ok {
		return
	}

	if err := h.store.Delete(r.Context(), kind, pathname, remoteUser(r)); err != nil {
		slog.Error("Failed to delete file", "kind", kind, "pathname", pathname, "error", err)
		writeStoreError(w, err)
		return
	}

	slog.Info("File deleted", "kind", kind, "pathname", pathname)
	w.WriteHeader(http.StatusNoContent)
}

// uploadBody returns the payload of an upload request: the filedata part
// of a multipart form when one was posted, the raw body otherwise.
func uploadBody(r *http.Request) (io.ReadCloser, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, _, err := r.FormFile(uploadField)
		if err != nil {
			return nil, err
		}
		return file, nil
	}
	return r.Body, nil
}
