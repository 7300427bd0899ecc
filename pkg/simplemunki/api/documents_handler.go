package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/tendant/simple-munki/pkg/simplemunki"
)

// userHeader names the request header carrying the authenticated admin,
// set by the fronting proxy. Mutations without it are still applied but
// stay out of the repo history.
const userHeader = "X-Remote-User"

// plistContentType is the wire format of the repo itself. Clients that
// send or accept it exchange plist bytes instead of a JSON rendering.
const plistContentType = "application/xml"

// DocumentsHandler serves the plist documents of one kind over HTTP
type DocumentsHandler struct {
	store    *simplemunki.DocumentStore
	kind     string
	readOnly bool
}

// NewDocumentsHandler creates a handler with full document CRUD for kind
func NewDocumentsHandler(store *simplemunki.DocumentStore, kind string) *DocumentsHandler {
	return &DocumentsHandler{store: store, kind: kind}
}

// NewReadOnlyDocumentsHandler creates a handler that only lists and reads
// documents of kind. Catalogs are served this way: repo tooling generates
// them and the API only displays them.
func NewReadOnlyDocumentsHandler(store *simplemunki.DocumentStore, kind string) *DocumentsHandler {
	return &DocumentsHandler{store: store, kind: kind, readOnly: true}
}

// Routes returns the router for document endpoints
func (h *DocumentsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ListDocuments)
	r.Get("/*", h.GetDocument)
	if !h.readOnly {
		r.Post("/*", h.CreateDocument)
		r.Put("/*", h.WriteDocument)
		r.Delete("/*", h.DeleteDocument)
	}
	return r
}

// ListDocuments returns the repo-relative paths of every document of the kind
func (h *DocumentsHandler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	paths, err := h.store.List(r.Context(), h.kind)
	if err != nil {
		slog.Error("Failed to list documents", "kind", h.kind, "error", err)
		writeStoreError(w, err)
		return
	}
	render.JSON(w, r, paths)
}

// GetDocument returns one document, as JSON by default or as the stored
// plist bytes when the client accepts XML
func (h *DocumentsHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	pathname, ok := pathParam(w, r)
	if !ok {
		return
	}

	if wantsPlist(r) {
		data, err := h.store.ReadRaw(r.Context(), h.kind, pathname)
		if err != nil {
			slog.Error("Failed to read document", "kind", h.kind, "pathname", pathname, "error", err)
			writeStoreError(w, err)
			return
		}
		w.Header().Set("Content-Type", plistContentType)
		w.Write(data)
		return
	}

	doc, err := h.store.Read(r.Context(), h.kind, pathname)
	if err != nil {
		slog.Error("Failed to read document", "kind", h.kind, "pathname", pathname, "error", err)
		writeStoreError(w, err)
		return
	}
	render.JSON(w, r, doc)
}

// CreateDocument creates a new document at the path. An empty body
// creates the starter template for the kind.
func (h *DocumentsHandler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	pathname, ok := pathParam(w, r)
	if !ok {
		return
	}

	content, err := decodeDocumentBody(r)
	if err != nil {
		slog.Error("Invalid document body", "kind", h.kind, "pathname", pathname, "error", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	data, err := h.store.New(r.Context(), h.kind, pathname, remoteUser(r), content)
	if err != nil {
		slog.Error("Failed to create document", "kind", h.kind, "pathname", pathname, "error", err)
		writeStoreError(w, err)
		return
	}

	slog.Info("Document created", "kind", h.kind, "pathname", pathname)
	if wantsPlist(r) {
		w.Header().Set("Content-Type", plistContentType)
		w.WriteHeader(http.StatusCreated)
		w.Write(data)
		return
	}

	doc, err := simplemunki.DecodeDocument(data)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, doc)
}

// WriteDocument stores the request body as the document at the path,
// creating or overwriting it. XML plist bodies are stored byte for byte;
// JSON bodies are converted to plist first.
func (h *DocumentsHandler) WriteDocument(w http.ResponseWriter, r *http.Request) {
	pathname, ok := pathParam(w, r)
	if !ok {
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		slog.Error("Failed to read request body", "kind", h.kind, "pathname", pathname, "error", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	data := body
	if !isPlist(r.Header.Get("Content-Type")) {
		var doc simplemunki.Document
		if err := json.Unmarshal(body, &doc); err != nil {
			slog.Error("Invalid document body", "kind", h.kind, "pathname", pathname, "error", err)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		data, err = simplemunki.EncodeDocument(doc)
		if err != nil {
			slog.Error("Failed to encode document", "kind", h.kind, "pathname", pathname, "error", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}

	if err := h.store.Write(r.Context(), data, h.kind, pathname, remoteUser(r)); err != nil {
		slog.Error("Failed to write document", "kind", h.kind, "pathname", pathname, "error", err)
		writeStoreError(w, err)
		return
	}

	slog.Info("Document written", "kind", h.kind, "pathname", pathname)
	render.JSON(w, r, map[string]string{"status": "written", "path": pathname})
}

// DeleteDocument removes the document at the path
func (h *DocumentsHandler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	pathname, ok := pathParam(w, r)
	if !ok {
		return
	}

	if err := h.store.Delete(r.Context(), h.kind, pathname, remoteUser(r)); err != nil {
		slog.Error("Failed to delete document", "kind", h.kind, "pathname", pathname, "error", err)
		writeStoreError(w, err)
		return
	}

	slog.Info("Document deleted", "kind", h.kind, "pathname", pathname)
	w.WriteHeader(http.StatusNoContent)
}

// decodeDocumentBody parses the request body as a document, plist or
// JSON according to Content-Type. An empty body yields nil so the store
// substitutes the starter template for the kind.
func decodeDocumentBody(r *http.Request) (simplemunki.Document, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, nil
	}
	if isPlist(r.Header.Get("Content-Type")) {
		return simplemunki.DecodeDocument(body)
	}
	var doc simplemunki.Document
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// pathParam returns the repo-relative path addressed by the request
// wildcard. Only canonical relative paths are accepted, so a request
// cannot climb out of the repo.
func pathParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	pathname := chi.URLParam(r, "*")
	if pathname == "" || path.Clean("/"+pathname) != "/"+pathname {
		slog.Error("Invalid repo path", "pathname", pathname)
		http.Error(w, "Invalid repo path", http.StatusBadRequest)
		return "", false
	}
	return pathname, true
}

// remoteUser returns the authenticated admin for the request, or "" for
// anonymous callers.
func remoteUser(r *http.Request) string {
	return r.Header.Get(userHeader)
}

// wantsPlist reports whether the client asked for plist bytes instead of
// JSON.
func wantsPlist(r *http.Request) bool {
	return isPlist(r.Header.Get("Accept"))
}

func isPlist(contentType string) bool {
	return strings.Contains(contentType, "xml")
}

// writeStoreError maps store error classes onto HTTP status codes
func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, simplemunki.ErrFileDoesNotExist):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, simplemunki.ErrFileAlreadyExists):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
