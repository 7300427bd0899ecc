package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/tendant/simple-munki/pkg/simplemunki/status"
)

// StatusHandler serves the progress reports recorded during repo scans
type StatusHandler struct {
	recorder status.Recorder
}

// NewStatusHandler creates a handler for status endpoints backed by recorder
func NewStatusHandler(recorder status.Recorder) *StatusHandler {
	return &StatusHandler{recorder: recorder}
}

// Routes returns the router for status endpoints
func (h *StatusHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/{key}", h.GetStatus)
	r.Delete("/{key}", h.DeleteStatus)
	return r
}

// GetStatus returns the latest progress report for a key
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	st, err := h.recorder.Get(r.Context(), key)
	if err != nil {
		if errors.Is(err, status.ErrStatusNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		slog.Error("Failed to get status", "key", key, "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	render.JSON(w, r, st)
}

// DeleteStatus removes the report for a key once a consumer is done with it
func (h *StatusHandler) DeleteStatus(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if err := h.recorder.Delete(r.Context(), key); err != nil {
		if errors.Is(err, status.ErrStatusNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		slog.Error("Failed to delete status", "key", key, "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
