package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-munki/pkg/simplemunki/status"
	"github.com/tendant/simple-munki/pkg/simplemunki/status/memory"
)

func setupStatusHandlerTest(t *testing.T) (*StatusHandler, status.Recorder) {
	t.Helper()
	recorder := memory.New()
	return NewStatusHandler(recorder), recorder
}

func TestStatusHandler_GetStatus(t *testing.T) {
	handler, recorder := setupStatusHandlerTest(t)
	router := handler.Routes()

	recorder.Report(context.Background(), "manifests_list_process", "Scanning site...")

	req := httptest.NewRequest(http.MethodGet, "/manifests_list_process", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var st status.Status
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	assert.Equal(t, "manifests_list_process", st.Key)
	assert.Equal(t, "Scanning site...", st.Message)
	assert.False(t, st.UpdatedAt.IsZero())
}

func TestStatusHandler_GetStatus_NotFound(t *testing.T) {
	handler, _ := setupStatusHandlerTest(t)
	router := handler.Routes()

	req := httptest.NewRequest(http.MethodGet, "/no_such_process", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "not found")
}

func TestStatusHandler_DeleteStatus(t *testing.T) {
	handler, recorder := setupStatusHandlerTest(t)
	router := handler.Routes()

	recorder.Report(context.Background(), "pkgsinfo_list_process", "Scanning apps...")

	req := httptest.NewRequest(http.MethodDelete, "/pkgsinfo_list_process", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)

	_, err := recorder.Get(context.Background(), "pkgsinfo_list_process")
	assert.ErrorIs(t, err, status.ErrStatusNotFound)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/pkgsinfo_list_process", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
