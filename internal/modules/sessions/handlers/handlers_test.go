package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/fundrisk/internal/modules/sessions"
	testingpkg "github.com/aristath/fundrisk/internal/testing"
)

func setupRouter(t *testing.T) http.Handler {
	t.Helper()
	db, cleanup := testingpkg.NewTestDBWithSchema(t, "session-handlers", sessions.Schema)
	t.Cleanup(cleanup)

	repo := sessions.NewRepository(db.Conn(), time.Hour)
	handler := NewHandler(repo, zerolog.New(nil).Level(zerolog.Disabled))

	router := chi.NewRouter()
	router.Route("/api", func(r chi.Router) {
		handler.RegisterRoutes(r)
	})
	return router
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHandleCreate(t *testing.T) {
	router := setupRouter(t)

	w := do(t, router, http.MethodPost, "/api/sessions", "")
	require.Equal(t, http.StatusCreated, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	data := response["data"].(map[string]interface{})

	_, err := uuid.Parse(data["session_id"].(string))
	assert.NoError(t, err)
	assert.Equal(t, float64(3600), data["ttl_seconds"])
}

func TestSessionCorrelationLifecycle(t *testing.T) {
	router := setupRouter(t)
	path := "/api/sessions/s-42/correlation"

	w := do(t, router, http.MethodGet, path, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, router, http.MethodPut, path, `{"labels":["equity","dollar"],"values":[[5,0.1],[0.3,1]]}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, router, http.MethodGet, path, "")
	require.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	data := response["data"].(map[string]interface{})
	assert.Equal(t, "s-42", data["session_id"])

	corr := data["correlation"].(map[string]interface{})
	assert.Equal(t, []interface{}{"Ações (Ibovespa)", "Câmbio (Dólar)"}, corr["labels"])
	values := corr["values"].([]interface{})
	assert.Equal(t, 1.0, values[0].([]interface{})[0])
	assert.InDelta(t, 0.2, values[0].([]interface{})[1].(float64), 1e-12)

	w = do(t, router, http.MethodDelete, path, "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, router, http.MethodDelete, path, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandlePutCorrelation_Invalid(t *testing.T) {
	router := setupRouter(t)

	w := do(t, router, http.MethodPut, "/api/sessions/s-1/correlation", `{"labels":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, router, http.MethodPut, "/api/sessions/s-1/correlation", `{"labels":["equity"],"values":[[1,0]]}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "InvalidCorrelationMatrix"))
}

func TestHandleGetCorrelation_InvalidID(t *testing.T) {
	router := setupRouter(t)

	w := do(t, router, http.MethodGet, "/api/sessions/"+strings.Repeat("x", 200)+"/correlation", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
