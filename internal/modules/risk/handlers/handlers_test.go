package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/fundrisk/internal/modules/risk"
	testingpkg "github.com/aristath/fundrisk/internal/testing"
)

func newTestEngine() *risk.Engine {
	return risk.NewEngine(risk.Defaults{HorizonDays: 21, Confidence: risk.Confidence95}, zerolog.New(nil).Level(zerolog.Disabled))
}

func setupRouter(t *testing.T, store CorrelationStore, rec Recorder) http.Handler {
	t.Helper()
	logger := zerolog.New(nil).Level(zerolog.Disabled)
	handler := NewHandler(newTestEngine(), store, rec, logger)

	router := chi.NewRouter()
	router.Route("/api", func(r chi.Router) {
		handler.RegisterRoutes(r)
	})
	return router
}

func doJSON(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if s, ok := body.(string); ok {
		buf.WriteString(s)
	} else if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	return response
}

func calcBody() map[string]interface{} {
	return map[string]interface{}{
		"fund":         map[string]interface{}{"name": "Fundo Alfa", "cnpj": "00.000.000/0001-00"},
		"nav":          1000000,
		"horizon_days": 21,
		"confidence":   "95%",
		"positions": []map[string]interface{}{
			{"class": "equity", "weight_pct": 100, "annual_volatility": 0.25},
		},
	}
}

func TestHandleCalculate(t *testing.T) {
	rec := &testingpkg.MockRecorder{}
	router := setupRouter(t, nil, rec)

	w := doJSON(t, router, http.MethodPost, "/api/risk/calculate", calcBody())

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	response := decodeBody(t, w)
	assert.Contains(t, response, "data")
	assert.Contains(t, response, "metadata")

	data := response["data"].(map[string]interface{})
	portfolio := data["portfolio"].(map[string]interface{})
	assert.InDelta(t, 0.11871, portfolio["var_pct"].(float64), 1e-4)
	assert.Len(t, data["answers"], 14)
	assert.Len(t, data["stress"], 5)
	assert.NotEmpty(t, data["run_id"])
	total, correlated := rec.Calculations()
	assert.Equal(t, 1, total)
	assert.Equal(t, 0, correlated)
}

func TestHandleCalculate_ValidationError(t *testing.T) {
	rec := &testingpkg.MockRecorder{}
	router := setupRouter(t, nil, rec)

	body := calcBody()
	body["positions"] = []map[string]interface{}{
		{"class": "equity", "weight_pct": 70},
		{"class": "dollar", "weight_pct": 40},
	}
	w := doJSON(t, router, http.MethodPost, "/api/risk/calculate", body)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	response := decodeBody(t, w)
	apiErr := response["error"].(map[string]interface{})
	assert.Equal(t, "AllocationOverflow", apiErr["kind"])
	assert.Equal(t, "positions", apiErr["field"])
	assert.NotEmpty(t, apiErr["message"])
	assert.Equal(t, []string{"AllocationOverflow"}, rec.Failures())
}

func TestHandleCalculate_MalformedJSON(t *testing.T) {
	router := setupRouter(t, nil, nil)

	w := doJSON(t, router, http.MethodPost, "/api/risk/calculate", `{"nav": `)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	response := decodeBody(t, w)
	assert.Contains(t, response, "error")
}

func TestHandleCalculate_SessionCarriesCorrelation(t *testing.T) {
	store := testingpkg.NewMockCorrelationStore()
	router := setupRouter(t, store, nil)

	body := calcBody()
	body["session_id"] = "s-1"
	body["use_correlation"] = true
	body["positions"] = []map[string]interface{}{
		{"class": "equity", "weight_pct": 50},
		{"class": "dollar", "weight_pct": 50},
	}
	body["correlation"] = map[string]interface{}{
		"labels": []string{"equity", "dollar"},
		"values": [][]float64{{1, -0.5}, {-0.5, 1}},
	}

	w := doJSON(t, router, http.MethodPost, "/api/risk/calculate", body)
	require.Equal(t, http.StatusOK, w.Code)

	saved, err := store.Load(context.Background(), "s-1")
	require.NoError(t, err)
	require.NotNil(t, saved)
	v, ok := saved.Get(risk.ClassEquity, risk.ClassDollar)
	require.True(t, ok)
	assert.Equal(t, -0.5, v)

	// A second run without a matrix picks up the stored edit, extended with cash.
	delete(body, "correlation")
	body["auto_complete_cash"] = true
	body["positions"] = []map[string]interface{}{
		{"class": "equity", "weight_pct": 40},
		{"class": "dollar", "weight_pct": 40},
	}
	w = doJSON(t, router, http.MethodPost, "/api/risk/calculate", body)
	require.Equal(t, http.StatusOK, w.Code)

	data := decodeBody(t, w)["data"].(map[string]interface{})
	corr := data["correlation"].(map[string]interface{})
	assert.Len(t, corr["labels"], 3)
	values := corr["values"].([]interface{})
	assert.Equal(t, -0.5, values[0].([]interface{})[1])
}

func TestHandleCalculate_SessionLoadFailure(t *testing.T) {
	store := testingpkg.NewMockCorrelationStore()
	store.SetLoadError(errors.New("database is locked"))
	router := setupRouter(t, store, nil)

	body := calcBody()
	body["session_id"] = "s-1"
	body["use_correlation"] = true

	w := doJSON(t, router, http.MethodPost, "/api/risk/calculate", body)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestHandleGetAssetClasses(t *testing.T) {
	router := setupRouter(t, nil, nil)

	w := doJSON(t, router, http.MethodGet, "/api/risk/asset-classes", nil)
	require.Equal(t, http.StatusOK, w.Code)

	data := decodeBody(t, w)["data"].(map[string]interface{})
	classes := data["asset_classes"].([]interface{})
	assert.Len(t, classes, 7)

	first := classes[0].(map[string]interface{})
	assert.Equal(t, "Ações (Ibovespa)", first["name"])
	assert.Equal(t, "equity", first["code"])
	assert.Equal(t, 0.25, first["default_volatility"])
	assert.Equal(t, "Ibovespa", first["factor"])
	assert.Equal(t, float64(21), data["default_horizon"])
	assert.Equal(t, "95%", data["default_confidence"])
}

func TestHandleGetScenarios(t *testing.T) {
	router := setupRouter(t, nil, nil)

	w := doJSON(t, router, http.MethodGet, "/api/risk/scenarios", nil)
	require.Equal(t, http.StatusOK, w.Code)

	data := decodeBody(t, w)["data"].(map[string]interface{})
	scenarios := data["scenarios"].([]interface{})
	require.Len(t, scenarios, 5)
	assert.Equal(t, "Ibovespa", scenarios[0].(map[string]interface{})["factor"])
	assert.Equal(t, -0.01, data["unit_shock"])
}

func TestHandleCorrelationEndpoints(t *testing.T) {
	router := setupRouter(t, nil, nil)

	t.Run("default", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/api/risk/correlation/default",
			map[string]interface{}{"classes": []string{"equity", "Juros-Pré"}})
		require.Equal(t, http.StatusOK, w.Code)
		m := decodeBody(t, w)["data"].(map[string]interface{})
		assert.Equal(t, []interface{}{"Ações (Ibovespa)", "Juros-Pré"}, m["labels"])
	})

	t.Run("default with unknown class", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/api/risk/correlation/default",
			map[string]interface{}{"classes": []string{"gold"}})
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("reconcile", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/api/risk/correlation/reconcile", map[string]interface{}{
			"previous": map[string]interface{}{
				"labels": []string{"equity", "dollar"},
				"values": [][]float64{{1, 0.9}, {0.9, 1}},
			},
			"classes": []string{"equity", "dollar", "other"},
		})
		require.Equal(t, http.StatusOK, w.Code)
		m := decodeBody(t, w)["data"].(map[string]interface{})
		values := m["values"].([]interface{})
		assert.Equal(t, 0.9, values[0].([]interface{})[1])
		assert.Equal(t, 0.2, values[0].([]interface{})[2])
	})

	t.Run("sanitize", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/api/risk/correlation/sanitize", map[string]interface{}{
			"labels": []string{"equity", "dollar"},
			"values": [][]float64{{2, 0.4}, {0.0, 1}},
		})
		require.Equal(t, http.StatusOK, w.Code)
		m := decodeBody(t, w)["data"].(map[string]interface{})
		values := m["values"].([]interface{})
		assert.Equal(t, 1.0, values[0].([]interface{})[0])
		assert.InDelta(t, 0.2, values[1].([]interface{})[0].(float64), 1e-12)
	})

	t.Run("sanitize rejects non-square", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/api/risk/correlation/sanitize", map[string]interface{}{
			"labels": []string{"equity", "dollar"},
			"values": [][]float64{{1, 0.4}},
		})
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		apiErr := decodeBody(t, w)["error"].(map[string]interface{})
		assert.Equal(t, "InvalidCorrelationMatrix", apiErr["kind"])
	})
}

func TestHandleMatchAnswers(t *testing.T) {
	router := setupRouter(t, nil, nil)

	report, err := newTestEngine().Calculate(risk.Request{
		Fund:      risk.FundInfo{Name: "Fundo", CNPJ: "1"},
		NAV:       100,
		Positions: []risk.PositionInput{{Class: "equity", WeightPct: 100}},
	})
	require.NoError(t, err)

	w := doJSON(t, router, http.MethodPost, "/api/risk/answers/match", map[string]interface{}{
		"answers": report.Answers,
		"cells": []string{
			risk.Question(risk.AnswerWorstStress),
			"Data de referência",
		},
	})
	require.Equal(t, http.StatusOK, w.Code)

	response := decodeBody(t, w)
	results := response["data"].([]interface{})
	require.Len(t, results, 2)

	first := results[0].(map[string]interface{})
	assert.Equal(t, true, first["matched"])
	assert.Equal(t, string(risk.AnswerWorstStress), first["answer"].(map[string]interface{})["id"])

	second := results[1].(map[string]interface{})
	assert.Equal(t, false, second["matched"])
	assert.NotContains(t, second, "answer")

	assert.Equal(t, float64(1), response["metadata"].(map[string]interface{})["matched"])
}

func TestHandleCalculate_FixtureBook(t *testing.T) {
	store := testingpkg.NewMockCorrelationStore()
	rec := &testingpkg.MockRecorder{}
	router := setupRouter(t, store, rec)

	body := struct {
		risk.Request
		SessionID string `json:"session_id"`
	}{Request: testingpkg.NewRequestFixture(), SessionID: "desk-7"}
	body.UseCorrelation = true

	w := doJSON(t, router, http.MethodPost, "/api/risk/calculate", body)
	require.Equal(t, http.StatusOK, w.Code)

	data := decodeBody(t, w)["data"].(map[string]interface{})
	assert.Len(t, data["positions"], 5)
	assert.Equal(t, true, data["correlation_used"])
	assert.Equal(t, 1, store.Len())

	_, correlated := rec.Calculations()
	assert.Equal(t, 1, correlated)
}

func TestHandleCalculate_SessionSaveFailureKeepsReport(t *testing.T) {
	store := testingpkg.NewMockCorrelationStore()
	store.SetSaveError(errors.New("disk full"))
	router := setupRouter(t, store, nil)

	body := struct {
		risk.Request
		SessionID string `json:"session_id"`
	}{Request: testingpkg.NewRequestFixture(), SessionID: "desk-8"}
	body.UseCorrelation = true

	w := doJSON(t, router, http.MethodPost, "/api/risk/calculate", body)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, store.Len())
}
