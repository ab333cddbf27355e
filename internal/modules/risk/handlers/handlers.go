// Package handlers provides HTTP handlers for the risk engine.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/aristath/fundrisk/internal/modules/risk"
	"github.com/rs/zerolog"
)

const maxBodyBytes = 1 << 20

// Calculator runs one risk calculation.
type Calculator interface {
	Calculate(req risk.Request) (*risk.Report, error)
	Defaults() risk.Defaults
}

// CorrelationStore holds the last correlation matrix used by a session.
// Load returns nil, nil when the session has none.
type CorrelationStore interface {
	Load(ctx context.Context, sessionID string) (*risk.CorrelationMatrix, error)
	Save(ctx context.Context, sessionID string, m risk.CorrelationMatrix) error
}

// Recorder receives calculation outcomes for metrics.
type Recorder interface {
	ObserveCalculation(correlation bool, elapsed time.Duration)
	ObserveFailure(kind string)
}

type nopRecorder struct{}

func (nopRecorder) ObserveCalculation(bool, time.Duration) {}
func (nopRecorder) ObserveFailure(string)                  {}

// Handler handles risk HTTP requests
type Handler struct {
	engine   Calculator
	sessions CorrelationStore
	metrics  Recorder
	log      zerolog.Logger
}

// NewHandler creates a new risk handler. sessions and metrics may be nil.
func NewHandler(engine Calculator, sessions CorrelationStore, metrics Recorder, log zerolog.Logger) *Handler {
	if metrics == nil {
		metrics = nopRecorder{}
	}
	return &Handler{
		engine:   engine,
		sessions: sessions,
		metrics:  metrics,
		log:      log.With().Str("handler", "risk").Logger(),
	}
}

// calculateRequest is a risk.Request optionally bound to a session. When the
// request carries no matrix, the session's last matrix is used, and the matrix
// actually used is saved back.
type calculateRequest struct {
	risk.Request
	SessionID string `json:"session_id,omitempty"`
}

// HandleCalculate handles POST /api/risk/calculate
func (h *Handler) HandleCalculate(w http.ResponseWriter, r *http.Request) {
	var req calculateRequest
	if !h.decode(w, r, &req) {
		return
	}

	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID != "" && h.sessions != nil && req.Correlation == nil && req.UseCorrelation {
		stored, err := h.sessions.Load(r.Context(), sessionID)
		if err != nil {
			h.log.Error().Err(err).Str("session_id", sessionID).Msg("Failed to load session correlation")
			h.writeError(w, http.StatusInternalServerError, "Failed to load session")
			return
		}
		req.Correlation = stored
	}

	start := time.Now()
	report, err := h.engine.Calculate(req.Request)
	if err != nil {
		h.handleEngineError(w, err)
		return
	}
	h.metrics.ObserveCalculation(report.CorrelationUsed, time.Since(start))

	if sessionID != "" && h.sessions != nil && report.Correlation != nil {
		if err := h.sessions.Save(r.Context(), sessionID, *report.Correlation); err != nil {
			// The report is still valid; the caller just loses the carry-over.
			h.log.Warn().Err(err).Str("session_id", sessionID).Msg("Failed to save session correlation")
		}
	}

	h.writeJSON(w, http.StatusOK, envelope(report))
}

// HandleGetAssetClasses handles GET /api/risk/asset-classes
func (h *Handler) HandleGetAssetClasses(w http.ResponseWriter, r *http.Request) {
	factors := risk.DefaultFactorMap()
	classes := risk.AssetClasses()

	out := make([]map[string]interface{}, 0, len(classes))
	for _, c := range classes {
		out = append(out, map[string]interface{}{
			"name":               c,
			"code":               c.Code(),
			"default_volatility": c.DefaultVolatility(),
			"factor":             factors.FactorOf(c),
		})
	}

	defaults := h.engine.Defaults()
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"asset_classes":       out,
			"confidences":         risk.Confidences(),
			"default_horizon":     defaults.HorizonDays,
			"default_confidence":  defaults.Confidence,
			"default_correlation": risk.DefaultCorrelation,
		},
		"metadata": metadata(),
	})
}

// HandleGetScenarios handles GET /api/risk/scenarios
func (h *Handler) HandleGetScenarios(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"scenarios":          risk.DefaultScenarios(),
			"unit_shock":         risk.DefaultUnitShock,
			"regulatory_horizon": risk.RegulatoryHorizonDays,
		},
		"metadata": metadata(),
	})
}

type classesRequest struct {
	Classes []string `json:"classes"`
}

// HandleDefaultCorrelation handles POST /api/risk/correlation/default
func (h *Handler) HandleDefaultCorrelation(w http.ResponseWriter, r *http.Request) {
	var req classesRequest
	if !h.decode(w, r, &req) {
		return
	}
	classes, err := parseClasses(req.Classes)
	if err != nil {
		h.handleEngineError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, envelope(risk.BuildCorrelation(classes)))
}

type reconcileRequest struct {
	Previous *risk.CorrelationMatrix `json:"previous"`
	Classes  []string                `json:"classes"`
}

// HandleReconcileCorrelation handles POST /api/risk/correlation/reconcile
func (h *Handler) HandleReconcileCorrelation(w http.ResponseWriter, r *http.Request) {
	var req reconcileRequest
	if !h.decode(w, r, &req) {
		return
	}
	classes, err := parseClasses(req.Classes)
	if err != nil {
		h.handleEngineError(w, err)
		return
	}
	m, err := risk.ReconcileCorrelation(req.Previous, classes)
	if err != nil {
		h.handleEngineError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, envelope(m))
}

// HandleSanitizeCorrelation handles POST /api/risk/correlation/sanitize
func (h *Handler) HandleSanitizeCorrelation(w http.ResponseWriter, r *http.Request) {
	var m risk.CorrelationMatrix
	if !h.decode(w, r, &m) {
		return
	}
	out, err := risk.SanitizeCorrelation(m)
	if err != nil {
		h.handleEngineError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, envelope(out))
}

type matchRequest struct {
	Answers []risk.Answer `json:"answers"`
	Cells   []string      `json:"cells"`
}

type matchResult struct {
	Cell    string       `json:"cell"`
	Matched bool         `json:"matched"`
	Answer  *risk.Answer `json:"answer,omitempty"`
}

// HandleMatchAnswers handles POST /api/risk/answers/match
func (h *Handler) HandleMatchAnswers(w http.ResponseWriter, r *http.Request) {
	var req matchRequest
	if !h.decode(w, r, &req) {
		return
	}

	results := make([]matchResult, len(req.Cells))
	matched := 0
	for i, cell := range req.Cells {
		results[i].Cell = cell
		if a, ok := risk.MatchAnswer(req.Answers, cell); ok {
			a := a
			results[i].Matched = true
			results[i].Answer = &a
			matched++
		}
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": results,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
			"matched":   matched,
			"cells":     len(req.Cells),
		},
	})
}

func parseClasses(names []string) ([]risk.AssetClass, error) {
	classes := make([]risk.AssetClass, 0, len(names))
	seen := make(map[risk.AssetClass]bool, len(names))
	for _, name := range names {
		c, err := risk.ParseAssetClass(name)
		if err != nil {
			return nil, &risk.ValidationError{Kind: risk.KindUnknownAssetClass, Field: "classes", Message: err.Error()}
		}
		if seen[c] {
			return nil, &risk.ValidationError{Kind: risk.KindDuplicateAssetClass, Field: "classes", Message: "asset class " + string(c) + " listed twice"}
		}
		seen[c] = true
		classes = append(classes, c)
	}
	return classes, nil
}

// handleEngineError maps validation failures to 422 and anything else to 500.
func (h *Handler) handleEngineError(w http.ResponseWriter, err error) {
	var ve *risk.ValidationError
	if errors.As(err, &ve) {
		h.metrics.ObserveFailure(string(ve.Kind))
		h.log.Warn().Str("kind", string(ve.Kind)).Str("field", ve.Field).Msg(ve.Message)
		h.writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{"error": ve})
		return
	}
	h.metrics.ObserveFailure("internal")
	h.log.Error().Err(err).Msg("Risk calculation failed")
	h.writeError(w, http.StatusInternalServerError, "Risk calculation failed")
}

// decode reads a JSON body; on failure it writes a 400 and returns false.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.metrics.ObserveFailure("bad_request")
		h.log.Debug().Err(err).Msg("Invalid request body")
		h.writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

func envelope(data interface{}) map[string]interface{} {
	return map[string]interface{}{
		"data":     data,
		"metadata": metadata(),
	}
}

func metadata() map[string]interface{} {
	return map[string]interface{}{
		"timestamp": time.Now().Format(time.RFC3339),
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{"message": message},
	})
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
