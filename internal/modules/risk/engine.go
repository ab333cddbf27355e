package risk

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Request is one calculation run as submitted by a caller.
type Request struct {
	Fund             FundInfo           `json:"fund" yaml:"fund"`
	NAV              float64            `json:"nav" yaml:"nav"`
	HorizonDays      int                `json:"horizon_days" yaml:"horizon_days"` // 0 selects the engine default
	Confidence       string             `json:"confidence" yaml:"confidence"`     // "" selects the engine default
	UseCorrelation   bool               `json:"use_correlation" yaml:"use_correlation"`
	AutoCompleteCash bool               `json:"auto_complete_cash" yaml:"auto_complete_cash"`
	Positions        []PositionInput    `json:"positions" yaml:"positions"`
	Correlation      *CorrelationMatrix `json:"correlation,omitempty" yaml:"correlation,omitempty"`
	Scenarios        []ScenarioInput    `json:"scenarios,omitempty" yaml:"scenarios,omitempty"`
}

// Report is the full output of one run. Percentages are fractions of NAV.
type Report struct {
	RunID           string             `json:"run_id"`
	Fund            FundInfo           `json:"fund"`
	NAV             float64            `json:"nav"`
	HorizonDays     int                `json:"horizon_days"`
	Confidence      Confidence         `json:"confidence"`
	Z               float64            `json:"z"`
	CorrelationUsed bool               `json:"correlation_used"`
	AutoCompleted   bool               `json:"auto_completed"`
	TotalWeightPct  float64            `json:"total_weight_pct"`
	Positions       []IsolatedVaR      `json:"positions"`
	Portfolio       PortfolioVaR       `json:"portfolio"`
	Stress          []StressRow        `json:"stress"`
	Answers         []Answer           `json:"answers"`
	Correlation     *CorrelationMatrix `json:"correlation,omitempty"`
	CalculatedAt    time.Time          `json:"calculated_at"`
}

// Defaults fill in horizon and confidence when a request leaves them empty.
type Defaults struct {
	HorizonDays int
	Confidence  Confidence
}

// Engine runs the validation → correlation → VaR → stress → regulatory pipeline.
// It holds no per-run state and is safe for concurrent use.
type Engine struct {
	defaults Defaults
	factors  FactorMap
	now      func() time.Time
	log      zerolog.Logger
}

// NewEngine creates an engine. Invalid defaults fall back to 21 days at 95%.
func NewEngine(defaults Defaults, log zerolog.Logger) *Engine {
	if defaults.HorizonDays <= 0 {
		defaults.HorizonDays = RegulatoryHorizonDays
	}
	if defaults.Confidence.Z() == 0 {
		defaults.Confidence = Confidence95
	}
	return &Engine{
		defaults: defaults,
		factors:  DefaultFactorMap(),
		now:      time.Now,
		log:      log.With().Str("component", "risk_engine").Logger(),
	}
}

// Defaults returns the horizon and confidence applied to empty requests.
func (e *Engine) Defaults() Defaults {
	return e.defaults
}

// Calculate validates the request and computes the full report.
// Every validation failure is a *ValidationError and no arithmetic runs before all
// checks pass.
func (e *Engine) Calculate(req Request) (*Report, error) {
	portfolio, err := ValidateAllocation(AllocationInput{
		Fund:             req.Fund,
		NAV:              req.NAV,
		Positions:        req.Positions,
		AutoCompleteCash: req.AutoCompleteCash,
	})
	if err != nil {
		return nil, err
	}

	horizon := req.HorizonDays
	if horizon == 0 {
		horizon = e.defaults.HorizonDays
	}
	if horizon < 0 {
		return nil, newValidationError(KindInvalidHorizon, "horizon_days",
			"horizon must be a positive number of trading days, got %d", horizon)
	}

	confidence := e.defaults.Confidence
	if req.Confidence != "" {
		if confidence, err = ParseConfidence(req.Confidence); err != nil {
			return nil, err
		}
	}

	scenarios, err := MergeScenarios(req.Scenarios)
	if err != nil {
		return nil, err
	}

	var corr *CorrelationMatrix
	if req.UseCorrelation {
		m, err := e.prepareCorrelation(req.Correlation, portfolio.Classes())
		if err != nil {
			return nil, err
		}
		corr = &m
	}

	e.log.Debug().
		Int("positions", len(portfolio.Positions)).
		Bool("auto_completed", portfolio.AutoCompleted).
		Bool("correlation", corr != nil).
		Msg("Allocation validated")

	isolated, portfolioVaR, err := CalculateVaR(VaRInput{
		Portfolio:   portfolio,
		HorizonDays: horizon,
		Confidence:  confidence,
		Correlation: corr,
	})
	if err != nil {
		return nil, err
	}

	stress := StressImpacts(portfolio, e.factors, scenarios)
	answers := DeriveAnswers(RegulatoryInput{
		Portfolio:       portfolio,
		DailyVolatility: portfolioVaR.DailyVolatility,
		CorrelationUsed: corr != nil,
		Scenarios:       scenarios,
		Stress:          stress,
		Factors:         e.factors,
	})

	report := &Report{
		RunID:           uuid.New().String(),
		Fund:            portfolio.Fund,
		NAV:             portfolio.NAV,
		HorizonDays:     horizon,
		Confidence:      confidence,
		Z:               confidence.Z(),
		CorrelationUsed: corr != nil,
		AutoCompleted:   portfolio.AutoCompleted,
		TotalWeightPct:  portfolio.TotalWeightPct(),
		Positions:       isolated,
		Portfolio:       portfolioVaR,
		Stress:          stress,
		Answers:         answers,
		Correlation:     corr,
		CalculatedAt:    e.now().UTC(),
	}

	e.log.Info().
		Str("run_id", report.RunID).
		Str("fund", report.Fund.Name).
		Int("horizon_days", horizon).
		Str("confidence", string(confidence)).
		Float64("var_pct", portfolioVaR.VaRPct).
		Float64("daily_volatility", portfolioVaR.DailyVolatility).
		Msg("Risk calculation completed")

	return report, nil
}

// prepareCorrelation carries a caller-held matrix over to the current classes,
// symmetrizes it and aligns it to position order.
func (e *Engine) prepareCorrelation(previous *CorrelationMatrix, classes []AssetClass) (CorrelationMatrix, error) {
	reconciled, err := ReconcileCorrelation(previous, classes)
	if err != nil {
		return CorrelationMatrix{}, err
	}
	sanitized, err := SanitizeCorrelation(reconciled)
	if err != nil {
		return CorrelationMatrix{}, err
	}
	return sanitized.AlignedTo(classes)
}
