package risk

import (
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine() *Engine {
	return NewEngine(Defaults{HorizonDays: 21, Confidence: Confidence95}, zerolog.New(nil).Level(zerolog.Disabled))
}

func baseRequest() Request {
	return Request{
		Fund: testFund(),
		NAV:  1_000_000,
		Positions: []PositionInput{
			{Class: "equity", WeightPct: 40},
			{Class: "prefixed_rate", WeightPct: 30},
			{Class: "dollar", WeightPct: 10},
		},
	}
}

func TestNewEngine_FallbackDefaults(t *testing.T) {
	e := NewEngine(Defaults{}, zerolog.New(nil).Level(zerolog.Disabled))
	assert.Equal(t, RegulatoryHorizonDays, e.Defaults().HorizonDays)
	assert.Equal(t, Confidence95, e.Defaults().Confidence)
}

func TestEngine_Calculate_SingleEquity(t *testing.T) {
	report, err := newTestEngine().Calculate(Request{
		Fund:        testFund(),
		NAV:         1_000_000,
		HorizonDays: 21,
		Confidence:  "95%",
		Positions:   []PositionInput{{Class: "Ações (Ibovespa)", WeightPct: 100, AnnualVolatility: floatPtr(0.25)}},
	})
	require.NoError(t, err)

	_, err = uuid.Parse(report.RunID)
	assert.NoError(t, err)
	assert.InDelta(t, 0.11871, report.Portfolio.VaRPct, 1e-4)
	assert.InDelta(t, 118_707, report.Portfolio.VaRCurrency, 1)
	assert.Len(t, report.Positions, 1)
	assert.Len(t, report.Stress, 5)
	assert.Len(t, report.Answers, 14)
	assert.Nil(t, report.Correlation)
	assert.False(t, report.CalculatedAt.IsZero())

	// Regulatory VaR uses 21d/95% and so equals the display VaR here.
	require.NotNil(t, report.Answers[0].Value)
	assert.InDelta(t, report.Portfolio.VaRPct, *report.Answers[0].Value, 1e-12)
}

func TestEngine_Calculate_RegulatoryIgnoresDisplaySettings(t *testing.T) {
	req := baseRequest()
	req.HorizonDays = 1
	req.Confidence = "99%"

	report, err := newTestEngine().Calculate(req)
	require.NoError(t, err)

	assert.Equal(t, Confidence99, report.Confidence)
	assert.Equal(t, 1, report.HorizonDays)

	want := Z95 * report.Portfolio.DailyVolatility * 4.58257569495584 // sqrt(21)
	assert.InDelta(t, want, *report.Answers[0].Value, 1e-12)
	assert.NotEqual(t, report.Portfolio.VaRPct, *report.Answers[0].Value)
}

func TestEngine_Calculate_AppliesDefaults(t *testing.T) {
	report, err := newTestEngine().Calculate(baseRequest())
	require.NoError(t, err)
	assert.Equal(t, 21, report.HorizonDays)
	assert.Equal(t, Confidence95, report.Confidence)
	assert.Equal(t, Z95, report.Z)
	assert.InDelta(t, 80, report.TotalWeightPct, 1e-12)
}

func TestEngine_Calculate_CorrelationMode(t *testing.T) {
	req := baseRequest()
	req.UseCorrelation = true
	req.AutoCompleteCash = true
	req.Correlation = &CorrelationMatrix{
		Labels: []AssetClass{ClassEquity, ClassPreFixedRate, ClassDollar},
		Values: [][]float64{
			{1, -0.3, 0.5},
			{-0.1, 1, 0.2},
			{0.5, 0.2, 1},
		},
	}

	report, err := newTestEngine().Calculate(req)
	require.NoError(t, err)

	require.NotNil(t, report.Correlation)
	assert.True(t, report.CorrelationUsed)
	assert.True(t, report.AutoCompleted)
	assert.Equal(t, []AssetClass{ClassEquity, ClassPreFixedRate, ClassDollar, ClassCash}, report.Correlation.Labels)

	v, ok := report.Correlation.Get(ClassEquity, ClassPreFixedRate)
	require.True(t, ok)
	assert.InDelta(t, -0.2, v, 1e-12, "user edit is symmetrized")

	v, ok = report.Correlation.Get(ClassCash, ClassDollar)
	require.True(t, ok)
	assert.Equal(t, DefaultCorrelation, v)

	assert.Equal(t, ModelClassCorrelated, report.Answers[1].Text)
	assert.Len(t, report.Positions, 4)
}

func TestEngine_Calculate_IdentityCorrelationMatchesPlain(t *testing.T) {
	plainReq := baseRequest()
	plain, err := newTestEngine().Calculate(plainReq)
	require.NoError(t, err)

	corrReq := baseRequest()
	corrReq.UseCorrelation = true
	corrReq.Correlation = &CorrelationMatrix{
		Labels: []AssetClass{ClassEquity, ClassPreFixedRate, ClassDollar},
		Values: [][]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}},
	}
	correlated, err := newTestEngine().Calculate(corrReq)
	require.NoError(t, err)

	assert.InDelta(t, plain.Portfolio.VaRPct, correlated.Portfolio.VaRPct, 1e-12)
}

func TestEngine_Calculate_ScenarioOverrides(t *testing.T) {
	req := baseRequest()
	req.Scenarios = []ScenarioInput{{Factor: "Ibovespa", Shock: floatPtr(-0.30), Description: "Queda de 30% no IBOVESPA"}}

	report, err := newTestEngine().Calculate(req)
	require.NoError(t, err)
	assert.InDelta(t, -0.12, report.Stress[0].ImpactPct, 1e-12)
	assert.Equal(t, "Queda de 30% no IBOVESPA", report.Answers[2].Text)
}

func TestEngine_Calculate_ValidationErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Request)
		want   error
	}{
		{"missing identity", func(r *Request) { r.Fund = FundInfo{} }, ErrMissingIdentity},
		{"negative nav", func(r *Request) { r.NAV = -1 }, ErrNonPositiveNAV},
		{"empty allocation", func(r *Request) { r.Positions = nil }, ErrEmptyAllocation},
		{"negative horizon", func(r *Request) { r.HorizonDays = -5 }, ErrInvalidHorizon},
		{"unknown confidence", func(r *Request) { r.Confidence = "97.5%" }, ErrUnknownConfidence},
		{"bad scenario", func(r *Request) { r.Scenarios = []ScenarioInput{{Factor: "Selic"}} }, ErrInvalidScenario},
		{"bad matrix", func(r *Request) {
			r.UseCorrelation = true
			r.Correlation = &CorrelationMatrix{Labels: []AssetClass{ClassEquity}, Values: [][]float64{{1, 0}}}
		}, ErrInvalidCorrelationMatrix},
		{"matrix entries out of range", func(r *Request) {
			r.UseCorrelation = true
			r.Correlation = &CorrelationMatrix{
				Labels: []AssetClass{ClassEquity, ClassDollar},
				Values: [][]float64{{1, 5}, {-5, 1}},
			}
		}, ErrInvalidCorrelationMatrix},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := baseRequest()
			tt.mutate(&req)
			report, err := newTestEngine().Calculate(req)
			assert.Nil(t, report)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestEngine_Calculate_MatrixIgnoredWithoutCorrelation(t *testing.T) {
	req := baseRequest()
	req.Correlation = &CorrelationMatrix{Labels: []AssetClass{"bogus"}}

	report, err := newTestEngine().Calculate(req)
	require.NoError(t, err)
	assert.False(t, report.CorrelationUsed)
	assert.Nil(t, report.Correlation)
}
