package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultScenarios(t *testing.T) {
	scenarios := DefaultScenarios()
	require.Len(t, scenarios, len(RiskFactors()))
	for i, f := range RiskFactors() {
		assert.Equal(t, f, scenarios[i].Factor)
		assert.NotEmpty(t, scenarios[i].Description)
	}
	assert.Equal(t, -0.15, scenarios[0].Shock)
	assert.Equal(t, 0.02, scenarios[1].Shock)

	scenarios[0].Shock = 0
	assert.Equal(t, -0.15, DefaultScenarios()[0].Shock, "callers get a copy")
}

func TestMergeScenarios(t *testing.T) {
	t.Run("override keeps factor order", func(t *testing.T) {
		got, err := MergeScenarios([]ScenarioInput{
			{Factor: "outros", Shock: floatPtr(-0.10)},
			{Factor: "Dólar", Shock: floatPtr(0.07), Description: "Alta de 7% no dólar"},
		})
		require.NoError(t, err)
		require.Len(t, got, 5)
		assert.Equal(t, FactorDollar, got[3].Factor)
		assert.Equal(t, 0.07, got[3].Shock)
		assert.Equal(t, "Alta de 7% no dólar", got[3].Description)
		assert.Equal(t, FactorOther, got[4].Factor)
		assert.Equal(t, -0.10, got[4].Shock)
		assert.Equal(t, "Queda de 3% em outros ativos", got[4].Description)
	})

	t.Run("unknown factor", func(t *testing.T) {
		_, err := MergeScenarios([]ScenarioInput{{Factor: "Petróleo", Shock: floatPtr(-0.1)}})
		assert.ErrorIs(t, err, ErrInvalidScenario)
	})

	t.Run("factor listed twice", func(t *testing.T) {
		_, err := MergeScenarios([]ScenarioInput{
			{Factor: "Ibovespa", Shock: floatPtr(-0.1)},
			{Factor: "IBOVESPA", Shock: floatPtr(-0.2)},
		})
		assert.ErrorIs(t, err, ErrInvalidScenario)
	})
}

func TestStressImpacts_EquityShock(t *testing.T) {
	p := Portfolio{
		Fund: testFund(),
		NAV:  1_000_000,
		Positions: []Position{
			{Class: ClassEquity, WeightPct: 40, AnnualVolatility: 0.25, Sensitivity: 1},
			{Class: ClassPreFixedRate, WeightPct: 30, AnnualVolatility: 0.08, Sensitivity: 1},
		},
	}
	rows := StressImpacts(p, DefaultFactorMap(), []StressScenario{
		{Factor: FactorIbovespa, Shock: -0.15, Description: "Queda de 15% no IBOVESPA"},
	})
	require.Len(t, rows, 1)
	assert.InDelta(t, -0.06, rows[0].ImpactPct, 1e-12)
	assert.InDelta(t, -60_000, rows[0].ImpactCurrency, 1e-6)
	assert.Equal(t, "Queda de 15% no IBOVESPA", rows[0].Description)
}

func TestStressImpacts_UnmappedFactorIsZero(t *testing.T) {
	p := Portfolio{
		Fund: testFund(),
		NAV:  1,
		Positions: []Position{
			{Class: ClassEquity, WeightPct: 100, AnnualVolatility: 0.25, Sensitivity: 1},
		},
	}
	rows := StressImpacts(p, DefaultFactorMap(), DefaultScenarios())
	require.Len(t, rows, 5)
	for _, r := range rows[1:] {
		assert.Equal(t, 0.0, r.ImpactPct, "factor %s", r.Factor)
		assert.Equal(t, 0.0, r.ImpactCurrency)
	}
}

func TestStressImpacts_SensitivityAndResidualFactor(t *testing.T) {
	p := Portfolio{
		Fund: testFund(),
		NAV:  100,
		Positions: []Position{
			{Class: ClassPrivateCredit, WeightPct: 20, AnnualVolatility: 0.05, Sensitivity: 1},
			{Class: ClassMultimarket, WeightPct: 30, AnnualVolatility: 0.18, Sensitivity: -2},
			{Class: ClassCash, WeightPct: 50, AnnualVolatility: 0, Sensitivity: 0},
		},
	}
	got := UnitShockImpact(p, DefaultFactorMap(), FactorOther, -0.03)
	// -0.03*1*0.2 + -0.03*-2*0.3
	assert.InDelta(t, 0.012, got, 1e-12)

	assert.InDelta(t, 0.8, FactorExposure(p, DefaultFactorMap(), FactorOther), 1e-12)
	assert.Zero(t, FactorExposure(p, DefaultFactorMap(), FactorDollar))
}

func TestWorstStress(t *testing.T) {
	_, ok := WorstStress(nil)
	assert.False(t, ok)

	worst, ok := WorstStress([]StressRow{
		{Factor: FactorIbovespa, ImpactPct: -0.06},
		{Factor: FactorPreFixedRate, ImpactPct: 0.01},
		{Factor: FactorDollar, ImpactPct: -0.08},
	})
	require.True(t, ok)
	assert.Equal(t, FactorDollar, worst.Factor)
}
