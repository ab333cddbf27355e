package testing

import (
	"github.com/aristath/fundrisk/internal/modules/risk"
)

// NewFundFixture returns a fund identity that passes validation.
func NewFundFixture() risk.FundInfo {
	return risk.FundInfo{
		Name:          "Fundo Teste Multimercado",
		CNPJ:          "12.345.678/0001-90",
		ReferenceDate: "2024-06-28",
	}
}

// NewPositionFixtures returns a fully allocated multi-class book.
// Equity, prefixed rate and dollar each map to a named factor; multimarket
// and private credit both land on "Outros".
func NewPositionFixtures() []risk.PositionInput {
	return []risk.PositionInput{
		{Class: "equity", WeightPct: 30, AnnualVolatility: floatPtr(0.25)},
		{Class: "prefixed_rate", WeightPct: 25, AnnualVolatility: floatPtr(0.08)},
		{Class: "dollar", WeightPct: 15, AnnualVolatility: floatPtr(0.15)},
		{Class: "multimarket", WeightPct: 20},
		{Class: "private_credit", WeightPct: 10, Sensitivity: floatPtr(0.5)},
	}
}

// NewRequestFixture returns a valid request over NewPositionFixtures at the
// regulatory horizon and confidence.
func NewRequestFixture() risk.Request {
	return risk.Request{
		Fund:        NewFundFixture(),
		NAV:         50_000_000,
		HorizonDays: risk.RegulatoryHorizonDays,
		Confidence:  string(risk.RegulatoryConfidence),
		Positions:   NewPositionFixtures(),
	}
}

// NewCorrelationFixture returns an edited matrix over equity and dollar.
func NewCorrelationFixture() risk.CorrelationMatrix {
	return risk.CorrelationMatrix{
		Labels: []risk.AssetClass{risk.ClassEquity, risk.ClassDollar},
		Values: [][]float64{{1, -0.35}, {-0.35, 1}},
	}
}

// Helper functions for creating pointers
func floatPtr(f float64) *float64 {
	return &f
}
