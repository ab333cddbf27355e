package risk

import (
	"fmt"
	"math"
	"strings"
)

// DefaultUnitShock is the "-1% on factor X" shock used by the regulatory questions.
const DefaultUnitShock = -0.01

// StressScenario is a signed shock applied to one risk factor.
type StressScenario struct {
	Factor      RiskFactor `json:"factor" yaml:"factor"`
	Shock       float64    `json:"shock" yaml:"shock"`
	Description string     `json:"description" yaml:"description"`
}

// defaultScenarios follows factorOrder.
var defaultScenarios = []StressScenario{
	{FactorIbovespa, -0.15, "Queda de 15% no IBOVESPA"},
	{FactorPreFixedRate, 0.02, "Alta de 200 bps na taxa de juros"},
	{FactorFXCoupon, -0.01, "Queda de 1% no cupom cambial"},
	{FactorDollar, -0.05, "Queda de 5% no dólar"},
	{FactorOther, -0.03, "Queda de 3% em outros ativos"},
}

// DefaultScenarios returns the exchange reference scenarios, one per factor, in factor order.
func DefaultScenarios() []StressScenario {
	out := make([]StressScenario, len(defaultScenarios))
	copy(out, defaultScenarios)
	return out
}

// ScenarioInput overrides the shock (and optionally the description) of one factor.
// A nil Shock keeps the default shock.
type ScenarioInput struct {
	Factor      string   `json:"factor" yaml:"factor"`
	Shock       *float64 `json:"shock,omitempty" yaml:"shock,omitempty"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
}

// MergeScenarios applies overrides on top of the defaults. The result keeps factor
// order; every override must name a known factor at most once.
func MergeScenarios(overrides []ScenarioInput) ([]StressScenario, error) {
	scenarios := DefaultScenarios()
	if len(overrides) == 0 {
		return scenarios, nil
	}

	seen := make(map[RiskFactor]bool, len(overrides))
	for i, o := range overrides {
		field := fmt.Sprintf("scenarios[%d]", i)

		factor, err := ParseRiskFactor(o.Factor)
		if err != nil {
			return nil, newValidationError(KindInvalidScenario, field+".factor", "%v", err)
		}
		if seen[factor] {
			return nil, newValidationError(KindInvalidScenario, field+".factor",
				"factor %q overridden twice", string(factor))
		}
		seen[factor] = true

		idx := factorIndex[factor]
		if o.Shock != nil {
			if math.IsNaN(*o.Shock) || math.IsInf(*o.Shock, 0) {
				return nil, newValidationError(KindInvalidScenario, field+".shock",
					"shock must be finite, got %v", *o.Shock)
			}
			scenarios[idx].Shock = *o.Shock
		}
		if d := strings.TrimSpace(o.Description); d != "" {
			scenarios[idx].Description = d
		}
	}
	return scenarios, nil
}

// StressRow is the impact of one scenario on the portfolio.
type StressRow struct {
	Factor         RiskFactor `json:"factor"`
	Description    string     `json:"description"`
	Shock          float64    `json:"shock"`
	ImpactPct      float64    `json:"impact_pct"`
	ImpactCurrency float64    `json:"impact_currency"`
}

// StressImpacts returns one row per scenario, in scenario order.
func StressImpacts(p Portfolio, factors FactorMap, scenarios []StressScenario) []StressRow {
	rows := make([]StressRow, len(scenarios))
	for i, s := range scenarios {
		impact := UnitShockImpact(p, factors, s.Factor, s.Shock)
		rows[i] = StressRow{
			Factor:         s.Factor,
			Description:    s.Description,
			Shock:          s.Shock,
			ImpactPct:      impact,
			ImpactCurrency: impact * p.NAV,
		}
	}
	return rows
}

// UnitShockImpact returns Σ shock·sensitivity·weight over the positions mapped to factor,
// as a fraction of NAV. Zero when nothing maps to the factor.
func UnitShockImpact(p Portfolio, factors FactorMap, factor RiskFactor, shock float64) float64 {
	impact := 0.0
	for _, pos := range p.Positions {
		if factors.FactorOf(pos.Class) != factor {
			continue
		}
		impact += shock * pos.Sensitivity * pos.WeightFraction()
	}
	return impact
}

// FactorExposure returns Σ weight·|sensitivity| over the positions mapped to factor.
func FactorExposure(p Portfolio, factors FactorMap, factor RiskFactor) float64 {
	exposure := 0.0
	for _, pos := range p.Positions {
		if factors.FactorOf(pos.Class) != factor {
			continue
		}
		exposure += pos.WeightFraction() * math.Abs(pos.Sensitivity)
	}
	return exposure
}

// WorstStress returns the row with the lowest impact. ok is false when rows is empty.
func WorstStress(rows []StressRow) (worst StressRow, ok bool) {
	for i, r := range rows {
		if i == 0 || r.ImpactPct < worst.ImpactPct {
			worst = r
		}
	}
	return worst, len(rows) > 0
}
