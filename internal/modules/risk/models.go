package risk

import (
	"github.com/aristath/fundrisk/pkg/formulas"
)

// FundInfo identifies the fund. The engine only checks that it is present.
type FundInfo struct {
	Name          string `json:"name" yaml:"name"`
	CNPJ          string `json:"cnpj" yaml:"cnpj"`
	ReferenceDate string `json:"reference_date,omitempty" yaml:"reference_date,omitempty"`
}

// PositionInput is one allocation line as entered by the caller.
// A nil AnnualVolatility takes the class default; a nil Sensitivity means 1.0.
type PositionInput struct {
	Class            string   `json:"class" yaml:"class"`
	WeightPct        float64  `json:"weight_pct" yaml:"weight_pct"`
	AnnualVolatility *float64 `json:"annual_volatility,omitempty" yaml:"annual_volatility,omitempty"`
	Sensitivity      *float64 `json:"sensitivity,omitempty" yaml:"sensitivity,omitempty"`
}

// Position is a validated allocation line.
type Position struct {
	Class            AssetClass `json:"class"`
	WeightPct        float64    `json:"weight_pct"`
	AnnualVolatility float64    `json:"annual_volatility"`
	Sensitivity      float64    `json:"sensitivity"`
}

// WeightFraction returns the weight as a fraction of NAV.
func (p Position) WeightFraction() float64 {
	return p.WeightPct / 100
}

// DailyVolatility returns the one-day volatility of the position.
func (p Position) DailyVolatility() float64 {
	return formulas.DailyVolatility(p.AnnualVolatility)
}

// Portfolio is a validated, ordered set of positions.
type Portfolio struct {
	Fund          FundInfo   `json:"fund"`
	NAV           float64    `json:"nav"`
	Positions     []Position `json:"positions"`
	AutoCompleted bool       `json:"auto_completed"`
}

// Classes returns the active classes in position order.
func (p Portfolio) Classes() []AssetClass {
	out := make([]AssetClass, len(p.Positions))
	for i, pos := range p.Positions {
		out[i] = pos.Class
	}
	return out
}

// TotalWeightPct sums the position weights.
func (p Portfolio) TotalWeightPct() float64 {
	sum := 0.0
	for _, pos := range p.Positions {
		sum += pos.WeightPct
	}
	return sum
}

// WeightFractions returns the weight vector as fractions of NAV.
func (p Portfolio) WeightFractions() []float64 {
	out := make([]float64, len(p.Positions))
	for i, pos := range p.Positions {
		out[i] = pos.WeightFraction()
	}
	return out
}

// DailyVolatilities returns the per-position daily volatilities.
func (p Portfolio) DailyVolatilities() []float64 {
	out := make([]float64, len(p.Positions))
	for i, pos := range p.Positions {
		out[i] = pos.DailyVolatility()
	}
	return out
}

func (p Portfolio) clone() Portfolio {
	positions := make([]Position, len(p.Positions))
	copy(positions, p.Positions)
	p.Positions = positions
	return p
}
