package risk

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

var hundredPct = decimal.NewFromInt(100)

// weightSum adds weights as the decimals they were written as, so 33.3 + 33.3 + 33.4
// is exactly 100 and anything above 100 overflows.
func weightSum(weights []float64) decimal.Decimal {
	total := decimal.Zero
	for _, w := range weights {
		total = total.Add(decimal.NewFromFloat(w))
	}
	return total
}

// AllocationInput is the raw allocation submitted for one calculation run.
type AllocationInput struct {
	Fund             FundInfo
	NAV              float64
	Positions        []PositionInput
	AutoCompleteCash bool
}

// ValidateAllocation checks that the positions form a coherent portfolio and returns it.
// Rules run in a fixed order so the first failure is deterministic:
// identity, NAV, per-line checks, empty allocation, overflow, volatility.
// Zero-weight lines are dropped. When AutoCompleteCash is set the result is
// completed to 100% with a synthetic cash position.
func ValidateAllocation(in AllocationInput) (Portfolio, error) {
	if strings.TrimSpace(in.Fund.Name) == "" {
		return Portfolio{}, newValidationError(KindMissingIdentity, "fund.name", "fund name is required")
	}
	if strings.TrimSpace(in.Fund.CNPJ) == "" {
		return Portfolio{}, newValidationError(KindMissingIdentity, "fund.cnpj", "fund identifier is required")
	}
	if !(in.NAV > 0) || math.IsInf(in.NAV, 0) {
		return Portfolio{}, newValidationError(KindNonPositiveNAV, "nav", "net asset value must be positive, got %v", in.NAV)
	}

	type line struct {
		pos   Position
		field string
	}
	var included []line
	seen := make(map[AssetClass]string)

	for i, raw := range in.Positions {
		field := fmt.Sprintf("positions[%d]", i)

		class, err := ParseAssetClass(raw.Class)
		if err != nil {
			return Portfolio{}, newValidationError(KindUnknownAssetClass, field+".class", "%v", err)
		}
		if class == ClassCash {
			return Portfolio{}, newValidationError(KindUnknownAssetClass, field+".class",
				"%q is reserved for cash auto-completion", string(class))
		}

		// Weights above 100 are left to the overflow rule below.
		if math.IsNaN(raw.WeightPct) || math.IsInf(raw.WeightPct, 0) || raw.WeightPct < 0 {
			return Portfolio{}, newValidationError(KindInvalidWeight, field+".weight_pct",
				"weight must be a non-negative number, got %v", raw.WeightPct)
		}
		if raw.WeightPct == 0 {
			continue
		}

		if prev, dup := seen[class]; dup {
			return Portfolio{}, newValidationError(KindDuplicateAssetClass, field+".class",
				"%q already allocated at %s", string(class), prev)
		}
		seen[class] = field

		vol := class.DefaultVolatility()
		if raw.AnnualVolatility != nil {
			vol = *raw.AnnualVolatility
		}

		sensitivity := 1.0
		if raw.Sensitivity != nil {
			sensitivity = *raw.Sensitivity
			if math.IsNaN(sensitivity) || math.IsInf(sensitivity, 0) {
				return Portfolio{}, newValidationError(KindInvalidSensitivity, field+".sensitivity",
					"sensitivity must be finite, got %v", sensitivity)
			}
		}

		included = append(included, line{
			pos: Position{
				Class:            class,
				WeightPct:        raw.WeightPct,
				AnnualVolatility: vol,
				Sensitivity:      sensitivity,
			},
			field: field,
		})
	}

	if len(included) == 0 {
		return Portfolio{}, newValidationError(KindEmptyAllocation, "positions", "no position has a positive weight")
	}

	weights := make([]float64, len(included))
	for i, l := range included {
		weights[i] = l.pos.WeightPct
	}
	if total := weightSum(weights); total.GreaterThan(hundredPct) {
		return Portfolio{}, newValidationError(KindAllocationOverflow, "positions",
			"weights add up to %s%%, which exceeds 100%%", total.String())
	}

	for _, l := range included {
		vol := l.pos.AnnualVolatility
		if !(vol > 0) || math.IsInf(vol, 0) {
			return Portfolio{}, newValidationError(KindMissingVolatility, l.field+".annual_volatility",
				"annual volatility for %q must be positive, got %v", string(l.pos.Class), vol)
		}
	}

	portfolio := Portfolio{
		Fund:      in.Fund,
		NAV:       in.NAV,
		Positions: make([]Position, len(included)),
	}
	for i, l := range included {
		portfolio.Positions[i] = l.pos
	}

	if in.AutoCompleteCash {
		portfolio = AutoCompleteCash(portfolio)
	}
	return portfolio, nil
}

// AutoCompleteCash returns a copy of p completed to 100% with a zero-risk cash line.
// Portfolios already at 100%, or already holding cash, are returned unchanged.
func AutoCompleteCash(p Portfolio) Portfolio {
	out := p.clone()
	weights := make([]float64, len(out.Positions))
	for i, pos := range out.Positions {
		weights[i] = pos.WeightPct
	}
	gap := hundredPct.Sub(weightSum(weights))
	if !gap.IsPositive() {
		return out
	}
	for _, pos := range out.Positions {
		if pos.Class == ClassCash {
			return out
		}
	}
	out.Positions = append(out.Positions, Position{
		Class:            ClassCash,
		WeightPct:        gap.InexactFloat64(),
		AnnualVolatility: 0,
		Sensitivity:      0,
	})
	out.AutoCompleted = true
	return out
}
