package risk

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/aristath/fundrisk/pkg/formulas"
)

// VaRInput carries everything the VaR calculator needs for one run.
// Correlation must already be sanitized; nil selects the uncorrelated aggregation.
type VaRInput struct {
	Portfolio   Portfolio
	HorizonDays int
	Confidence  Confidence
	Correlation *CorrelationMatrix
}

// IsolatedVaR is the stand-alone VaR of one position, ignoring every other position.
type IsolatedVaR struct {
	Class            AssetClass `json:"class"`
	WeightPct        float64    `json:"weight_pct"`
	AnnualVolatility float64    `json:"annual_volatility"`
	DailyVolatility  float64    `json:"daily_volatility"`
	PositionVaRPct   float64    `json:"position_var_pct"` // relative to the position itself
	VaRPct           float64    `json:"var_pct"`          // relative to NAV
	VaRCurrency      float64    `json:"var_currency"`
}

// PortfolioVaR is the aggregated VaR. Percentages are fractions of NAV.
type PortfolioVaR struct {
	DailyVolatility    float64    `json:"daily_volatility"`
	VaRPct             float64    `json:"var_pct"`
	VaRCurrency        float64    `json:"var_currency"`
	UndiversifiedPct   float64    `json:"undiversified_pct"`
	DiversificationPct float64    `json:"diversification_pct"`
	HorizonDays        int        `json:"horizon_days"`
	Confidence         Confidence `json:"confidence"`
	Z                  float64    `json:"z"`
	CorrelationUsed    bool       `json:"correlation_used"`
}

// IsolatedVaRs returns one row per position, in position order.
func IsolatedVaRs(p Portfolio, horizonDays int, confidence Confidence) []IsolatedVaR {
	z := confidence.Z()
	rows := make([]IsolatedVaR, len(p.Positions))
	for i, pos := range p.Positions {
		dailyVol := pos.DailyVolatility()
		positionVaR := formulas.ParametricVaR(z, dailyVol, horizonDays)
		varPct := positionVaR * pos.WeightFraction()
		rows[i] = IsolatedVaR{
			Class:            pos.Class,
			WeightPct:        pos.WeightPct,
			AnnualVolatility: pos.AnnualVolatility,
			DailyVolatility:  dailyVol,
			PositionVaRPct:   positionVaR,
			VaRPct:           varPct,
			VaRCurrency:      varPct * p.NAV,
		}
	}
	return rows
}

// PortfolioDailyVolatility aggregates the per-position daily volatilities.
// With a nil matrix positions are treated as independent (sum of squares);
// otherwise the variance is wᵗ·D·Corr·D·w, clamped at zero for non-PSD input.
// The matrix must be aligned with the portfolio's position order.
func PortfolioDailyVolatility(p Portfolio, corr *CorrelationMatrix) (float64, error) {
	weights := p.WeightFractions()
	vols := p.DailyVolatilities()

	if corr == nil {
		return formulas.SumOfSquares(weights, vols), nil
	}

	n := len(weights)
	if len(corr.Values) != n {
		return 0, newValidationError(KindInvalidCorrelationMatrix, "correlation",
			"matrix is %dx%d but the portfolio holds %d classes", len(corr.Values), len(corr.Values), n)
	}
	for i, row := range corr.Values {
		if len(row) != n {
			return 0, newValidationError(KindInvalidCorrelationMatrix, "correlation",
				"row %d has %d entries, expected %d", i, len(row), n)
		}
	}
	if n == 0 {
		return 0, nil
	}

	d := mat.NewDiagDense(n, vols)
	var scaled, cov mat.Dense
	scaled.Mul(d, corr.Dense())
	cov.Mul(&scaled, d)

	w := mat.NewVecDense(n, weights)
	variance := mat.Inner(w, &cov, w)
	if variance < 0 || math.IsNaN(variance) {
		variance = 0
	}
	return math.Sqrt(variance), nil
}

// CalculateVaR computes the isolated rows and the aggregated portfolio VaR.
func CalculateVaR(in VaRInput) ([]IsolatedVaR, PortfolioVaR, error) {
	if in.HorizonDays <= 0 {
		return nil, PortfolioVaR{}, newValidationError(KindInvalidHorizon, "horizon_days",
			"horizon must be a positive number of trading days, got %d", in.HorizonDays)
	}
	z := in.Confidence.Z()
	if z == 0 {
		return nil, PortfolioVaR{}, newValidationError(KindUnknownConfidence, "confidence",
			"unsupported confidence %q", string(in.Confidence))
	}

	isolated := IsolatedVaRs(in.Portfolio, in.HorizonDays, in.Confidence)

	dailyVol, err := PortfolioDailyVolatility(in.Portfolio, in.Correlation)
	if err != nil {
		return nil, PortfolioVaR{}, err
	}

	undiversified := 0.0
	for _, row := range isolated {
		undiversified += row.VaRPct
	}

	varPct := formulas.ParametricVaR(z, dailyVol, in.HorizonDays)
	return isolated, PortfolioVaR{
		DailyVolatility:    dailyVol,
		VaRPct:             varPct,
		VaRCurrency:        varPct * in.Portfolio.NAV,
		UndiversifiedPct:   undiversified,
		DiversificationPct: undiversified - varPct,
		HorizonDays:        in.HorizonDays,
		Confidence:         in.Confidence,
		Z:                  z,
		CorrelationUsed:    in.Correlation != nil,
	}, nil
}
