// Package formulas holds the closed-form building blocks of the parametric risk model.
package formulas

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// TradingDaysPerYear is the annualization basis for volatilities.
const TradingDaysPerYear = 252

// DailyVolatility converts an annual volatility into a one-day volatility.
func DailyVolatility(annualVolatility float64) float64 {
	return annualVolatility / math.Sqrt(TradingDaysPerYear)
}

// HorizonScale returns the square-root-of-time factor for a horizon in trading days.
// Non-positive horizons scale to zero.
func HorizonScale(days int) float64 {
	if days <= 0 {
		return 0
	}
	return math.Sqrt(float64(days))
}

// ParametricVaR returns the Delta-Normal VaR of a return stream with the given
// daily volatility, as a fraction of its own value.
//
// Args:
//   - z: Standard normal quantile for the confidence level
//   - dailyVolatility: One-day standard deviation of returns
//   - days: Horizon in trading days
func ParametricVaR(z, dailyVolatility float64, days int) float64 {
	return z * dailyVolatility * HorizonScale(days)
}

// ZScore returns the one-sided standard normal quantile for a confidence level in (0, 1).
// Returns 0 outside that range.
func ZScore(confidence float64) float64 {
	if confidence <= 0 || confidence >= 1 || math.IsNaN(confidence) {
		return 0
	}
	return distuv.UnitNormal.Quantile(confidence)
}

// SumOfSquares aggregates independent weighted volatilities: sqrt(sum((w_i*s_i)^2)).
// Extra entries in the longer slice are ignored.
func SumOfSquares(weights, volatilities []float64) float64 {
	n := len(weights)
	if len(volatilities) < n {
		n = len(volatilities)
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		x := weights[i] * volatilities[i]
		sum += x * x
	}
	return math.Sqrt(sum)
}
