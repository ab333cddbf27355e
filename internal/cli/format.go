package cli

import (
	"math"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var moneyPrinter = message.NewPrinter(language.English)

// formatMoney rounds to cents and groups thousands with commas.
func formatMoney(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "-"
	}
	cents := decimal.NewFromFloat(v).Round(2).InexactFloat64()
	return moneyPrinter.Sprintf("%.2f", cents)
}
