package risk

import (
	"fmt"
	"math"
	"strings"

	"github.com/aristath/fundrisk/pkg/formulas"
)

// AssetClass is one member of the closed set of allocation classes.
// The string value is the label used on the regulatory forms.
type AssetClass string

const (
	ClassEquity        AssetClass = "Ações (Ibovespa)"
	ClassPreFixedRate  AssetClass = "Juros-Pré"
	ClassDollar        AssetClass = "Câmbio (Dólar)"
	ClassFXCoupon      AssetClass = "Cupom Cambial"
	ClassPrivateCredit AssetClass = "Crédito Privado"
	ClassMultimarket   AssetClass = "Multimercado"
	ClassOther         AssetClass = "Outros"
	ClassCash          AssetClass = "Caixa" // synthetic, appended by cash auto-completion only
)

// RiskFactor is one of the market factors ("fatores primitivos de risco") stressed
// by the exchange scenarios.
type RiskFactor string

const (
	FactorIbovespa     RiskFactor = "Ibovespa"
	FactorPreFixedRate RiskFactor = "Juros-Pré"
	FactorFXCoupon     RiskFactor = "Cupom Cambial"
	FactorDollar       RiskFactor = "Dólar"
	FactorOther        RiskFactor = "Outros"
)

type classSpec struct {
	class      AssetClass
	code       string
	volatility float64
	factor     RiskFactor
}

// classTable is ordered the way classes are presented and enumerated.
var classTable = []classSpec{
	{ClassEquity, "equity", 0.25, FactorIbovespa},
	{ClassPreFixedRate, "prefixed_rate", 0.08, FactorPreFixedRate},
	{ClassDollar, "dollar", 0.15, FactorDollar},
	{ClassFXCoupon, "fx_coupon", 0.12, FactorFXCoupon},
	{ClassPrivateCredit, "private_credit", 0.05, FactorOther},
	{ClassMultimarket, "multimarket", 0.18, FactorOther},
	{ClassOther, "other", 0.10, FactorOther},
	{ClassCash, "cash", 0, FactorOther},
}

var factorOrder = []RiskFactor{
	FactorIbovespa,
	FactorPreFixedRate,
	FactorFXCoupon,
	FactorDollar,
	FactorOther,
}

var classIndex = func() map[AssetClass]int {
	m := make(map[AssetClass]int, len(classTable))
	for i, spec := range classTable {
		m[spec.class] = i
	}
	return m
}()

var factorIndex = func() map[RiskFactor]int {
	m := make(map[RiskFactor]int, len(factorOrder))
	for i, f := range factorOrder {
		m[f] = i
	}
	return m
}()

// AssetClasses returns the classes a caller may allocate to, in presentation order.
// The synthetic cash class is not included.
func AssetClasses() []AssetClass {
	out := make([]AssetClass, 0, len(classTable)-1)
	for _, spec := range classTable {
		if spec.class == ClassCash {
			continue
		}
		out = append(out, spec.class)
	}
	return out
}

// ParseAssetClass resolves a label ("Juros-Pré") or code ("prefixed_rate"),
// case-insensitively. The synthetic cash class is resolved too so callers can
// report it as reserved rather than unknown.
func ParseAssetClass(name string) (AssetClass, error) {
	name = strings.TrimSpace(name)
	for _, spec := range classTable {
		if strings.EqualFold(name, string(spec.class)) || strings.EqualFold(name, spec.code) {
			return spec.class, nil
		}
	}
	return "", fmt.Errorf("unknown asset class %q", name)
}

// Valid reports whether c belongs to the enumeration.
func (c AssetClass) Valid() bool {
	_, ok := classIndex[c]
	return ok
}

// Code returns the ASCII identifier of the class.
func (c AssetClass) Code() string {
	if i, ok := classIndex[c]; ok {
		return classTable[i].code
	}
	return ""
}

// DefaultVolatility returns the reference annual volatility for the class.
func (c AssetClass) DefaultVolatility() float64 {
	if i, ok := classIndex[c]; ok {
		return classTable[i].volatility
	}
	return 0
}

// RiskFactors returns the factor enumeration in its fixed order.
func RiskFactors() []RiskFactor {
	out := make([]RiskFactor, len(factorOrder))
	copy(out, factorOrder)
	return out
}

// ParseRiskFactor resolves a factor name case-insensitively.
func ParseRiskFactor(name string) (RiskFactor, error) {
	name = strings.TrimSpace(name)
	for _, f := range factorOrder {
		if strings.EqualFold(name, string(f)) {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown risk factor %q", name)
}

// Valid reports whether f belongs to the enumeration.
func (f RiskFactor) Valid() bool {
	_, ok := factorIndex[f]
	return ok
}

// FactorMap associates every asset class with exactly one risk factor.
type FactorMap map[AssetClass]RiskFactor

// DefaultFactorMap returns the reference class-to-factor mapping. Classes without a
// dedicated factor fall into the residual "Outros" factor.
func DefaultFactorMap() FactorMap {
	m := make(FactorMap, len(classTable))
	for _, spec := range classTable {
		m[spec.class] = spec.factor
	}
	return m
}

// FactorOf returns the factor for a class, falling back to the residual factor.
func (m FactorMap) FactorOf(c AssetClass) RiskFactor {
	if f, ok := m[c]; ok && f.Valid() {
		return f
	}
	return FactorOther
}

// Confidence is a supported VaR confidence label.
type Confidence string

const (
	Confidence95 Confidence = "95%"
	Confidence99 Confidence = "99%"
)

// One-sided standard normal quantiles. Full six-decimal precision is used everywhere,
// including the regulatory line item.
const (
	Z95 = 1.644854
	Z99 = 2.326347
)

// Confidences lists the supported labels.
func Confidences() []Confidence {
	return []Confidence{Confidence95, Confidence99}
}

// ParseConfidence accepts "95%", "95", "0.95" and the 99% equivalents.
func ParseConfidence(label string) (Confidence, error) {
	switch strings.TrimSpace(label) {
	case "95%", "95", "0.95":
		return Confidence95, nil
	case "99%", "99", "0.99":
		return Confidence99, nil
	}
	return "", newValidationError(KindUnknownConfidence, "confidence",
		"unsupported confidence %q (expected 95%% or 99%%)", label)
}

// Z returns the standard normal quantile for the label.
func (c Confidence) Z() float64 {
	switch c {
	case Confidence95:
		return Z95
	case Confidence99:
		return Z99
	}
	return 0
}

// Level returns the confidence as a probability.
func (c Confidence) Level() float64 {
	switch c {
	case Confidence95:
		return 0.95
	case Confidence99:
		return 0.99
	}
	return 0
}

// zTableTolerance covers truncating the tabulated quantiles to six decimals.
const zTableTolerance = 1e-6

// CheckZ compares the tabulated z with the standard normal quantile at Level.
func (c Confidence) CheckZ() error {
	z, exact := c.Z(), formulas.ZScore(c.Level())
	if z == 0 || math.Abs(z-exact) > zTableTolerance {
		return fmt.Errorf("confidence %s: tabulated z %.6f does not match normal quantile %.6f", c, z, exact)
	}
	return nil
}
