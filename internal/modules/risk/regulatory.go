package risk

import (
	"fmt"
	"math"
	"strings"

	"github.com/aristath/fundrisk/pkg/formulas"
)

// The monthly profile always reports VaR at 21 trading days and 95%,
// whatever the user picked for display.
const (
	RegulatoryHorizonDays = 21
	RegulatoryConfidence  = Confidence95
)

// Fixed answer strings.
const (
	ModelClassCorrelated   = "Paramétrico - Delta Normal (com correlação)"
	ModelClassUncorrelated = "Paramétrico - Delta Normal (sem correlação)"
	NotApplicable          = "Não se aplica"
	MissingScenario        = "—"
)

// questionPrefixRunes is how much of a template cell is compared against a question.
const questionPrefixRunes = 50

// AnswerID identifies a questionnaire line independently of its wording.
type AnswerID string

const (
	AnswerVaR                  AnswerID = "var_21d_95"
	AnswerModelClass           AnswerID = "model_class"
	AnswerScenarioIbovespa     AnswerID = "scenario_ibovespa"
	AnswerScenarioPreFixedRate AnswerID = "scenario_prefixed_rate"
	AnswerScenarioFXCoupon     AnswerID = "scenario_fx_coupon"
	AnswerScenarioDollar       AnswerID = "scenario_dollar"
	AnswerScenarioOther        AnswerID = "scenario_other"
	AnswerDailyVariation       AnswerID = "daily_variation"
	AnswerWorstStress          AnswerID = "worst_stress"
	AnswerUnitShockRate        AnswerID = "unit_shock_prefixed_rate"
	AnswerUnitShockDollar      AnswerID = "unit_shock_dollar"
	AnswerUnitShockIbovespa    AnswerID = "unit_shock_ibovespa"
	AnswerPrincipalImpact      AnswerID = "principal_factor_impact"
	AnswerPrincipalFactor      AnswerID = "principal_factor_name"
)

const scenarioQuestion = "Considerando os cenários de estresse definidos pela BM&FBOVESPA para o fator primitivo de risco (FPR) %s que gere o pior resultado para o fundo, indique o cenário utilizado."

var questions = map[AnswerID]string{
	AnswerVaR:                  "Qual é o VAR (Valor de risco) de um dia como percentual do PL calculado para 21 dias úteis e 95% de confiança?",
	AnswerModelClass:           "Qual classe de modelos foi utilizada para o cálculo do VAR reportado na questão anterior?",
	AnswerScenarioIbovespa:     fmt.Sprintf(scenarioQuestion, "IBOVESPA"),
	AnswerScenarioPreFixedRate: fmt.Sprintf(scenarioQuestion, "Juros-Pré"),
	AnswerScenarioFXCoupon:     fmt.Sprintf(scenarioQuestion, "Cupom Cambial"),
	AnswerScenarioDollar:       fmt.Sprintf(scenarioQuestion, "Dólar"),
	AnswerScenarioOther:        fmt.Sprintf(scenarioQuestion, "Outros"),
	AnswerDailyVariation:       "Qual a variação diária percentual esperada para o valor da cota?",
	AnswerWorstStress:          "Qual a variação diária percentual esperada para o valor da cota do fundo no pior cenário de estresse definido pelo seu administrador?",
	AnswerUnitShockRate:        "Qual a variação diária percentual esperada para o patrimônio do fundo caso ocorra uma variação negativa de 1% na taxa anual de juros (pré)?",
	AnswerUnitShockDollar:      "Qual a variação diária percentual esperada para o patrimônio do fundo caso ocorra uma variação negativa de 1% na taxa de câmbio (US$/Real)?",
	AnswerUnitShockIbovespa:    "Qual a variação diária percentual esperada para o patrimônio do fundo caso ocorra uma variação negativa de 1% no preço das ações (IBOVESPA)?",
	AnswerPrincipalImpact:      "Qual a variação diária percentual esperada para o patrimônio do fundo caso ocorra uma variação negativa de 1% no principal fator de risco em que o fundo está exposto, caso não seja nenhum dos 3 citados anteriormente (juros, câmbio, bolsa)?",
	AnswerPrincipalFactor:      "Qual o fator de risco considerado no item anterior?",
}

// Question returns the stable question text for id.
func Question(id AnswerID) string {
	return questions[id]
}

// Answer is one questionnaire line. Value is a fraction of NAV for numeric
// answers and nil for text answers; Text is always set.
type Answer struct {
	ID       AnswerID `json:"id"`
	Question string   `json:"question"`
	Value    *float64 `json:"value"`
	Text     string   `json:"text"`
}

// RegulatoryInput is what the deriver needs from the VaR and stress stages.
type RegulatoryInput struct {
	Portfolio       Portfolio
	DailyVolatility float64 // σ_port,d of the run's aggregation mode
	CorrelationUsed bool
	Scenarios       []StressScenario
	Stress          []StressRow
	Factors         FactorMap
}

// DeriveAnswers builds the questionnaire in its fixed order.
func DeriveAnswers(in RegulatoryInput) []Answer {
	factors := in.Factors
	if factors == nil {
		factors = DefaultFactorMap()
	}

	regulatoryVaR := formulas.ParametricVaR(RegulatoryConfidence.Z(), in.DailyVolatility, RegulatoryHorizonDays)

	model := ModelClassUncorrelated
	if in.CorrelationUsed {
		model = ModelClassCorrelated
	}

	worst := 0.0
	if row, ok := WorstStress(in.Stress); ok {
		worst = row.ImpactPct
	}

	unit := func(f RiskFactor) float64 {
		return UnitShockImpact(in.Portfolio, factors, f, DefaultUnitShock)
	}

	answers := []Answer{
		numericAnswer(AnswerVaR, regulatoryVaR),
		textAnswer(AnswerModelClass, model),
		textAnswer(AnswerScenarioIbovespa, scenarioDescription(in.Scenarios, FactorIbovespa)),
		textAnswer(AnswerScenarioPreFixedRate, scenarioDescription(in.Scenarios, FactorPreFixedRate)),
		textAnswer(AnswerScenarioFXCoupon, scenarioDescription(in.Scenarios, FactorFXCoupon)),
		textAnswer(AnswerScenarioDollar, scenarioDescription(in.Scenarios, FactorDollar)),
		textAnswer(AnswerScenarioOther, scenarioDescription(in.Scenarios, FactorOther)),
		numericAnswer(AnswerDailyVariation, in.DailyVolatility),
		numericAnswer(AnswerWorstStress, worst),
		numericAnswer(AnswerUnitShockRate, unit(FactorPreFixedRate)),
		numericAnswer(AnswerUnitShockDollar, unit(FactorDollar)),
		numericAnswer(AnswerUnitShockIbovespa, unit(FactorIbovespa)),
	}

	if len(in.Stress) == 0 {
		return append(answers, textAnswer(AnswerPrincipalImpact, NotApplicable), textAnswer(AnswerPrincipalFactor, NotApplicable))
	}
	if factor, ok := PrincipalOtherFactor(in.Portfolio, factors); ok {
		return append(answers, numericAnswer(AnswerPrincipalImpact, unit(factor)), textAnswer(AnswerPrincipalFactor, string(factor)))
	}
	return append(answers, textAnswer(AnswerPrincipalImpact, NotApplicable), textAnswer(AnswerPrincipalFactor, NotApplicable))
}

// PrincipalOtherFactor ranks every factor by Σ weight·|sensitivity| (ties keep factor
// order) and returns the top one. ok is false when the top factor is one of the three
// already asked about (rates, dollar, equity index) or carries no exposure.
func PrincipalOtherFactor(p Portfolio, factors FactorMap) (RiskFactor, bool) {
	var top RiskFactor
	topExposure := -1.0
	for _, f := range factorOrder {
		if e := FactorExposure(p, factors, f); e > topExposure {
			top, topExposure = f, e
		}
	}
	if topExposure <= 0 {
		return "", false
	}
	switch top {
	case FactorPreFixedRate, FactorDollar, FactorIbovespa:
		return "", false
	}
	return top, true
}

// MatchAnswer finds the answer for a template cell. A question matches when its first
// 50 runes appear in the cell's first 50 runes; several questions share that prefix, so
// the one sharing the longest common prefix with the whole cell wins.
func MatchAnswer(answers []Answer, cellText string) (Answer, bool) {
	cell := strings.TrimSpace(cellText)
	if cell == "" {
		return Answer{}, false
	}
	head := firstRunes(cell, questionPrefixRunes)

	best, bestLen := -1, -1
	for i, a := range answers {
		q := strings.TrimSpace(a.Question)
		if q == "" || !strings.Contains(head, firstRunes(q, questionPrefixRunes)) {
			continue
		}
		if n := commonPrefixLen(q, cell); n > bestLen {
			best, bestLen = i, n
		}
	}
	if best < 0 {
		return Answer{}, false
	}
	return answers[best], true
}

// FormatPct renders a fraction as a percentage with four decimals.
func FormatPct(v float64) string {
	return fmt.Sprintf("%.4f%%", v*100)
}

func numericAnswer(id AnswerID, v float64) Answer {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		v = 0
	}
	return Answer{ID: id, Question: questions[id], Value: &v, Text: FormatPct(v)}
}

func textAnswer(id AnswerID, text string) Answer {
	return Answer{ID: id, Question: questions[id], Text: text}
}

func scenarioDescription(scenarios []StressScenario, f RiskFactor) string {
	for _, s := range scenarios {
		if s.Factor == f && strings.TrimSpace(s.Description) != "" {
			return s.Description
		}
	}
	return MissingScenario
}

func firstRunes(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		r = r[:n]
	}
	return string(r)
}

func commonPrefixLen(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	n := 0
	for n < len(ra) && n < len(rb) && ra[n] == rb[n] {
		n++
	}
	return n
}
