package risk

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// DefaultCorrelation is the off-diagonal value of a freshly built matrix.
const DefaultCorrelation = 0.20

// CorrelationMatrix is a square correlation matrix labelled by asset class.
// Values[i][j] is the correlation between Labels[i] and Labels[j].
type CorrelationMatrix struct {
	Labels []AssetClass `json:"labels" yaml:"labels" msgpack:"labels"`
	Values [][]float64  `json:"values" yaml:"values" msgpack:"values"`
}

// BuildCorrelation returns the default matrix for the given ordered classes:
// 1.0 on the diagonal and DefaultCorrelation everywhere else.
func BuildCorrelation(classes []AssetClass) CorrelationMatrix {
	n := len(classes)
	labels := make([]AssetClass, n)
	copy(labels, classes)

	values := make([][]float64, n)
	for i := range values {
		values[i] = make([]float64, n)
		for j := range values[i] {
			if i == j {
				values[i][j] = 1
			} else {
				values[i][j] = DefaultCorrelation
			}
		}
	}
	return CorrelationMatrix{Labels: labels, Values: values}
}

// ReconcileCorrelation adapts a previously edited matrix to a new class set.
// When previous covers exactly the same classes it is returned unchanged (reordered to
// classes if the order differs). Otherwise a default matrix is built and every entry whose
// row and column labels both exist in previous is copied over, so user edits survive
// adding or removing a class. A nil or empty previous yields the default matrix.
func ReconcileCorrelation(previous *CorrelationMatrix, classes []AssetClass) (CorrelationMatrix, error) {
	if previous == nil || len(previous.Labels) == 0 {
		return BuildCorrelation(classes), nil
	}
	prev := previous.canonical()
	if err := prev.validateShape(); err != nil {
		return CorrelationMatrix{}, err
	}

	if sameOrder(prev.Labels, classes) {
		return prev.Clone(), nil
	}

	// Same set in another order falls through here too: every entry is copied.
	prevIndex := prev.index()
	fresh := BuildCorrelation(classes)
	for i, ci := range classes {
		pi, ok := prevIndex[ci]
		if !ok {
			continue
		}
		for j, cj := range classes {
			pj, ok := prevIndex[cj]
			if !ok || i == j {
				continue
			}
			fresh.Values[i][j] = prev.Values[pi][pj]
		}
	}
	return fresh, nil
}

// SanitizeCorrelation forces symmetry via (M + Mᵗ)/2 and resets the diagonal to 1.
// It rejects matrices that are not square, whose labels do not match their size or
// repeat, or that hold non-finite or out-of-range entries.
func SanitizeCorrelation(m CorrelationMatrix) (CorrelationMatrix, error) {
	m = m.canonical()
	if err := m.validateShape(); err != nil {
		return CorrelationMatrix{}, err
	}

	n := len(m.Labels)
	out := BuildCorrelation(m.Labels)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			out.Values[i][j] = (m.Values[i][j] + m.Values[j][i]) / 2
		}
	}
	return out, nil
}

// AlignedTo returns the matrix reordered to classes. Every class must be labelled
// and the label set must match exactly.
func (m CorrelationMatrix) AlignedTo(classes []AssetClass) (CorrelationMatrix, error) {
	m = m.canonical()
	if err := m.validateShape(); err != nil {
		return CorrelationMatrix{}, err
	}
	if len(m.Labels) != len(classes) {
		return CorrelationMatrix{}, newValidationError(KindInvalidCorrelationMatrix, "correlation.labels",
			"matrix covers %d classes but the portfolio holds %d", len(m.Labels), len(classes))
	}
	if sameOrder(m.Labels, classes) {
		return m, nil
	}

	idx := m.index()
	out := CorrelationMatrix{
		Labels: make([]AssetClass, len(classes)),
		Values: make([][]float64, len(classes)),
	}
	copy(out.Labels, classes)
	for i, ci := range classes {
		pi, ok := idx[ci]
		if !ok {
			return CorrelationMatrix{}, newValidationError(KindInvalidCorrelationMatrix, "correlation.labels",
				"matrix has no entry for %q", string(ci))
		}
		out.Values[i] = make([]float64, len(classes))
		for j, cj := range classes {
			out.Values[i][j] = m.Values[pi][idx[cj]]
		}
	}
	return out, nil
}

// Dense returns the values as a gonum matrix.
func (m CorrelationMatrix) Dense() *mat.Dense {
	n := len(m.Values)
	data := make([]float64, 0, n*n)
	for _, row := range m.Values {
		data = append(data, row...)
	}
	return mat.NewDense(n, n, data)
}

// Clone returns a deep copy.
func (m CorrelationMatrix) Clone() CorrelationMatrix {
	out := CorrelationMatrix{
		Labels: make([]AssetClass, len(m.Labels)),
		Values: make([][]float64, len(m.Values)),
	}
	copy(out.Labels, m.Labels)
	for i, row := range m.Values {
		out.Values[i] = make([]float64, len(row))
		copy(out.Values[i], row)
	}
	return out
}

// Get returns the correlation between two classes.
func (m CorrelationMatrix) Get(a, b AssetClass) (float64, bool) {
	idx := m.index()
	i, ok := idx[a]
	if !ok {
		return 0, false
	}
	j, ok := idx[b]
	if !ok {
		return 0, false
	}
	return m.Values[i][j], true
}

// canonical maps label codes and case variants onto the enumeration labels.
// Unknown labels are kept so validateShape can report them.
func (m CorrelationMatrix) canonical() CorrelationMatrix {
	labels := make([]AssetClass, len(m.Labels))
	for i, c := range m.Labels {
		if parsed, err := ParseAssetClass(string(c)); err == nil {
			labels[i] = parsed
		} else {
			labels[i] = c
		}
	}
	return CorrelationMatrix{Labels: labels, Values: m.Values}
}

func (m CorrelationMatrix) index() map[AssetClass]int {
	idx := make(map[AssetClass]int, len(m.Labels))
	for i, c := range m.Labels {
		idx[c] = i
	}
	return idx
}

func (m CorrelationMatrix) validateShape() error {
	n := len(m.Labels)
	if len(m.Values) != n {
		return newValidationError(KindInvalidCorrelationMatrix, "correlation.values",
			"matrix has %d rows but %d labels", len(m.Values), n)
	}
	seen := make(map[AssetClass]bool, n)
	for i, c := range m.Labels {
		if !c.Valid() {
			return newValidationError(KindInvalidCorrelationMatrix, fmt.Sprintf("correlation.labels[%d]", i),
				"unknown asset class %q", string(c))
		}
		if seen[c] {
			return newValidationError(KindInvalidCorrelationMatrix, fmt.Sprintf("correlation.labels[%d]", i),
				"asset class %q labelled twice", string(c))
		}
		seen[c] = true
	}
	for i, row := range m.Values {
		if len(row) != n {
			return newValidationError(KindInvalidCorrelationMatrix, fmt.Sprintf("correlation.values[%d]", i),
				"row has %d entries, expected %d", len(row), n)
		}
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return newValidationError(KindInvalidCorrelationMatrix, fmt.Sprintf("correlation.values[%d][%d]", i, j),
					"entry is not a finite number")
			}
			// Off-diagonal only: SanitizeCorrelation resets the diagonal to 1.
			if i != j && (v < -1 || v > 1) {
				return newValidationError(KindInvalidCorrelationMatrix, fmt.Sprintf("correlation.values[%d][%d]", i, j),
					"correlation between %q and %q is %v, outside [-1, 1]", string(m.Labels[i]), string(m.Labels[j]), v)
			}
		}
	}
	return nil
}

func sameOrder(a, b []AssetClass) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
