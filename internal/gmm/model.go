package gmm

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"
)

var (
	// ErrDegenerateData is returned when the data cannot support the
	// requested number of non-empty components
	ErrDegenerateData = errors.New("too few distinct vectors for the requested components")

	// ErrInvalidInput is returned for empty or ragged training data
	ErrInvalidInput = errors.New("invalid training data")

	// ErrNumerical is returned when training produced non-finite parameters
	ErrNumerical = errors.New("training produced non-finite parameters")
)

// Model is a diagonal-covariance Gaussian mixture
type Model struct {
	LogWeights []float64   `json:"log_weights"`
	Means      [][]float64 `json:"means"`
	Vars       [][]float64 `json:"vars"`
}

// Components returns the number of mixture components
func (m *Model) Components() int {
	return len(m.LogWeights)
}

// Dim returns the dimensionality of the model
func (m *Model) Dim() int {
	if len(m.Means) == 0 {
		return 0
	}
	return len(m.Means[0])
}

// componentLogProb is log N(x; mean, diag(vars))
func componentLogProb(x, mean, vars []float64) float64 {
	lp := -0.5 * float64(len(x)) * math.Log(2*math.Pi)
	for d := range x {
		diff := x[d] - mean[d]
		lp -= 0.5 * (math.Log(vars[d]) + diff*diff/vars[d])
	}
	return lp
}

// LogLikelihood returns log p(x) under the mixture
func (m *Model) LogLikelihood(x []float64) float64 {
	terms := make([]float64, m.Components())
	for k := range terms {
		terms[k] = m.LogWeights[k] + componentLogProb(x, m.Means[k], m.Vars[k])
	}
	return floats.LogSumExp(terms)
}

// MeanLogLikelihood returns the average log-likelihood over a data set
func (m *Model) MeanLogLikelihood(data [][]float64) float64 {
	if len(data) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range data {
		sum += m.LogLikelihood(x)
	}
	return sum / float64(len(data))
}

func (m *Model) finite() bool {
	check := func(xs []float64) bool {
		for _, v := range xs {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
		return true
	}
	if !check(m.LogWeights) {
		return false
	}
	for k := range m.Means {
		if !check(m.Means[k]) || !check(m.Vars[k]) {
			return false
		}
	}
	return true
}

func newModel(k, dim int) *Model {
	m := &Model{
		LogWeights: make([]float64, k),
		Means:      make([][]float64, k),
		Vars:       make([][]float64, k),
	}
	for i := 0; i < k; i++ {
		m.Means[i] = make([]float64, dim)
		m.Vars[i] = make([]float64, dim)
	}
	return m
}
