package similarity

import (
	"fmt"
	"math"

	"github.com/RyanBlaney/latency-benchmark-common/logging"
	"gonum.org/v1/gonum/floats"
)

// NeutralScore is returned when tracks cannot be compared
const NeutralScore = 0.0

// Scoring strategies selectable at runtime
const (
	StrategySVM      = "svm"
	StrategyFallback = "fallback"
)

// Scorer maps a feature vector to a similarity score. Implementations are
// read-only after construction and safe for concurrent use.
type Scorer interface {
	Evaluate(f Features) float64
	Name() string
}

// NewScorer builds the scorer for the named strategy
func NewScorer(strategy string, src ModelSource) (Scorer, error) {
	switch strategy {
	case StrategySVM, "":
		return NewSVMScorer(src)
	case StrategyFallback:
		return NewFallbackScorer(), nil
	default:
		return nil, fmt.Errorf("unknown scoring strategy: %s", strategy)
	}
}

// SVMScorer normalises features and evaluates a radial-basis kernel machine
type SVMScorer struct {
	resource *ModelResource
	origin   string
	gamma    float64
	mean     []float64
	invStdev []float64
	logger   logging.Logger
}

// NewSVMScorer loads the classifier resource once. Failure to load is fatal
// to construction.
func NewSVMScorer(src ModelSource) (*SVMScorer, error) {
	res, origin, err := LoadModelResource(src)
	if err != nil {
		return nil, err
	}
	return newSVMScorer(res, origin), nil
}

// NewSVMScorerFromResource builds a scorer from an already parsed resource
func NewSVMScorerFromResource(res *ModelResource) (*SVMScorer, error) {
	if err := res.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrModelResourceLoad, err)
	}
	return newSVMScorer(res, "memory"), nil
}

func newSVMScorer(res *ModelResource, origin string) *SVMScorer {
	invStdev := make([]float64, NumFeatures)
	for i, s := range res.Normalizer.Stdev {
		if s == 0 {
			s = 1
		}
		invStdev[i] = 1 / s
	}

	s := &SVMScorer{
		resource: res,
		origin:   origin,
		gamma:    1 / (res.Kernel.Stdv * res.Kernel.Stdv),
		mean:     res.Normalizer.Mean,
		invStdev: invStdev,
		logger: logging.WithFields(logging.Fields{
			"component": "svm_scorer",
		}),
	}

	s.logger.Debug("Classifier loaded", logging.Fields{
		"origin":          origin,
		"support_vectors": len(res.SVM.SupportVectors),
		"kernel_stdv":     res.Kernel.Stdv,
		"distance":        res.Distance,
	})

	return s
}

// Name returns the strategy name
func (s *SVMScorer) Name() string {
	return StrategySVM
}

// Origin returns where the classifier resource was loaded from
func (s *SVMScorer) Origin() string {
	return s.origin
}

// Normalize returns (f - mean) / stdev
func (s *SVMScorer) Normalize(f Features) []float64 {
	z := make([]float64, NumFeatures)
	floats.SubTo(z, f[:], s.mean)
	floats.Mul(z, s.invStdev)
	return z
}

// Raw returns the undivided classifier output
func (s *SVMScorer) Raw(f Features) float64 {
	z := s.Normalize(f)
	out := s.resource.SVM.Bias
	for _, sv := range s.resource.SVM.SupportVectors {
		d := floats.Distance(z, sv.X, 2)
		out += sv.Coef * math.Exp(-s.gamma*d*d)
	}
	return out
}

// Evaluate returns the classifier output divided by three
func (s *SVMScorer) Evaluate(f Features) float64 {
	score := s.Raw(f) / 3
	if math.IsNaN(score) || math.IsInf(score, 0) {
		s.logger.Warn("Non-finite classifier output", logging.Fields{
			"features": f.Map(),
		})
		return NeutralScore
	}
	return score
}

// FallbackScorer gives every pair the neutral score. It keeps the system
// working when no classifier is available.
type FallbackScorer struct{}

// NewFallbackScorer creates a fallback scorer
func NewFallbackScorer() *FallbackScorer {
	return &FallbackScorer{}
}

// Name returns the strategy name
func (FallbackScorer) Name() string {
	return StrategyFallback
}

// Evaluate returns NeutralScore for any input
func (FallbackScorer) Evaluate(Features) float64 {
	return NeutralScore
}
