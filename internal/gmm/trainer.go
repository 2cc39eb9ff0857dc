package gmm

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/RyanBlaney/latency-benchmark-common/logging"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Config controls both training stages
type Config struct {
	NumComponents int     `mapstructure:"num_components"`
	MaxIter       int     `mapstructure:"max_iter"`
	EndAccuracy   float64 `mapstructure:"end_accuracy"`
	PriorWeight   float64 `mapstructure:"prior_weight"`
	VarFloor      float64 `mapstructure:"var_floor"`
}

// DefaultConfig returns the configuration used for track summaries
func DefaultConfig(components int) *Config {
	return &Config{
		NumComponents: components,
		MaxIter:       100,
		EndAccuracy:   0.0001,
		PriorWeight:   0.001,
		VarFloor:      1e-4,
	}
}

// Validate checks the configuration
func (c *Config) Validate() error {
	if c.NumComponents <= 0 {
		return fmt.Errorf("number of components must be positive")
	}
	if c.MaxIter <= 0 {
		return fmt.Errorf("max iterations must be positive")
	}
	if c.EndAccuracy < 0 {
		return fmt.Errorf("end accuracy cannot be negative")
	}
	if c.PriorWeight < 0 {
		return fmt.Errorf("prior weight cannot be negative")
	}
	if c.VarFloor <= 0 {
		return fmt.Errorf("variance floor must be positive")
	}
	return nil
}

// Stats describes one finished training run
type Stats struct {
	Vectors          int           `json:"vectors"`
	KMeansIterations int           `json:"kmeans_iterations"`
	EMIterations     int           `json:"em_iterations"`
	LogLikelihood    float64       `json:"log_likelihood"`
	Duration         time.Duration `json:"duration"`
}

// Trainer fits a diagonal Gaussian mixture in two stages: k-means seeding
// followed by EM refinement. Both stages stop when the relative improvement
// of the mean log-likelihood drops below EndAccuracy or after MaxIter
// iterations.
type Trainer struct {
	config *Config
	rand   *rand.Rand
	logger logging.Logger
	stats  Stats
}

// NewTrainer creates a trainer. A nil generator is not allowed; callers
// take one from the rng package.
func NewTrainer(cfg *Config, r *rand.Rand) *Trainer {
	if cfg == nil {
		cfg = DefaultConfig(15)
	}
	return &Trainer{
		config: cfg,
		rand:   r,
		logger: logging.WithFields(logging.Fields{
			"component": "gmm_trainer",
		}),
	}
}

// Stats returns statistics about the last successful Train call
func (t *Trainer) Stats() Stats {
	return t.stats
}

// Train fits a mixture to data. Each row of data is one observation.
func (t *Trainer) Train(ctx context.Context, data [][]float64) (*Model, error) {
	if err := t.config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid trainer configuration: %w", err)
	}
	if len(data) == 0 || len(data[0]) == 0 {
		return nil, fmt.Errorf("%w: no observations", ErrInvalidInput)
	}
	dim := len(data[0])
	for i, x := range data {
		if len(x) != dim {
			return nil, fmt.Errorf("%w: row %d has %d dimensions, expected %d",
				ErrInvalidInput, i, len(x), dim)
		}
	}

	start := time.Now()
	k := t.config.NumComponents

	distinct := distinctRows(data)
	if len(distinct) < k {
		return nil, fmt.Errorf("%w: %d distinct of %d vectors, %d components",
			ErrDegenerateData, len(distinct), len(data), k)
	}

	seed, kmIters, err := t.kmeans(ctx, data, distinct)
	if err != nil {
		return nil, err
	}

	model, emIters, ll, err := t.em(ctx, data, seed)
	if err != nil {
		return nil, err
	}

	if !model.finite() {
		return nil, ErrNumerical
	}

	t.stats = Stats{
		Vectors:          len(data),
		KMeansIterations: kmIters,
		EMIterations:     emIters,
		LogLikelihood:    ll,
		Duration:         time.Since(start),
	}

	t.logger.Debug("Mixture training completed", logging.Fields{
		"vectors":           len(data),
		"components":        k,
		"kmeans_iterations": kmIters,
		"em_iterations":     emIters,
		"log_likelihood":    ll,
		"duration_ms":       t.stats.Duration.Milliseconds(),
	})

	return model, nil
}

// converged reports whether the relative improvement is below the threshold
func (t *Trainer) converged(prev, cur float64) bool {
	if math.IsInf(prev, -1) {
		return false
	}
	denom := math.Abs(prev)
	if denom == 0 {
		return cur-prev == 0
	}
	return (cur-prev)/denom < t.config.EndAccuracy
}

// kmeans seeds a model by hard clustering. Initial centres are distinct
// observations chosen at random.
func (t *Trainer) kmeans(ctx context.Context, data [][]float64, distinct []int) (*Model, int, error) {
	k := t.config.NumComponents
	dim := len(data[0])
	n := len(data)

	model := newModel(k, dim)
	perm := t.rand.Perm(len(distinct))
	for c := 0; c < k; c++ {
		copy(model.Means[c], data[distinct[perm[c]]])
	}

	globalVar := columnVariances(data, t.config.VarFloor)
	assign := make([]int, n)
	prev := math.Inf(-1)
	iter := 0

	for iter < t.config.MaxIter {
		if err := ctx.Err(); err != nil {
			return nil, iter, err
		}
		iter++

		for i, x := range data {
			best, bestDist := 0, math.Inf(1)
			for c := 0; c < k; c++ {
				d := floats.Distance(x, model.Means[c], 2)
				if d < bestDist {
					best, bestDist = c, d
				}
			}
			assign[i] = best
		}

		t.updateClusters(model, data, assign, globalVar)

		cur := classificationLogLikelihood(model, data, assign)
		if t.converged(prev, cur) {
			break
		}
		prev = cur
	}

	return model, iter, nil
}

// updateClusters recomputes means, variances and weights from a hard assignment.
// Empty clusters keep their centre; the prior weight keeps them alive.
func (t *Trainer) updateClusters(model *Model, data [][]float64, assign []int, globalVar []float64) {
	k := model.Components()
	dim := model.Dim()
	n := float64(len(data))

	counts := make([]float64, k)
	sums := make([][]float64, k)
	sqs := make([][]float64, k)
	for c := 0; c < k; c++ {
		sums[c] = make([]float64, dim)
		sqs[c] = make([]float64, dim)
	}

	for i, x := range data {
		c := assign[i]
		counts[c]++
		floats.Add(sums[c], x)
	}

	for c := 0; c < k; c++ {
		if counts[c] > 0 {
			floats.ScaleTo(model.Means[c], 1/counts[c], sums[c])
		}
	}

	for i, x := range data {
		c := assign[i]
		for d := range x {
			diff := x[d] - model.Means[c][d]
			sqs[c][d] += diff * diff
		}
	}

	denom := n + float64(k)*t.config.PriorWeight
	for c := 0; c < k; c++ {
		if counts[c] > 1 {
			for d := 0; d < dim; d++ {
				model.Vars[c][d] = math.Max(sqs[c][d]/counts[c], t.config.VarFloor)
			}
		} else {
			copy(model.Vars[c], globalVar)
		}
		model.LogWeights[c] = math.Log((counts[c] + t.config.PriorWeight) / denom)
	}
}

// em refines a seeded model with expectation maximisation
func (t *Trainer) em(ctx context.Context, data [][]float64, model *Model) (*Model, int, float64, error) {
	k := model.Components()
	dim := model.Dim()
	n := len(data)

	resp := make([][]float64, n)
	for i := range resp {
		resp[i] = make([]float64, k)
	}

	prev := math.Inf(-1)
	cur := prev
	iter := 0

	for iter < t.config.MaxIter {
		if err := ctx.Err(); err != nil {
			return nil, iter, 0, err
		}
		iter++

		// E-step
		total := 0.0
		for i, x := range data {
			for c := 0; c < k; c++ {
				resp[i][c] = model.LogWeights[c] + componentLogProb(x, model.Means[c], model.Vars[c])
			}
			norm := floats.LogSumExp(resp[i])
			total += norm
			for c := 0; c < k; c++ {
				resp[i][c] = math.Exp(resp[i][c] - norm)
			}
		}
		cur = total / float64(n)

		if math.IsNaN(cur) || math.IsInf(cur, 0) {
			return nil, iter, 0, ErrNumerical
		}

		// M-step
		denom := float64(n) + float64(k)*t.config.PriorWeight
		for c := 0; c < k; c++ {
			nk := 0.0
			mean := make([]float64, dim)
			for i, x := range data {
				r := resp[i][c]
				nk += r
				floats.AddScaled(mean, r, x)
			}

			model.LogWeights[c] = math.Log((nk + t.config.PriorWeight) / denom)
			if nk < 1e-10 {
				continue
			}
			floats.Scale(1/nk, mean)

			vars := make([]float64, dim)
			for i, x := range data {
				r := resp[i][c]
				for d := range x {
					diff := x[d] - mean[d]
					vars[d] += r * diff * diff
				}
			}
			for d := range vars {
				vars[d] = math.Max(vars[d]/nk, t.config.VarFloor)
			}

			model.Means[c] = mean
			model.Vars[c] = vars
		}

		if t.converged(prev, cur) {
			break
		}
		prev = cur
	}

	return model, iter, cur, nil
}

// classificationLogLikelihood is the mean log-likelihood of each point under
// the component it is assigned to
func classificationLogLikelihood(model *Model, data [][]float64, assign []int) float64 {
	sum := 0.0
	for i, x := range data {
		c := assign[i]
		sum += model.LogWeights[c] + componentLogProb(x, model.Means[c], model.Vars[c])
	}
	return sum / float64(len(data))
}

// columnVariances returns the per-dimension variance of the data set
func columnVariances(data [][]float64, floor float64) []float64 {
	dim := len(data[0])
	col := make([]float64, len(data))
	vars := make([]float64, dim)
	for d := 0; d < dim; d++ {
		for i, x := range data {
			col[i] = x[d]
		}
		_, v := stat.PopMeanVariance(col, nil)
		vars[d] = math.Max(v, floor)
	}
	return vars
}

// distinctRows returns the index of the first occurrence of each distinct row
func distinctRows(data [][]float64) []int {
	seen := make(map[string]struct{}, len(data))
	var out []int
	buf := make([]byte, 8*len(data[0]))
	for i, x := range data {
		for d, v := range x {
			binary.LittleEndian.PutUint64(buf[d*8:], math.Float64bits(v))
		}
		key := string(buf)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, i)
	}
	return out
}
