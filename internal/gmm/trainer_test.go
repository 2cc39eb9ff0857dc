package gmm

import (
	"context"
	"math"
	"math/rand/v2"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoClusters(r *rand.Rand, perCluster int) [][]float64 {
	data := make([][]float64, 0, 2*perCluster)
	for _, centre := range []float64{0, 10} {
		for i := 0; i < perCluster; i++ {
			data = append(data, []float64{
				centre + 0.5*r.NormFloat64(),
				centre + 0.5*r.NormFloat64(),
			})
		}
	}
	return data
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig(15)

	assert.Equal(t, 15, cfg.NumComponents)
	assert.Equal(t, 100, cfg.MaxIter)
	assert.Equal(t, 0.0001, cfg.EndAccuracy)
	assert.Equal(t, 0.001, cfg.PriorWeight)
	assert.NoError(t, cfg.Validate())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"no components", func(c *Config) { c.NumComponents = 0 }},
		{"no iterations", func(c *Config) { c.MaxIter = 0 }},
		{"negative accuracy", func(c *Config) { c.EndAccuracy = -1 }},
		{"negative prior", func(c *Config) { c.PriorWeight = -0.1 }},
		{"zero variance floor", func(c *Config) { c.VarFloor = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig(2)
			tt.modify(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestTrainRecoversClusters(t *testing.T) {
	data := twoClusters(rand.New(rand.NewPCG(3, 4)), 100)

	trainer := NewTrainer(DefaultConfig(2), rand.New(rand.NewPCG(5, 6)))
	model, err := trainer.Train(context.Background(), data)
	require.NoError(t, err)

	require.Equal(t, 2, model.Components())
	require.Equal(t, 2, model.Dim())

	order := []int{0, 1}
	sort.Slice(order, func(i, j int) bool {
		return model.Means[order[i]][0] < model.Means[order[j]][0]
	})

	for n, centre := range []float64{0, 10} {
		c := order[n]
		assert.InDelta(t, centre, model.Means[c][0], 0.3)
		assert.InDelta(t, centre, model.Means[c][1], 0.3)
		assert.InDelta(t, 0.5, math.Exp(model.LogWeights[c]), 0.05)
		assert.InDelta(t, 0.25, model.Vars[c][0], 0.15)
	}

	weightSum := math.Exp(model.LogWeights[0]) + math.Exp(model.LogWeights[1])
	assert.InDelta(t, 1.0, weightSum, 1e-9)

	stats := trainer.Stats()
	assert.Equal(t, 200, stats.Vectors)
	assert.Greater(t, stats.KMeansIterations, 0)
	assert.Greater(t, stats.EMIterations, 0)
	assert.InDelta(t, model.MeanLogLikelihood(data), stats.LogLikelihood, 0.5)
}

func TestTrainIsReproducible(t *testing.T) {
	data := twoClusters(rand.New(rand.NewPCG(7, 8)), 50)

	first, err := NewTrainer(DefaultConfig(3), rand.New(rand.NewPCG(1, 1))).Train(context.Background(), data)
	require.NoError(t, err)
	second, err := NewTrainer(DefaultConfig(3), rand.New(rand.NewPCG(1, 1))).Train(context.Background(), data)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestTrainDegenerateData(t *testing.T) {
	data := make([][]float64, 10)
	for i := range data {
		data[i] = []float64{1, 2, 3}
	}
	// one extra distinct row is still fewer than three components
	data = append(data, []float64{4, 5, 6})

	_, err := NewTrainer(DefaultConfig(3), rand.New(rand.NewPCG(1, 1))).Train(context.Background(), data)
	assert.ErrorIs(t, err, ErrDegenerateData)
}

func TestTrainInvalidInput(t *testing.T) {
	trainer := NewTrainer(DefaultConfig(1), rand.New(rand.NewPCG(1, 1)))

	_, err := trainer.Train(context.Background(), nil)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = trainer.Train(context.Background(), [][]float64{{1, 2}, {3}})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestTrainInvalidConfig(t *testing.T) {
	cfg := DefaultConfig(2)
	cfg.MaxIter = 0

	_, err := NewTrainer(cfg, rand.New(rand.NewPCG(1, 1))).Train(context.Background(), [][]float64{{1}, {2}})
	assert.Error(t, err)
}

func TestTrainCancelled(t *testing.T) {
	data := twoClusters(rand.New(rand.NewPCG(3, 4)), 20)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewTrainer(DefaultConfig(2), rand.New(rand.NewPCG(1, 1))).Train(ctx, data)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLogLikelihood(t *testing.T) {
	model := newModel(1, 2)
	model.LogWeights[0] = 0
	model.Vars[0][0], model.Vars[0][1] = 1, 1

	// standard bivariate normal at the origin
	assert.InDelta(t, -math.Log(2*math.Pi), model.LogLikelihood([]float64{0, 0}), 1e-12)
	assert.Less(t, model.LogLikelihood([]float64{3, 3}), model.LogLikelihood([]float64{0, 0}))
	assert.Equal(t, 0.0, model.MeanLogLikelihood(nil))
}

func TestDistinctRows(t *testing.T) {
	data := [][]float64{{1, 2}, {1, 2}, {2, 1}, {1, 2}, {0, 0}}
	assert.Equal(t, []int{0, 2, 4}, distinctRows(data))
}
