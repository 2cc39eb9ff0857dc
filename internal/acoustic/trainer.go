package acoustic

import (
	"context"
	"fmt"
	"math"

	"github.com/RyanBlaney/acoustic-similarity/internal/gmm"
	"github.com/RyanBlaney/acoustic-similarity/internal/rng"
)

// Trainer fits a mixture model to a track's feature vectors
type Trainer interface {
	Train(ctx context.Context, seq []FeatureVector) (*MixtureModel, error)
}

// GMMTrainer adapts the gmm package to the fixed-size track model
type GMMTrainer struct {
	config *gmm.Config
}

// NewGMMTrainer creates a trainer producing NumGauss components. A nil
// config uses the standard protocol constants.
func NewGMMTrainer(cfg *gmm.Config) *GMMTrainer {
	if cfg == nil {
		cfg = &gmm.Config{
			NumComponents: NumGauss,
			MaxIter:       NumIter,
			EndAccuracy:   EndAccuracy,
			PriorWeight:   PriorWeight,
			VarFloor:      1e-4,
		}
	}
	cfg.NumComponents = NumGauss
	return &GMMTrainer{config: cfg}
}

// Train runs k-means seeding and EM refinement over seq
func (t *GMMTrainer) Train(ctx context.Context, seq []FeatureVector) (*MixtureModel, error) {
	data := make([][]float64, len(seq))
	for i := range seq {
		row := make([]float64, NumDimensions)
		for d, v := range seq[i] {
			row[d] = float64(v)
		}
		data[i] = row
	}

	trainer := gmm.NewTrainer(t.config, rng.New())
	fit, err := trainer.Train(ctx, data)
	if err != nil {
		return nil, err
	}

	return FromGMM(fit)
}

// FromGMM converts a trained mixture into the persisted representation
func FromGMM(fit *gmm.Model) (*MixtureModel, error) {
	if fit.Components() != NumGauss || fit.Dim() != NumDimensions {
		return nil, fmt.Errorf("mixture has %d components of %d dimensions, expected %d of %d",
			fit.Components(), fit.Dim(), NumGauss, NumDimensions)
	}

	mm := &MixtureModel{}
	for i := range mm.Gauss {
		g := &mm.Gauss[i]
		g.Weight = float32(math.Exp(fit.LogWeights[i]))
		for d := 0; d < NumDimensions; d++ {
			g.Means[d] = float32(fit.Means[i][d])
			g.Vars[d] = float32(fit.Vars[i][d])
		}
	}
	return mm, nil
}
