package acoustic

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanBlaney/acoustic-similarity/internal/gmm"
	"github.com/RyanBlaney/acoustic-similarity/internal/rng"
)

// stubTrainer records the sequence it was given
type stubTrainer struct {
	seen  []FeatureVector
	model *MixtureModel
	err   error
}

func (s *stubTrainer) Train(ctx context.Context, seq []FeatureVector) (*MixtureModel, error) {
	s.seen = append([]FeatureVector(nil), seq...)
	if s.err != nil {
		return nil, s.err
	}
	return s.model, nil
}

func constantFrame(v float32) Frame {
	var f Frame
	for i := range f {
		f[i] = v
	}
	return f
}

func TestAccumulatorWarmUp(t *testing.T) {
	acc := NewAccumulator("track", &stubTrainer{})
	assert.Equal(t, StateNew, acc.State())

	require.NoError(t, acc.Process(constantFrame(1)))
	require.NoError(t, acc.Process(constantFrame(2)))
	assert.Empty(t, acc.Sequence())
	assert.Equal(t, StateAccumulating, acc.State())

	require.NoError(t, acc.Process(constantFrame(3)))
	assert.Len(t, acc.Sequence(), 1)
	assert.Equal(t, 3, acc.FrameCount())
}

func TestAccumulatorSequenceLength(t *testing.T) {
	for _, n := range []int{0, 1, 2, 3, 10} {
		acc := NewAccumulator("track", &stubTrainer{})
		for i := 0; i < n; i++ {
			require.NoError(t, acc.Process(constantFrame(float32(i))))
		}
		expected := n - 2
		if expected < 0 {
			expected = 0
		}
		assert.Len(t, acc.Sequence(), expected, "frames: %d", n)
	}
}

func TestAccumulatorDeltas(t *testing.T) {
	acc := NewAccumulator("track", &stubTrainer{})

	// squares give deltas 1,3,5,7 and meta deltas 1,2,2,2
	for i := 1; i <= 4; i++ {
		require.NoError(t, acc.Process(constantFrame(float32(i*i))))
	}

	seq := acc.Sequence()
	require.Len(t, seq, 2)

	assert.Equal(t, constantFrame(9), seq[0].Frame())
	assert.Equal(t, constantFrame(5), seq[0].Delta())
	assert.Equal(t, constantFrame(2), seq[0].MetaDelta())

	assert.Equal(t, constantFrame(16), seq[1].Frame())
	assert.Equal(t, constantFrame(7), seq[1].Delta())
	assert.Equal(t, constantFrame(2), seq[1].MetaDelta())
}

func TestAccumulatorLinearFrames(t *testing.T) {
	acc := NewAccumulator("track", &stubTrainer{})
	for i := 1; i <= 5; i++ {
		require.NoError(t, acc.Process(constantFrame(float32(i))))
	}

	for _, v := range acc.Sequence() {
		assert.Equal(t, constantFrame(1), v.Delta())
		assert.Equal(t, constantFrame(0), v.MetaDelta())
	}
}

func TestAccumulatorSequenceIsCopy(t *testing.T) {
	acc := NewAccumulator("track", &stubTrainer{})
	for i := 0; i < 4; i++ {
		require.NoError(t, acc.Process(constantFrame(float32(i))))
	}

	seq := acc.Sequence()
	seq[0][0] = 1000
	assert.NotEqual(t, float32(1000), acc.Sequence()[0][0])
}

func TestAccumulatorFinalize(t *testing.T) {
	model := &MixtureModel{}
	model.Gauss[0].Weight = 1
	trainer := &stubTrainer{model: model}

	acc := NewAccumulator("track", trainer)
	_, err := acc.Result()
	assert.ErrorIs(t, err, ErrNotFinalized)

	for i := 0; i < 6; i++ {
		require.NoError(t, acc.Process(constantFrame(float32(i))))
	}

	mm, err := acc.Finalize(context.Background())
	require.NoError(t, err)
	assert.Same(t, model, mm)
	assert.Len(t, trainer.seen, 4)
	assert.Equal(t, StateFinalized, acc.State())
	assert.Empty(t, acc.Sequence())

	result, err := acc.Result()
	require.NoError(t, err)
	assert.Same(t, model, result)

	assert.ErrorIs(t, acc.Process(constantFrame(1)), ErrAlreadyFinalized)
	_, err = acc.Finalize(context.Background())
	assert.ErrorIs(t, err, ErrAlreadyFinalized)
}

func TestAccumulatorTrainerFailure(t *testing.T) {
	cause := errors.New("boom")
	acc := NewAccumulator("track-7", &stubTrainer{err: cause})
	for i := 0; i < 5; i++ {
		require.NoError(t, acc.Process(constantFrame(float32(i))))
	}

	mm, err := acc.Finalize(context.Background())
	assert.Nil(t, mm)
	require.Error(t, err)
	assert.True(t, IsTrainingFailure(err))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, StateFailed, acc.State())

	var trainingErr *TrainingError
	require.ErrorAs(t, err, &trainingErr)
	assert.Equal(t, "track-7", trainingErr.TrackID)
	assert.Equal(t, 3, trainingErr.Vectors)

	_, err = acc.Result()
	assert.True(t, IsTrainingFailure(err))
	assert.ErrorIs(t, acc.Process(constantFrame(1)), ErrAlreadyFinalized)
}

func TestAccumulatorIdenticalFrames(t *testing.T) {
	rng.InitializeOnce(42)

	frames := make([]Frame, 5)
	for i := range frames {
		frames[i] = constantFrame(0.5)
	}

	mm, err := Accumulate(context.Background(), "silence", frames, nil)
	assert.Nil(t, mm)
	require.Error(t, err)
	assert.True(t, IsTrainingFailure(err))
	assert.ErrorIs(t, err, gmm.ErrDegenerateData)
}

func TestAccumulatorNoFrames(t *testing.T) {
	rng.InitializeOnce(42)

	_, err := Accumulate(context.Background(), "empty", nil, nil)
	require.Error(t, err)
	assert.True(t, IsTrainingFailure(err))
}

func TestGMMTrainerProducesModel(t *testing.T) {
	rng.InitializeOnce(42)
	r := rand.New(rand.NewPCG(1, 2))

	frames := make([]Frame, 300)
	for i := range frames {
		centre := float64(i%3) * 5
		for d := range frames[i] {
			frames[i][d] = float32(centre + r.NormFloat64())
		}
	}

	mm, err := Accumulate(context.Background(), "music", frames, nil)
	require.NoError(t, err)
	require.NotNil(t, mm)

	assert.InDelta(t, 1.0, mm.WeightSum(), 1e-3)
	for _, g := range mm.Gauss {
		assert.Greater(t, g.Weight, float32(0))
		for _, v := range g.Vars {
			assert.GreaterOrEqual(t, v, float32(1e-4)*0.999)
		}
	}
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "new", StateNew.String())
	assert.Equal(t, "accumulating", StateAccumulating.String())
	assert.Equal(t, "finalized", StateFinalized.String())
	assert.Equal(t, "failed", StateFailed.String())
	assert.Equal(t, "unknown", State(99).String())
}
