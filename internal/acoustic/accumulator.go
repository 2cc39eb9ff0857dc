package acoustic

import (
	"context"
	"errors"
	"fmt"

	"github.com/RyanBlaney/latency-benchmark-common/logging"
)

// State is the lifecycle stage of an Accumulator
type State int

const (
	StateNew State = iota
	StateAccumulating
	StateFinalized
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateAccumulating:
		return "accumulating"
	case StateFinalized:
		return "finalized"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Accumulator turns a track's cepstral frames into feature vectors and
// summarises them as a mixture model once the track is complete.
//
// An Accumulator belongs to one track and is not safe for concurrent use.
// Separate tracks use separate accumulators.
type Accumulator struct {
	trackID   string
	trainer   Trainer
	logger    logging.Logger
	state     State
	lastFrame Frame
	lastDelta Frame
	frames    int
	seq       []FeatureVector
	result    *MixtureModel
	err       error
}

// NewAccumulator creates an accumulator for one track. A nil trainer uses
// the standard GMM protocol.
func NewAccumulator(trackID string, trainer Trainer) *Accumulator {
	if trainer == nil {
		trainer = NewGMMTrainer(nil)
	}
	return &Accumulator{
		trackID: trackID,
		trainer: trainer,
		logger: logging.WithFields(logging.Fields{
			"component": "frame_accumulator",
			"track_id":  trackID,
		}),
	}
}

// Process adds one frame. The first two frames only warm up the delta
// history; every later frame appends [frame, delta, meta delta].
func (a *Accumulator) Process(frame Frame) error {
	if a.state == StateFinalized || a.state == StateFailed {
		return ErrAlreadyFinalized
	}
	a.state = StateAccumulating
	a.frames++

	var delta, metaDelta Frame
	for i := range frame {
		delta[i] = frame[i] - a.lastFrame[i]
		metaDelta[i] = delta[i] - a.lastDelta[i]
	}
	a.lastFrame = frame
	a.lastDelta = delta

	if a.frames < 3 {
		return nil
	}

	var v FeatureVector
	copy(v[:NumCepstr], frame[:])
	copy(v[NumCepstr:2*NumCepstr], delta[:])
	copy(v[2*NumCepstr:], metaDelta[:])
	a.seq = append(a.seq, v)

	return nil
}

// Finalize trains the mixture model. It may be called once; the
// accumulator ends in StateFinalized or StateFailed.
func (a *Accumulator) Finalize(ctx context.Context) (*MixtureModel, error) {
	if a.state == StateFinalized || a.state == StateFailed {
		return nil, ErrAlreadyFinalized
	}

	mm, err := a.trainer.Train(ctx, a.seq)
	if err != nil {
		a.state = StateFailed
		a.err = NewTrainingError(a.trackID, len(a.seq), "could not fit mixture model", err)
		a.logger.Warn("Mixture model training failed", logging.Fields{
			"frames":  a.frames,
			"vectors": len(a.seq),
			"error":   err.Error(),
		})
		return nil, a.err
	}

	a.state = StateFinalized
	a.result = mm
	a.seq = nil

	a.logger.Debug("Mixture model trained", logging.Fields{
		"frames":     a.frames,
		"weight_sum": mm.WeightSum(),
	})

	return mm, nil
}

// Result returns the trained model after a successful Finalize
func (a *Accumulator) Result() (*MixtureModel, error) {
	switch a.state {
	case StateFinalized:
		return a.result, nil
	case StateFailed:
		if a.err != nil {
			return nil, a.err
		}
		return nil, ErrTrainingFailure
	default:
		return nil, ErrNotFinalized
	}
}

// Sequence returns a copy of the accumulated feature vectors. The sequence
// is released after a successful Finalize.
func (a *Accumulator) Sequence() []FeatureVector {
	out := make([]FeatureVector, len(a.seq))
	copy(out, a.seq)
	return out
}

// FrameCount returns the number of frames processed so far
func (a *Accumulator) FrameCount() int {
	return a.frames
}

// State returns the current lifecycle stage
func (a *Accumulator) State() State {
	return a.state
}

// IsTrainingFailure reports whether err came from a failed Finalize
func IsTrainingFailure(err error) bool {
	return errors.Is(err, ErrTrainingFailure)
}

// Accumulate processes every frame and finalizes the accumulator
func Accumulate(ctx context.Context, trackID string, frames []Frame, trainer Trainer) (*MixtureModel, error) {
	acc := NewAccumulator(trackID, trainer)
	for i, f := range frames {
		if err := acc.Process(f); err != nil {
			return nil, fmt.Errorf("frame %d: %w", i, err)
		}
	}
	return acc.Finalize(ctx)
}
