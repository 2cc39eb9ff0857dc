package similarity

import (
	"context"

	"github.com/RyanBlaney/acoustic-similarity/internal/acoustic"
	"github.com/RyanBlaney/latency-benchmark-common/logging"
)

// AcousticSource looks up the stored acoustic data of a track. found is
// false when the track has no mixture model or no rhythm spectrum.
type AcousticSource interface {
	GetAcoustic(ctx context.Context, trackID string) (mm *acoustic.MixtureModel, beats *acoustic.RhythmSpectrum, found bool, err error)
}

// Evaluator scores pairs of tracks
type Evaluator struct {
	source   AcousticSource
	scorer   Scorer
	distance Distance
	logger   logging.Logger
}

// NewEvaluator creates an evaluator over a store, scorer and distance primitive
func NewEvaluator(source AcousticSource, scorer Scorer, dist Distance) *Evaluator {
	return &Evaluator{
		source:   source,
		scorer:   scorer,
		distance: dist,
		logger: logging.WithFields(logging.Fields{
			"component": "similarity_evaluator",
			"scorer":    scorer.Name(),
		}),
	}
}

// Similarity returns the score of two tracks, or NeutralScore when either
// track lacks acoustic data. Lookup failures are logged and treated as
// missing data.
func (e *Evaluator) Similarity(ctx context.Context, song1, song2 string) float64 {
	f, ok := e.Features(ctx, song1, song2)
	if !ok {
		return NeutralScore
	}
	return e.scorer.Evaluate(f)
}

// Features returns the feature vector of two tracks. ok is false when
// either track lacks acoustic data.
func (e *Evaluator) Features(ctx context.Context, song1, song2 string) (Features, bool) {
	mm1, b1, ok := e.fetch(ctx, song1)
	if !ok {
		return Features{}, false
	}
	mm2, b2, ok := e.fetch(ctx, song2)
	if !ok {
		return Features{}, false
	}
	return ExtractFeatures(mm1, b1, mm2, b2, e.distance), true
}

// Score extracts features from two models and spectra and scores them
func (e *Evaluator) Score(mm1 *acoustic.MixtureModel, beats1 *acoustic.RhythmSpectrum,
	mm2 *acoustic.MixtureModel, beats2 *acoustic.RhythmSpectrum) float64 {
	return e.scorer.Evaluate(ExtractFeatures(mm1, beats1, mm2, beats2, e.distance))
}

// EvaluateFeatures scores a precomputed feature vector
func (e *Evaluator) EvaluateFeatures(f Features) float64 {
	return e.scorer.Evaluate(f)
}

func (e *Evaluator) fetch(ctx context.Context, trackID string) (*acoustic.MixtureModel, *acoustic.RhythmSpectrum, bool) {
	mm, beats, found, err := e.source.GetAcoustic(ctx, trackID)
	if err != nil {
		e.logger.Warn("Acoustic lookup failed", logging.Fields{
			"track_id": trackID,
			"error":    err.Error(),
		})
		return nil, nil, false
	}
	if !found || mm == nil || beats == nil {
		e.logger.Debug("No acoustic data for track", logging.Fields{
			"track_id": trackID,
		})
		return nil, nil, false
	}
	return mm, beats, true
}
