package similarity

import "github.com/RyanBlaney/acoustic-similarity/internal/acoustic"

// NumFeatures is the length of the similarity feature vector
const NumFeatures = 12

// NumPartitions is the number of contiguous cepstral blocks summarised per model
const NumPartitions = 3

// Feature positions. Trained classifiers depend on this order.
const (
	FeatureMixtureDistance = iota
	FeatureRhythmDistance
	FeaturePartitionsA
	_
	_
	FeaturePartitionsB
	_
	_
	FeatureBeatsMaxA
	FeatureBeatsMaxB
	FeatureBeatsMinA
	FeatureBeatsMinB
)

// FeatureNames labels each position of a Features vector
var FeatureNames = [NumFeatures]string{
	"mixture_distance",
	"rhythm_distance",
	"partition_a_0",
	"partition_a_1",
	"partition_a_2",
	"partition_b_0",
	"partition_b_1",
	"partition_b_2",
	"beats_max_a",
	"beats_max_b",
	"beats_min_a",
	"beats_min_b",
}

// Features is the fixed-length vector fed to a Scorer
type Features [NumFeatures]float64

// Map returns the features keyed by name
func (f Features) Map() map[string]float64 {
	out := make(map[string]float64, NumFeatures)
	for i, name := range FeatureNames {
		out[name] = f[i]
	}
	return out
}

// Distance is the ground-distance primitive between mixtures and spectra
type Distance interface {
	MixtureDistance(a, b *acoustic.MixtureModel) float64
	RhythmDistance(a, b *acoustic.RhythmSpectrum) float64
	Version() string
}

// ExtractFeatures derives the similarity features of a pair of tracks
func ExtractFeatures(mm1 *acoustic.MixtureModel, beats1 *acoustic.RhythmSpectrum,
	mm2 *acoustic.MixtureModel, beats2 *acoustic.RhythmSpectrum, dist Distance) Features {
	var f Features

	f[FeatureMixtureDistance] = dist.MixtureDistance(mm1, mm2)
	f[FeatureRhythmDistance] = dist.RhythmDistance(beats1, beats2)

	p1 := AddPartitions(mm1)
	p2 := AddPartitions(mm2)
	copy(f[FeaturePartitionsA:FeaturePartitionsA+NumPartitions], p1[:])
	copy(f[FeaturePartitionsB:FeaturePartitionsB+NumPartitions], p2[:])

	f[FeatureBeatsMaxA] = float64(beats1.Max())
	f[FeatureBeatsMaxB] = float64(beats2.Max())
	f[FeatureBeatsMinA] = float64(beats1.Min())
	f[FeatureBeatsMinB] = float64(beats2.Min())

	return f
}

// AddPartitions splits the cepstral dimensions into three equal contiguous
// blocks and sums weight * mean over all components within each block
func AddPartitions(mm *acoustic.MixtureModel) [NumPartitions]float64 {
	var sums [NumPartitions]float64
	const block = acoustic.NumCepstr / NumPartitions

	for i := range mm.Gauss {
		g := &mm.Gauss[i]
		for j := 0; j < acoustic.NumCepstr; j++ {
			sums[j/block] += float64(g.Weight) * float64(g.Means[j])
		}
	}
	return sums
}
