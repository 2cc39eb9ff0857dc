package acoustic

const (
	// NumCepstr is the number of cepstral coefficients per analysis frame
	NumCepstr = 15

	// NumDimensions is the length of a feature vector: frame, delta and meta delta
	NumDimensions = 3 * NumCepstr

	// NumGauss is the number of components in every mixture model
	NumGauss = 15

	MinBPM = 50
	MaxBPM = 250

	// BeatsSize is the number of lag bins in a rhythm spectrum
	BeatsSize = MaxBPM - MinBPM
)

// Training protocol constants shared by the k-means seeding and EM stages
const (
	NumIter     = 100
	EndAccuracy = 0.0001
	PriorWeight = 0.001
)

// Frame holds the cepstral coefficients of one analysis frame
type Frame [NumCepstr]float32

// FeatureVector is the concatenation [frame, delta, meta delta]
type FeatureVector [NumDimensions]float32

// Frame returns the cepstral part of the vector
func (v FeatureVector) Frame() Frame {
	var f Frame
	copy(f[:], v[:NumCepstr])
	return f
}

// Delta returns the first order difference part of the vector
func (v FeatureVector) Delta() Frame {
	var f Frame
	copy(f[:], v[NumCepstr:2*NumCepstr])
	return f
}

// MetaDelta returns the second order difference part of the vector
func (v FeatureVector) MetaDelta() Frame {
	var f Frame
	copy(f[:], v[2*NumCepstr:])
	return f
}

// Gaussian is one diagonal-covariance mixture component.
// Weight is exp(log weight) as produced by the trainer; the weights of a
// model are not renormalised and may not sum to exactly 1.
type Gaussian struct {
	Weight float32
	Means  [NumDimensions]float32
	Vars   [NumDimensions]float32
}

// MixtureModel is the fixed-size statistical summary of one track.
// It is created once by training and treated as read-only afterwards.
type MixtureModel struct {
	Gauss [NumGauss]Gaussian
}

// WeightSum returns the sum of the component weights
func (m *MixtureModel) WeightSum() float64 {
	sum := 0.0
	for i := range m.Gauss {
		sum += float64(m.Gauss[i].Weight)
	}
	return sum
}

// RhythmSpectrum is the energy distribution over beat lags of one track
type RhythmSpectrum [BeatsSize]float32

// Max returns the largest bin value
func (r *RhythmSpectrum) Max() float32 {
	m := r[0]
	for _, v := range r[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

// Min returns the smallest bin value
func (r *RhythmSpectrum) Min() float32 {
	m := r[0]
	for _, v := range r[1:] {
		if v < m {
			m = v
		}
	}
	return m
}
