// Package distance implements the ground-distance contract used by the
// similarity features. The metric is versioned: stored feature data or
// trained classifiers are only comparable under the same Version.
package distance

import (
	"math"

	"github.com/RyanBlaney/acoustic-similarity/internal/acoustic"
)

// Version identifies the metric implemented by EMD
const Version = "emd-skl-v1"

// varFloor guards the KL divergence against zero variances
const varFloor = 1e-6

// EMD computes Earth Mover's Distances between mixtures and between rhythm
// spectra.
//
// Mixtures: transport cost between component weights, with the symmetric
// KL divergence of the diagonal Gaussians as ground distance. The total flow
// is the smaller of the two weight masses and the cost is normalised by it.
//
// Rhythm spectra: one-dimensional EMD between the mass-normalised spectra
// with |i-j| ground distance, computed from cumulative sums.
type EMD struct{}

// NewEMD creates the default distance primitive
func NewEMD() *EMD {
	return &EMD{}
}

// Version returns the metric version
func (EMD) Version() string {
	return Version
}

// MixtureDistance returns the EMD between two mixtures
func (EMD) MixtureDistance(a, b *acoustic.MixtureModel) float64 {
	supply := make([]float64, acoustic.NumGauss)
	demand := make([]float64, acoustic.NumGauss)
	for i := range a.Gauss {
		supply[i] = math.Max(float64(a.Gauss[i].Weight), 0)
		demand[i] = math.Max(float64(b.Gauss[i].Weight), 0)
	}

	cost := make([][]float64, acoustic.NumGauss)
	for i := range cost {
		cost[i] = make([]float64, acoustic.NumGauss)
		for j := range cost[i] {
			cost[i][j] = SymmetricKL(&a.Gauss[i], &b.Gauss[j])
		}
	}

	return Transport(supply, demand, cost)
}

// RhythmDistance returns the EMD between two rhythm spectra
func (EMD) RhythmDistance(a, b *acoustic.RhythmSpectrum) float64 {
	massA, massB := 0.0, 0.0
	for i := range a {
		massA += math.Max(float64(a[i]), 0)
		massB += math.Max(float64(b[i]), 0)
	}
	if massA <= 0 || massB <= 0 {
		return 0
	}

	dist, cdf := 0.0, 0.0
	for i := range a {
		cdf += math.Max(float64(a[i]), 0)/massA - math.Max(float64(b[i]), 0)/massB
		dist += math.Abs(cdf)
	}
	return dist
}

// SymmetricKL returns KL(p||q) + KL(q||p) for two diagonal Gaussians
func SymmetricKL(p, q *acoustic.Gaussian) float64 {
	sum := 0.0
	for d := 0; d < acoustic.NumDimensions; d++ {
		vp := math.Max(float64(p.Vars[d]), varFloor)
		vq := math.Max(float64(q.Vars[d]), varFloor)
		diff := float64(p.Means[d]) - float64(q.Means[d])
		sum += vp/vq + vq/vp + diff*diff*(1/vp+1/vq) - 2
	}
	d := 0.5 * sum
	if d < 0 || math.IsNaN(d) {
		return 0
	}
	if math.IsInf(d, 1) {
		return math.MaxFloat32
	}
	return d
}
