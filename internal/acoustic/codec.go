package acoustic

import (
	"encoding/binary"
	"fmt"
	"math"
)

const (
	gaussianSize = (1 + 2*NumDimensions) * 4

	// MixtureModelSize is the size in bytes of an encoded mixture model
	MixtureModelSize = NumGauss * gaussianSize

	// RhythmSpectrumSize is the size in bytes of an encoded rhythm spectrum
	RhythmSpectrumSize = BeatsSize * 4
)

// MarshalBinary encodes the model as little-endian float32 values, component
// by component: weight, means, variances. There is no header or padding.
func (m *MixtureModel) MarshalBinary() ([]byte, error) {
	buf := make([]byte, MixtureModelSize)
	off := 0
	put := func(v float32) {
		binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(v))
		off += 4
	}

	for i := range m.Gauss {
		g := &m.Gauss[i]
		put(g.Weight)
		for _, v := range g.Means {
			put(v)
		}
		for _, v := range g.Vars {
			put(v)
		}
	}

	return buf, nil
}

// UnmarshalBinary decodes a blob produced by MarshalBinary
func (m *MixtureModel) UnmarshalBinary(data []byte) error {
	if len(data) != MixtureModelSize {
		return fmt.Errorf("%w: mixture model is %d bytes, expected %d",
			ErrInvalidBlob, len(data), MixtureModelSize)
	}

	off := 0
	get := func() float32 {
		v := math.Float32frombits(binary.LittleEndian.Uint32(data[off:]))
		off += 4
		return v
	}

	for i := range m.Gauss {
		g := &m.Gauss[i]
		g.Weight = get()
		for j := range g.Means {
			g.Means[j] = get()
		}
		for j := range g.Vars {
			g.Vars[j] = get()
		}
	}

	return nil
}

// MarshalBinary encodes the spectrum as little-endian float32 values
func (r *RhythmSpectrum) MarshalBinary() ([]byte, error) {
	buf := make([]byte, RhythmSpectrumSize)
	for i, v := range r {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf, nil
}

// UnmarshalBinary decodes a blob produced by MarshalBinary
func (r *RhythmSpectrum) UnmarshalBinary(data []byte) error {
	if len(data) != RhythmSpectrumSize {
		return fmt.Errorf("%w: rhythm spectrum is %d bytes, expected %d",
			ErrInvalidBlob, len(data), RhythmSpectrumSize)
	}
	for i := range r {
		r[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return nil
}
