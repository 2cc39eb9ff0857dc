package acoustic

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleModel() *MixtureModel {
	mm := &MixtureModel{}
	for i := range mm.Gauss {
		g := &mm.Gauss[i]
		g.Weight = 1.0 / NumGauss
		for d := 0; d < NumDimensions; d++ {
			g.Means[d] = float32(i) - float32(d)*0.25
			g.Vars[d] = 0.5 + float32(i*d)*0.01
		}
	}
	return mm
}

func TestMixtureModelBlobSize(t *testing.T) {
	assert.Equal(t, 5460, MixtureModelSize)
	assert.Equal(t, 800, RhythmSpectrumSize)
}

func TestMixtureModelRoundTrip(t *testing.T) {
	mm := sampleModel()

	blob, err := mm.MarshalBinary()
	require.NoError(t, err)
	require.Len(t, blob, MixtureModelSize)

	// first value is the weight of the first component
	assert.Equal(t, math.Float32bits(mm.Gauss[0].Weight), binary.LittleEndian.Uint32(blob[0:4]))
	// followed by its first mean
	assert.Equal(t, math.Float32bits(mm.Gauss[0].Means[0]), binary.LittleEndian.Uint32(blob[4:8]))

	decoded := &MixtureModel{}
	require.NoError(t, decoded.UnmarshalBinary(blob))
	assert.Equal(t, *mm, *decoded)

	again, err := decoded.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, blob, again)
}

func TestMixtureModelInvalidBlob(t *testing.T) {
	mm := &MixtureModel{}
	for _, size := range []int{0, 4, MixtureModelSize - 1, MixtureModelSize + 4} {
		err := mm.UnmarshalBinary(make([]byte, size))
		assert.ErrorIs(t, err, ErrInvalidBlob, "size %d", size)
	}
}

func TestRhythmSpectrumRoundTrip(t *testing.T) {
	beats := &RhythmSpectrum{}
	for i := range beats {
		beats[i] = float32(math.Sin(float64(i) / 10))
	}

	blob, err := beats.MarshalBinary()
	require.NoError(t, err)
	require.Len(t, blob, RhythmSpectrumSize)

	decoded := &RhythmSpectrum{}
	require.NoError(t, decoded.UnmarshalBinary(blob))
	assert.Equal(t, *beats, *decoded)

	assert.ErrorIs(t, decoded.UnmarshalBinary(blob[:10]), ErrInvalidBlob)
}

func TestRhythmSpectrumExtremes(t *testing.T) {
	beats := &RhythmSpectrum{}
	beats[17] = 3.5
	beats[120] = -1.25

	assert.Equal(t, float32(3.5), beats.Max())
	assert.Equal(t, float32(-1.25), beats.Min())
}
