package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/RyanBlaney/acoustic-similarity/internal/acoustic"
)

type StoreTestSuite struct {
	suite.Suite
	ctx   context.Context
	store *SQLStore
}

func (s *StoreTestSuite) SetupTest() {
	s.ctx = context.Background()
	st, err := Open(s.ctx, &Config{Driver: DriverSQLite, DSN: ":memory:"})
	s.Require().NoError(err)
	s.store = st
}

func (s *StoreTestSuite) TearDownTest() {
	s.NoError(s.store.Close())
}

func testModel(seed float32) *acoustic.MixtureModel {
	mm := &acoustic.MixtureModel{}
	for i := range mm.Gauss {
		mm.Gauss[i].Weight = 1.0 / acoustic.NumGauss
		for d := 0; d < acoustic.NumDimensions; d++ {
			mm.Gauss[i].Means[d] = seed + float32(i*d)
			mm.Gauss[i].Vars[d] = 1 + seed
		}
	}
	return mm
}

func testBeats(peak int) *acoustic.RhythmSpectrum {
	beats := &acoustic.RhythmSpectrum{}
	beats[peak] = 1
	return beats
}

func (s *StoreTestSuite) TestPutAndGet() {
	mm, beats := testModel(0.5), testBeats(20)

	s.Require().NoError(s.store.PutMixture(s.ctx, "track-1", mm))
	s.Require().NoError(s.store.PutRhythm(s.ctx, "track-1", beats))

	gotMM, gotBeats, found, err := s.store.GetAcoustic(s.ctx, "track-1")
	s.Require().NoError(err)
	s.True(found)
	s.Equal(*mm, *gotMM)
	s.Equal(*beats, *gotBeats)
}

func (s *StoreTestSuite) TestMissingTrack() {
	mm, beats, found, err := s.store.GetAcoustic(s.ctx, "nope")
	s.NoError(err)
	s.False(found)
	s.Nil(mm)
	s.Nil(beats)
}

func (s *StoreTestSuite) TestPartialTrackIsMissing() {
	s.Require().NoError(s.store.PutMixture(s.ctx, "mixture-only", testModel(1)))
	_, _, found, err := s.store.GetAcoustic(s.ctx, "mixture-only")
	s.NoError(err)
	s.False(found)

	s.Require().NoError(s.store.PutRhythm(s.ctx, "rhythm-only", testBeats(3)))
	_, _, found, err = s.store.GetAcoustic(s.ctx, "rhythm-only")
	s.NoError(err)
	s.False(found)
}

func (s *StoreTestSuite) TestUpsertReplaces() {
	s.Require().NoError(s.store.PutMixture(s.ctx, "track", testModel(1)))
	s.Require().NoError(s.store.PutRhythm(s.ctx, "track", testBeats(1)))
	s.Require().NoError(s.store.PutMixture(s.ctx, "track", testModel(2)))

	mm, beats, found, err := s.store.GetAcoustic(s.ctx, "track")
	s.Require().NoError(err)
	s.True(found)
	s.Equal(*testModel(2), *mm)
	// rhythm spectrum is untouched by the mixture update
	s.Equal(*testBeats(1), *beats)
}

func (s *StoreTestSuite) TestCountAndDelete() {
	count, err := s.store.Count(s.ctx)
	s.Require().NoError(err)
	s.Equal(0, count)

	s.Require().NoError(s.store.PutMixture(s.ctx, "a", testModel(1)))
	s.Require().NoError(s.store.PutMixture(s.ctx, "b", testModel(2)))
	s.Require().NoError(s.store.PutRhythm(s.ctx, "c", testBeats(2)))

	count, err = s.store.Count(s.ctx)
	s.Require().NoError(err)
	s.Equal(2, count)

	s.Require().NoError(s.store.Delete(s.ctx, "a"))
	s.Require().NoError(s.store.Delete(s.ctx, "never-stored"))

	count, err = s.store.Count(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, count)
}

func (s *StoreTestSuite) TestCorruptBlob() {
	_, err := s.store.db.ExecContext(s.ctx,
		`INSERT INTO acoustic (uid, spectrum, bpm) VALUES ($1, $2, $3)`,
		"corrupt", []byte{1, 2, 3}, make([]byte, acoustic.RhythmSpectrumSize))
	s.Require().NoError(err)

	_, _, found, err := s.store.GetAcoustic(s.ctx, "corrupt")
	s.False(found)
	s.ErrorIs(err, acoustic.ErrInvalidBlob)
}

func TestStoreTestSuite(t *testing.T) {
	suite.Run(t, new(StoreTestSuite))
}

func TestOpenFileDatabase(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "nested", "acoustic.db")
	ctx := context.Background()

	st, err := Open(ctx, &Config{Driver: DriverSQLite, DSN: dsn})
	require.NoError(t, err)
	require.NoError(t, st.PutMixture(ctx, "persisted", testModel(3)))
	require.NoError(t, st.PutRhythm(ctx, "persisted", testBeats(7)))
	require.NoError(t, st.Close())

	reopened, err := Open(ctx, &Config{Driver: DriverSQLite, DSN: dsn})
	require.NoError(t, err)
	defer reopened.Close()

	_, beats, found, err := reopened.GetAcoustic(ctx, "persisted")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, float32(1), beats[7])
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, (&Config{Driver: DriverSQLite, DSN: ":memory:"}).Validate())
	assert.NoError(t, (&Config{Driver: DriverPostgres, DSN: "postgres://localhost/acoustic"}).Validate())
	assert.Error(t, (&Config{Driver: "mysql", DSN: "x"}).Validate())
	assert.Error(t, (&Config{Driver: DriverSQLite}).Validate())

	_, err := Open(context.Background(), &Config{Driver: "mysql", DSN: "x"})
	assert.Error(t, err)
}
