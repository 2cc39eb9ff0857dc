package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"

	"github.com/RyanBlaney/acoustic-similarity/internal/acoustic"
	"github.com/RyanBlaney/latency-benchmark-common/logging"
)

// Supported database drivers
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "pgx"
)

// AcousticStore persists mixture models and rhythm spectra keyed by track
type AcousticStore interface {
	PutMixture(ctx context.Context, trackID string, mm *acoustic.MixtureModel) error
	PutRhythm(ctx context.Context, trackID string, beats *acoustic.RhythmSpectrum) error
	GetAcoustic(ctx context.Context, trackID string) (*acoustic.MixtureModel, *acoustic.RhythmSpectrum, bool, error)
	Delete(ctx context.Context, trackID string) error
	Count(ctx context.Context) (int, error)
	Close() error
}

// Config selects the database
type Config struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// Validate checks the configuration
func (c *Config) Validate() error {
	switch c.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("unsupported store driver: %s", c.Driver)
	}
	if c.DSN == "" {
		return fmt.Errorf("store dsn is required")
	}
	return nil
}

// SQLStore keeps acoustic data in a single table. spectrum holds the
// mixture model blob and bpm the rhythm spectrum blob.
type SQLStore struct {
	db     *sql.DB
	driver string
	logger logging.Logger
}

// Open connects to the configured database and creates the schema
func Open(ctx context.Context, cfg *Config) (*SQLStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.Driver == DriverSQLite && cfg.DSN != ":memory:" {
		if dir := filepath.Dir(cfg.DSN); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}

	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("error opening %s connection: %w", cfg.Driver, err)
	}

	if cfg.Driver == DriverSQLite {
		// every connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("error connecting to %s: %w", cfg.Driver, err)
	}

	s := &SQLStore{
		db:     db,
		driver: cfg.Driver,
		logger: logging.WithFields(logging.Fields{
			"component": "acoustic_store",
			"driver":    cfg.Driver,
		}),
	}

	if err := s.createTables(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("error creating tables: %w", err)
	}

	return s, nil
}

func (s *SQLStore) createTables(ctx context.Context) error {
	blob := "BLOB"
	if s.driver == DriverPostgres {
		blob = "BYTEA"
	}

	createAcousticTable := fmt.Sprintf(`
    CREATE TABLE IF NOT EXISTS acoustic (
        uid TEXT PRIMARY KEY,
        spectrum %s,
        bpm %s
    );`, blob, blob)

	if _, err := s.db.ExecContext(ctx, createAcousticTable); err != nil {
		return fmt.Errorf("creating acoustic table: %w", err)
	}
	return nil
}

// Close closes the database
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// PutMixture stores or replaces the mixture model of a track
func (s *SQLStore) PutMixture(ctx context.Context, trackID string, mm *acoustic.MixtureModel) error {
	blob, err := mm.MarshalBinary()
	if err != nil {
		return fmt.Errorf("failed to encode mixture model: %w", err)
	}
	return s.upsert(ctx, "spectrum", trackID, blob)
}

// PutRhythm stores or replaces the rhythm spectrum of a track
func (s *SQLStore) PutRhythm(ctx context.Context, trackID string, beats *acoustic.RhythmSpectrum) error {
	blob, err := beats.MarshalBinary()
	if err != nil {
		return fmt.Errorf("failed to encode rhythm spectrum: %w", err)
	}
	return s.upsert(ctx, "bpm", trackID, blob)
}

func (s *SQLStore) upsert(ctx context.Context, column, trackID string, blob []byte) error {
	query := fmt.Sprintf(`
        INSERT INTO acoustic (uid, %[1]s) VALUES ($1, $2)
        ON CONFLICT (uid) DO UPDATE SET %[1]s = excluded.%[1]s`, column)

	if _, err := s.db.ExecContext(ctx, query, trackID, blob); err != nil {
		return fmt.Errorf("failed to store %s for %s: %w", column, trackID, err)
	}

	s.logger.Debug("Stored acoustic data", logging.Fields{
		"track_id": trackID,
		"column":   column,
		"bytes":    len(blob),
	})
	return nil
}

// GetAcoustic returns the mixture model and rhythm spectrum of a track.
// found is false when the row or either blob is missing.
func (s *SQLStore) GetAcoustic(ctx context.Context, trackID string) (*acoustic.MixtureModel, *acoustic.RhythmSpectrum, bool, error) {
	var spectrum, bpm []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT spectrum, bpm FROM acoustic WHERE uid = $1`, trackID).Scan(&spectrum, &bpm)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, false, nil
		}
		return nil, nil, false, err
	}

	if len(spectrum) == 0 || len(bpm) == 0 {
		return nil, nil, false, nil
	}

	mm := &acoustic.MixtureModel{}
	if err := mm.UnmarshalBinary(spectrum); err != nil {
		return nil, nil, false, fmt.Errorf("track %s: %w", trackID, err)
	}
	beats := &acoustic.RhythmSpectrum{}
	if err := beats.UnmarshalBinary(bpm); err != nil {
		return nil, nil, false, fmt.Errorf("track %s: %w", trackID, err)
	}

	return mm, beats, true, nil
}

// Delete removes a track's acoustic data
func (s *SQLStore) Delete(ctx context.Context, trackID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM acoustic WHERE uid = $1`, trackID)
	return err
}

// Count returns the number of tracks with a stored mixture model
func (s *SQLStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM acoustic WHERE spectrum IS NOT NULL`).Scan(&count)
	return count, err
}
