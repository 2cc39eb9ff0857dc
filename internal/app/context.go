package app

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/RyanBlaney/latency-benchmark-common/logging"
	"github.com/RyanBlaney/latency-benchmark-common/output"
	"github.com/RyanBlaney/sonido-sonar/algorithms/common"
	"github.com/tunein/go-logging/v7/pkg/logger"
	"github.com/tunein/go-logging/v7/pkg/logger/logtypes"
	"github.com/tunein/go-logging/v7/pkg/rootcollector"
	"github.com/tunein/go-logging/v7/pkg/rootlogger"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/RyanBlaney/acoustic-similarity/configs"
	"github.com/RyanBlaney/acoustic-similarity/internal/acoustic"
	"github.com/RyanBlaney/acoustic-similarity/internal/distance"
	"github.com/RyanBlaney/acoustic-similarity/internal/rng"
	"github.com/RyanBlaney/acoustic-similarity/internal/similarity"
	"github.com/RyanBlaney/acoustic-similarity/internal/store"
)

var titleCaser = cases.Title(language.English)

// Context holds the application context and configuration
type Context struct {
	// CLI arguments
	OutputFile   string
	OutputFormat string
	Verbose      bool

	// Runtime context
	Logger logging.Logger
	Config *configs.Config
}

// App wires the store, trainer and scorer for one process
type App struct {
	ctx       *Context
	config    *configs.Config
	store     store.AcousticStore
	scorer    similarity.Scorer
	evaluator *similarity.Evaluator
	logger    logging.Logger
}

// NewApp loads configuration, seeds the training generator, opens the
// store and builds the scorer. A classifier that fails to load is fatal.
func NewApp(ctx context.Context, appCtx *Context) (*App, error) {
	config, err := configs.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if appCtx.OutputFormat != "" {
		config.OutputFormat = appCtx.OutputFormat
	}
	if appCtx.Verbose {
		config.Verbose = true
	}
	if err := configs.ValidateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	appCtx.Config = config

	log := setupLogging(config)
	appCtx.Logger = log

	rng.InitializeOnce(config.Trainer.Seed)

	scorer, err := similarity.NewScorer(config.Scorer.Strategy, config.ModelSource())
	if err != nil {
		return nil, fmt.Errorf("failed to create scorer: %w", err)
	}

	st, err := store.Open(ctx, &config.Store)
	if err != nil {
		return nil, fmt.Errorf("failed to open acoustic store: %w", err)
	}

	log.Debug("Application initialized", logging.Fields{
		"scorer":       scorer.Name(),
		"store_driver": config.Store.Driver,
		"data_dir":     config.DataDir,
		"distance":     distance.Version,
		"rng_seed":     rng.Seed(),
	})

	return NewAppWith(appCtx, config, st, scorer), nil
}

// NewAppWith builds an App from already constructed parts
func NewAppWith(appCtx *Context, config *configs.Config, st store.AcousticStore, scorer similarity.Scorer) *App {
	log := appCtx.Logger
	if log == nil {
		log = logging.NewDefaultLogger()
	}
	return &App{
		ctx:       appCtx,
		config:    config,
		store:     st,
		scorer:    scorer,
		evaluator: similarity.NewEvaluator(st, scorer, distance.NewEMD()),
		logger:    log,
	}
}

// Close releases the store
func (app *App) Close() error {
	return app.store.Close()
}

// setupLogging configures logging based on configuration
func setupLogging(config *configs.Config) logging.Logger {
	if config.Verbose || strings.EqualFold(config.LogLevel, "debug") {
		logging.SetLevel(logging.DebugLevel)
	} else {
		logging.SetLevel(logging.InfoLevel)
	}

	if config.LogFile != "" {
		err := rootlogger.Configure(logger.LogOptions{
			Out:          config.LogFile,
			ReopenSignal: syscall.SIGHUP,
			Level:        logtypes.InfoLevel,
		})
		if err != nil {
			logging.Error(err, "Failed configuring log writer")
		}
	}

	return logging.WithFields(logging.Fields{
		"component": "app",
	})
}

// TrainResult summarises one train command
type TrainResult struct {
	TrackID     string  `json:"track_id" yaml:"track_id"`
	Frames      int     `json:"frames" yaml:"frames"`
	WeightSum   float64 `json:"weight_sum" yaml:"weight_sum"`
	RhythmSaved bool    `json:"rhythm_saved" yaml:"rhythm_saved"`
	DurationMs  int64   `json:"duration_ms" yaml:"duration_ms"`
}

// Train accumulates a track's frames, trains its mixture model and stores
// it together with the rhythm spectrum, if any
func (app *App) Train(ctx context.Context, trackID string, input *TrackInput) (*TrainResult, error) {
	start := time.Now()
	trainer := acoustic.NewGMMTrainer(app.config.Trainer.GMMConfig(acoustic.NumGauss))

	acc := acoustic.NewAccumulator(trackID, trainer)
	for i, frame := range input.CepstralFrames() {
		if err := acc.Process(frame); err != nil {
			return nil, fmt.Errorf("frame %d: %w", i, err)
		}
	}

	mm, err := acc.Finalize(ctx)
	if err != nil {
		return nil, err
	}

	if err := app.store.PutMixture(ctx, trackID, mm); err != nil {
		return nil, err
	}

	result := &TrainResult{
		TrackID:   trackID,
		Frames:    acc.FrameCount(),
		WeightSum: mm.WeightSum(),
	}

	if beats := input.RhythmSpectrum(); beats != nil {
		if err := app.store.PutRhythm(ctx, trackID, beats); err != nil {
			return nil, err
		}
		result.RhythmSaved = true
	}

	result.DurationMs = time.Since(start).Milliseconds()
	app.emitMetric("training.duration.milliseconds", result.DurationMs, "track:"+trackID)

	app.logger.Info("Track acoustic model stored", logging.Fields{
		"track_id":     trackID,
		"frames":       result.Frames,
		"rhythm_saved": result.RhythmSaved,
		"duration_ms":  result.DurationMs,
	})

	return result, nil
}

// SimilarityResult is the score of one pair of tracks
type SimilarityResult struct {
	TrackA string  `json:"track_a" yaml:"track_a"`
	TrackB string  `json:"track_b" yaml:"track_b"`
	Score  float64 `json:"score" yaml:"score"`
	Scorer string  `json:"scorer" yaml:"scorer"`
}

// Similarity scores two stored tracks; missing data yields the neutral score
func (app *App) Similarity(ctx context.Context, trackA, trackB string) *SimilarityResult {
	score := app.evaluator.Similarity(ctx, trackA, trackB)
	app.emitMetric("similarity.score.millis", int64(math.Round(score*1000)), "scorer:"+app.scorer.Name())

	return &SimilarityResult{
		TrackA: trackA,
		TrackB: trackB,
		Score:  score,
		Scorer: app.scorer.Name(),
	}
}

// Features returns the named similarity features of two stored tracks
func (app *App) Features(ctx context.Context, trackA, trackB string) (map[string]float64, error) {
	f, ok := app.evaluator.Features(ctx, trackA, trackB)
	if !ok {
		return nil, fmt.Errorf("no acoustic data for %s or %s", trackA, trackB)
	}
	return f.Map(), nil
}

// InspectResult describes one stored track
type InspectResult struct {
	TrackID      string     `json:"track_id" yaml:"track_id"`
	WeightSum    float64    `json:"weight_sum" yaml:"weight_sum"`
	Partitions   [3]float64 `json:"partitions" yaml:"partitions"`
	RhythmMean   float64    `json:"rhythm_mean" yaml:"rhythm_mean"`
	RhythmVar    float64    `json:"rhythm_variance" yaml:"rhythm_variance"`
	RhythmMax    float32    `json:"rhythm_max" yaml:"rhythm_max"`
	RhythmMin    float32    `json:"rhythm_min" yaml:"rhythm_min"`
	StoredTracks int        `json:"stored_tracks" yaml:"stored_tracks"`
}

// Inspect summarises the stored acoustic data of a track
func (app *App) Inspect(ctx context.Context, trackID string) (*InspectResult, error) {
	mm, beats, found, err := app.store.GetAcoustic(ctx, trackID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("no acoustic data for %s", trackID)
	}

	spectrum := make([]float64, len(beats))
	for i, v := range beats {
		spectrum[i] = float64(v)
	}

	count, err := app.store.Count(ctx)
	if err != nil {
		return nil, err
	}

	return &InspectResult{
		TrackID:      trackID,
		WeightSum:    mm.WeightSum(),
		Partitions:   similarity.AddPartitions(mm),
		RhythmMean:   common.Mean(spectrum),
		RhythmVar:    common.Variance(spectrum),
		RhythmMax:    beats.Max(),
		RhythmMin:    beats.Min(),
		StoredTracks: count,
	}, nil
}

// emitMetric sends a metric to rootcollector when metrics are enabled
func (app *App) emitMetric(name string, value int64, tags ...string) {
	if !app.config.Metrics.Enabled {
		return
	}
	allTags := append(append([]string{}, app.config.Metrics.Tags...), tags...)
	rootcollector.Metric(app.config.Metrics.Prefix+"."+name, value, allTags)
}

// Output formats data under a section named after title in the configured
// format and writes it to the output file or stdout
func (app *App) Output(title string, data any) error {
	outputData := map[string]any{
		strings.ReplaceAll(strings.ToLower(title), " ", "_"): data,
	}

	var formatter output.Formatter
	switch app.config.OutputFormat {
	case "json":
		formatter = &output.JSONFormatter{}
	case "yaml":
		formatter = &output.YAMLFormatter{}
	case "table":
		formatter = &output.TableFormatter{}
	default:
		formatter = &output.JSONFormatter{}
	}

	formattedData, err := formatter.Format(outputData, true)
	if err != nil {
		return fmt.Errorf("failed to format output data: %w", err)
	}

	if app.ctx.OutputFile != "" {
		return app.writeToFile(formattedData)
	}

	if app.config.OutputFormat == "table" && title != "" {
		fmt.Printf("\n%s\n%s\n", titleCaser.String(title), strings.Repeat("=", len(title)))
	}

	_, err = os.Stdout.Write(formattedData)
	return err
}

// writeToFile writes data to the specified output file
func (app *App) writeToFile(data []byte) error {
	// Ensure directory exists
	dir := filepath.Dir(app.ctx.OutputFile)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	// Write file
	if err := os.WriteFile(app.ctx.OutputFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}

	app.logger.Debug("Results written to file", logging.Fields{
		"output_file": app.ctx.OutputFile,
		"size_bytes":  len(data),
	})

	return nil
}

// Delete removes a track's stored acoustic data
func (app *App) Delete(ctx context.Context, trackID string) error {
	if err := app.store.Delete(ctx, trackID); err != nil {
		return fmt.Errorf("failed to delete %s: %w", trackID, err)
	}
	app.logger.Info("Track acoustic data deleted", logging.Fields{
		"track_id": trackID,
	})
	return nil
}
