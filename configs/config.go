package configs

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/RyanBlaney/acoustic-similarity/internal/gmm"
	"github.com/RyanBlaney/acoustic-similarity/internal/similarity"
	"github.com/RyanBlaney/acoustic-similarity/internal/store"
)

// Config represents the application configuration
type Config struct {
	// Application settings
	Verbose      bool   `mapstructure:"verbose"`
	LogLevel     string `mapstructure:"log_level"`
	LogFile      string `mapstructure:"log_file"`
	OutputFormat string `mapstructure:"output_format"`
	ConfigDir    string `mapstructure:"config_dir"`
	DataDir      string `mapstructure:"data_dir"`

	// Mixture model training
	Trainer TrainerConfig `mapstructure:"trainer"`

	// Similarity scoring
	Scorer ScorerConfig `mapstructure:"scorer"`

	// Acoustic data persistence
	Store store.Config `mapstructure:"store"`

	// Metric emission
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// TrainerConfig contains the k-means / EM protocol settings
type TrainerConfig struct {
	MaxIter     int     `mapstructure:"max_iter"`
	EndAccuracy float64 `mapstructure:"end_accuracy"`
	PriorWeight float64 `mapstructure:"prior_weight"`
	VarFloor    float64 `mapstructure:"var_floor"`
	Seed        uint64  `mapstructure:"seed"`
}

// ScorerConfig selects the scoring strategy and classifier resource
type ScorerConfig struct {
	Strategy  string `mapstructure:"strategy"`
	ModelPath string `mapstructure:"model_path"`
}

// MetricsConfig controls rootcollector metric emission
type MetricsConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Prefix  string   `mapstructure:"prefix"`
	Tags    []string `mapstructure:"tags"`
}

// GMMConfig converts the trainer settings for the gmm package
func (t TrainerConfig) GMMConfig(components int) *gmm.Config {
	return &gmm.Config{
		NumComponents: components,
		MaxIter:       t.MaxIter,
		EndAccuracy:   t.EndAccuracy,
		PriorWeight:   t.PriorWeight,
		VarFloor:      t.VarFloor,
	}
}

// ModelSource returns where the classifier resource is read from. Without an
// explicit path the override is looked up in the data directory.
func (c *Config) ModelSource() similarity.ModelSource {
	path := c.Scorer.ModelPath
	if path == "" && c.DataDir != "" {
		path = filepath.Join(c.DataDir, similarity.ResourceName)
	}
	return similarity.ModelSource{OverridePath: path}
}

// LoadConfig loads configuration from viper
func LoadConfig() (*Config, error) {
	v := viper.GetViper()
	setDefaults(v)

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("unable to decode configuration: %w", err)
	}

	if config.Store.DSN == "" && config.Store.Driver == store.DriverSQLite {
		config.Store.DSN = filepath.Join(config.DataDir, "acoustic.db")
	}

	return config, nil
}

// ValidateConfig validates the configuration
func ValidateConfig(config *Config) error {
	if config.Trainer.MaxIter <= 0 {
		return fmt.Errorf("trainer max_iter must be positive")
	}

	if config.Trainer.EndAccuracy < 0 {
		return fmt.Errorf("trainer end_accuracy cannot be negative")
	}

	if config.Trainer.PriorWeight < 0 {
		return fmt.Errorf("trainer prior_weight cannot be negative")
	}

	if config.Trainer.VarFloor <= 0 {
		return fmt.Errorf("trainer var_floor must be positive")
	}

	switch config.Scorer.Strategy {
	case similarity.StrategySVM, similarity.StrategyFallback:
	default:
		return fmt.Errorf("unknown scorer strategy: %s", config.Scorer.Strategy)
	}

	switch config.OutputFormat {
	case "json", "yaml", "table":
	default:
		return fmt.Errorf("unsupported output format: %s", config.OutputFormat)
	}

	if err := config.Store.Validate(); err != nil {
		return fmt.Errorf("invalid store configuration: %w", err)
	}

	return nil
}
