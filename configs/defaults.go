package configs

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/RyanBlaney/acoustic-similarity/internal/acoustic"
	"github.com/RyanBlaney/acoustic-similarity/internal/similarity"
	"github.com/RyanBlaney/acoustic-similarity/internal/store"
)

// AppName is used for config file, directory and environment names
const AppName = "acoustic-similarity"

// EnvPrefix prefixes every environment variable override
const EnvPrefix = "ACOUSTIC_SIM"

// setDefaults sets default configuration values for all components
func setDefaults(v *viper.Viper) {
	home, _ := os.UserHomeDir()

	// Application defaults
	if !v.IsSet("log_level") {
		v.Set("log_level", "info")
	}
	if !v.IsSet("output_format") {
		v.Set("output_format", "table")
	}
	if !v.IsSet("config_dir") || v.GetString("config_dir") == "" {
		v.Set("config_dir", filepath.Join(home, ".config", AppName))
	}
	if !v.IsSet("data_dir") || v.GetString("data_dir") == "" {
		v.Set("data_dir", filepath.Join(home, ".local", "share", AppName))
	}

	// Trainer defaults
	if !v.IsSet("trainer.max_iter") {
		v.Set("trainer.max_iter", acoustic.NumIter)
	}
	if !v.IsSet("trainer.end_accuracy") {
		v.Set("trainer.end_accuracy", acoustic.EndAccuracy)
	}
	if !v.IsSet("trainer.prior_weight") {
		v.Set("trainer.prior_weight", acoustic.PriorWeight)
	}
	if !v.IsSet("trainer.var_floor") {
		v.Set("trainer.var_floor", 1e-4)
	}
	if !v.IsSet("trainer.seed") {
		v.Set("trainer.seed", 0)
	}

	// Scorer defaults
	if !v.IsSet("scorer.strategy") {
		v.Set("scorer.strategy", similarity.StrategySVM)
	}

	// Store defaults
	if !v.IsSet("store.driver") {
		v.Set("store.driver", store.DriverSQLite)
	}

	// Metrics defaults
	if !v.IsSet("metrics.enabled") {
		v.Set("metrics.enabled", false)
	}
	if !v.IsSet("metrics.prefix") {
		v.Set("metrics.prefix", "acoustic")
	}
}

// GetDefaultConfig returns the configuration used when nothing is set
func GetDefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	dataDir := filepath.Join(home, ".local", "share", AppName)

	return &Config{
		LogLevel:     "info",
		OutputFormat: "table",
		ConfigDir:    filepath.Join(home, ".config", AppName),
		DataDir:      dataDir,
		Trainer:      GetDefaultTrainerConfig(),
		Scorer: ScorerConfig{
			Strategy: similarity.StrategySVM,
		},
		Store: store.Config{
			Driver: store.DriverSQLite,
			DSN:    filepath.Join(dataDir, "acoustic.db"),
		},
		Metrics: MetricsConfig{
			Prefix: "acoustic",
		},
	}
}

// GetDefaultTrainerConfig returns the standard training protocol
func GetDefaultTrainerConfig() TrainerConfig {
	return TrainerConfig{
		MaxIter:     acoustic.NumIter,
		EndAccuracy: acoustic.EndAccuracy,
		PriorWeight: acoustic.PriorWeight,
		VarFloor:    1e-4,
	}
}
