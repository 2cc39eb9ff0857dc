package configs

import (
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanBlaney/acoustic-similarity/internal/similarity"
	"github.com/RyanBlaney/acoustic-similarity/internal/store"
)

func TestLoadConfigDefaults(t *testing.T) {
	viper.Reset()
	dataDir := t.TempDir()
	viper.Set("data_dir", dataDir)

	config, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "info", config.LogLevel)
	assert.Equal(t, "table", config.OutputFormat)
	assert.Equal(t, 100, config.Trainer.MaxIter)
	assert.Equal(t, 0.0001, config.Trainer.EndAccuracy)
	assert.Equal(t, 0.001, config.Trainer.PriorWeight)
	assert.Equal(t, similarity.StrategySVM, config.Scorer.Strategy)
	assert.Equal(t, store.DriverSQLite, config.Store.Driver)
	assert.Equal(t, filepath.Join(dataDir, "acoustic.db"), config.Store.DSN)
	assert.Equal(t, "acoustic", config.Metrics.Prefix)
	assert.False(t, config.Metrics.Enabled)

	assert.NoError(t, ValidateConfig(config))
}

func TestLoadConfigOverrides(t *testing.T) {
	viper.Reset()
	viper.Set("data_dir", t.TempDir())
	viper.Set("trainer.max_iter", 20)
	viper.Set("trainer.seed", 99)
	viper.Set("scorer.strategy", similarity.StrategyFallback)
	viper.Set("store.driver", store.DriverPostgres)
	viper.Set("store.dsn", "postgres://localhost/acoustic")

	config, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 20, config.Trainer.MaxIter)
	assert.Equal(t, uint64(99), config.Trainer.Seed)
	assert.Equal(t, similarity.StrategyFallback, config.Scorer.Strategy)
	assert.Equal(t, "postgres://localhost/acoustic", config.Store.DSN)
	assert.NoError(t, ValidateConfig(config))
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"no iterations", func(c *Config) { c.Trainer.MaxIter = 0 }},
		{"negative accuracy", func(c *Config) { c.Trainer.EndAccuracy = -1 }},
		{"negative prior", func(c *Config) { c.Trainer.PriorWeight = -1 }},
		{"zero variance floor", func(c *Config) { c.Trainer.VarFloor = 0 }},
		{"unknown strategy", func(c *Config) { c.Scorer.Strategy = "knn" }},
		{"unknown output", func(c *Config) { c.OutputFormat = "xml" }},
		{"unknown driver", func(c *Config) { c.Store.Driver = "mysql" }},
	}

	assert.NoError(t, ValidateConfig(GetDefaultConfig()))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := GetDefaultConfig()
			tt.modify(config)
			assert.Error(t, ValidateConfig(config))
		})
	}
}

func TestGMMConfig(t *testing.T) {
	cfg := GetDefaultTrainerConfig().GMMConfig(15)

	assert.Equal(t, 15, cfg.NumComponents)
	assert.Equal(t, 100, cfg.MaxIter)
	assert.NoError(t, cfg.Validate())
}

func TestModelSource(t *testing.T) {
	config := GetDefaultConfig()
	config.DataDir = "/var/lib/acoustic"
	assert.Equal(t, "/var/lib/acoustic/"+similarity.ResourceName, config.ModelSource().OverridePath)

	config.Scorer.ModelPath = "/etc/classifier.yaml"
	assert.Equal(t, "/etc/classifier.yaml", config.ModelSource().OverridePath)
}
