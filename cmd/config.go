package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/RyanBlaney/acoustic-similarity/configs"
	"github.com/RyanBlaney/acoustic-similarity/internal/distance"
	"github.com/RyanBlaney/acoustic-similarity/internal/similarity"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Validate and display all configuration values",
	Long: `Load the configuration, validate it and display every value, including
where the similarity classifier would be loaded from.

Examples:
  # Check the default config file
  acoustic-similarity config

  # Check a specific config file
  acoustic-similarity --config /path/to/config.yaml config`,
	RunE: runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(cmd *cobra.Command, args []string) error {
	fmt.Println("ACOUSTIC SIMILARITY CONFIGURATION")
	fmt.Println(strings.Repeat("=", 80))

	// Load configuration
	config, err := configs.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	printSection("APPLICATION SETTINGS")
	printKeyValue("Verbose", fmt.Sprintf("%t", config.Verbose))
	printKeyValue("Log Level", config.LogLevel)
	printKeyValue("Log File", config.LogFile)
	printKeyValue("Output Format", config.OutputFormat)
	printKeyValue("Config Directory", config.ConfigDir)
	printKeyValue("Data Directory", config.DataDir)

	printSection("TRAINER")
	printKeyValue("Max Iterations", fmt.Sprintf("%d", config.Trainer.MaxIter))
	printKeyValue("End Accuracy", fmt.Sprintf("%g", config.Trainer.EndAccuracy))
	printKeyValue("Prior Weight", fmt.Sprintf("%g", config.Trainer.PriorWeight))
	printKeyValue("Variance Floor", fmt.Sprintf("%g", config.Trainer.VarFloor))
	if config.Trainer.Seed == 0 {
		printKeyValue("Seed", "time based")
	} else {
		printKeyValue("Seed", fmt.Sprintf("%d", config.Trainer.Seed))
	}

	printSection("SCORER")
	printKeyValue("Strategy", config.Scorer.Strategy)
	printKeyValue("Distance", distance.Version)
	source := config.ModelSource()
	printKeyValue("Override Path", source.OverridePath)
	if config.Scorer.Strategy == similarity.StrategySVM {
		res, origin, err := similarity.LoadModelResource(source)
		if err != nil {
			printKeyValue("Classifier", "ERROR: "+err.Error())
		} else {
			printKeyValue("Classifier", origin)
			printKeyValue("  Version", fmt.Sprintf("%d", res.Version))
			printKeyValue("  Support Vectors", fmt.Sprintf("%d", len(res.SVM.SupportVectors)))
			printKeyValue("  Kernel Stdv", fmt.Sprintf("%g", res.Kernel.Stdv))
		}
	}

	printSection("STORE")
	printKeyValue("Driver", config.Store.Driver)
	printKeyValue("DSN", config.Store.DSN)

	printSection("METRICS")
	printKeyValue("Enabled", fmt.Sprintf("%t", config.Metrics.Enabled))
	printKeyValue("Prefix", config.Metrics.Prefix)
	if len(config.Metrics.Tags) > 0 {
		printKeyValue("Tags", fmt.Sprintf("(%d) %v", len(config.Metrics.Tags), config.Metrics.Tags))
	}

	fmt.Println()
	fmt.Println(strings.Repeat("-", 80))
	if err := configs.ValidateConfig(config); err != nil {
		fmt.Printf("CONFIGURATION INVALID: %v\n", err)
		return err
	}
	fmt.Println("CONFIGURATION VALID")
	fmt.Printf("Config file: %s\n", getConfigFilePath())
	fmt.Println(strings.Repeat("=", 80))

	return nil
}

func printSection(title string) {
	fmt.Printf("\n%s\n", title)
	fmt.Println(strings.Repeat("-", len(title)))
}

func printKeyValue(key, value string) {
	if value == "" {
		fmt.Printf("%-35s\n", key)
	} else {
		fmt.Printf("%-35s %s\n", key+":", value)
	}
}

func getConfigFilePath() string {
	if used := viper.ConfigFileUsed(); used != "" {
		return used
	}
	return "(none, defaults and environment only)"
}
