package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/RyanBlaney/acoustic-similarity/configs"
	"github.com/RyanBlaney/acoustic-similarity/internal/app"
)

var (
	configFile   string
	verbose      bool
	logLevel     string
	logFile      string
	outputFormat string
	outputFile   string
	configDir    string
	dataDir      string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   configs.AppName,
	Short: "Acoustic track similarity from MFCC mixture models",
	Long: `Train per-track acoustic models and score how similar two tracks sound.

Each track is reduced to a 15-component Gaussian mixture over its cepstral
frames and a rhythm spectrum. Two tracks are compared by the earth mover's
distance between their models, and a trained classifier turns the resulting
features into a similarity score.

Key features:
- Gaussian mixture training (k-means seeding, EM refinement)
- Earth mover's distance between mixtures and rhythm spectra
- SVM similarity scoring with an overridable classifier resource
- SQLite or PostgreSQL acoustic store`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initializeConfig(cmd)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global persistent flags
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "",
		"config directory (default is $HOME/.config/acoustic-similarity)")

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "",
		"config file (default is $HOME/.config/acoustic-similarity/acoustic-similarity.yaml)")

	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "",
		"data directory (default is $HOME/.local/share/acoustic-similarity)")

	// Output and logging flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"verbose output")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info",
		"log level (debug, info, error)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "",
		"write logs to this file instead of stderr")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table",
		"output format (json, table, yaml)")
	rootCmd.PersistentFlags().StringVarP(&outputFile, "output-file", "f", "",
		"write results to a file instead of stdout")

	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log_file", rootCmd.PersistentFlags().Lookup("log-file"))
	viper.BindPFlag("output_format", rootCmd.PersistentFlags().Lookup("output"))
	viper.BindPFlag("config_dir", rootCmd.PersistentFlags().Lookup("config-dir"))
	viper.BindPFlag("data_dir", rootCmd.PersistentFlags().Lookup("data-dir"))
}

// initConfig reads in config file and ENV variables if set
func initConfig() {
	// A missing .env is fine
	_ = godotenv.Load()

	if configFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(configFile)
	} else {
		// Find home directory
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			os.Exit(1)
		}

		// Search config in home directory and /etc
		viper.AddConfigPath(home)
		viper.AddConfigPath(filepath.Join(home, ".config", configs.AppName))
		viper.AddConfigPath("/etc/" + configs.AppName)
		viper.AddConfigPath("./configs")
		viper.SetConfigName(configs.AppName)
		viper.SetConfigType("yaml")
	}

	// Environment variable support
	viper.SetEnvPrefix(configs.EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	// Set default values
	setDefaults()

	// If a config file is found, read it in
	if err := viper.ReadInConfig(); err == nil {
		if viper.GetBool("verbose") {
			fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
		}
	}
}

// initializeConfig initializes configuration after flags are parsed
func initializeConfig(cmd *cobra.Command) error {
	// Bind all flags to viper
	return bindFlags(cmd, viper.GetViper())
}

// bindFlags binds each cobra flag to its associated viper configuration
func bindFlags(cmd *cobra.Command, v *viper.Viper) error {
	var lastErr error

	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		// Environment variable name
		envVarSuffix := strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_"))

		// Apply the viper config value to the flag when the flag is not set and viper has a value
		if !f.Changed && v.IsSet(f.Name) {
			val := v.Get(f.Name)
			if err := cmd.Flags().Set(f.Name, fmt.Sprintf("%v", val)); err != nil {
				lastErr = err
			}
		}

		// Bind the flag to viper
		if err := v.BindPFlag(f.Name, f); err != nil {
			lastErr = err
		}

		// Bind to environment variable
		if err := v.BindEnv(f.Name, configs.EnvPrefix+"_"+envVarSuffix); err != nil {
			lastErr = err
		}
	})

	return lastErr
}

// setDefaults sets default configuration values. Component defaults are
// applied by configs.LoadConfig.
func setDefaults() {
	// Application defaults
	viper.SetDefault("verbose", false)
	viper.SetDefault("log_level", "info")
	viper.SetDefault("output_format", "table")

	// Directory defaults
	home, _ := os.UserHomeDir()
	viper.SetDefault("config_dir", filepath.Join(home, ".config", configs.AppName))
	viper.SetDefault("data_dir", filepath.Join(home, ".local", "share", configs.AppName))
}

// newApp builds the application for a command run
func newApp(cmd *cobra.Command) (*app.App, error) {
	appCtx := &app.Context{
		OutputFile:   outputFile,
		OutputFormat: viper.GetString("output_format"),
		Verbose:      viper.GetBool("verbose"),
	}
	return app.NewApp(cmd.Context(), appCtx)
}

// GetConfig returns the current viper instance
func GetConfig() *viper.Viper {
	return viper.GetViper()
}
