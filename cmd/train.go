package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/RyanBlaney/acoustic-similarity/internal/app"
)

var (
	trainBeatsPath   string
	trainSeed        uint64
	trainMaxIter     int
	trainEndAccuracy float64
)

// trainCmd represents the train command
var trainCmd = &cobra.Command{
	Use:   "train [track-id] [input-file]",
	Short: "Train and store the acoustic model of a track",
	Long: `Train a track's Gaussian mixture model from its cepstral frames and store
it, together with its rhythm spectrum when the input provides one.

The input file is YAML or JSON with a "frames" list of 15-coefficient cepstral
frames and an optional "beats" list of 200 rhythm spectrum bins.

Examples:
  # Train a track from a YAML analysis
  acoustic-similarity train track-42 analysis.yaml

  # Reproducible training
  acoustic-similarity train --seed 7 track-42 analysis.json`,
	Args: cobra.ExactArgs(2),
	RunE: runTrain,
}

func init() {
	rootCmd.AddCommand(trainCmd)

	trainCmd.Flags().StringVar(&trainBeatsPath, "beats", "",
		"file with the rhythm spectrum (overrides beats in the input file)")
	trainCmd.Flags().Uint64Var(&trainSeed, "seed", 0,
		"random seed for k-means seeding (0 picks a time based seed)")
	trainCmd.Flags().IntVar(&trainMaxIter, "max-iter", 0,
		"maximum k-means and EM iterations (default from config)")
	trainCmd.Flags().Float64Var(&trainEndAccuracy, "end-accuracy", 0,
		"relative improvement that ends a training stage (default from config)")

	viper.BindPFlag("trainer.seed", trainCmd.Flags().Lookup("seed"))
}

func runTrain(cmd *cobra.Command, args []string) error {
	trackID, inputPath := args[0], args[1]

	if cmd.Flags().Changed("max-iter") {
		viper.Set("trainer.max_iter", trainMaxIter)
	}
	if cmd.Flags().Changed("end-accuracy") {
		viper.Set("trainer.end_accuracy", trainEndAccuracy)
	}

	input, err := app.LoadTrackInput(inputPath)
	if err != nil {
		return err
	}
	if trainBeatsPath != "" {
		beats, err := app.LoadTrackInput(trainBeatsPath)
		if err != nil {
			return err
		}
		input.Beats = beats.Beats
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := a.Train(cmd.Context(), trackID, input)
	if err != nil {
		return fmt.Errorf("training %s: %w", trackID, err)
	}

	return a.Output("training result", result)
}
