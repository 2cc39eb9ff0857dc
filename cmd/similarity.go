package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	similarityStrategy  string
	similarityModelPath string
)

// similarityCmd represents the similarity command
var similarityCmd = &cobra.Command{
	Use:   "similarity [track-a] [track-b]",
	Short: "Score the acoustic similarity of two stored tracks",
	Long: `Score how similar two stored tracks sound. Positive scores mean similar.

A track without a stored mixture model or rhythm spectrum scores 0.

Examples:
  acoustic-similarity similarity track-42 track-99

  # Use a custom classifier
  acoustic-similarity similarity --model ./svm-similarity.yaml track-42 track-99

  # Neutral scoring without a classifier
  acoustic-similarity similarity --strategy fallback track-42 track-99`,
	Args: cobra.ExactArgs(2),
	RunE: runSimilarity,
}

func init() {
	rootCmd.AddCommand(similarityCmd)

	similarityCmd.Flags().StringVar(&similarityStrategy, "strategy", "",
		"scoring strategy (svm, fallback)")
	similarityCmd.Flags().StringVar(&similarityModelPath, "model", "",
		"classifier resource overriding the embedded one")

	viper.BindPFlag("scorer.strategy", similarityCmd.Flags().Lookup("strategy"))
	viper.BindPFlag("scorer.model_path", similarityCmd.Flags().Lookup("model"))
}

func runSimilarity(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	return a.Output("similarity", a.Similarity(cmd.Context(), args[0], args[1]))
}
