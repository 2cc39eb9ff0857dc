package cmd

import (
	"github.com/spf13/cobra"
)

// featuresCmd represents the features command
var featuresCmd = &cobra.Command{
	Use:   "features [track-a] [track-b]",
	Short: "Show the similarity features of two stored tracks",
	Long: `Show the twelve features the classifier sees for a pair of tracks:
mixture and rhythm distances, mixture weight partitions and rhythm extremes.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		features, err := a.Features(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		return a.Output("features", features)
	},
}

func init() {
	rootCmd.AddCommand(featuresCmd)
}
