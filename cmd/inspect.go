package cmd

import (
	"github.com/spf13/cobra"
)

var inspectDelete bool

// inspectCmd represents the inspect command
var inspectCmd = &cobra.Command{
	Use:   "inspect [track-id]",
	Short: "Summarise or delete the stored acoustic data of a track",
	Args:  cobra.ExactArgs(1),
	RunE:  runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)

	inspectCmd.Flags().BoolVar(&inspectDelete, "delete", false,
		"delete the track's stored data instead of showing it")
}

func runInspect(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if inspectDelete {
		return a.Delete(cmd.Context(), args[0])
	}

	result, err := a.Inspect(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	return a.Output("track "+args[0], result)
}
