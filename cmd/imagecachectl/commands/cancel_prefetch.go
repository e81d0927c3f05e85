package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cancelPrefetchCmd = &cobra.Command{
	Use:   "cancel-prefetch <url> [url...]",
	Short: "Cancel tracked background prefetch jobs",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCancelPrefetch,
}

func init() {
	rootCmd.AddCommand(cancelPrefetchCmd)
}

func runCancelPrefetch(cmd *cobra.Command, args []string) error {
	eng, err := loadEngine()
	if err != nil {
		return err
	}
	eng.CancelPrefetch(args)
	fmt.Fprintf(cmd.OutOrStdout(), "requested prefetch cancellation for %d url(s)\n", len(args))
	return nil
}
