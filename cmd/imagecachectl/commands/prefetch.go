package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var prefetchCmd = &cobra.Command{
	Use:   "prefetch <url> [url...]",
	Short: "Start background fetches for the given URLs",
	Long: `prefetch starts a background fetch for each URL and returns as soon
as they are started. Fetches still running when the process exits are
abandoned, so only those that finish before then reach the cache.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPrefetch,
}

func init() {
	rootCmd.AddCommand(prefetchCmd)
}

func runPrefetch(cmd *cobra.Command, args []string) error {
	eng, err := loadEngine()
	if err != nil {
		return err
	}
	eng.Prefetch(args)
	fmt.Fprintf(cmd.OutOrStdout(), "prefetching %d url(s)\n", len(args))
	return nil
}
