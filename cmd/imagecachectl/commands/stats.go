package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache hit/miss counters and disk usage",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	eng, err := loadEngine()
	if err != nil {
		return err
	}

	snap := eng.Stats()
	size, err := eng.ByteSize()
	if err != nil {
		return err
	}

	printTable(cmd.OutOrStdout(),
		[]string{"Hits", "Misses", "Hit Ratio", "Disk Bytes"},
		[][]string{{
			fmt.Sprint(snap.Hits),
			fmt.Sprint(snap.Misses),
			fmt.Sprintf("%.2f%%", snap.HitRatio()*100),
			fmt.Sprint(size),
		}},
	)
	return nil
}
