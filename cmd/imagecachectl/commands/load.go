package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/corymoss/imagecache"
)

var loadShowProgress bool

var loadCmd = &cobra.Command{
	Use:   "load <url>",
	Short: "Fetch an image through the cache, downloading it if necessary",
	Args:  cobra.ExactArgs(1),
	RunE:  runLoad,
}

func init() {
	loadCmd.Flags().BoolVar(&loadShowProgress, "progress", false, "print download progress")
	rootCmd.AddCommand(loadCmd)
}

func runLoad(cmd *cobra.Command, args []string) error {
	url := args[0]

	eng, err := loadEngine()
	if err != nil {
		return err
	}

	opts := imagecache.DefaultLoadOptions()
	if loadShowProgress {
		opts.OnProgress = func(fraction float64) {
			fmt.Fprintf(cmd.OutOrStdout(), "\rdownloading %s: %.0f%%", url, fraction*100)
		}
	}

	img, err := eng.Load(context.Background(), url, opts)
	if err != nil {
		return fmt.Errorf("load %s: %w", url, imageErrorWithMessage(err))
	}
	if loadShowProgress {
		fmt.Fprintln(cmd.OutOrStdout())
	}

	bounds := img.Raw().Bounds()
	printTable(cmd.OutOrStdout(),
		[]string{"URL", "Width", "Height", "Bytes"},
		[][]string{{url, fmt.Sprint(bounds.Dx()), fmt.Sprint(bounds.Dy()), fmt.Sprint(img.ByteCost())}},
	)
	return nil
}

// imageErrorWithMessage wraps err with the engine's stable human-readable
// description, so CLI output stays readable without exposing internals.
func imageErrorWithMessage(err error) error {
	return fmt.Errorf("%s: %w", imagecache.UserMessage(err), err)
}
