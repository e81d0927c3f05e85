// Package commands implements the imagecachectl command tree.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/corymoss/imagecache"
	"github.com/corymoss/imagecache/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "imagecachectl",
	Short: "Inspect and drive the image caching engine",
	Long: `imagecachectl is a command-line client for the image caching engine.

It shares the same configuration file and defaults as the library, so
running it against a live cache directory reflects exactly what the
engine sees.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (default: built-in defaults)")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// loadEngine constructs an Engine from the --config flag, falling back to
// built-in defaults when unset.
func loadEngine() (*imagecache.Engine, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	return imagecache.New(cfg)
}
