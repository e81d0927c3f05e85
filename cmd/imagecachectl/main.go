// Command imagecachectl drives the image caching engine from the terminal:
// loading and prefetching URLs, inspecting cache statistics, and clearing
// or removing entries.
package main

import (
	"fmt"
	"os"

	"github.com/corymoss/imagecache/cmd/imagecachectl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "imagecachectl:", err)
		os.Exit(1)
	}
}
