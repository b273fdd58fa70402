// designloft manages a catalog of CNC and laser cutting design files.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	root := &cobra.Command{
		Use:          "designloft",
		Short:        "Design file catalog tools",
		Version:      version,
		SilenceUsage: true,
	}
	root.AddCommand(newIngestCommand())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
