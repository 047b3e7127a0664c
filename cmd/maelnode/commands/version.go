package commands

import (
	"fmt"

	"github.com/mosaicnetworks/maelnode/src/version"
	"github.com/spf13/cobra"
)

// VersionCmd displays the version of maelnode being used
var VersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version info",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(stdout, version.Version)
	},
}
