package commands

import (
	"io"
	"os"

	"github.com/mosaicnetworks/maelnode/src/config"
	"github.com/spf13/cobra"
)

var (
	_config = config.NewDefaultConfig()

	// The streams of the protocol. Tests replace them.
	stdin  io.Reader = os.Stdin
	stdout io.Writer = os.Stdout
)

//RootCmd is the root command for maelnode
var RootCmd = &cobra.Command{
	Use:              "maelnode",
	Short:            "Nodes for a distributed systems testbed",
	TraverseChildren: true,
}
