package main

import (
	"os"

	cmd "github.com/mosaicnetworks/maelnode/cmd/maelnode/commands"
)

// The harness starts node binaries by path, without arguments. Options are
// read from MAELNODE_* variables or from the config file.
func main() {
	rootCmd := cmd.NewKindCmd("echo")

	//Do not print usage when error occurs
	rootCmd.SilenceUsage = true

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
