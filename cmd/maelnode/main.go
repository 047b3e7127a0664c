package main

import (
	"os"

	cmd "github.com/mosaicnetworks/maelnode/cmd/maelnode/commands"
)

func main() {
	rootCmd := cmd.RootCmd

	rootCmd.AddCommand(
		cmd.VersionCmd,
		cmd.NewJournalCmd(),
	)
	for _, kind := range cmd.Kinds() {
		rootCmd.AddCommand(cmd.NewKindCmd(kind))
	}

	//Do not print usage when error occurs
	rootCmd.SilenceUsage = true

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
