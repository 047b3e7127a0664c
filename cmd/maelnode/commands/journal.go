package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/mosaicnetworks/maelnode/src/common"
	"github.com/mosaicnetworks/maelnode/src/journal"
	"github.com/spf13/cobra"
)

var journalRun string

// NewJournalCmd returns the command printing the records of the journal
func NewJournalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "journal",
		Short:   "Print journaled envelopes",
		Args:    cobra.NoArgs,
		PreRunE: loadConfig,
		RunE:    dumpJournal,
	}
	AddJournalFlags(cmd)
	return cmd
}

//AddJournalFlags adds flags to the journal command
func AddJournalFlags(cmd *cobra.Command) {
	cmd.Flags().String("datadir", _config.DataDir, "Top-level directory for configuration and data")
	cmd.Flags().String("log", _config.LogLevel, "debug, info, warn, error, fatal, panic")
	cmd.Flags().String("journal-dir", _config.JournalDir, "Journal database directory")
	cmd.Flags().StringVar(&journalRun, "run", "", "Only print the records of this run")
}

func dumpJournal(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(_config.JournalDir); err != nil {
		return fmt.Errorf("No journal in %s: %v", _config.JournalDir, err)
	}

	j, err := journal.Open(_config.JournalDir, "", _config.Logger())
	if err != nil {
		return err
	}
	defer j.Close()

	runs := []string{journalRun}
	if journalRun == "" {
		runs, err = j.Runs()
		if common.IsStore(err, common.Empty) {
			_config.Logger().WithField("path", _config.JournalDir).Info("Journal is empty")
			return nil
		}
		if err != nil {
			return err
		}
	}

	for _, run := range runs {
		records, err := j.Records(run)
		if err != nil {
			return err
		}

		for _, r := range records {
			fmt.Fprintf(stdout, "%s %d %s %s %s\n",
				r.RunID,
				r.Seq,
				r.Time().UTC().Format(time.RFC3339Nano),
				r.Direction,
				r.Line)
		}
	}

	return nil
}
