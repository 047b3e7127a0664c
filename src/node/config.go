package node

import (
	"testing"

	"github.com/google/uuid"
	"github.com/mosaicnetworks/maelnode/src/common"
	"github.com/mosaicnetworks/maelnode/src/journal"
	"github.com/sirupsen/logrus"
)

// Recorder receives a copy of every line read from or written to the wire.
// It is satisfied by *journal.Journal.
type Recorder interface {
	Append(dir journal.Direction, line []byte) error
}

// Config contains the runtime dependencies of a Node.
type Config struct {
	// Logger must not write to the node's output stream, which carries
	// envelopes only.
	Logger *logrus.Entry

	// Journal is optional. Failures to record are logged, never fatal.
	Journal Recorder

	// RunID identifies this process in logs, stats and journal keys.
	RunID string
}

// NewConfig ...
func NewConfig(logger *logrus.Entry, journal Recorder, runID string) *Config {
	return &Config{
		Logger:  logger,
		Journal: journal,
		RunID:   runID,
	}
}

// DefaultConfig returns a Config logging at debug level to stderr, without a
// journal.
func DefaultConfig() *Config {
	logger := logrus.New()
	logger.Level = logrus.DebugLevel

	return &Config{
		Logger: logrus.NewEntry(logger),
		RunID:  uuid.New().String(),
	}
}

// TestConfig returns a DefaultConfig whose logger writes to t.Log.
func TestConfig(t testing.TB) *Config {
	config := DefaultConfig()
	config.Logger = logrus.NewEntry(common.NewTestLogger(t, logrus.DebugLevel))
	return config
}
