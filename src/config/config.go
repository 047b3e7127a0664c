package config

import (
	"os"
	"os/user"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/mosaicnetworks/maelnode/src/common"
	"github.com/rifflock/lfshook"
	"github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
)

// Default filenames.
const (
	// DefaultJournalFile is the default name of the folder containing the
	// Badger database of the journal.
	DefaultJournalFile = "journal_db"

	// DefaultConfigName is the name, without extension, of the optional
	// configuration file in the data directory.
	DefaultConfigName = "maelnode"
)

// Default configuration values.
const (
	DefaultLogLevel    = "info"
	DefaultLogFile     = ""
	DefaultServiceAddr = ""
	DefaultJournal     = false
)

// Config contains the configuration of a node process.
type Config struct {
	// DataDir is the top-level directory containing the configuration file
	// and the journal.
	DataDir string `mapstructure:"datadir"`

	// LogLevel determines the chattiness of the log output.
	LogLevel string `mapstructure:"log"`

	// LogFile, when set, is the base path of additional log files. Entries
	// are written to <LogFile>.info.log and <LogFile>.debug.log depending on
	// their level. Standard error keeps receiving every entry.
	LogFile string `mapstructure:"log-file"`

	// ServiceAddr is the address:port of the optional HTTP service exposing
	// /stats and /metrics. The service is disabled when it is empty.
	ServiceAddr string `mapstructure:"service-listen"`

	// Journal activates the envelope journal.
	Journal bool `mapstructure:"journal"`

	// JournalDir is the directory containing the journal database.
	JournalDir string `mapstructure:"journal-dir"`

	// NodeKind is the behavior run by the process: echo, unique-ids or
	// broadcast. It is set by the command, not by configuration sources.
	NodeKind string

	logger *logrus.Logger
}

// NewDefaultConfig returns a config object with default values.
func NewDefaultConfig() *Config {
	config := &Config{
		DataDir:     DefaultDataDir(),
		LogLevel:    DefaultLogLevel,
		LogFile:     DefaultLogFile,
		ServiceAddr: DefaultServiceAddr,
		Journal:     DefaultJournal,
		JournalDir:  DefaultJournalDir(),
	}

	return config
}

// NewTestConfig returns a config object with default values and a special
// logger for debugging tests.
func NewTestConfig(t testing.TB, level logrus.Level) *Config {
	config := NewDefaultConfig()
	config.logger = common.NewTestLogger(t, level)
	return config
}

// SetDataDir sets the top-level directory, and updates the journal directory
// if it is currently set to the default value. If the journal directory is not
// the default, it was set explicitly and is left alone.
func (c *Config) SetDataDir(dataDir string) {
	if c.JournalDir == DefaultJournalDir() || c.JournalDir == "" {
		c.JournalDir = filepath.Join(dataDir, DefaultJournalFile)
	}
	c.DataDir = dataDir
}

// Logger returns a formatted logrus Entry, with prefix set to "maelnode".
// Entries go to standard error, never to standard output which carries the
// protocol.
func (c *Config) Logger() *logrus.Entry {
	if c.logger == nil {
		c.logger = logrus.New()
		c.logger.Out = os.Stderr
		c.logger.Level = LogLevel(c.LogLevel)
		c.logger.Formatter = new(prefixed.TextFormatter)

		if c.LogFile != "" {
			c.logger.Hooks.Add(lfshook.NewHook(
				LogFiles(c.LogFile),
				&logrus.TextFormatter{},
			))
		}
	}
	return c.logger.WithField("prefix", "maelnode")
}

// LogFiles maps log levels to the files derived from base. Warnings and
// errors go to the info file.
func LogFiles(base string) lfshook.PathMap {
	info := base + ".info.log"

	return lfshook.PathMap{
		logrus.DebugLevel: base + ".debug.log",
		logrus.InfoLevel:  info,
		logrus.WarnLevel:  info,
		logrus.ErrorLevel: info,
		logrus.FatalLevel: info,
		logrus.PanicLevel: info,
	}
}

// DefaultJournalDir returns the default path for the journal database files.
func DefaultJournalDir() string {
	return filepath.Join(DefaultDataDir(), DefaultJournalFile)
}

// DefaultDataDir return the default directory name for top-level maelnode
// config based on the underlying OS, attempting to respect conventions.
func DefaultDataDir() string {
	// Try to place the data folder in the user's home dir
	home := HomeDir()
	if home != "" {
		if runtime.GOOS == "darwin" {
			return filepath.Join(home, ".Maelnode")
		} else if runtime.GOOS == "windows" {
			return filepath.Join(home, "AppData", "Roaming", "Maelnode")
		} else {
			return filepath.Join(home, ".maelnode")
		}
	}
	// As we cannot guess a stable location, return empty and handle later
	return ""
}

// HomeDir returns the user's home directory.
func HomeDir() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	if usr, err := user.Current(); err == nil {
		return usr.HomeDir
	}
	return ""
}

// LogLevel parses a string into a Logrus log level.
func LogLevel(l string) logrus.Level {
	switch l {
	case "debug":
		return logrus.DebugLevel
	case "info":
		return logrus.InfoLevel
	case "warn":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.FatalLevel
	case "panic":
		return logrus.PanicLevel
	default:
		return logrus.DebugLevel
	}
}
