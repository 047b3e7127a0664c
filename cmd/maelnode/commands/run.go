package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mosaicnetworks/maelnode/src/config"
	"github.com/mosaicnetworks/maelnode/src/engine"
	"github.com/mosaicnetworks/maelnode/src/node"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var shorts = map[string]string{
	engine.KindEcho:      "Run an echo node",
	engine.KindUniqueIDs: "Run a node generating cluster-wide unique ids",
	engine.KindBroadcast: "Run a node storing broadcast messages and the topology",
}

// Kinds returns the names of the node commands.
func Kinds() []string {
	return engine.Kinds()
}

// NewKindCmd returns the command running a node of the given kind on the
// standard streams. It panics if the kind is unknown.
func NewKindCmd(kind string) *cobra.Command {
	short, ok := shorts[kind]
	if !ok {
		panic(fmt.Sprintf("unknown node kind %q", kind))
	}

	cmd := &cobra.Command{
		Use:     kind,
		Short:   short,
		Args:    cobra.NoArgs,
		PreRunE: loadConfig,
		RunE: func(cmd *cobra.Command, args []string) error {
			_config.NodeKind = kind
			return runNode(cmd, args)
		},
	}
	AddRunFlags(cmd)
	return cmd
}

/*******************************************************************************
* RUN
*******************************************************************************/

func runNode(cmd *cobra.Command, args []string) error {
	e := engine.NewEngine(_config)

	if err := e.Init(); err != nil {
		_config.Logger().WithError(err).Error("Cannot initialize engine")
		return err
	}

	logger := _config.Logger().WithFields(logrus.Fields{
		"kind":   _config.NodeKind,
		"run_id": e.RunID,
	})

	if err := e.Run(stdin, stdout); err != nil {
		var se *node.StageError
		if errors.As(err, &se) {
			logger = logger.WithField("stage", se.Stage.String())
		}

		logger.WithError(err).Error("Node stopped")

		return err
	}

	logger.WithField("stats", e.Node.GetStats()).Debug("Node stopped")

	return nil
}

/*******************************************************************************
* CONFIG
*******************************************************************************/

//AddRunFlags adds flags to the node commands
func AddRunFlags(cmd *cobra.Command) {
	cmd.Flags().String("datadir", _config.DataDir, "Top-level directory for configuration and data")
	cmd.Flags().String("log", _config.LogLevel, "debug, info, warn, error, fatal, panic")
	cmd.Flags().String("log-file", _config.LogFile, "Base path of additional log files (<base>.info.log, <base>.debug.log)")

	// Service
	cmd.Flags().StringP("service-listen", "s", _config.ServiceAddr, "Listen IP:Port for HTTP service, disabled when empty")

	// Journal
	cmd.Flags().Bool("journal", _config.Journal, "Record every envelope in a badger database")
	cmd.Flags().String("journal-dir", _config.JournalDir, "Journal database directory")
}

func loadConfig(cmd *cobra.Command, args []string) error {

	configFile, err := bindFlagsLoadViper(cmd)
	if err != nil {
		return err
	}

	// If --datadir was explicitely set, but not --journal-dir, this will
	// update the default journal dir to be inside the new datadir
	_config.SetDataDir(_config.DataDir)

	logFields := logrus.Fields{
		"DataDir":     _config.DataDir,
		"LogLevel":    _config.LogLevel,
		"LogFile":     _config.LogFile,
		"ServiceAddr": _config.ServiceAddr,
		"Journal":     _config.Journal,
	}

	if _config.Journal {
		logFields["JournalDir"] = _config.JournalDir
	}

	// the logger is only created once every source has been read
	if configFile != "" {
		_config.Logger().Debugf("Using config file: %s", configFile)
	} else {
		_config.Logger().Debugf("No config file found in: %s", _config.DataDir)
	}

	_config.Logger().WithFields(logFields).Debug("RUN")

	return nil
}

// Bind all flags and read the config into viper. It returns the path of the
// config file used, if any.
func bindFlagsLoadViper(cmd *cobra.Command) (string, error) {
	// Register flags with viper. Include flags from this command and all other
	// persistent flags from the parent
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return "", err
	}

	// the harness starts nodes without arguments, MAELNODE_LOG=debug etc.
	viper.SetEnvPrefix("MAELNODE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	// first unmarshal to read from CLI flags and environment
	if err := viper.Unmarshal(_config); err != nil {
		return "", err
	}

	// look for config file in [datadir]/maelnode.toml (.json, .yaml also work)
	viper.SetConfigName(config.DefaultConfigName) // name of config file (without extension)
	viper.AddConfigPath(_config.DataDir)          // search root directory

	// If a config file is found, read it in.
	configFile := ""
	if err := viper.ReadInConfig(); err == nil {
		configFile = viper.ConfigFileUsed()
	} else if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
		return "", err
	}

	// second unmarshal to read from config file
	return configFile, viper.Unmarshal(_config)
}
