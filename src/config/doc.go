// Package config defines the configuration of a node process.
//
// The harness starts node binaries without arguments, so every option can also
// be set through the environment (MAELNODE_LOG, MAELNODE_JOURNAL, ...) or
// through a file in the data directory, defined by Config.DataDir:
//
//  maelnode.toml // (optional, .yaml and .json also work) configuration file.
//  journal_db/   // (optional) badger database of the envelope journal.
//
// Logs never go to standard output, which is reserved for the protocol.
package config
