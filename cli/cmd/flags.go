// Package cmd provides CLI commands for the flume binary.
package cmd

import "github.com/urfave/cli/v2"

// Exit codes shared by all commands.
const (
	exitSuccess = 0
	exitFailure = 1
	exitUsage   = 2
)

// Shared flags.
var (
	// ConfigFlag points at a flume.yaml config file.
	ConfigFlag = &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to flume.yaml config file",
	}

	// FormatFlag selects output format: json, table, yaml.
	FormatFlag = &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: json, table, yaml",
	}

	// TUIFlag enables the Bubble Tea live view (stats only).
	TUIFlag = &cli.BoolFlag{
		Name:  "tui",
		Usage: "Enable interactive TUI mode (stats only)",
	}

	// RelayFlag is the relay server address for client-side commands.
	RelayFlag = &cli.StringFlag{
		Name:  "relay",
		Usage: "Relay server address (tcp://host:port, unix://path, or host:port)",
	}

	// SettingsPathFlag overrides the settings file location.
	SettingsPathFlag = &cli.StringFlag{
		Name:  "settings-path",
		Usage: "Path to the settings file (defaults to the user config dir)",
	}
)

// ReadOnlyFlags returns the shared flags for read-only commands.
func ReadOnlyFlags() []cli.Flag {
	return []cli.Flag{
		FormatFlag,
	}
}
