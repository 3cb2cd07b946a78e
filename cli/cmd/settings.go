package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/justapithecus/flume/cli/render"
)

// SettingsCommand returns the settings command with get/set subcommands.
func SettingsCommand() *cli.Command {
	return &cli.Command{
		Name:  "settings",
		Usage: "Read or update persisted capture settings",
		Subcommands: []*cli.Command{
			settingsGetCommand(),
			settingsSetCommand(),
		},
	}
}

func settingsGetCommand() *cli.Command {
	return &cli.Command{
		Name:   "get",
		Usage:  "Show current settings",
		Flags:  append(ReadOnlyFlags(), SettingsPathFlag),
		Action: settingsGetAction,
	}
}

func settingsGetAction(c *cli.Context) error {
	store, err := settingsStore(c)
	if err != nil {
		return cli.Exit(err.Error(), exitUsage)
	}
	r, err := render.NewRenderer(c)
	if err != nil {
		return cli.Exit(err.Error(), exitUsage)
	}
	return r.Render(store.Get())
}

func settingsSetCommand() *cli.Command {
	return &cli.Command{
		Name:  "set",
		Usage: "Update one or more settings fields",
		Flags: []cli.Flag{
			SettingsPathFlag,
			FormatFlag,
			&cli.StringFlag{
				Name:  "host",
				Usage: "Ingestion sink host",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "Ingestion sink port",
			},
			&cli.BoolFlag{
				Name:  "enabled",
				Usage: "Enable or disable capture",
			},
			&cli.BoolFlag{
				Name:  "filter-in-scope",
				Usage: "Restrict resource capture to the page host",
			},
		},
		Action: settingsSetAction,
	}
}

func settingsSetAction(c *cli.Context) error {
	store, err := settingsStore(c)
	if err != nil {
		return cli.Exit(err.Error(), exitUsage)
	}

	updated := store.Get()
	changed := false
	if c.IsSet("host") {
		updated.Host = c.String("host")
		changed = true
	}
	if c.IsSet("port") {
		updated.Port = c.Int("port")
		changed = true
	}
	if c.IsSet("enabled") {
		updated.Enabled = c.Bool("enabled")
		changed = true
	}
	if c.IsSet("filter-in-scope") {
		updated.FilterInScope = c.Bool("filter-in-scope")
		changed = true
	}
	if !changed {
		return cli.Exit("settings set requires at least one field flag", exitUsage)
	}

	if err := store.Put(updated); err != nil {
		return cli.Exit(fmt.Sprintf("persist settings: %v", err), exitFailure)
	}

	r, err := render.NewRenderer(c)
	if err != nil {
		return cli.Exit(err.Error(), exitUsage)
	}
	return r.Render(updated)
}
