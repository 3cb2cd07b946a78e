package cmd

import (
	"context"

	"github.com/urfave/cli/v2"

	"github.com/justapithecus/flume/cli/render"
	"github.com/justapithecus/flume/cli/tui"
	"github.com/justapithecus/flume/transport"
	"github.com/justapithecus/flume/types"
)

// StatsCommand returns the stats command: query relay counters.
func StatsCommand() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Show relay statistics",
		Flags: []cli.Flag{
			ConfigFlag,
			FormatFlag,
			TUIFlag,
			RelayFlag,
		},
		Action: statsAction,
	}
}

// statsOutput is the stats command output payload.
type statsOutput struct {
	ActiveSessions      int64 `json:"activeSessions"`
	ChunksReceived      int64 `json:"chunksReceived"`
	ChunksRejected      int64 `json:"chunksRejected"`
	SessionsStarted     int64 `json:"sessionsStarted"`
	SessionsCompleted   int64 `json:"sessionsCompleted"`
	SessionsEvicted     int64 `json:"sessionsEvicted"`
	DirectSubmits       int64 `json:"directSubmits"`
	ForwardSuccess      int64 `json:"forwardSuccess"`
	ForwardFailure      int64 `json:"forwardFailure"`
	FetchSuccess        int64 `json:"fetchSuccess"`
	FetchFailure        int64 `json:"fetchFailure"`
	ArchiveWriteSuccess int64 `json:"archiveWriteSuccess"`
	ArchiveWriteFailure int64 `json:"archiveWriteFailure"`
}

func statsAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(err.Error(), exitUsage)
	}

	addr := cfg.Relay.Listen
	if c.IsSet("relay") {
		addr = c.String("relay")
	}
	if addr == "" {
		addr = defaultListenAddr
	}

	client, err := transport.Dial(c.Context, addr)
	if err != nil {
		return cli.Exit(err.Error(), exitFailure)
	}
	defer client.Close()

	if c.Bool("tui") {
		provider := func(ctx context.Context) (*types.StatsFrame, error) {
			return client.Stats(ctx)
		}
		if err := tui.RunStatsTUI(provider); err != nil {
			return cli.Exit(err.Error(), exitFailure)
		}
		return nil
	}

	stats, err := client.Stats(c.Context)
	if err != nil {
		return cli.Exit(err.Error(), exitFailure)
	}

	r, err := render.NewRenderer(c)
	if err != nil {
		return cli.Exit(err.Error(), exitUsage)
	}
	return r.Render(statsOutput{
		ActiveSessions:      stats.ActiveSessions,
		ChunksReceived:      stats.ChunksReceived,
		ChunksRejected:      stats.ChunksRejected,
		SessionsStarted:     stats.SessionsStarted,
		SessionsCompleted:   stats.SessionsCompleted,
		SessionsEvicted:     stats.SessionsEvicted,
		DirectSubmits:       stats.DirectSubmits,
		ForwardSuccess:      stats.ForwardSuccess,
		ForwardFailure:      stats.ForwardFailure,
		FetchSuccess:        stats.FetchSuccess,
		FetchFailure:        stats.FetchFailure,
		ArchiveWriteSuccess: stats.ArchiveWriteSuccess,
		ArchiveWriteFailure: stats.ArchiveWriteFailure,
	})
}
