package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/justapithecus/flume/cli/render"
	"github.com/justapithecus/flume/ingest"
)

// FetchCommand returns the fetch command: capture a URL without sending.
func FetchCommand() *cli.Command {
	return &cli.Command{
		Name:      "fetch",
		Usage:     "Fetch a URL and print the raw request/response capture",
		ArgsUsage: "<url>",
		Flags: []cli.Flag{
			ConfigFlag,
			FormatFlag,
			&cli.DurationFlag{
				Name:  "fetch-timeout",
				Usage: "Per-fetch timeout",
			},
			&cli.StringFlag{
				Name:  "proxy",
				Usage: "Outbound proxy URL",
			},
		},
		Action: fetchAction,
	}
}

// fetchOutput is the fetch command output payload.
type fetchOutput struct {
	URL      string `json:"url"`
	Request  string `json:"request"`
	Response string `json:"response"`
}

func fetchAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("fetch requires exactly one URL argument", exitUsage)
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(err.Error(), exitUsage)
	}

	timeout := cfg.Fetch.Timeout.Duration
	if c.IsSet("fetch-timeout") {
		timeout = c.Duration("fetch-timeout")
	}
	proxy := cfg.Fetch.Proxy
	if c.IsSet("proxy") {
		proxy = c.String("proxy")
	}

	fetcher, err := ingest.NewFetcher(ingest.FetcherConfig{Timeout: timeout, Proxy: proxy})
	if err != nil {
		return cli.Exit(err.Error(), exitUsage)
	}
	defer fetcher.Close()

	result, err := fetcher.Fetch(c.Context, c.Args().First())
	if err != nil {
		return cli.Exit(fmt.Sprintf("fetch failed: %v", err), exitFailure)
	}

	r, err := render.NewRenderer(c)
	if err != nil {
		return cli.Exit(err.Error(), exitUsage)
	}
	return r.Render(fetchOutput{
		URL:      result.URL,
		Request:  string(result.RequestRaw),
		Response: string(result.ResponseRaw),
	})
}
