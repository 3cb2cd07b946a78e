package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/justapithecus/flume/capture"
	"github.com/justapithecus/flume/ingest"
	"github.com/justapithecus/flume/log"
	"github.com/justapithecus/flume/metrics"
	"github.com/justapithecus/flume/relay"
	"github.com/justapithecus/flume/cli/render"
	"github.com/justapithecus/flume/transport"
)

// SendCommand returns the send command: fetch a page and relay its capture.
func SendCommand() *cli.Command {
	return &cli.Command{
		Name:      "send",
		Usage:     "Fetch a URL and send the captured traffic through the relay",
		ArgsUsage: "<url>",
		Flags: []cli.Flag{
			ConfigFlag,
			SettingsPathFlag,
			RelayFlag,
			FormatFlag,
			&cli.BoolFlag{
				Name:  "local",
				Usage: "Bypass the network relay and forward directly to the sink",
			},
			&cli.BoolFlag{
				Name:  "resources",
				Usage: "Also capture scripts and stylesheets referenced by the page",
			},
			&cli.IntFlag{
				Name:  "chunk-threshold",
				Usage: "Chunking boundary in bytes",
			},
			&cli.DurationFlag{
				Name:  "fetch-timeout",
				Usage: "Per-fetch timeout",
			},
			&cli.StringFlag{
				Name:  "proxy",
				Usage: "Outbound proxy URL for fetches",
			},
			&cli.StringFlag{
				Name:  "sink-host",
				Usage: "Ingestion sink host for --local mode (overrides settings)",
			},
			&cli.IntFlag{
				Name:  "sink-port",
				Usage: "Ingestion sink port for --local mode (overrides settings)",
			},
		},
		Action: sendAction,
	}
}

func sendAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("send requires exactly one URL argument", exitUsage)
	}
	pageURL := c.Args().First()

	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(err.Error(), exitUsage)
	}
	store, err := settingsStore(c)
	if err != nil {
		return cli.Exit(err.Error(), exitUsage)
	}

	logger := log.NewLogger("send")
	collector := metrics.NewCollector()

	// Transport selection: a live relay server, or an in-process relay
	// forwarding straight to the sink.
	var dest relay.Transport
	if c.Bool("local") {
		forwarder := ingest.NewForwarder(sinkConfig(c, cfg, store))
		defer forwarder.Close()
		reassembler := relay.NewReassembler(forwarder, relay.ReassemblerConfig{
			StalenessWindow: cfg.Relay.StalenessWindow.Duration,
		}, logger, collector)
		dest = relay.NewLocal(reassembler)
	} else {
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
		dest = client
	}

	threshold := cfg.Relay.ChunkThreshold
	if c.IsSet("chunk-threshold") {
		threshold = c.Int("chunk-threshold")
	}
	sender := relay.NewSender(dest, relay.SenderConfig{ChunkThreshold: threshold}, logger)

	fetchTimeout := cfg.Fetch.Timeout.Duration
	if c.IsSet("fetch-timeout") {
		fetchTimeout = c.Duration("fetch-timeout")
	}
	proxy := cfg.Fetch.Proxy
	if c.IsSet("proxy") {
		proxy = c.String("proxy")
	}
	fetcher, err := ingest.NewFetcher(ingest.FetcherConfig{
		Timeout:   fetchTimeout,
		Proxy:     proxy,
		Collector: collector,
	})
	if err != nil {
		return cli.Exit(err.Error(), exitUsage)
	}
	defer fetcher.Close()

	r, err := render.NewRenderer(c)
	if err != nil {
		return cli.Exit(err.Error(), exitUsage)
	}

	if c.Bool("resources") {
		pipeline := capture.NewPipeline(fetcher, sender, store, logger)
		report, err := pipeline.CapturePage(c.Context, pageURL)
		if err != nil {
			return cli.Exit(fmt.Sprintf("capture failed: %v", err), exitFailure)
		}
		return r.Render(sendReport{
			URL:       report.PageURL,
			PageSent:  report.PageSent,
			Resources: report.Resources,
			Sent:      report.Sent,
			Skipped:   report.Skipped,
			Failed:    report.Failed,
		})
	}

	result, err := fetcher.Fetch(c.Context, pageURL)
	if err != nil {
		return cli.Exit(fmt.Sprintf("fetch failed: %v", err), exitFailure)
	}
	if err := sender.Send(c.Context, result.Artifact()); err != nil {
		return cli.Exit(fmt.Sprintf("send failed: %v", err), exitFailure)
	}
	return r.Render(sendReport{URL: result.URL, PageSent: true})
}

// sendReport is the send command output payload.
type sendReport struct {
	URL       string `json:"url"`
	PageSent  bool   `json:"pageSent"`
	Resources int    `json:"resources,omitempty"`
	Sent      int    `json:"sent,omitempty"`
	Skipped   int    `json:"skipped,omitempty"`
	Failed    int    `json:"failed,omitempty"`
}
