package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/justapithecus/flume/ingest"
	"github.com/justapithecus/flume/log"
	"github.com/justapithecus/flume/metrics"
	"github.com/justapithecus/flume/relay"
	"github.com/justapithecus/flume/transport"
)

// defaultListenAddr is used when neither config nor flags name one.
const defaultListenAddr = "tcp://127.0.0.1:7333"

// ServeCommand returns the serve command: the long-running relay server.
func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the relay server (reassembles chunked captures and forwards them)",
		Flags: []cli.Flag{
			ConfigFlag,
			SettingsPathFlag,
			&cli.StringFlag{
				Name:  "listen",
				Usage: "Listen address (tcp://host:port, unix://path, or host:port)",
			},
			&cli.DurationFlag{
				Name:  "staleness-window",
				Usage: "Session idle eviction window",
			},
			&cli.StringFlag{
				Name:  "sink-host",
				Usage: "Ingestion sink host (overrides settings)",
			},
			&cli.IntFlag{
				Name:  "sink-port",
				Usage: "Ingestion sink port (overrides settings)",
			},
			&cli.StringFlag{
				Name:  "archive-backend",
				Usage: "Artifact archive backend: none, fs, or s3",
			},
			&cli.StringFlag{
				Name:  "archive-path",
				Usage: "Archive root directory (fs backend)",
			},
			&cli.StringFlag{
				Name:  "archive-dataset",
				Usage: "Archive dataset ID",
			},
			&cli.StringFlag{
				Name:  "archive-bucket",
				Usage: "Archive S3 bucket",
			},
			&cli.StringFlag{
				Name:  "archive-prefix",
				Usage: "Archive S3 key prefix",
			},
			&cli.StringFlag{
				Name:  "archive-region",
				Usage: "Archive S3 region",
			},
		},
		Action: serveAction,
	}
}

func serveAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(err.Error(), exitUsage)
	}

	store, err := settingsStore(c)
	if err != nil {
		return cli.Exit(err.Error(), exitUsage)
	}

	listen := cfg.Relay.Listen
	if c.IsSet("listen") {
		listen = c.String("listen")
	}
	if listen == "" {
		listen = defaultListenAddr
	}

	window := cfg.Relay.StalenessWindow.Duration
	if c.IsSet("staleness-window") {
		window = c.Duration("staleness-window")
	}

	logger := log.NewLogger("serve")
	collector := metrics.NewCollector()

	forwarder := ingest.NewForwarder(sinkConfig(c, cfg, store))
	defer forwarder.Close()

	reassembler := relay.NewReassembler(forwarder, relay.ReassemblerConfig{
		StalenessWindow: window,
	}, logger, collector)

	archiver, err := buildArchiver(c, cfg)
	if err != nil {
		return cli.Exit(fmt.Sprintf("archive setup failed: %v", err), exitUsage)
	}
	if archiver != nil {
		reassembler.WithArchiver(archiver)
	}

	server := transport.NewServer(reassembler, collector, logger)
	if err := server.Listen(listen); err != nil {
		return cli.Exit(err.Error(), exitFailure)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("shutting down", map[string]any{"signal": sig.String()})
		cancel()
	}()

	started := time.Now()
	if err := server.Serve(ctx); err != nil {
		return cli.Exit(err.Error(), exitFailure)
	}

	snap := collector.Snapshot()
	logger.Info("server stopped", map[string]any{
		"uptime":             time.Since(started).Round(time.Second).String(),
		"sessions_completed": snap.SessionsCompleted,
		"forward_success":    snap.ForwardSuccess,
		"forward_failure":    snap.ForwardFailure,
	})
	return nil
}
