package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/justapithecus/flume/archive"
	"github.com/justapithecus/flume/cli/config"
	"github.com/justapithecus/flume/ingest"
	"github.com/justapithecus/flume/settings"
)

// defaultConfigPath is the config file looked up when --config is absent.
const defaultConfigPath = "flume.yaml"

// loadConfig resolves the config file. An explicit --config path must
// exist; the default path is optional.
func loadConfig(c *cli.Context) (*config.Config, error) {
	if path := c.String("config"); path != "" {
		return config.Load(path)
	}
	return config.LoadIfPresent(defaultConfigPath)
}

// settingsStore builds the settings store from --settings-path or the
// platform default location.
func settingsStore(c *cli.Context) (*settings.Store, error) {
	if path := c.String("settings-path"); path != "" {
		return settings.NewStore(path), nil
	}
	path, err := settings.DefaultPath()
	if err != nil {
		return nil, fmt.Errorf("resolve settings path: %w", err)
	}
	return settings.NewStore(path), nil
}

// sinkConfig resolves the ingestion sink target. Precedence, lowest
// first: persisted settings, config file, CLI flags.
func sinkConfig(c *cli.Context, cfg *config.Config, store *settings.Store) ingest.ForwarderConfig {
	current := store.Get()
	out := ingest.ForwarderConfig{Host: current.Host, Port: current.Port}

	if cfg.Sink.Host != "" {
		out.Host = cfg.Sink.Host
	}
	if cfg.Sink.Port != 0 {
		out.Port = cfg.Sink.Port
	}
	if c.IsSet("sink-host") {
		out.Host = c.String("sink-host")
	}
	if c.IsSet("sink-port") {
		out.Port = c.Int("sink-port")
	}
	return out
}

// buildArchiver constructs the optional archive writer from storage
// config and flags. Returns nil when the backend is "none" or unset.
func buildArchiver(c *cli.Context, cfg *config.Config) (*archive.Writer, error) {
	storage := cfg.Storage
	if c.IsSet("archive-backend") {
		storage.Backend = c.String("archive-backend")
	}
	if c.IsSet("archive-path") {
		storage.Path = c.String("archive-path")
	}
	if c.IsSet("archive-dataset") {
		storage.Dataset = c.String("archive-dataset")
	}
	if c.IsSet("archive-bucket") {
		storage.Bucket = c.String("archive-bucket")
	}
	if c.IsSet("archive-prefix") {
		storage.Prefix = c.String("archive-prefix")
	}
	if c.IsSet("archive-region") {
		storage.Region = c.String("archive-region")
	}

	switch storage.Backend {
	case "", "none":
		return nil, nil
	case "fs":
		if storage.Path == "" {
			return nil, fmt.Errorf("fs archive backend requires a path")
		}
		return archive.NewFSWriter(archive.Config{Dataset: storage.Dataset}, storage.Path)
	case "s3":
		return archive.NewS3Writer(archive.Config{Dataset: storage.Dataset}, archive.S3Config{
			Bucket: storage.Bucket,
			Prefix: storage.Prefix,
			Region: storage.Region,
		})
	default:
		return nil, fmt.Errorf("unknown archive backend %q (must be none, fs, or s3)", storage.Backend)
	}
}
