package config

import (
	"fmt"
	"time"
)

// Config represents a flume.yaml configuration file.
// All values are optional and act as defaults for CLI flags.
// CLI flags always override config values.
type Config struct {
	Sink    SinkConfig    `yaml:"sink"`
	Relay   RelayConfig   `yaml:"relay"`
	Storage StorageConfig `yaml:"storage"`
	Fetch   FetchConfig   `yaml:"fetch"`
}

// SinkConfig holds ingestion sink defaults from the config file.
type SinkConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// RelayConfig holds relay defaults from the config file.
type RelayConfig struct {
	// Listen is the relay server address: tcp://host:port, unix://path,
	// or bare host:port.
	Listen string `yaml:"listen"`
	// ChunkThreshold is the chunking boundary in bytes.
	ChunkThreshold int `yaml:"chunk_threshold"`
	// StalenessWindow is the session idle eviction window.
	StalenessWindow Duration `yaml:"staleness_window"`
}

// StorageConfig holds artifact archive defaults from the config file.
type StorageConfig struct {
	// Backend selects the archive store: "none", "fs", or "s3".
	Backend string `yaml:"backend"`
	Dataset string `yaml:"dataset"`
	// Path is the filesystem root for the fs backend.
	Path string `yaml:"path"`
	// Bucket, Prefix, and Region configure the s3 backend.
	Bucket string `yaml:"bucket"`
	Prefix string `yaml:"prefix"`
	Region string `yaml:"region"`
}

// FetchConfig holds page fetch defaults from the config file.
type FetchConfig struct {
	Timeout Duration `yaml:"timeout"`
	// Proxy is an optional outbound proxy URL for fetches.
	Proxy string `yaml:"proxy"`
}

// Duration wraps time.Duration for YAML string parsing (e.g. "10s", "5m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "5m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}
