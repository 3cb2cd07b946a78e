// Package archive persists forwarded artifacts to Lode-backed storage.
// Records are Hive-partitioned by host and capture day so that archived
// traffic for one site or one day can be read back without scanning
// everything else.
package archive

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/justapithecus/lode/lode"
	lodes3 "github.com/justapithecus/lode/lode/s3"

	"github.com/justapithecus/flume/types"
)

// DefaultDataset is the dataset ID used when none is configured.
const DefaultDataset = "flume"

// Config holds archive writer configuration.
type Config struct {
	// Dataset is the Lode dataset ID.
	Dataset string
}

// S3Config holds configuration for the S3 storage backend.
type S3Config struct {
	// Bucket is the S3 bucket name (required).
	Bucket string
	// Prefix is the key prefix within the bucket (optional).
	Prefix string
	// Region is the AWS region (optional, uses default chain if empty).
	Region string
}

// Validate checks that required S3 configuration is present.
func (c *S3Config) Validate() error {
	if c.Bucket == "" {
		return errors.New("S3 bucket is required")
	}
	return nil
}

// Writer persists artifacts as JSONL records partitioned by host and day.
type Writer struct {
	dataset lode.Dataset

	mu  sync.Mutex
	now func() time.Time
}

// NewWriter creates a Writer backed by the given store factory.
// Use lode.NewMemoryFactory() for testing.
func NewWriter(cfg Config, factory lode.StoreFactory) (*Writer, error) {
	dataset := cfg.Dataset
	if dataset == "" {
		dataset = DefaultDataset
	}
	ds, err := lode.NewDataset(
		lode.DatasetID(dataset),
		factory,
		lode.WithHiveLayout("host", "day"),
		lode.WithCodec(lode.NewJSONLCodec()),
	)
	if err != nil {
		return nil, err
	}
	return &Writer{dataset: ds, now: time.Now}, nil
}

// NewFSWriter creates a Writer with filesystem storage rooted at root.
func NewFSWriter(cfg Config, root string) (*Writer, error) {
	return NewWriter(cfg, lode.NewFSFactory(root))
}

// NewS3Writer creates a Writer with S3 storage.
// Uses the AWS SDK default credential chain (env vars, shared config, IAM role).
func NewS3Writer(cfg Config, s3cfg S3Config) (*Writer, error) {
	if err := s3cfg.Validate(); err != nil {
		return nil, err
	}

	ctx := context.Background()
	var opts []func(*config.LoadOptions) error
	if s3cfg.Region != "" {
		opts = append(opts, config.WithRegion(s3cfg.Region))
	}
	awsConfig, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	s3Client := s3.NewFromConfig(awsConfig)

	s3Factory := func() (lode.Store, error) {
		return lodes3.New(s3Client, lodes3.Config{
			Bucket: s3cfg.Bucket,
			Prefix: s3cfg.Prefix,
		})
	}
	return NewWriter(cfg, s3Factory)
}

// ArchiveArtifact writes one artifact as a single record.
func (w *Writer) ArchiveArtifact(ctx context.Context, artifact *types.Artifact) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	capturedAt := w.now().UTC()
	record := map[string]any{
		"request_url": artifact.URL,
		"request":     string(artifact.Request),
		"response":    string(artifact.Response),
		"size_bytes":  artifact.TotalSize(),

		// Partition keys (consumed by the Hive layout).
		"host": hostPartition(artifact.URL),
		"day":  capturedAt.Format("2006-01-02"),

		"captured_at": capturedAt.Format(time.RFC3339Nano),
	}

	if _, err := w.dataset.Write(ctx, []any{record}, lode.Metadata{}); err != nil {
		return fmt.Errorf("archive: write artifact %s: %w", artifact.URL, err)
	}
	return nil
}

// hostPartition derives the host partition value from an artifact URL.
// Unparsable URLs land in a catch-all partition rather than failing the write.
func hostPartition(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Hostname() == "" {
		return "unknown"
	}
	return parsed.Hostname()
}
