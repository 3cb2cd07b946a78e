// Package ingest implements the boundary to the downstream ingestion sink:
// the forwarder that delivers completed artifacts and the fetcher that
// materializes referenced resources.
package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/justapithecus/flume/iox"
	"github.com/justapithecus/flume/relay"
	"github.com/justapithecus/flume/types"
)

// IngestPath is the fixed ingestion path on the sink.
const IngestPath = "/api/ingest"

// DefaultTimeout is the default per-request timeout for sink calls.
const DefaultTimeout = 10 * time.Second

// Payload is the fixed ingestion wire format. The JSON field names are the
// sink's contract and must not change.
type Payload struct {
	RequestURL string `json:"requestUrl"`
	Request    string `json:"request"`
	Response   string `json:"response"`
}

// ForwarderConfig configures a Forwarder.
type ForwarderConfig struct {
	// Host is the sink host. Empty means the documented default.
	Host string
	// Port is the sink port. Zero means the documented default.
	Port int
	// Timeout is the per-request timeout (default 10s).
	Timeout time.Duration
}

// Forwarder delivers one complete artifact to the sink per call.
// No retry, no backoff: a failure is reported to the caller, which decides
// whether to surface it. Resilience belongs outside this boundary so the
// exactly-once-per-completed-session contract stays intact.
type Forwarder struct {
	config ForwarderConfig
	client *http.Client
}

// NewForwarder creates a forwarder for the configured sink.
func NewForwarder(cfg ForwarderConfig) *Forwarder {
	if cfg.Host == "" {
		cfg.Host = types.DefaultSinkHost
	}
	if cfg.Port <= 0 {
		cfg.Port = types.DefaultSinkPort
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Forwarder{
		config: cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// Forward serializes the artifact and issues a single JSON POST to the sink.
func (f *Forwarder) Forward(ctx context.Context, artifact *types.Artifact) error {
	body, err := json.Marshal(Payload{
		RequestURL: artifact.URL,
		Request:    string(artifact.Request),
		Response:   string(artifact.Response),
	})
	if err != nil {
		return fmt.Errorf("ingest: marshal payload: %w", err)
	}

	endpoint := "http://" + f.config.Host + ":" + strconv.Itoa(f.config.Port) + IngestPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("ingest: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("ingest: request failed: %w", err)
	}
	defer iox.DiscardClose(resp.Body)

	// Drain body to allow connection reuse
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Code: resp.StatusCode}
	}
	return nil
}

// Close releases forwarder resources.
func (f *Forwarder) Close() error {
	f.client.CloseIdleConnections()
	return nil
}

// StatusError is returned for non-2xx sink responses.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("ingest sink returned status %d", e.Code)
}

// Verify Forwarder implements the relay forwarder interface.
var _ relay.Forwarder = (*Forwarder)(nil)
