package ingest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"

	"github.com/justapithecus/flume/iox"
	"github.com/justapithecus/flume/metrics"
	"github.com/justapithecus/flume/types"
)

// DefaultFetchTimeout is the default timeout for resource fetches.
const DefaultFetchTimeout = 30 * time.Second

// FetchResult holds the raw request and response text of a single GET,
// plus the decoded response body for reference scanning.
type FetchResult struct {
	// URL is the fetched URL.
	URL string
	// RequestRaw is the wire-form request text.
	RequestRaw []byte
	// ResponseRaw is the wire-form response text including the body.
	ResponseRaw []byte
	// Body is the response body alone.
	Body []byte
}

// Artifact converts the result into a relay artifact.
func (r *FetchResult) Artifact() *types.Artifact {
	return &types.Artifact{
		URL:      r.URL,
		Request:  r.RequestRaw,
		Response: r.ResponseRaw,
	}
}

// FetcherConfig configures a Fetcher.
type FetcherConfig struct {
	// Timeout is the per-fetch timeout (default 30s).
	Timeout time.Duration
	// Proxy is an optional outbound proxy URL for all fetches.
	Proxy string
	// Collector receives fetch success/failure counts. May be nil.
	Collector *metrics.Collector
}

// Fetcher materializes resources before they enter the relay pipeline:
// a single outbound GET per call, returning the raw request/response text.
type Fetcher struct {
	client    *http.Client
	collector *metrics.Collector
}

// NewFetcher creates a fetcher. Returns an error for an unparsable proxy URL.
func NewFetcher(cfg FetcherConfig) (*Fetcher, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultFetchTimeout
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.Proxy != "" {
		proxyURL, err := url.Parse(cfg.Proxy)
		if err != nil {
			return nil, fmt.Errorf("fetch: invalid proxy URL %q: %w", cfg.Proxy, err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	return &Fetcher{
		client:    &http.Client{Timeout: cfg.Timeout, Transport: transport},
		collector: cfg.Collector,
	}, nil
}

// Fetch performs a single GET and returns the raw request and response.
func (f *Fetcher) Fetch(ctx context.Context, target string) (*FetchResult, error) {
	result, err := f.fetch(ctx, target)
	if err != nil {
		f.collector.IncFetchFailure()
		return nil, err
	}
	f.collector.IncFetchSuccess()
	return result, nil
}

func (f *Fetcher) fetch(ctx context.Context, target string) (*FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: create request: %w", target, err)
	}

	// DumpRequestOut renders the request in wire form, including the
	// headers the transport would add. GET has no body, so dumping before
	// the round trip is safe.
	requestRaw, err := httputil.DumpRequestOut(req, false)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: dump request: %w", target, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", target, err)
	}
	defer iox.DiscardClose(resp.Body)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: read body: %w", target, err)
	}

	// Re-dump the response with the already-read body so the raw text is
	// complete without a second read of the stream.
	resp.Body = io.NopCloser(nopReader{})
	responseRaw, err := httputil.DumpResponse(resp, false)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: dump response: %w", target, err)
	}
	responseRaw = append(responseRaw, body...)

	return &FetchResult{
		URL:         target,
		RequestRaw:  requestRaw,
		ResponseRaw: responseRaw,
		Body:        body,
	}, nil
}

// Close releases fetcher resources.
func (f *Fetcher) Close() error {
	f.client.CloseIdleConnections()
	return nil
}

// nopReader is an empty body placeholder for response re-dumping.
type nopReader struct{}

func (nopReader) Read([]byte) (int, error) { return 0, io.EOF }
