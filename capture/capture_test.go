package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/justapithecus/flume/ingest"
	"github.com/justapithecus/flume/log"
	"github.com/justapithecus/flume/types"
)

type fakeFetcher struct {
	pages map[string]string
	fail  map[string]bool
}

func (f *fakeFetcher) Fetch(_ context.Context, rawURL string) (*ingest.FetchResult, error) {
	if f.fail[rawURL] {
		return nil, fmt.Errorf("fetch %s: connection refused", rawURL)
	}
	body, ok := f.pages[rawURL]
	if !ok {
		return nil, fmt.Errorf("fetch %s: not found", rawURL)
	}
	return &ingest.FetchResult{
		URL:         rawURL,
		RequestRaw:  []byte("GET / HTTP/1.1\r\n\r\n"),
		ResponseRaw: []byte("HTTP/1.1 200 OK\r\n\r\n" + body),
		Body:        []byte(body),
	}, nil
}

type recordingSender struct {
	mu      sync.Mutex
	sent    []string
	failURL string
}

func (s *recordingSender) Send(_ context.Context, artifact *types.Artifact) error {
	if s.failURL != "" && artifact.URL == s.failURL {
		return errors.New("sink unavailable")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, artifact.URL)
	return nil
}

type fixedSettings struct {
	cfg types.Settings
}

func (f fixedSettings) Get() types.Settings { return f.cfg }

func testLogger() *log.Logger {
	return log.NewLogger("test").WithOutput(io.Discard)
}

const pageMarkup = `<html><head>
<link rel="stylesheet" href="/site.css">
<script src="/app.js"></script>
<script src="https://cdn.example.net/lib.js"></script>
</head></html>`

func sitePages() map[string]string {
	return map[string]string{
		"https://example.com/":           pageMarkup,
		"https://example.com/site.css":   "body{}",
		"https://example.com/app.js":     "run()",
		"https://cdn.example.net/lib.js": "lib()",
	}
}

func TestCapturePage_InScopeFilter(t *testing.T) {
	fetcher := &fakeFetcher{pages: sitePages()}
	sender := &recordingSender{}
	pipe := NewPipeline(fetcher, sender, fixedSettings{types.DefaultSettings()}, testLogger())

	report, err := pipe.CapturePage(t.Context(), "https://example.com/")
	if err != nil {
		t.Fatalf("CapturePage: %v", err)
	}

	if !report.PageSent {
		t.Error("expected page to be sent")
	}
	if report.Resources != 3 {
		t.Errorf("Resources = %d, want 3", report.Resources)
	}
	if report.Skipped != 1 {
		t.Errorf("Skipped = %d, want 1 (the CDN script)", report.Skipped)
	}
	if report.Sent != 2 {
		t.Errorf("Sent = %d, want 2", report.Sent)
	}
	if report.Failed != 0 {
		t.Errorf("Failed = %d, want 0", report.Failed)
	}

	// Page first, then resources.
	if len(sender.sent) != 3 || sender.sent[0] != "https://example.com/" {
		t.Fatalf("sent = %v", sender.sent)
	}
	for _, url := range sender.sent[1:] {
		if !strings.HasPrefix(url, "https://example.com/") {
			t.Errorf("out-of-scope artifact sent: %s", url)
		}
	}
}

func TestCapturePage_FilterDisabled(t *testing.T) {
	fetcher := &fakeFetcher{pages: sitePages()}
	sender := &recordingSender{}
	cfg := types.DefaultSettings()
	cfg.FilterInScope = false
	pipe := NewPipeline(fetcher, sender, fixedSettings{cfg}, testLogger())

	report, err := pipe.CapturePage(t.Context(), "https://example.com/")
	if err != nil {
		t.Fatalf("CapturePage: %v", err)
	}
	if report.Skipped != 0 {
		t.Errorf("Skipped = %d, want 0", report.Skipped)
	}
	if report.Sent != 3 {
		t.Errorf("Sent = %d, want 3", report.Sent)
	}
}

func TestCapturePage_Disabled(t *testing.T) {
	cfg := types.DefaultSettings()
	cfg.Enabled = false
	pipe := NewPipeline(&fakeFetcher{}, &recordingSender{}, fixedSettings{cfg}, testLogger())

	if _, err := pipe.CapturePage(t.Context(), "https://example.com/"); !errors.Is(err, ErrDisabled) {
		t.Fatalf("expected ErrDisabled, got %v", err)
	}
}

func TestCapturePage_ResourceFailureTolerated(t *testing.T) {
	fetcher := &fakeFetcher{
		pages: sitePages(),
		fail:  map[string]bool{"https://example.com/app.js": true},
	}
	sender := &recordingSender{}
	pipe := NewPipeline(fetcher, sender, fixedSettings{types.DefaultSettings()}, testLogger())

	report, err := pipe.CapturePage(t.Context(), "https://example.com/")
	if err != nil {
		t.Fatalf("CapturePage: %v", err)
	}
	if report.Failed != 1 {
		t.Errorf("Failed = %d, want 1", report.Failed)
	}
	if report.Sent != 1 {
		t.Errorf("Sent = %d, want 1", report.Sent)
	}
}

func TestCapturePage_ResourceSendFailureTolerated(t *testing.T) {
	fetcher := &fakeFetcher{pages: sitePages()}
	sender := &recordingSender{failURL: "https://example.com/site.css"}
	pipe := NewPipeline(fetcher, sender, fixedSettings{types.DefaultSettings()}, testLogger())

	report, err := pipe.CapturePage(t.Context(), "https://example.com/")
	if err != nil {
		t.Fatalf("CapturePage: %v", err)
	}
	if report.Failed != 1 || report.Sent != 1 {
		t.Errorf("Failed = %d, Sent = %d, want 1 and 1", report.Failed, report.Sent)
	}
}

func TestCapturePage_PageFetchFails(t *testing.T) {
	fetcher := &fakeFetcher{fail: map[string]bool{"https://example.com/": true}}
	pipe := NewPipeline(fetcher, &recordingSender{}, fixedSettings{types.DefaultSettings()}, testLogger())

	if _, err := pipe.CapturePage(t.Context(), "https://example.com/"); err == nil {
		t.Fatal("expected error when the page itself cannot be fetched")
	}
}

func TestCapturePage_PageSendFails(t *testing.T) {
	fetcher := &fakeFetcher{pages: sitePages()}
	sender := &recordingSender{failURL: "https://example.com/"}
	pipe := NewPipeline(fetcher, sender, fixedSettings{types.DefaultSettings()}, testLogger())

	if _, err := pipe.CapturePage(t.Context(), "https://example.com/"); err == nil {
		t.Fatal("expected error when the page artifact cannot be sent")
	}
}
