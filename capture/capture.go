// Package capture drives page capture: fetch a page, discover the resources
// it references, fetch those in scope, and hand every artifact to a sender.
package capture

import (
	"context"
	"fmt"

	"github.com/justapithecus/flume/extract"
	"github.com/justapithecus/flume/ingest"
	"github.com/justapithecus/flume/log"
	"github.com/justapithecus/flume/types"
)

// Fetcher retrieves a URL and returns its raw request/response capture.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*ingest.FetchResult, error)
}

// Sender delivers a captured artifact downstream.
type Sender interface {
	Send(ctx context.Context, artifact *types.Artifact) error
}

// SettingsSource yields the current capture settings.
type SettingsSource interface {
	Get() types.Settings
}

// Report summarizes one capture run.
type Report struct {
	// PageURL is the URL the run started from.
	PageURL string
	// PageSent reports whether the page artifact itself was delivered.
	PageSent bool
	// Resources counts discovered resource references.
	Resources int
	// Skipped counts references filtered out of scope.
	Skipped int
	// Sent counts resource artifacts delivered.
	Sent int
	// Failed counts resources that could not be fetched or delivered.
	Failed int
}

// Pipeline captures a page and its referenced resources.
type Pipeline struct {
	fetcher  Fetcher
	sender   Sender
	settings SettingsSource
	logger   *log.Logger
}

// NewPipeline builds a capture pipeline.
func NewPipeline(fetcher Fetcher, sender Sender, settings SettingsSource, logger *log.Logger) *Pipeline {
	return &Pipeline{
		fetcher:  fetcher,
		sender:   sender,
		settings: settings,
		logger:   logger,
	}
}

// ErrDisabled is returned when capture is switched off in settings.
var ErrDisabled = fmt.Errorf("capture: disabled by settings")

// CapturePage fetches pageURL, sends its artifact, then fetches and sends
// each referenced resource. A resource that fails to fetch or send is
// counted and logged but does not abort the run; a page that fails does.
func (p *Pipeline) CapturePage(ctx context.Context, pageURL string) (*Report, error) {
	cfg := p.settings.Get()
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	report := &Report{PageURL: pageURL}

	page, err := p.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("capture: fetch page: %w", err)
	}
	if err := p.sender.Send(ctx, page.Artifact()); err != nil {
		return nil, fmt.Errorf("capture: send page: %w", err)
	}
	report.PageSent = true

	refs, err := extract.References(page.URL, page.Body)
	if err != nil {
		return report, fmt.Errorf("capture: scan page: %w", err)
	}
	report.Resources = len(refs)

	for _, ref := range refs {
		if cfg.FilterInScope && !extract.InScope(page.URL, ref.URL) {
			report.Skipped++
			continue
		}
		if err := p.captureResource(ctx, ref); err != nil {
			report.Failed++
			p.logger.Warn("resource capture failed", map[string]any{
				"url":   ref.URL,
				"kind":  string(ref.Kind),
				"error": err.Error(),
			})
			continue
		}
		report.Sent++
	}
	return report, nil
}

func (p *Pipeline) captureResource(ctx context.Context, ref extract.Reference) error {
	res, err := p.fetcher.Fetch(ctx, ref.URL)
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}
	if err := p.sender.Send(ctx, res.Artifact()); err != nil {
		return fmt.Errorf("send: %w", err)
	}
	return nil
}
