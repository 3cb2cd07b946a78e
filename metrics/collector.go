// Package metrics provides process-wide relay metrics collection.
//
// The Collector accumulates counters for the lifetime of the process. It is
// a leaf package with no internal dependencies. Snapshots feed the stats
// wire frame and the CLI stats views.
package metrics

import "sync"

// Snapshot is an immutable point-in-time view of all relay counters.
// Returned by Collector.Snapshot(). Safe to read concurrently after creation.
type Snapshot struct {
	// Chunk submissions
	ChunksReceived int64
	ChunksRejected int64

	// Session lifecycle
	SessionsStarted   int64
	SessionsCompleted int64
	SessionsEvicted   int64

	// Direct (unchunked) submissions
	DirectSubmits int64

	// Downstream forwarding
	ForwardSuccess int64
	ForwardFailure int64

	// Capture-side fetching
	FetchSuccess int64
	FetchFailure int64

	// Archive writes
	ArchiveWriteSuccess int64
	ArchiveWriteFailure int64
}

// Collector accumulates relay metrics.
// Thread-safe via sync.Mutex. All increment methods are nil-receiver safe
// so callers can run without a collector wired in.
type Collector struct {
	mu sync.Mutex

	chunksReceived int64
	chunksRejected int64

	sessionsStarted   int64
	sessionsCompleted int64
	sessionsEvicted   int64

	directSubmits int64

	forwardSuccess int64
	forwardFailure int64

	fetchSuccess int64
	fetchFailure int64

	archiveWriteSuccess int64
	archiveWriteFailure int64
}

// NewCollector creates an empty Collector.
func NewCollector() *Collector {
	return &Collector{}
}

// --- Chunk submissions ---

// IncChunksReceived records an accepted chunk submission.
func (c *Collector) IncChunksReceived() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.chunksReceived++
	c.mu.Unlock()
}

// IncChunksRejected records a rejected chunk submission.
func (c *Collector) IncChunksRejected() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.chunksRejected++
	c.mu.Unlock()
}

// --- Session lifecycle ---

// IncSessionsStarted records a session creation.
func (c *Collector) IncSessionsStarted() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.sessionsStarted++
	c.mu.Unlock()
}

// IncSessionsCompleted records a session reaching completion.
func (c *Collector) IncSessionsCompleted() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.sessionsCompleted++
	c.mu.Unlock()
}

// AddSessionsEvicted records sessions reclaimed by the staleness sweep.
func (c *Collector) AddSessionsEvicted(n int64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.sessionsEvicted += n
	c.mu.Unlock()
}

// --- Direct submissions ---

// IncDirectSubmits records an unchunked artifact submission.
func (c *Collector) IncDirectSubmits() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.directSubmits++
	c.mu.Unlock()
}

// --- Forwarding ---

// IncForwardSuccess records a successful downstream forward.
func (c *Collector) IncForwardSuccess() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.forwardSuccess++
	c.mu.Unlock()
}

// IncForwardFailure records a failed downstream forward.
func (c *Collector) IncForwardFailure() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.forwardFailure++
	c.mu.Unlock()
}

// --- Fetching ---

// IncFetchSuccess records a successful resource fetch.
func (c *Collector) IncFetchSuccess() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.fetchSuccess++
	c.mu.Unlock()
}

// IncFetchFailure records a failed resource fetch.
func (c *Collector) IncFetchFailure() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.fetchFailure++
	c.mu.Unlock()
}

// --- Archive ---

// IncArchiveWriteSuccess records a successful archive write.
func (c *Collector) IncArchiveWriteSuccess() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.archiveWriteSuccess++
	c.mu.Unlock()
}

// IncArchiveWriteFailure records a failed archive write.
func (c *Collector) IncArchiveWriteFailure() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.archiveWriteFailure++
	c.mu.Unlock()
}

// Snapshot returns an immutable copy of all counters.
// Nil-receiver safe: returns a zero snapshot.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	return Snapshot{
		ChunksReceived:      c.chunksReceived,
		ChunksRejected:      c.chunksRejected,
		SessionsStarted:     c.sessionsStarted,
		SessionsCompleted:   c.sessionsCompleted,
		SessionsEvicted:     c.sessionsEvicted,
		DirectSubmits:       c.directSubmits,
		ForwardSuccess:      c.forwardSuccess,
		ForwardFailure:      c.forwardFailure,
		FetchSuccess:        c.fetchSuccess,
		FetchFailure:        c.fetchFailure,
		ArchiveWriteSuccess: c.archiveWriteSuccess,
		ArchiveWriteFailure: c.archiveWriteFailure,
	}
}
