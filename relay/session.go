package relay

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/justapithecus/flume/log"
	"github.com/justapithecus/flume/metrics"
	"github.com/justapithecus/flume/types"
)

// DefaultStalenessWindow is the default maximum idle time before a session
// is evicted (60 seconds). A policy constant, not a protocol invariant.
const DefaultStalenessWindow = 60 * time.Second

// Forwarder delivers one complete artifact to the downstream ingestion sink.
type Forwarder interface {
	// Forward serializes the artifact and issues a single outbound call.
	// No retry: a failure is reported to the caller.
	Forward(ctx context.Context, artifact *types.Artifact) error
}

// Archiver records a completed artifact in a local archive.
// Archive failures never change the outcome of a submission.
type Archiver interface {
	ArchiveArtifact(ctx context.Context, artifact *types.Artifact) error
}

// session is the mutable reassembly state for one in-flight transfer.
// Exclusively owned by the Reassembler's session table.
type session struct {
	id             string
	url            string
	request        bytes.Buffer
	response       bytes.Buffer
	receivedChunks int
	totalChunks    int
	lastActivity   time.Time
}

// ReassemblerConfig configures a Reassembler.
type ReassemblerConfig struct {
	// StalenessWindow is the maximum idle time before a session is
	// evicted. Zero means DefaultStalenessWindow.
	StalenessWindow time.Duration
}

// Reassembler accumulates chunks into completed artifacts with strict
// order enforcement, forwarding each completed artifact downstream exactly
// once. Thread-safe: the session table is the only shared mutable state and
// is guarded by a single mutex, which is fine at expected contention.
type Reassembler struct {
	mu       sync.Mutex
	sessions map[string]*session

	window    time.Duration
	forwarder Forwarder
	archiver  Archiver // optional
	logger    *log.Logger
	collector *metrics.Collector

	// now is swappable in tests.
	now func() time.Time
}

// NewReassembler creates a Reassembler forwarding completed artifacts to
// the given forwarder. The collector may be nil.
func NewReassembler(forwarder Forwarder, cfg ReassemblerConfig, logger *log.Logger, collector *metrics.Collector) *Reassembler {
	window := cfg.StalenessWindow
	if window <= 0 {
		window = DefaultStalenessWindow
	}
	return &Reassembler{
		sessions:  make(map[string]*session),
		window:    window,
		forwarder: forwarder,
		logger:    logger,
		collector: collector,
		now:       time.Now,
	}
}

// WithArchiver attaches an optional archive sink. Completed artifacts are
// archived after forwarding; archive failures are logged and counted but
// never alter the submission result.
func (r *Reassembler) WithArchiver(a Archiver) *Reassembler {
	r.archiver = a
	return r
}

// SubmitChunk folds one chunk into its session. The staleness sweep runs
// unconditionally before the chunk is processed.
//
// Errors are protocol violations (unknown session on a non-zero index,
// out-of-order index) or forward failures on the completing chunk. A
// rejected chunk never mutates its session.
func (r *Reassembler) SubmitChunk(ctx context.Context, chunk *types.Chunk) (*types.SubmitResult, error) {
	r.mu.Lock()

	now := r.now()
	r.sweepLocked(now)

	sess, found := r.sessions[chunk.SessionID]
	if !found {
		if chunk.Index != 0 {
			r.mu.Unlock()
			r.collector.IncChunksRejected()
			return nil, &Error{
				Kind: ErrorProtocol,
				Err:  fmt.Errorf("session %s not found: a transfer must start at chunk 0", chunk.SessionID),
			}
		}
		if chunk.TotalChunks < 1 {
			r.mu.Unlock()
			r.collector.IncChunksRejected()
			return nil, &Error{
				Kind: ErrorProtocol,
				Err: fmt.Errorf("session %s: declared %d total chunks, must be at least 1",
					chunk.SessionID, chunk.TotalChunks),
			}
		}
		sess = &session{
			id:           chunk.SessionID,
			url:          chunk.RequestURL,
			totalChunks:  chunk.TotalChunks,
			lastActivity: now,
		}
		r.sessions[chunk.SessionID] = sess
		r.collector.IncSessionsStarted()
		r.logger.Debug("session started", map[string]any{
			"session_id":   sess.id,
			"total_chunks": sess.totalChunks,
		})
	}

	if chunk.Index != sess.receivedChunks {
		r.mu.Unlock()
		r.collector.IncChunksRejected()
		return nil, &Error{
			Kind: ErrorProtocol,
			Err: fmt.Errorf("session %s: out-of-order chunk %d, expected %d",
				chunk.SessionID, chunk.Index, sess.receivedChunks),
		}
	}

	if chunk.Index == 0 && chunk.RequestURL != "" {
		sess.url = chunk.RequestURL
	}
	if chunk.RequestPiece != nil {
		sess.request.Write(chunk.RequestPiece)
	}
	if chunk.ResponsePiece != nil {
		sess.response.Write(chunk.ResponsePiece)
	}
	sess.receivedChunks++
	sess.lastActivity = now
	r.collector.IncChunksReceived()

	if sess.receivedChunks < sess.totalChunks {
		r.mu.Unlock()
		return &types.SubmitResult{Complete: false}, nil
	}

	// Completion: remove the session before forwarding so it is gone
	// whether or not the forward succeeds. A session is never retried.
	delete(r.sessions, chunk.SessionID)
	r.mu.Unlock()

	r.collector.IncSessionsCompleted()
	artifact := &types.Artifact{
		URL:      sess.url,
		Request:  sess.request.Bytes(),
		Response: sess.response.Bytes(),
	}

	if err := r.deliver(ctx, artifact); err != nil {
		return nil, err
	}
	return &types.SubmitResult{Complete: true}, nil
}

// SubmitArtifact handles a direct (unchunked) submission: the artifact is
// forwarded immediately and no session is created.
func (r *Reassembler) SubmitArtifact(ctx context.Context, artifact *types.Artifact) (*types.SubmitResult, error) {
	r.collector.IncDirectSubmits()
	if err := r.deliver(ctx, artifact); err != nil {
		return nil, err
	}
	return &types.SubmitResult{Complete: true}, nil
}

// deliver forwards the artifact and, when an archiver is configured,
// archives it; the forward result is authoritative.
func (r *Reassembler) deliver(ctx context.Context, artifact *types.Artifact) error {
	if err := r.forwarder.Forward(ctx, artifact); err != nil {
		r.collector.IncForwardFailure()
		r.logger.Error("downstream forward failed", map[string]any{
			"url":   artifact.URL,
			"size":  artifact.TotalSize(),
			"error": err.Error(),
		})
		return &Error{
			Kind: ErrorForward,
			Err:  fmt.Errorf("forward %s: %w", artifact.URL, err),
		}
	}
	r.collector.IncForwardSuccess()

	if r.archiver != nil {
		if err := r.archiver.ArchiveArtifact(ctx, artifact); err != nil {
			r.collector.IncArchiveWriteFailure()
			r.logger.Warn("archive write failed", map[string]any{
				"url":   artifact.URL,
				"error": err.Error(),
			})
		} else {
			r.collector.IncArchiveWriteSuccess()
		}
	}
	return nil
}

// sweepLocked evicts every session idle for longer than the staleness
// window. Caller must hold r.mu. The sweep piggybacks on traffic: with no
// further submissions, expired entries persist until the next call, an
// accepted bounded-leak trade-off for an ephemeral in-process table.
func (r *Reassembler) sweepLocked(now time.Time) {
	var evicted int64
	for id, sess := range r.sessions {
		if now.Sub(sess.lastActivity) > r.window {
			delete(r.sessions, id)
			evicted++
			r.logger.Warn("session evicted", map[string]any{
				"session_id":      id,
				"received_chunks": sess.receivedChunks,
				"total_chunks":    sess.totalChunks,
				"idle":            now.Sub(sess.lastActivity).String(),
			})
		}
	}
	if evicted > 0 {
		r.collector.AddSessionsEvicted(evicted)
	}
}

// ActiveSessions returns the current session table size.
func (r *Reassembler) ActiveSessions() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// receivedChunks reports a session's progress, or -1 when absent.
// Test helper.
func (r *Reassembler) receivedCount(sessionID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if sess, ok := r.sessions[sessionID]; ok {
		return sess.receivedChunks
	}
	return -1
}
