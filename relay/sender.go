package relay

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/justapithecus/flume/log"
	"github.com/justapithecus/flume/types"
)

// DefaultChunkThreshold is the default chunk size boundary (500 KiB).
// Artifacts whose combined payload size fits under the threshold are
// submitted directly; larger ones are partitioned into threshold-sized
// pieces. A policy constant, not a protocol invariant.
const DefaultChunkThreshold = 500 * 1024

// Transport moves a single submission from the capture side to the
// receiving side. Implementations must be synchronous: the returned result
// reflects the receiving side's processing of this exact call.
type Transport interface {
	// SubmitChunk delivers one chunk and returns the receiving side's
	// result, including the completion signal on the final chunk.
	SubmitChunk(ctx context.Context, chunk *types.Chunk) (*types.SubmitResult, error)

	// SubmitArtifact delivers a complete artifact in a single call.
	SubmitArtifact(ctx context.Context, artifact *types.Artifact) (*types.SubmitResult, error)
}

// SenderConfig configures a Sender.
type SenderConfig struct {
	// ChunkThreshold is the chunking decision boundary and piece size in
	// bytes. Zero means DefaultChunkThreshold.
	ChunkThreshold int
}

// Sender presents a uniform "send this artifact" operation regardless of
// size, hiding the chunking decision from callers.
type Sender struct {
	transport Transport
	threshold int
	logger    *log.Logger

	// newSessionID is swappable in tests.
	newSessionID func() string
}

// NewSender creates a Sender over the given transport.
func NewSender(transport Transport, cfg SenderConfig, logger *log.Logger) *Sender {
	threshold := cfg.ChunkThreshold
	if threshold <= 0 {
		threshold = DefaultChunkThreshold
	}
	return &Sender{
		transport:    transport,
		threshold:    threshold,
		logger:       logger,
		newSessionID: NewSessionID,
	}
}

// NewSessionID generates a session identifier unique with high probability:
// a wall-clock millisecond component plus a random UUID component.
// Collision risk within the staleness window is negligible.
func NewSessionID() string {
	return fmt.Sprintf("%d-%s", time.Now().UnixMilli(), uuid.NewString())
}

// Send delivers the artifact. Artifacts at or under the chunk threshold go
// out as a single direct submission; larger ones are partitioned and sent
// as a strictly sequential chunk stream. The call that reports session
// completion makes the overall send successful.
func (s *Sender) Send(ctx context.Context, artifact *types.Artifact) error {
	if artifact.TotalSize() <= s.threshold {
		if _, err := s.transport.SubmitArtifact(ctx, artifact); err != nil {
			return classify(err, "direct submit")
		}
		s.logger.Debug("artifact submitted directly", map[string]any{
			"url":  artifact.URL,
			"size": artifact.TotalSize(),
		})
		return nil
	}
	return s.sendChunked(ctx, artifact)
}

// sendChunked partitions the two payload streams independently and drives
// the sequential send loop. Each call is awaited before the next is issued:
// the transport preserves call order only because the sender serializes it.
func (s *Sender) sendChunked(ctx context.Context, artifact *types.Artifact) error {
	sessionID := s.newSessionID()
	requestPieces := partition(artifact.Request, s.threshold)
	responsePieces := partition(artifact.Response, s.threshold)
	totalChunks := max(len(requestPieces), len(responsePieces))

	s.logger.Debug("starting chunked transfer", map[string]any{
		"session_id":   sessionID,
		"url":          artifact.URL,
		"size":         artifact.TotalSize(),
		"total_chunks": totalChunks,
	})

	for index := range totalChunks {
		chunk := &types.Chunk{
			SessionID:   sessionID,
			Index:       index,
			TotalChunks: totalChunks,
		}
		// The URL travels only on the first chunk.
		if index == 0 {
			chunk.RequestURL = artifact.URL
		}
		if index < len(requestPieces) {
			chunk.RequestPiece = requestPieces[index]
		}
		if index < len(responsePieces) {
			chunk.ResponsePiece = responsePieces[index]
		}

		result, err := s.transport.SubmitChunk(ctx, chunk)
		if err != nil {
			// Fail fast: abandon remaining chunks. The receiving side's
			// staleness sweep reclaims the partial session.
			s.logger.Error("chunk submission failed", map[string]any{
				"session_id": sessionID,
				"index":      index,
				"error":      err.Error(),
			})
			return classify(err, fmt.Sprintf("chunk %d of %d", index, totalChunks))
		}

		if result.Complete {
			s.logger.Debug("chunked transfer complete", map[string]any{
				"session_id": sessionID,
				"chunks":     index + 1,
			})
			return nil
		}
	}

	// The loop exhausted every chunk without a completion signal. This is
	// a protocol-consistency failure, distinct from a transport failure.
	return &Error{
		Kind: ErrorProtocol,
		Err:  fmt.Errorf("session %s: not all chunks were processed", sessionID),
	}
}

// partition splits data into size-bounded pieces. The final piece carries
// the remainder. Nil input yields no pieces.
func partition(data []byte, size int) [][]byte {
	if len(data) == 0 {
		return nil
	}
	pieces := make([][]byte, 0, (len(data)+size-1)/size)
	for start := 0; start < len(data); start += size {
		end := min(start+size, len(data))
		pieces = append(pieces, data[start:end])
	}
	return pieces
}

// classify wraps a submission error, preserving the relay error kind when
// the transport already reported one and defaulting to transport otherwise.
func classify(err error, op string) *Error {
	wrapped := fmt.Errorf("%s: %w", op, err)
	var relayErr *Error
	if errors.As(err, &relayErr) {
		return &Error{Kind: relayErr.Kind, Err: wrapped}
	}
	return &Error{Kind: ErrorTransport, Err: wrapped}
}
