package relay

import (
	"context"

	"github.com/justapithecus/flume/types"
)

// Local is an in-process Transport backed directly by a Reassembler.
// It is the degenerate form of the relay channel: both halves live in one
// process and the "RPC" is a plain method call.
type Local struct {
	reassembler *Reassembler
}

// NewLocal creates an in-process transport over the given reassembler.
func NewLocal(r *Reassembler) *Local {
	return &Local{reassembler: r}
}

// SubmitChunk delivers the chunk straight to the reassembler.
func (l *Local) SubmitChunk(ctx context.Context, chunk *types.Chunk) (*types.SubmitResult, error) {
	return l.reassembler.SubmitChunk(ctx, chunk)
}

// SubmitArtifact delivers the artifact straight to the reassembler.
func (l *Local) SubmitArtifact(ctx context.Context, artifact *types.Artifact) (*types.SubmitResult, error) {
	return l.reassembler.SubmitArtifact(ctx, artifact)
}

// Verify Local implements the transport interface.
var _ Transport = (*Local)(nil)
