package relay

import (
	"context"
	"sync"

	"github.com/justapithecus/flume/types"
)

// StubForwarder is a test forwarder that accepts artifacts without
// performing any outbound call. Tracks delivered artifacts for assertions.
type StubForwarder struct {
	mu sync.Mutex

	// Forwarded stores all delivered artifacts in arrival order.
	Forwarded []*types.Artifact
	// ErrorOnForward, if non-nil, is returned by Forward.
	ErrorOnForward error
}

// NewStubForwarder creates a new stub forwarder for testing.
func NewStubForwarder() *StubForwarder {
	return &StubForwarder{Forwarded: make([]*types.Artifact, 0)}
}

// Forward records the artifact without performing any call.
func (s *StubForwarder) Forward(_ context.Context, artifact *types.Artifact) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ErrorOnForward != nil {
		return s.ErrorOnForward
	}
	s.Forwarded = append(s.Forwarded, artifact)
	return nil
}

// Count returns the number of forwarded artifacts.
func (s *StubForwarder) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Forwarded)
}

// Last returns the most recently forwarded artifact, or nil.
func (s *StubForwarder) Last() *types.Artifact {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.Forwarded) == 0 {
		return nil
	}
	return s.Forwarded[len(s.Forwarded)-1]
}

// Verify StubForwarder implements the forwarder interface.
var _ Forwarder = (*StubForwarder)(nil)
