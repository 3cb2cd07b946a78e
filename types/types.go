//nolint:revive // types is a common Go package naming convention
package types

// Artifact is the unit of relay work: a captured URL plus the raw request
// and response bytes observed for it.
//
// An Artifact is immutable once constructed and exclusively owned by
// whichever component currently holds it (the sender, a session, or the
// forwarder at the moment of the final call).
type Artifact struct {
	// URL is the request URL the capture was observed for.
	URL string
	// Request is the raw request bytes.
	Request []byte
	// Response is the raw response bytes.
	Response []byte
}

// TotalSize returns the combined payload size in bytes. The chunking
// decision is made against this value, not against either stream alone.
func (a *Artifact) TotalSize() int {
	return len(a.Request) + len(a.Response)
}

// Chunk is one bounded-size fragment of an artifact's payloads plus
// session metadata. Chunks are transient messages: they are not retained
// after being folded into a session.
type Chunk struct {
	// SessionID identifies the in-flight transfer this chunk belongs to.
	SessionID string
	// Index is the zero-based position of this chunk within the session.
	Index int
	// TotalChunks is the number of chunks the sender will emit.
	TotalChunks int
	// RequestURL carries the artifact URL. Only meaningful when Index == 0.
	RequestURL string
	// RequestPiece is the request fragment at this index. Nil when the
	// request stream has no piece at this position.
	RequestPiece []byte
	// ResponsePiece is the response fragment at this index. Nil when the
	// response stream has no piece at this position.
	ResponsePiece []byte
}

// SubmitResult reports the outcome of a chunk or direct submission.
type SubmitResult struct {
	// Complete is true when the submission completed a session (or was a
	// direct submission, which completes immediately).
	Complete bool
}
