package types

// Frame type discriminants for the relay wire protocol.
// All frames carry a "type" field as the first-class discriminator.
const (
	// FrameTypeChunk is a chunk submission frame.
	FrameTypeChunk = "chunk"
	// FrameTypeArtifact is a direct (unchunked) artifact submission frame.
	FrameTypeArtifact = "artifact"
	// FrameTypeResult is the response frame for chunk and artifact submissions.
	FrameTypeResult = "result"
	// FrameTypeStats is a stats request frame.
	FrameTypeStats = "stats"
	// FrameTypeStatsResult is the response frame for stats requests.
	FrameTypeStatsResult = "stats_result"
)

// ChunkFrame is the wire representation of a Chunk.
// Field absence is expressed by omission: RequestURL only appears on
// index 0; piece fields are omitted when the corresponding stream has no
// fragment at this index.
type ChunkFrame struct {
	// Type is always "chunk" for chunk frames.
	Type string `msgpack:"type"`
	// SessionID identifies the in-flight transfer.
	SessionID string `msgpack:"session_id"`
	// Index is the zero-based chunk position.
	Index int `msgpack:"index"`
	// TotalChunks is the declared total number of chunks.
	TotalChunks int `msgpack:"total_chunks"`
	// RequestURL carries the artifact URL, only on index 0.
	RequestURL string `msgpack:"request_url,omitempty"`
	// RequestPiece is the request fragment, nil when absent.
	RequestPiece []byte `msgpack:"request_piece,omitempty"`
	// ResponsePiece is the response fragment, nil when absent.
	ResponsePiece []byte `msgpack:"response_piece,omitempty"`
}

// Chunk converts the frame to the internal chunk representation.
func (f *ChunkFrame) Chunk() *Chunk {
	return &Chunk{
		SessionID:     f.SessionID,
		Index:         f.Index,
		TotalChunks:   f.TotalChunks,
		RequestURL:    f.RequestURL,
		RequestPiece:  f.RequestPiece,
		ResponsePiece: f.ResponsePiece,
	}
}

// ChunkFrameFor builds the wire frame for a chunk.
func ChunkFrameFor(c *Chunk) *ChunkFrame {
	return &ChunkFrame{
		Type:          FrameTypeChunk,
		SessionID:     c.SessionID,
		Index:         c.Index,
		TotalChunks:   c.TotalChunks,
		RequestURL:    c.RequestURL,
		RequestPiece:  c.RequestPiece,
		ResponsePiece: c.ResponsePiece,
	}
}

// ArtifactFrame is the wire representation of a direct artifact submission.
type ArtifactFrame struct {
	// Type is always "artifact" for direct submission frames.
	Type string `msgpack:"type"`
	// URL is the artifact URL.
	URL string `msgpack:"url"`
	// Request is the raw request bytes.
	Request []byte `msgpack:"request"`
	// Response is the raw response bytes.
	Response []byte `msgpack:"response"`
}

// Artifact converts the frame to the internal artifact representation.
func (f *ArtifactFrame) Artifact() *Artifact {
	return &Artifact{URL: f.URL, Request: f.Request, Response: f.Response}
}

// ArtifactFrameFor builds the wire frame for a direct artifact submission.
func ArtifactFrameFor(a *Artifact) *ArtifactFrame {
	return &ArtifactFrame{
		Type:     FrameTypeArtifact,
		URL:      a.URL,
		Request:  a.Request,
		Response: a.Response,
	}
}

// ResultFrame is the tagged success/failure response for submissions.
type ResultFrame struct {
	// Type is always "result" for result frames.
	Type string `msgpack:"type"`
	// OK is true when the submission was accepted.
	OK bool `msgpack:"ok"`
	// Complete is true when the submission completed a session.
	Complete bool `msgpack:"complete"`
	// Error carries the failure message when OK is false.
	Error string `msgpack:"error,omitempty"`
	// ErrorKind labels the failure taxonomy ("transport", "protocol",
	// "forward") so the sending side can preserve it.
	ErrorKind string `msgpack:"error_kind,omitempty"`
}

// StatsRequestFrame requests a stats snapshot from the receiving side.
type StatsRequestFrame struct {
	// Type is always "stats" for stats request frames.
	Type string `msgpack:"type"`
}

// StatsFrame is a point-in-time view of receiver state, answered from the
// metrics collector plus the live session table.
type StatsFrame struct {
	// Type is always "stats_result" for stats response frames.
	Type string `msgpack:"type"`

	// ActiveSessions is the current session table size.
	ActiveSessions int64 `msgpack:"active_sessions"`

	// ChunksReceived counts accepted chunk submissions.
	ChunksReceived int64 `msgpack:"chunks_received"`
	// ChunksRejected counts rejected chunk submissions (protocol violations).
	ChunksRejected int64 `msgpack:"chunks_rejected"`
	// SessionsStarted counts sessions created.
	SessionsStarted int64 `msgpack:"sessions_started"`
	// SessionsCompleted counts sessions that reached completion.
	SessionsCompleted int64 `msgpack:"sessions_completed"`
	// SessionsEvicted counts sessions reclaimed by the staleness sweep.
	SessionsEvicted int64 `msgpack:"sessions_evicted"`
	// DirectSubmits counts unchunked artifact submissions.
	DirectSubmits int64 `msgpack:"direct_submits"`
	// ForwardSuccess counts successful downstream forwards.
	ForwardSuccess int64 `msgpack:"forward_success"`
	// ForwardFailure counts failed downstream forwards.
	ForwardFailure int64 `msgpack:"forward_failure"`
	// FetchSuccess counts successful resource fetches.
	FetchSuccess int64 `msgpack:"fetch_success"`
	// FetchFailure counts failed resource fetches.
	FetchFailure int64 `msgpack:"fetch_failure"`
	// ArchiveWriteSuccess counts successful archive writes.
	ArchiveWriteSuccess int64 `msgpack:"archive_write_success"`
	// ArchiveWriteFailure counts failed archive writes.
	ArchiveWriteFailure int64 `msgpack:"archive_write_failure"`
}
