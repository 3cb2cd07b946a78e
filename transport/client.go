// Package transport carries relay submissions over a network connection
// using length-prefixed msgpack frames. The client side implements the
// relay transport contract; the server side feeds a session reassembler.
package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/justapithecus/flume/relay"
	"github.com/justapithecus/flume/types"
	"github.com/justapithecus/flume/wire"
)

// DefaultDialTimeout bounds connection establishment.
const DefaultDialTimeout = 5 * time.Second

// errorKindLabel maps a relay error kind to its wire label.
func errorKindLabel(kind relay.ErrorKind) string {
	switch kind {
	case relay.ErrorProtocol:
		return "protocol"
	case relay.ErrorForward:
		return "forward"
	default:
		return "transport"
	}
}

// kindForLabel maps a wire label back to a relay error kind. Unknown
// labels degrade to transport: the submission did fail, and transport is
// the kind callers treat most conservatively.
func kindForLabel(label string) relay.ErrorKind {
	switch label {
	case "protocol":
		return relay.ErrorProtocol
	case "forward":
		return relay.ErrorForward
	default:
		return relay.ErrorTransport
	}
}

// Client submits chunks and artifacts to a remote relay server over a
// single connection. One request is in flight at a time; concurrent
// callers are serialized.
type Client struct {
	mu   sync.Mutex
	conn net.Conn
	enc  *wire.FrameEncoder
	dec  *wire.FrameDecoder
}

// Dial connects to a relay server. addr accepts the same forms as
// ParseListenAddr.
func Dial(ctx context.Context, addr string) (*Client, error) {
	network, address, err := ParseListenAddr(addr)
	if err != nil {
		return nil, err
	}
	dialer := net.Dialer{Timeout: DefaultDialTimeout}
	conn, err := dialer.DialContext(ctx, network, address)
	if err != nil {
		return nil, &relay.Error{
			Kind: relay.ErrorTransport,
			Err:  fmt.Errorf("dial %s: %w", addr, err),
		}
	}
	return NewClient(conn), nil
}

// NewClient wraps an established connection.
func NewClient(conn net.Conn) *Client {
	return &Client{
		conn: conn,
		enc:  wire.NewFrameEncoder(conn),
		dec:  wire.NewFrameDecoder(conn),
	}
}

// SubmitChunk sends one chunk and waits for the result.
func (c *Client) SubmitChunk(ctx context.Context, chunk *types.Chunk) (*types.SubmitResult, error) {
	return c.submit(ctx, types.ChunkFrameFor(chunk))
}

// SubmitArtifact sends a complete artifact in a single frame and waits for
// the result.
func (c *Client) SubmitArtifact(ctx context.Context, artifact *types.Artifact) (*types.SubmitResult, error) {
	return c.submit(ctx, types.ArtifactFrameFor(artifact))
}

func (c *Client) submit(ctx context.Context, frame any) (*types.SubmitResult, error) {
	reply, err := c.roundTrip(ctx, frame)
	if err != nil {
		return nil, err
	}
	result, ok := reply.(*types.ResultFrame)
	if !ok {
		return nil, &relay.Error{
			Kind: relay.ErrorProtocol,
			Err:  fmt.Errorf("unexpected reply frame %T", reply),
		}
	}
	if !result.OK {
		return nil, &relay.Error{
			Kind: kindForLabel(result.ErrorKind),
			Err:  errors.New(result.Error),
		}
	}
	return &types.SubmitResult{Complete: result.Complete}, nil
}

// Stats requests a stats snapshot from the server.
func (c *Client) Stats(ctx context.Context) (*types.StatsFrame, error) {
	reply, err := c.roundTrip(ctx, &types.StatsRequestFrame{Type: types.FrameTypeStats})
	if err != nil {
		return nil, err
	}
	stats, ok := reply.(*types.StatsFrame)
	if !ok {
		return nil, &relay.Error{
			Kind: relay.ErrorProtocol,
			Err:  fmt.Errorf("unexpected reply frame %T", reply),
		}
	}
	return stats, nil
}

// roundTrip writes one frame and reads one reply. The connection carries
// strictly alternating request/response frames, so the pair must happen
// under one lock.
func (c *Client) roundTrip(ctx context.Context, frame any) (any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	deadline, hasDeadline := ctx.Deadline()
	if hasDeadline {
		_ = c.conn.SetDeadline(deadline)
		defer c.conn.SetDeadline(time.Time{})
	}

	if err := c.enc.WriteFrame(frame); err != nil {
		return nil, transportErr("write frame", err)
	}
	payload, err := c.dec.ReadFrame()
	if err != nil {
		return nil, transportErr("read reply", err)
	}
	reply, err := wire.DecodeFrame(payload)
	if err != nil {
		return nil, &relay.Error{
			Kind: relay.ErrorProtocol,
			Err:  fmt.Errorf("decode reply: %w", err),
		}
	}
	return reply, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

func transportErr(op string, err error) *relay.Error {
	return &relay.Error{
		Kind: relay.ErrorTransport,
		Err:  fmt.Errorf("%s: %w", op, err),
	}
}

// Verify Client satisfies the relay transport contract.
var _ relay.Transport = (*Client)(nil)
