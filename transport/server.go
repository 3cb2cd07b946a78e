package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/justapithecus/flume/log"
	"github.com/justapithecus/flume/metrics"
	"github.com/justapithecus/flume/relay"
	"github.com/justapithecus/flume/types"
	"github.com/justapithecus/flume/wire"
)

// Server accepts relay connections and feeds submissions into a session
// reassembler. Each connection carries strictly alternating
// request/response frames and is served by its own goroutine.
type Server struct {
	reassembler *relay.Reassembler
	collector   *metrics.Collector
	logger      *log.Logger

	mu       sync.Mutex
	listener net.Listener
	conns    map[net.Conn]struct{}
	wg       sync.WaitGroup
}

// NewServer builds a server. The collector may be nil; stats queries then
// report zero counters.
func NewServer(reassembler *relay.Reassembler, collector *metrics.Collector, logger *log.Logger) *Server {
	return &Server{
		reassembler: reassembler,
		collector:   collector,
		logger:      logger,
		conns:       make(map[net.Conn]struct{}),
	}
}

// Listen binds the server to addr. addr accepts the same forms as
// ParseListenAddr.
func (s *Server) Listen(addr string) error {
	network, address, err := ParseListenAddr(addr)
	if err != nil {
		return err
	}
	ln, err := net.Listen(network, address)
	if err != nil {
		return fmt.Errorf("transport: listen %s: %w", addr, err)
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()
	s.logger.Info("listening", map[string]any{"addr": ln.Addr().String()})
	return nil
}

// Addr returns the bound address. Valid after Listen.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Serve accepts connections until ctx is canceled or the listener fails.
// Returns nil on clean shutdown.
func (s *Server) Serve(ctx context.Context) error {
	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()
	if ln == nil {
		return errors.New("transport: Serve called before Listen")
	}

	stop := context.AfterFunc(ctx, func() {
		ln.Close()
		s.closeConns()
	})
	defer stop()

	for {
		conn, err := ln.Accept()
		if err != nil {
			s.wg.Wait()
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("transport: accept: %w", err)
		}
		if !s.trackConn(ctx, conn) {
			continue
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.untrackConn(conn)
			s.handleConn(ctx, conn)
		}()
	}
}

// trackConn registers an open connection so shutdown can close it and
// unblock its read loop. A connection accepted after cancellation is
// closed immediately and not served.
func (s *Server) trackConn(ctx context.Context, conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ctx.Err() != nil {
		conn.Close()
		return false
	}
	s.conns[conn] = struct{}{}
	return true
}

func (s *Server) untrackConn(conn net.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
}

func (s *Server) closeConns() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.conns {
		conn.Close()
	}
}

// handleConn serves one connection until EOF, a fatal frame error, or
// context cancellation.
func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	remote := conn.RemoteAddr().String()
	s.logger.Debug("connection accepted", map[string]any{"remote": remote})

	dec := wire.NewFrameDecoder(conn)
	enc := wire.NewFrameEncoder(conn)

	for {
		payload, err := dec.ReadFrame()
		if err != nil {
			s.logConnEnd(remote, err)
			return
		}

		frame, err := wire.DecodeFrame(payload)
		if err != nil {
			if wire.IsFatalFrameError(err) {
				s.logConnEnd(remote, err)
				return
			}
			// Undecodable but well-framed input gets an error reply and
			// the connection stays up.
			if writeErr := enc.WriteFrame(resultForError(err)); writeErr != nil {
				s.logConnEnd(remote, writeErr)
				return
			}
			continue
		}

		reply := s.dispatch(ctx, frame)
		if err := enc.WriteFrame(reply); err != nil {
			s.logConnEnd(remote, err)
			return
		}
	}
}

// dispatch routes one decoded frame to the reassembler or the stats
// snapshot and produces the reply frame.
func (s *Server) dispatch(ctx context.Context, frame any) any {
	switch f := frame.(type) {
	case *types.ChunkFrame:
		result, err := s.reassembler.SubmitChunk(ctx, f.Chunk())
		return resultFrame(result, err)
	case *types.ArtifactFrame:
		result, err := s.reassembler.SubmitArtifact(ctx, f.Artifact())
		return resultFrame(result, err)
	case *types.StatsRequestFrame:
		return s.statsFrame()
	default:
		return resultForError(fmt.Errorf("unsupported frame type %T", frame))
	}
}

func (s *Server) statsFrame() *types.StatsFrame {
	snap := s.collector.Snapshot()
	return &types.StatsFrame{
		Type:                types.FrameTypeStatsResult,
		ActiveSessions:      int64(s.reassembler.ActiveSessions()),
		ChunksReceived:      snap.ChunksReceived,
		ChunksRejected:      snap.ChunksRejected,
		SessionsStarted:     snap.SessionsStarted,
		SessionsCompleted:   snap.SessionsCompleted,
		SessionsEvicted:     snap.SessionsEvicted,
		DirectSubmits:       snap.DirectSubmits,
		ForwardSuccess:      snap.ForwardSuccess,
		ForwardFailure:      snap.ForwardFailure,
		FetchSuccess:        snap.FetchSuccess,
		FetchFailure:        snap.FetchFailure,
		ArchiveWriteSuccess: snap.ArchiveWriteSuccess,
		ArchiveWriteFailure: snap.ArchiveWriteFailure,
	}
}

func (s *Server) logConnEnd(remote string, err error) {
	if errors.Is(err, net.ErrClosed) {
		return
	}
	fields := map[string]any{"remote": remote}
	if !errors.Is(err, io.EOF) {
		fields["error"] = err.Error()
		s.logger.Warn("connection closed", fields)
		return
	}
	s.logger.Debug("connection closed", fields)
}

// resultFrame converts a reassembler outcome to a wire result frame.
func resultFrame(result *types.SubmitResult, err error) *types.ResultFrame {
	if err != nil {
		return resultForError(err)
	}
	return &types.ResultFrame{
		Type:     types.FrameTypeResult,
		OK:       true,
		Complete: result.Complete,
	}
}

func resultForError(err error) *types.ResultFrame {
	frame := &types.ResultFrame{
		Type:  types.FrameTypeResult,
		Error: err.Error(),
	}
	var relayErr *relay.Error
	if errors.As(err, &relayErr) {
		frame.ErrorKind = errorKindLabel(relayErr.Kind)
	} else {
		frame.ErrorKind = "protocol"
	}
	return frame
}
