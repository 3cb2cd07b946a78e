package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"

	"github.com/justapithecus/flume/types"
)

func TestFrame_ChunkRoundTrip(t *testing.T) {
	chunk := &types.Chunk{
		SessionID:     "1700000000000-abc",
		Index:         0,
		TotalChunks:   3,
		RequestURL:    "https://example.com/app.js",
		RequestPiece:  []byte("GET /app.js HTTP/1.1\r\n"),
		ResponsePiece: []byte("HTTP/1.1 200 OK\r\n"),
	}

	var buf bytes.Buffer
	enc := NewFrameEncoder(&buf)
	if err := enc.WriteFrame(types.ChunkFrameFor(chunk)); err != nil {
		t.Fatalf("WriteFrame failed: %v", err)
	}

	dec := NewFrameDecoder(&buf)
	payload, err := dec.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame failed: %v", err)
	}

	decoded, err := DecodeFrame(payload)
	if err != nil {
		t.Fatalf("DecodeFrame failed: %v", err)
	}

	frame, ok := decoded.(*types.ChunkFrame)
	if !ok {
		t.Fatalf("decoded type = %T, want *types.ChunkFrame", decoded)
	}

	got := frame.Chunk()
	if got.SessionID != chunk.SessionID {
		t.Errorf("SessionID = %q, want %q", got.SessionID, chunk.SessionID)
	}
	if got.TotalChunks != chunk.TotalChunks {
		t.Errorf("TotalChunks = %d, want %d", got.TotalChunks, chunk.TotalChunks)
	}
	if !bytes.Equal(got.RequestPiece, chunk.RequestPiece) {
		t.Errorf("RequestPiece = %q, want %q", got.RequestPiece, chunk.RequestPiece)
	}
	if !bytes.Equal(got.ResponsePiece, chunk.ResponsePiece) {
		t.Errorf("ResponsePiece = %q, want %q", got.ResponsePiece, chunk.ResponsePiece)
	}
}

func TestFrame_ChunkAbsentPieces(t *testing.T) {
	// A non-zero chunk may carry only one of the two streams.
	chunk := &types.Chunk{
		SessionID:     "s",
		Index:         2,
		TotalChunks:   3,
		ResponsePiece: []byte("tail"),
	}

	var buf bytes.Buffer
	if err := NewFrameEncoder(&buf).WriteFrame(types.ChunkFrameFor(chunk)); err != nil {
		t.Fatalf("WriteFrame failed: %v", err)
	}

	payload, err := NewFrameDecoder(&buf).ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame failed: %v", err)
	}
	decoded, err := DecodeFrame(payload)
	if err != nil {
		t.Fatalf("DecodeFrame failed: %v", err)
	}
	frame := decoded.(*types.ChunkFrame)

	if frame.RequestPiece != nil {
		t.Errorf("RequestPiece = %v, want nil (absent)", frame.RequestPiece)
	}
	if frame.RequestURL != "" {
		t.Errorf("RequestURL = %q, want empty on non-zero index", frame.RequestURL)
	}
	if !bytes.Equal(frame.ResponsePiece, []byte("tail")) {
		t.Errorf("ResponsePiece = %q, want %q", frame.ResponsePiece, "tail")
	}
}

func TestFrame_ArtifactRoundTrip(t *testing.T) {
	artifact := &types.Artifact{
		URL:      "https://example.com/",
		Request:  []byte("GET / HTTP/1.1\r\n\r\n"),
		Response: []byte("HTTP/1.1 200 OK\r\n\r\nhello"),
	}

	var buf bytes.Buffer
	if err := NewFrameEncoder(&buf).WriteFrame(types.ArtifactFrameFor(artifact)); err != nil {
		t.Fatalf("WriteFrame failed: %v", err)
	}

	payload, err := NewFrameDecoder(&buf).ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame failed: %v", err)
	}
	decoded, err := DecodeFrame(payload)
	if err != nil {
		t.Fatalf("DecodeFrame failed: %v", err)
	}
	frame, ok := decoded.(*types.ArtifactFrame)
	if !ok {
		t.Fatalf("decoded type = %T, want *types.ArtifactFrame", decoded)
	}

	got := frame.Artifact()
	if got.URL != artifact.URL {
		t.Errorf("URL = %q, want %q", got.URL, artifact.URL)
	}
	if !bytes.Equal(got.Request, artifact.Request) || !bytes.Equal(got.Response, artifact.Response) {
		t.Error("payload bytes did not round-trip")
	}
}

func TestFrame_ResultAndStats(t *testing.T) {
	var buf bytes.Buffer
	enc := NewFrameEncoder(&buf)

	frames := []any{
		&types.ResultFrame{Type: types.FrameTypeResult, OK: true, Complete: true},
		&types.StatsRequestFrame{Type: types.FrameTypeStats},
		&types.StatsFrame{Type: types.FrameTypeStatsResult, ActiveSessions: 2, ChunksReceived: 9},
	}
	for _, f := range frames {
		if err := enc.WriteFrame(f); err != nil {
			t.Fatalf("WriteFrame failed: %v", err)
		}
	}

	dec := NewFrameDecoder(&buf)

	payload, err := dec.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame failed: %v", err)
	}
	decoded, err := DecodeFrame(payload)
	if err != nil {
		t.Fatalf("DecodeFrame failed: %v", err)
	}
	result, ok := decoded.(*types.ResultFrame)
	if !ok || !result.OK || !result.Complete {
		t.Fatalf("result frame = %#v", decoded)
	}

	payload, err = dec.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame failed: %v", err)
	}
	decoded, err = DecodeFrame(payload)
	if err != nil {
		t.Fatalf("DecodeFrame failed: %v", err)
	}
	if _, ok := decoded.(*types.StatsRequestFrame); !ok {
		t.Fatalf("stats request frame = %T", decoded)
	}

	payload, err = dec.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame failed: %v", err)
	}
	decoded, err = DecodeFrame(payload)
	if err != nil {
		t.Fatalf("DecodeFrame failed: %v", err)
	}
	stats, ok := decoded.(*types.StatsFrame)
	if !ok || stats.ActiveSessions != 2 || stats.ChunksReceived != 9 {
		t.Fatalf("stats frame = %#v", decoded)
	}
}

func TestFrameDecoder_EOF(t *testing.T) {
	dec := NewFrameDecoder(bytes.NewReader(nil))
	_, err := dec.ReadFrame()
	if err != io.EOF {
		t.Fatalf("err = %v, want io.EOF", err)
	}
}

func TestFrameDecoder_TruncatedPayload(t *testing.T) {
	// Length prefix declares 100 bytes but only 10 follow.
	var buf bytes.Buffer
	var lengthBuf [LengthPrefixSize]byte
	binary.BigEndian.PutUint32(lengthBuf[:], 100)
	buf.Write(lengthBuf[:])
	buf.Write(make([]byte, 10))

	_, err := NewFrameDecoder(&buf).ReadFrame()
	var frameErr *FrameError
	if !errors.As(err, &frameErr) {
		t.Fatalf("err = %v, want *FrameError", err)
	}
	if frameErr.Kind != FrameErrorPartial {
		t.Errorf("Kind = %d, want FrameErrorPartial", frameErr.Kind)
	}
	if !IsFatalFrameError(err) {
		t.Error("truncated frame should be fatal")
	}
}

func TestFrameDecoder_TooLarge(t *testing.T) {
	var buf bytes.Buffer
	var lengthBuf [LengthPrefixSize]byte
	binary.BigEndian.PutUint32(lengthBuf[:], MaxPayloadSize+1)
	buf.Write(lengthBuf[:])

	_, err := NewFrameDecoder(&buf).ReadFrame()
	var frameErr *FrameError
	if !errors.As(err, &frameErr) {
		t.Fatalf("err = %v, want *FrameError", err)
	}
	if frameErr.Kind != FrameErrorTooLarge {
		t.Errorf("Kind = %d, want FrameErrorTooLarge", frameErr.Kind)
	}
	if !IsFatalFrameError(err) {
		t.Error("oversized frame should be fatal")
	}
}

func TestFrameEncoder_RejectsOversizedPayload(t *testing.T) {
	var buf bytes.Buffer
	enc := NewFrameEncoder(&buf)

	frame := types.ArtifactFrameFor(&types.Artifact{
		URL:      "https://example.com/huge",
		Response: make([]byte, MaxPayloadSize+1),
	})

	err := enc.WriteFrame(frame)
	var frameErr *FrameError
	if !errors.As(err, &frameErr) {
		t.Fatalf("err = %v, want *FrameError", err)
	}
	if frameErr.Kind != FrameErrorTooLarge {
		t.Errorf("Kind = %d, want FrameErrorTooLarge", frameErr.Kind)
	}
	if buf.Len() != 0 {
		t.Errorf("oversized frame was partially written: %d bytes", buf.Len())
	}
}

func TestDecodeFrame_UnknownType(t *testing.T) {
	var buf bytes.Buffer
	if err := NewFrameEncoder(&buf).WriteFrame(map[string]any{"type": "bogus"}); err != nil {
		t.Fatalf("WriteFrame failed: %v", err)
	}

	payload, err := NewFrameDecoder(&buf).ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame failed: %v", err)
	}

	_, err = DecodeFrame(payload)
	var frameErr *FrameError
	if !errors.As(err, &frameErr) {
		t.Fatalf("err = %v, want *FrameError", err)
	}
	if frameErr.Kind != FrameErrorDecode {
		t.Errorf("Kind = %d, want FrameErrorDecode", frameErr.Kind)
	}
}
