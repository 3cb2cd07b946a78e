package archive

import (
	"strings"
	"testing"
	"time"

	"github.com/justapithecus/lode/lode"

	"github.com/justapithecus/flume/types"
)

func memoryWriter(t *testing.T) *Writer {
	t.Helper()
	w, err := NewWriter(Config{Dataset: "flume-test"}, lode.NewMemoryFactory())
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}
	w.now = func() time.Time {
		return time.Date(2026, 2, 3, 12, 0, 0, 0, time.UTC)
	}
	return w
}

func TestWriter_ArchiveArtifact(t *testing.T) {
	w := memoryWriter(t)
	ctx := t.Context()

	artifact := &types.Artifact{
		URL:      "https://example.com/index.html",
		Request:  []byte("GET /index.html HTTP/1.1\r\n\r\n"),
		Response: []byte("HTTP/1.1 200 OK\r\n\r\n<html></html>"),
	}
	if err := w.ArchiveArtifact(ctx, artifact); err != nil {
		t.Fatalf("ArchiveArtifact failed: %v", err)
	}

	snap, err := w.dataset.Latest(ctx)
	if err != nil {
		t.Fatalf("Latest failed: %v", err)
	}

	var paths []string
	for _, f := range snap.Manifest.Files {
		paths = append(paths, f.Path)
	}
	if len(paths) != 1 {
		t.Fatalf("expected 1 file, got %v", paths)
	}
	if !strings.Contains(paths[0], "host=example.com") {
		t.Errorf("path %q missing host partition", paths[0])
	}
	if !strings.Contains(paths[0], "day=2026-02-03") {
		t.Errorf("path %q missing day partition", paths[0])
	}

	records, err := w.dataset.Read(ctx, snap.ID)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	record, ok := records[0].(map[string]any)
	if !ok {
		t.Fatalf("unexpected record type %T", records[0])
	}
	if record["request_url"] != artifact.URL {
		t.Errorf("request_url = %v, want %s", record["request_url"], artifact.URL)
	}
	if record["request"] != string(artifact.Request) {
		t.Errorf("request = %v", record["request"])
	}
	if record["response"] != string(artifact.Response) {
		t.Errorf("response = %v", record["response"])
	}
	if record["captured_at"] != "2026-02-03T12:00:00Z" {
		t.Errorf("captured_at = %v", record["captured_at"])
	}
}

func TestWriter_UnparsableURLPartition(t *testing.T) {
	w := memoryWriter(t)
	ctx := t.Context()

	artifact := &types.Artifact{
		URL:      "::not a url::",
		Request:  []byte("x"),
		Response: []byte("y"),
	}
	if err := w.ArchiveArtifact(ctx, artifact); err != nil {
		t.Fatalf("ArchiveArtifact failed: %v", err)
	}

	snap, err := w.dataset.Latest(ctx)
	if err != nil {
		t.Fatalf("Latest failed: %v", err)
	}
	if len(snap.Manifest.Files) != 1 {
		t.Fatalf("expected 1 file, got %d", len(snap.Manifest.Files))
	}
	if !strings.Contains(snap.Manifest.Files[0].Path, "host=unknown") {
		t.Errorf("path %q should use the catch-all host partition", snap.Manifest.Files[0].Path)
	}
}

func TestWriter_FSBackend(t *testing.T) {
	w, err := NewFSWriter(Config{}, t.TempDir())
	if err != nil {
		t.Fatalf("NewFSWriter failed: %v", err)
	}
	if err := w.ArchiveArtifact(t.Context(), &types.Artifact{
		URL:      "https://example.com/a",
		Request:  []byte("req"),
		Response: []byte("resp"),
	}); err != nil {
		t.Fatalf("ArchiveArtifact failed: %v", err)
	}
}

func TestS3Config_Validate(t *testing.T) {
	cfg := S3Config{}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for missing bucket")
	}
	cfg.Bucket = "captures"
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
