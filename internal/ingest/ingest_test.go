package ingest

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/doctext/constants"
	"github.com/joseph-ayodele/doctext/internal/core/extract"
	"github.com/joseph-ayodele/doctext/internal/pipeline"
)

type stubRunner struct {
	mu   sync.Mutex
	reqs []pipeline.Request
}

func (s *stubRunner) Run(_ context.Context, req pipeline.Request) (pipeline.Outcome, error) {
	s.mu.Lock()
	s.reqs = append(s.reqs, req)
	s.mu.Unlock()
	switch filepath.Base(req.Path) {
	case "locked.pdf":
		return pipeline.Outcome{Status: constants.JobStatusNeedsPassword},
			&extract.Error{Kind: extract.KindPasswordRequired, Message: "document is password protected"}
	case "broken.docx":
		return pipeline.Outcome{Status: constants.JobStatusFailed}, errors.New("corrupt")
	case "again.txt":
		return pipeline.Outcome{ExtractionID: uuid.New(), Status: constants.JobStatusOK, Duplicate: true}, nil
	}
	return pipeline.Outcome{ExtractionID: uuid.New(), Status: constants.JobStatusOK, Result: extract.Result{Confidence: 100}}, nil
}

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("content"), 0o600))
}

func TestExtractDirectory(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{
		"a.pdf", "scan.PNG", "sub/sheet.xlsx", "again.txt",
		"locked.pdf", "broken.docx", "notes.exe", ".hidden/secret.pdf", ".dot.txt",
	} {
		touch(t, filepath.Join(root, name))
	}

	r := &stubRunner{}
	results, stats, err := ExtractDirectory(context.Background(), r, root, DirOptions{SkipHidden: true, Password: "pw"}, nil)
	require.NoError(t, err)

	assert.Equal(t, uint32(6), stats.Matched)
	assert.Equal(t, uint32(4), stats.Succeeded)
	assert.Equal(t, uint32(1), stats.Deduplicated)
	assert.Equal(t, uint32(1), stats.NeedsPassword)
	assert.Equal(t, uint32(1), stats.Failed)
	assert.Len(t, results, 6)

	var seen []string
	for _, req := range r.reqs {
		rel, _ := filepath.Rel(root, req.Path)
		seen = append(seen, filepath.ToSlash(rel))
		assert.Equal(t, "pw", req.Password)
	}
	sort.Strings(seen)
	assert.Equal(t, []string{"a.pdf", "again.txt", "broken.docx", "locked.pdf", "scan.PNG", "sub/sheet.xlsx"}, seen)
}

func TestExtractDirectory_IncludeFilter(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "a.pdf"))
	touch(t, filepath.Join(root, "b.png"))
	touch(t, filepath.Join(root, "c.exe"))

	r := &stubRunner{}
	_, stats, err := ExtractDirectory(context.Background(), r, root, DirOptions{IncludeExts: []string{".PDF", "exe"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), stats.Matched)
	require.Len(t, r.reqs, 1)
	assert.Equal(t, "a.pdf", filepath.Base(r.reqs[0].Path))
}

func TestExtractDirectory_RequiresRoot(t *testing.T) {
	_, _, err := ExtractDirectory(context.Background(), &stubRunner{}, "  ", DirOptions{}, nil)
	require.Error(t, err)
}

func TestExtractDirectory_Cancelled(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "a.pdf"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := ExtractDirectory(ctx, &stubRunner{}, root, DirOptions{}, nil)
	require.ErrorIs(t, err, context.Canceled)
}

func TestAllowedExtAndHidden(t *testing.T) {
	assert.True(t, AllowedExt(".WEBP"))
	assert.True(t, AllowedExt("markdown"))
	assert.False(t, AllowedExt("exe"))
	assert.True(t, IsHidden("/tmp/.cache"))
	assert.False(t, IsHidden("/tmp/cache"))
	assert.False(t, IsHidden("."))
}

func receive(t *testing.T, ch <-chan string) string {
	t.Helper()
	select {
	case p, ok := <-ch:
		require.True(t, ok, "channel closed")
		return p
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for watch event")
		return ""
	}
}

func TestStartWatcher_InitialScanAndNewFiles(t *testing.T) {
	root := t.TempDir()
	existing := filepath.Join(root, "old.pdf")
	touch(t, existing)
	touch(t, filepath.Join(root, "skip.exe"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, _, err := StartWatcher(ctx, WatchConfig{Roots: []string{root}, InitialScan: true, Debounce: 20 * time.Millisecond})
	require.NoError(t, err)

	assert.Equal(t, existing, receive(t, events))

	created := filepath.Join(root, "new.txt")
	touch(t, created)
	assert.Equal(t, created, receive(t, events))

	cancel()
	for range events {
	}
}

func TestStartWatcher_NoRoots(t *testing.T) {
	_, _, err := StartWatcher(context.Background(), WatchConfig{})
	require.Error(t, err)
}

func TestDebouncer_FullChannelLogsDroppedPaths(t *testing.T) {
	var logs bytes.Buffer
	out := make(chan string, 1)
	d := &debouncer{
		out:     out,
		pending: map[string]struct{}{"/in/a.pdf": {}, "/in/b.pdf": {}},
		logger:  slog.New(slog.NewTextHandler(&logs, nil)),
	}

	d.flush()

	require.Len(t, out, 1)
	delivered := <-out
	assert.Empty(t, d.pending)

	dropped := "/in/a.pdf"
	if delivered == dropped {
		dropped = "/in/b.pdf"
	}
	assert.Contains(t, logs.String(), "watch channel full, dropping event")
	assert.Contains(t, logs.String(), "path="+dropped)
}
