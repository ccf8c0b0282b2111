package inbox

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu    sync.Mutex
	paths []string
	err   error
}

func (r *recorder) handle(_ context.Context, path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, filepath.Base(path))
	return r.err
}

func (r *recorder) seen() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.paths...)
}

func startWatcher(t *testing.T, w *Watcher, r *recorder) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, r.handle) }()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
	})
	// Give the watcher time to register the directory.
	time.Sleep(50 * time.Millisecond)
}

func TestMatches(t *testing.T) {
	w := &Watcher{}
	assert.True(t, w.matches("/in/Syllabus.PDF"))
	assert.True(t, w.matches("paper.pdf"))
	assert.False(t, w.matches("notes.txt"))
	assert.False(t, w.matches(".hidden.pdf"))
	assert.False(t, w.matches("paper.pdf.part"))
	assert.False(t, w.matches("paper.pdf.crdownload"))

	w.Patterns = []string{"pyq-*.pdf"}
	assert.True(t, w.matches("PYQ-2023.pdf"))
	assert.False(t, w.matches("syllabus.pdf"))
}

func TestWatcherHandlesNewPDFOnce(t *testing.T) {
	dir := t.TempDir()
	r := &recorder{}
	startWatcher(t, &Watcher{Dir: dir, Settle: 40 * time.Millisecond}, r)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	path := filepath.Join(dir, "os.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0o644))

	require.Eventually(t, func() bool { return len(r.seen()) == 1 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, []string{"os.pdf"}, r.seen())
}

func TestWatcherHandlesSubdirectoryAndExisting(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "old.pdf"), []byte("%PDF"), 0o644))

	r := &recorder{err: errors.New("backend down")}
	startWatcher(t, &Watcher{Dir: dir, Settle: 40 * time.Millisecond, Existing: true}, r)
	require.Eventually(t, func() bool { return len(r.seen()) == 1 }, 2*time.Second, 10*time.Millisecond)

	sub := filepath.Join(dir, "week2")
	require.NoError(t, os.Mkdir(sub, 0o755))
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(sub, "new.pdf"), []byte("%PDF"), 0o644))

	require.Eventually(t, func() bool { return len(r.seen()) == 2 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"old.pdf", "new.pdf"}, r.seen())
}
