// Package inbox watches a drop folder and hands every new PDF to a handler,
// once the file has stopped changing.
package inbox

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultSettle is how long a file must stay quiet before it is handled.
const DefaultSettle = 500 * time.Millisecond

// Handler processes one settled file.
type Handler func(ctx context.Context, path string) error

// Watcher watches Dir and its subdirectories.
type Watcher struct {
	Dir string
	// Patterns are glob patterns matched case-insensitively against the base
	// name. Empty means "*.pdf".
	Patterns []string
	Settle   time.Duration
	// Existing also handles matching files present when Run starts.
	Existing bool
	Logger   *zap.Logger
}

// Run watches until ctx is cancelled. Handler errors are logged and do not
// stop the watcher. A file is handled again only if it changes.
func (w *Watcher) Run(ctx context.Context, handle Handler) error {
	logger := w.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	settle := w.Settle
	if settle <= 0 {
		settle = DefaultSettle
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	var existing []string
	if err := filepath.WalkDir(w.Dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		if w.Existing && w.matches(path) {
			existing = append(existing, path)
		}
		return nil
	}); err != nil {
		return fmt.Errorf("watch %s: %w", w.Dir, err)
	}
	logger.Info("watching drop folder", zap.String("dir", w.Dir))

	handled := map[string]time.Time{}
	pending := map[string]time.Time{}
	process := func(path string) {
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			return
		}
		if mt, ok := handled[path]; ok && mt.Equal(info.ModTime()) {
			return
		}
		handled[path] = info.ModTime()
		if err := handle(ctx, path); err != nil {
			logger.Warn("handle dropped file", zap.String("path", path), zap.Error(err))
			return
		}
		logger.Info("handled dropped file", zap.String("path", path))
	}
	for _, p := range existing {
		process(p)
	}

	tick := time.NewTicker(settle / 2)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = watcher.Add(event.Name)
					continue
				}
			}
			if w.matches(event.Name) {
				pending[event.Name] = time.Now()
			}

		case now := <-tick.C:
			for path, last := range pending {
				if now.Sub(last) >= settle {
					delete(pending, path)
					process(path)
				}
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher error", zap.Error(err))
		}
	}
}

// matches reports whether path is a file the inbox cares about. Hidden and
// partially downloaded files never match.
func (w *Watcher) matches(path string) bool {
	base := strings.ToLower(filepath.Base(path))
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, "~") ||
		strings.HasSuffix(base, ".part") || strings.HasSuffix(base, ".crdownload") {
		return false
	}
	patterns := w.Patterns
	if len(patterns) == 0 {
		patterns = []string{"*.pdf"}
	}
	for _, p := range patterns {
		if ok, _ := filepath.Match(strings.ToLower(p), base); ok {
			return true
		}
	}
	return false
}
