package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/arturoeanton/aio-tracker/internal/domain"
	"github.com/arturoeanton/aio-tracker/internal/ingest"
	"github.com/arturoeanton/aio-tracker/internal/metrics"
)

const (
	inboxDebounce     = 500 * time.Millisecond
	inboxProcessedDir = "processed"
	inboxFailedDir    = "failed"
)

// InboxWatcher imports result files dropped into a directory. Files are named
// <project-id>.<anything>.json and are moved to processed/ or failed/ after
// the import.
type InboxWatcher struct {
	dir      string
	projects *ProjectService
	sessions *SessionService

	mu     sync.Mutex
	timers map[string]*time.Timer
}

// NewInboxWatcher creates a watcher for dir.
func NewInboxWatcher(dir string, projects *ProjectService, sessions *SessionService) *InboxWatcher {
	return &InboxWatcher{
		dir:      dir,
		projects: projects,
		sessions: sessions,
		timers:   make(map[string]*time.Timer),
	}
}

// Start processes the files already present and then watches for new ones
// until ctx is done.
func (w *InboxWatcher) Start(ctx context.Context) error {
	for _, sub := range []string{w.dir, filepath.Join(w.dir, inboxProcessedDir), filepath.Join(w.dir, inboxFailedDir)} {
		if err := os.MkdirAll(sub, 0o755); err != nil {
			return fmt.Errorf("create inbox dir: %w", err)
		}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create file watcher: %w", err)
	}
	if err := watcher.Add(w.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch inbox dir: %w", err)
	}

	entries, err := os.ReadDir(w.dir)
	if err != nil {
		watcher.Close()
		return fmt.Errorf("read inbox dir: %w", err)
	}
	for _, e := range entries {
		if !e.IsDir() && isInboxFile(e.Name()) {
			w.ProcessFile(ctx, filepath.Join(w.dir, e.Name()))
		}
	}

	slog.Info("inbox watcher started", "dir", w.dir)
	go w.loop(ctx, watcher)
	return nil
}

func (w *InboxWatcher) loop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer watcher.Close()
	for {
		select {
		case <-ctx.Done():
			w.stopTimers()
			slog.Info("inbox watcher stopped")
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 || !isInboxFile(filepath.Base(event.Name)) {
				continue
			}
			w.schedule(ctx, event.Name)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			slog.Error("inbox watcher error", "error", err)
		}
	}
}

// schedule debounces writes so a file is imported once its writer is done.
func (w *InboxWatcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.timers[path]; ok {
		t.Reset(inboxDebounce)
		return
	}
	w.timers[path] = time.AfterFunc(inboxDebounce, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()
		w.ProcessFile(ctx, path)
	})
}

func (w *InboxWatcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, t := range w.timers {
		t.Stop()
		delete(w.timers, path)
	}
}

// ProcessFile imports one inbox file and moves it out of the inbox.
func (w *InboxWatcher) ProcessFile(ctx context.Context, path string) {
	name := filepath.Base(path)
	sess, err := w.importFile(ctx, path)

	dest := inboxProcessedDir
	status := "ok"
	if err != nil {
		dest = inboxFailedDir
		status = "error"
		slog.Error("inbox import failed", "file", name, "error", err)
	} else {
		slog.Info("inbox file imported", "file", name, "session_id", sess.ID)
	}
	metrics.InboxFiles.WithLabelValues(status).Inc()

	if err := os.Rename(path, filepath.Join(w.dir, dest, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Error("failed to move inbox file", "file", name, "error", err)
	}
}

func (w *InboxWatcher) importFile(ctx context.Context, path string) (*domain.CheckSession, error) {
	name := filepath.Base(path)
	projectID, _, _ := strings.Cut(name, ".")

	project, err := w.projects.Lookup(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("lookup project %q: %w", projectID, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	rows, _, err := ingest.Parse(data)
	if err != nil {
		return nil, err
	}
	return w.sessions.Import(ctx, project, domain.SessionSourceInbox, strings.TrimSuffix(name, filepath.Ext(name)), rows, nil)
}

func isInboxFile(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".json") && strings.Count(name, ".") >= 2
}
