package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/mkoehler/docsort/internal/core/ports"
)

const defaultDebounce = 2 * time.Second

// Watcher monitors the scan inbox and submits a single-task batch job for
// every new PDF. Scanners write files in bursts, so events per path are
// debounced until the file has settled.
type Watcher struct {
	inbox    string
	batch    ports.BatchService
	debounce time.Duration
	logger   *slog.Logger

	mu     sync.Mutex
	timers map[string]*time.Timer
}

func New(inbox string, batch ports.BatchService, debounce time.Duration, logger *slog.Logger) *Watcher {
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		inbox:    inbox,
		batch:    batch,
		debounce: debounce,
		logger:   logger,
		timers:   make(map[string]*time.Timer),
	}
}

// Run blocks until ctx is cancelled. Files already sitting in the inbox when
// the watcher starts are submitted immediately.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.inbox); err != nil {
		return fmt.Errorf("watch inbox %s: %w", w.inbox, err)
	}
	w.logger.Info("inbox_watch_started", "path", w.inbox, "debounce", w.debounce.String())

	if err := w.submitExisting(ctx); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			w.stopTimers()
			return nil
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if !isPDF(event.Name) {
				continue
			}
			w.schedule(ctx, event.Name)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("inbox_watch_error", "error", err.Error())
		}
	}
}

func (w *Watcher) submitExisting(ctx context.Context) error {
	entries, err := os.ReadDir(w.inbox)
	if err != nil {
		return fmt.Errorf("read inbox: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !isPDF(entry.Name()) {
			continue
		}
		w.submit(ctx, filepath.Join(w.inbox, entry.Name()))
	}
	return nil
}

func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if timer, exists := w.timers[path]; exists {
		timer.Reset(w.debounce)
		return
	}
	w.timers[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()
		w.submit(ctx, path)
	})
}

func (w *Watcher) submit(ctx context.Context, path string) {
	if ctx.Err() != nil {
		return
	}
	if _, err := os.Stat(path); err != nil {
		// Deleted or renamed before the debounce expired.
		return
	}
	jobID, err := w.batch.Submit(ctx, "inbox: "+filepath.Base(path), []ports.TaskSpec{{Path: path}})
	if err != nil {
		w.logger.Error("inbox_submit_failed", "path", path, "error", err.Error())
		return
	}
	w.logger.Info("inbox_submitted", "path", path, "job_id", jobID)
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, timer := range w.timers {
		timer.Stop()
		delete(w.timers, path)
	}
}

func isPDF(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pdf")
}
