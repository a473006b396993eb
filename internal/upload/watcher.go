package upload

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// settleInterval is how long a file in the inbox must keep a stable
// size before it is uploaded. Drops from editors and network copies
// arrive in bursts of partial writes.
const settleInterval = 500 * time.Millisecond

// Watcher uploads files dropped into the inbox directory and removes
// them afterwards.
type Watcher struct {
	service *Service
	dir     string
	logger  *slog.Logger
}

func NewWatcher(service *Service, dir string, logger *slog.Logger) *Watcher {
	return &Watcher{service: service, dir: dir, logger: logger}
}

// Run watches the inbox until the context is cancelled. Files already
// present at startup are picked up first.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return err
	}
	w.logger.Info("watching inbox", "dir", w.dir)

	w.sweepExisting(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if event.Op.Has(fsnotify.Create) || event.Op.Has(fsnotify.Write) {
				w.handle(ctx, event.Name)
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("inbox watch error", "error", err)
		}
	}
}

func (w *Watcher) sweepExisting(ctx context.Context) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		w.logger.Warn("failed to read inbox", "dir", w.dir, "error", err)
		return
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		w.handle(ctx, filepath.Join(w.dir, entry.Name()))
	}
}

func (w *Watcher) handle(ctx context.Context, path string) {
	if strings.HasPrefix(filepath.Base(path), ".") {
		return
	}
	if !w.waitSettled(ctx, path) {
		return
	}

	result, err := w.service.UploadFile(ctx, path)
	if err != nil {
		w.logger.Warn("inbox upload failed", "path", path, "error", err)
		return
	}
	if result.Duplicate {
		w.logger.Info("inbox file already known", "path", path, "resource", result.Resource.ID)
	}
	if err := os.Remove(path); err != nil {
		w.logger.Warn("failed to remove inbox file", "path", path, "error", err)
	}
}

// waitSettled polls until two consecutive size samples match.
func (w *Watcher) waitSettled(ctx context.Context, path string) bool {
	var last int64 = -1
	for {
		info, err := os.Stat(path)
		if err != nil {
			return false
		}
		if info.Size() == last {
			return true
		}
		last = info.Size()
		select {
		case <-ctx.Done():
			return false
		case <-time.After(settleInterval):
		}
	}
}
