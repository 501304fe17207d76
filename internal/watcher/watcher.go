// Package watcher turns filesystem changes under the content root into
// entry change notifications.
package watcher

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/typedmdx/internal/checksum"
	"github.com/starford/typedmdx/pkg/storage"
)

// Change kinds passed to Callback.
const (
	Created = "created"
	Updated = "updated"
	Deleted = "deleted"
)

const reconcileDelay = 200 * time.Millisecond

// Locator maps a storage path (slash-separated, relative to the content
// root) to the collection and slug that own it.
type Locator interface {
	Locate(storagePath string) (collection, slug string, ok bool)
}

// Callback is called once per entry change.
type Callback func(kind, collection, slug string)

// Watch watches root and every directory below it until ctx is cancelled,
// calling cb for documents that belong to a collection. Writes that leave a
// document's bytes unchanged are not reported.
//
// Directories created at runtime are added to the watch list. Renames
// trigger a short debounced reconciliation against the disk.
func Watch(ctx context.Context, store storage.Provider, root string, loc Locator, logger *slog.Logger, cb Callback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, root); err != nil {
		return err
	}

	t := &tracker{store: store, root: root, loc: loc, logger: logger, cb: cb}
	t.known = t.snapshot()

	logger.Info("watcher: started", slog.String("root", root), slog.Int("documents", len(t.known)))

	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time

	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(reconcileDelay)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(reconcileDelay)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			t.reconcile()

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, ev.Name); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", ev.Name),
							slog.String("error", addErr.Error()))
					}
					// Files may have landed before the directory was watched.
					scheduleReconcile()
					continue
				}
			}

			rel, ok := t.rel(ev.Name)
			if !ok {
				continue
			}

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				t.touch(rel)
			case ev.Op&fsnotify.Remove != 0:
				t.remove(rel)
			case ev.Op&fsnotify.Rename != 0:
				// Rename fires on the old path; the new one arrives as a
				// Create if it stays under a watched directory.
				t.remove(rel)
				scheduleReconcile()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// tracker remembers the checksum of every known document. It is only used
// from the Watch loop.
type tracker struct {
	store  storage.Provider
	root   string
	loc    Locator
	logger *slog.Logger
	cb     Callback
	known  map[string]string
}

// rel converts an absolute event path to a storage path owned by a
// collection.
func (t *tracker) rel(abs string) (string, bool) {
	rel, err := filepath.Rel(t.root, abs)
	if err != nil {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	if _, _, ok := t.loc.Locate(rel); !ok {
		return "", false
	}
	return rel, true
}

func (t *tracker) touch(rel string) {
	data, err := t.store.ReadFile(rel)
	if err != nil {
		t.logger.Debug("watcher: read failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	sum := checksum.Sum(data)
	prev, existed := t.known[rel]
	if existed && prev == sum {
		return
	}
	t.known[rel] = sum

	kind := Updated
	if !existed {
		kind = Created
	}
	t.notify(kind, rel)
}

func (t *tracker) remove(rel string) {
	if _, ok := t.known[rel]; !ok {
		return
	}
	delete(t.known, rel)
	t.notify(Deleted, rel)
}

// reconcile diffs the known set against the disk.
func (t *tracker) reconcile() {
	disk := t.snapshot()
	for rel := range t.known {
		if _, ok := disk[rel]; !ok {
			t.remove(rel)
		}
	}
	for rel, sum := range disk {
		prev, existed := t.known[rel]
		if existed && prev == sum {
			continue
		}
		t.known[rel] = sum
		kind := Updated
		if !existed {
			kind = Created
		}
		t.notify(kind, rel)
	}
}

// snapshot walks the root and checksums every document a collection owns.
func (t *tracker) snapshot() map[string]string {
	out := make(map[string]string)
	_ = filepath.WalkDir(t.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		rel, ok := t.rel(p)
		if !ok {
			return nil
		}
		data, readErr := t.store.ReadFile(rel)
		if readErr != nil {
			return nil
		}
		out[rel] = checksum.Sum(data)
		return nil
	})
	return out
}

func (t *tracker) notify(kind, rel string) {
	name, slug, ok := t.loc.Locate(rel)
	if !ok {
		return
	}
	t.logger.Debug("watcher: change",
		slog.String("op", kind),
		slog.String("collection", name),
		slog.String("slug", slug))
	if t.cb != nil {
		t.cb(kind, name, slug)
	}
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
