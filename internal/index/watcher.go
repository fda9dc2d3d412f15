package index

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/starford/marginalia/internal/checksum"
	"github.com/starford/marginalia/internal/storage"
)

// Document actions reported in a DocumentEvent.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// DocumentEvent reports a document whose annotations the watcher re-indexed
// or dropped.
type DocumentEvent struct {
	Path        string
	Action      string
	Annotations int
}

// Watcher keeps the annotation index in step with edits made to the vault
// outside marginalia, such as an editor saving an Org file.
//
// Events are not acted on one by one. Paths touched within the settle window
// are collected and each is then reconciled against the index: a document
// whose checksum already matches (for instance one the service just wrote)
// produces no event.
type Watcher struct {
	db     *DB
	store  storage.Provider
	root   string
	logger *slog.Logger
	notify func(DocumentEvent)

	settle time.Duration
}

// NewWatcher returns a watcher over the vault rooted at root. notify may be
// nil.
func NewWatcher(db *DB, store storage.Provider, root string, logger *slog.Logger, notify func(DocumentEvent)) *Watcher {
	if notify == nil {
		notify = func(DocumentEvent) {}
	}
	return &Watcher{
		db:     db,
		store:  store,
		root:   root,
		logger: logger,
		notify: notify,
		settle: 150 * time.Millisecond,
	}
}

// Run watches the vault until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	if err := w.addDirs(fw, w.root); err != nil {
		return err
	}
	w.logger.Info("watcher: started", slog.String("root", w.root))

	dirty := make(map[string]struct{})
	sweep := false
	var settle *time.Timer
	var settleCh <-chan time.Time

	touch := func() {
		if settle == nil {
			settle = time.NewTimer(w.settle)
			settleCh = settle.C
			return
		}
		settle.Reset(w.settle)
	}

	for {
		select {
		case <-ctx.Done():
			if settle != nil {
				settle.Stop()
			}
			w.logger.Info("watcher: stopped")
			return nil

		case <-settleCh:
			settle, settleCh = nil, nil
			paths := make([]string, 0, len(dirty))
			for p := range dirty {
				paths = append(paths, p)
			}
			slices.Sort(paths)
			clear(dirty)
			for _, p := range paths {
				w.reconcile(p)
			}
			if sweep {
				sweep = false
				w.sweep()
			}

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if ev.Op == fsnotify.Chmod {
				continue
			}

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := w.addDirs(fw, ev.Name); addErr != nil {
						w.logger.Warn("watcher: add dir failed",
							slog.String("path", ev.Name),
							slog.String("error", addErr.Error()))
					}
					// Files can land before the directory is watched.
					for _, rel := range w.documentsUnder(ev.Name) {
						dirty[rel] = struct{}{}
					}
					touch()
					continue
				}
			}

			if !w.store.IsDocument(ev.Name) {
				// A removed or renamed directory takes its documents along
				// without an event per file.
				if ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
					sweep = true
					touch()
				}
				continue
			}

			if rel, ok := w.rel(ev.Name); ok {
				dirty[rel] = struct{}{}
				touch()
			}

		case watchErr, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// reconcile brings the index entry for one document in line with disk.
func (w *Watcher) reconcile(rel string) {
	indexed, _ := w.db.GetChecksum(rel)

	if !w.store.Exists(rel) {
		if indexed == "" {
			return
		}
		if err := w.db.DeleteDocument(rel); err != nil {
			w.logger.Warn("watcher: delete failed", slog.String("path", rel), slog.String("error", err.Error()))
			return
		}
		w.logger.Debug("watcher: dropped", slog.String("path", rel))
		w.notify(DocumentEvent{Path: rel, Action: ActionDeleted})
		return
	}

	data, err := w.store.Read(rel)
	if err != nil {
		w.logger.Warn("watcher: read failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	if checksum.Sum(data) == indexed {
		return
	}
	if err := IndexDocument(w.db, rel, data); err != nil {
		w.logger.Warn("watcher: index failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}

	action := ActionUpdated
	if indexed == "" {
		action = ActionCreated
	}
	anns, _ := w.db.Annotations(rel, nil)
	w.logger.Debug("watcher: indexed",
		slog.String("path", rel),
		slog.String("action", action),
		slog.Int("annotations", len(anns)))
	w.notify(DocumentEvent{Path: rel, Action: action, Annotations: len(anns)})
}

// sweep reconciles documents that changed on disk or vanished from it.
func (w *Watcher) sweep() {
	known, err := w.db.AllChecksums()
	if err != nil {
		w.logger.Warn("watcher: sweep failed", slog.String("error", err.Error()))
		return
	}
	metas, err := w.store.List("")
	if err != nil {
		w.logger.Warn("watcher: sweep failed", slog.String("error", err.Error()))
		return
	}

	var paths []string
	for _, m := range metas {
		if known[m.Path] != m.Checksum {
			paths = append(paths, m.Path)
		}
		delete(known, m.Path)
	}
	for p := range known {
		paths = append(paths, p)
	}
	slices.Sort(paths)
	for _, p := range paths {
		w.reconcile(p)
	}
}

func (w *Watcher) rel(abs string) (string, bool) {
	rel, err := filepath.Rel(w.root, abs)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

func (w *Watcher) documentsUnder(dir string) []string {
	var out []string
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !w.store.IsDocument(path) {
			return nil
		}
		if rel, ok := w.rel(path); ok {
			out = append(out, rel)
		}
		return nil
	})
	return out
}

// addDirs watches root and its subdirectories, skipping hidden ones.
func (w *Watcher) addDirs(fw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return fw.Add(path)
	})
}
