package store

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DocNotes is reported when any mission note changes. It has no backing document.
const DocNotes Doc = "mission-notes"

// Watcher reports documents edited on disk, outside the editor. Rapid event bursts for the
// same document collapse into one report.
type Watcher struct {
	watcher  *fsnotify.Watcher
	dataDir  string
	notesDir string
	log      *zap.Logger
	onChange func(Doc)

	mu       sync.Mutex
	pending  map[Doc]time.Time
	debounce time.Duration
	doneCh   chan struct{}
}

// NewWatcher watches dataDir for document files and notesDir (may be empty) for notes.
func NewWatcher(dataDir, notesDir string, log *zap.Logger, onChange func(Doc)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, wrap(err, "create watcher")
	}
	return &Watcher{
		watcher:  fw,
		dataDir:  dataDir,
		notesDir: notesDir,
		log:      log,
		onChange: onChange,
		pending:  make(map[Doc]time.Time),
		debounce: 150 * time.Millisecond,
		doneCh:   make(chan struct{}),
	}, nil
}

// Start adds the directories and runs the event loop until ctx is done. Directories that
// don't exist yet are skipped with a warning.
func (w *Watcher) Start(ctx context.Context) {
	for _, dir := range []string{w.dataDir, w.notesDir} {
		if dir == "" {
			continue
		}
		if _, err := os.Stat(dir); err != nil {
			w.log.Warn("watch skipped", zap.String("dir", dir), zap.Error(err))
			continue
		}
		if err := w.watcher.Add(dir); err != nil {
			w.log.Warn("watch failed", zap.String("dir", dir), zap.Error(err))
			continue
		}
		w.log.Debug("watching", zap.String("dir", dir))
	}
	go w.run(ctx)
}

// Wait blocks until the event loop has exited.
func (w *Watcher) Wait() { <-w.doneCh }

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)
	defer w.watcher.Close()

	ticker := time.NewTicker(w.debounce / 3)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Error("watcher error", zap.Error(err))
		case <-ticker.C:
			w.flush()
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}
	doc, ok := w.classify(event.Name)
	if !ok {
		return
	}
	w.mu.Lock()
	w.pending[doc] = time.Now()
	w.mu.Unlock()
}

func (w *Watcher) classify(path string) (Doc, bool) {
	dir, base := filepath.Dir(path), filepath.Base(path)
	if w.notesDir != "" && filepath.Clean(dir) == filepath.Clean(w.notesDir) && strings.HasSuffix(base, noteExt) {
		return DocNotes, true
	}
	if filepath.Clean(dir) == filepath.Clean(w.dataDir) {
		return DocForFile(base)
	}
	return "", false
}

func (w *Watcher) flush() {
	now := time.Now()
	var ready []Doc
	w.mu.Lock()
	for doc, at := range w.pending {
		if now.Sub(at) >= w.debounce {
			ready = append(ready, doc)
			delete(w.pending, doc)
		}
	}
	w.mu.Unlock()
	for _, doc := range ready {
		w.log.Info("document changed on disk", zap.String("doc", string(doc)))
		w.onChange(doc)
	}
}
