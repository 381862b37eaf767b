// Package watcher keeps the index current without an editor in the loop:
// it monitors workspace roots and re-indexes on file-system changes. Config
// changes schedule a debounced workspace refresh; source writes re-index
// the single file.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/tliron/kutil/logging"

	"github.com/jward/fabls"
	"github.com/jward/fabls/internal/depgraph"
)

var log = logging.GetLogger("fabls.watcher")

// DefaultDebounce batches bursts of config events into one refresh.
const DefaultDebounce = 200 * time.Millisecond

// Watcher monitors workspace roots and feeds changes into an Index.
type Watcher struct {
	index    *fabls.Index
	fsw      *fsnotify.Watcher
	debounce time.Duration

	mu           sync.Mutex
	roots        []string
	timer        *time.Timer
	pendingRoots map[string]struct{}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Watcher over index. A non-positive debounce uses
// DefaultDebounce.
func New(index *fabls.Index, debounce time.Duration) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Watcher{
		index:        index,
		fsw:          fsw,
		debounce:     debounce,
		pendingRoots: make(map[string]struct{}),
		ctx:          ctx,
		cancel:       cancel,
	}, nil
}

// Watch registers a workspace root and every directory below it.
func (w *Watcher) Watch(root string) error {
	root = filepath.Clean(root)
	w.mu.Lock()
	w.roots = append(w.roots, root)
	w.mu.Unlock()

	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if err := w.fsw.Add(path); err != nil {
				log.Warningf("watch %s: %s", path, err.Error())
			}
		}
		return nil
	})
}

// Start launches the event loop. Close stops it.
func (w *Watcher) Start() {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for {
			select {
			case <-w.ctx.Done():
				return
			case event, ok := <-w.fsw.Events:
				if !ok {
					return
				}
				w.handle(event)
			case err, ok := <-w.fsw.Errors:
				if !ok {
					return
				}
				log.Warningf("watch error: %s", err.Error())
			}
		}
	}()
}

// Close stops the event loop and releases the underlying watcher.
func (w *Watcher) Close() error {
	w.cancel()
	err := w.fsw.Close()
	w.wg.Wait()
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	return err
}

func (w *Watcher) handle(event fsnotify.Event) {
	// New directories must be added to the watch set themselves.
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.fsw.Add(event.Name); err != nil {
				log.Warningf("watch %s: %s", event.Name, err.Error())
			}
			return
		}
	}

	switch filepath.Ext(event.Name) {
	case depgraph.ConfigExt:
		if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
			w.scheduleRefresh(event.Name)
		}
	case depgraph.SourceExt:
		if event.Op&(fsnotify.Create|fsnotify.Write) != 0 {
			w.reindexSource(event.Name)
		}
	}
}

// reindexSource re-indexes a changed source file that is already cached. An
// uncached file might resolve a previously dangling config reference, so it
// schedules a refresh instead.
func (w *Watcher) reindexSource(path string) {
	if !w.index.IsIndexed(path) {
		w.scheduleRefresh(path)
		return
	}
	text, err := os.ReadFile(path)
	if err != nil {
		log.Warningf("read %s: %s", path, err.Error())
		return
	}
	if err := w.index.UpdateFile(path, text); err != nil {
		log.Warningf("%s", err.Error())
	}
}

// scheduleRefresh queues a debounced refresh of the root containing path.
// The root is both removed and re-added so its config directories are
// rescanned rather than served from cache.
func (w *Watcher) scheduleRefresh(path string) {
	root, ok := w.rootOf(path)
	if !ok {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.pendingRoots[root] = struct{}{}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.refreshPending)
}

func (w *Watcher) refreshPending() {
	w.mu.Lock()
	roots := make([]string, 0, len(w.pendingRoots))
	for root := range w.pendingRoots {
		roots = append(roots, root)
	}
	w.pendingRoots = make(map[string]struct{})
	w.mu.Unlock()

	if len(roots) == 0 {
		return
	}
	log.Infof("refreshing %d workspace root(s)", len(roots))
	if err := w.index.RefreshWorkspace(w.ctx, roots, roots); err != nil {
		log.Errorf("refresh: %s", err.Error())
	}
}

func (w *Watcher) rootOf(path string) (string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, root := range w.roots {
		if path == root || len(path) > len(root) && path[:len(root)] == root && path[len(root)] == filepath.Separator {
			return root, true
		}
	}
	return "", false
}
