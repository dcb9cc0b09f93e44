// Package watch observes the repository's ballot refs on disk and turns
// new ballot files into vote.observed events on the bus.
package watch

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/parleygit/parley/internal/event"
	"github.com/parleygit/parley/internal/logging"
	"github.com/parleygit/parley/internal/tally"
)

const debounceWindow = 50 * time.Millisecond

// Watcher publishes vote.observed when ballot refs appear under
// <gitdir>/refs/vote. Loose refs are files, so fsnotify sees each cast.
type Watcher struct {
	watcher *fsnotify.Watcher
	bus     *event.Bus
	log     *logging.Logger

	// voteRoot is <gitdir>/refs/vote.
	voteRoot string

	mu     sync.Mutex
	seen   map[string]bool
	stopCh chan struct{}
}

// New creates a watcher over a repository's ballot ref directory. The
// directory is created if the repository has never seen a ballot.
func New(gitDir string, bus *event.Bus, log *logging.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	voteRoot := filepath.Join(gitDir, "refs", "vote")
	if err := os.MkdirAll(voteRoot, 0o755); err != nil {
		fw.Close()
		return nil, err
	}

	w := &Watcher{
		watcher:  fw,
		bus:      bus,
		log:      log.WithComponent("watch"),
		voteRoot: voteRoot,
		seen:     make(map[string]bool),
		stopCh:   make(chan struct{}),
	}
	if err := w.watchDirRecursive(voteRoot); err != nil {
		fw.Close()
		return nil, err
	}
	return w, nil
}

// watchDirRecursive adds a directory tree to the watcher. Only
// directories can be watched; ballot files inside them produce events.
func (w *Watcher) watchDirRecursive(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			_ = w.watcher.Add(path)
		}
		return nil
	})
}

// Start begins watching in a background goroutine.
func (w *Watcher) Start() {
	go w.watchLoop()
}

// Stop stops the watcher and releases its resources.
func (w *Watcher) Stop() {
	close(w.stopCh)
	_ = w.watcher.Close()
}

// watchLoop debounces filesystem events and publishes observations.
// Writing a loose ref produces several events for one cast; the debounce
// window collapses them.
func (w *Watcher) watchLoop() {
	debounceTimer := time.NewTimer(0)
	<-debounceTimer.C

	pending := make(map[string]struct{})

	for {
		select {
		case <-w.stopCh:
			return

		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			// New voter directories appear as ballots come in; watch them
			// and pick up any file written before the watch landed.
			if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
				w.scanDir(ev.Name, pending)
				debounceTimer.Reset(debounceWindow)
				continue
			}
			pending[ev.Name] = struct{}{}
			debounceTimer.Reset(debounceWindow)

		case <-debounceTimer.C:
			for path := range pending {
				w.observe(path)
			}
			pending = make(map[string]struct{})

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("watcher error", "error", err.Error())
		}
	}
}

// scanDir watches a directory tree and queues files already inside it.
func (w *Watcher) scanDir(root string, pending map[string]struct{}) {
	_ = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			_ = w.watcher.Add(path)
			return nil
		}
		pending[path] = struct{}{}
		return nil
	})
}

// observe publishes vote.observed for a ballot file seen for the first
// time. Lock files and temp files git writes next to refs are ignored.
func (w *Watcher) observe(path string) {
	if strings.HasSuffix(path, ".lock") {
		return
	}
	ref := w.refName(path)
	if ref == "" {
		return
	}
	motionID, voter := tally.VoterFromRef(ref)
	if motionID == "" || voter == "" {
		return
	}

	w.mu.Lock()
	already := w.seen[ref]
	w.seen[ref] = true
	w.mu.Unlock()
	if already {
		return
	}

	w.log.WithMotion(motionID).WithVoter(voter).Debug("ballot observed", "ref", ref)
	w.bus.Publish(event.NewVoteObservedEvent(motionID, ref))
}

// refName maps a path under the vote root back to its ref name.
func (w *Watcher) refName(path string) string {
	rel, err := filepath.Rel(w.voteRoot, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return ""
	}
	return "refs/vote/" + filepath.ToSlash(rel)
}
