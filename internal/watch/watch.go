package watch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"cogstyle/internal/runner"
	"cogstyle/pkg/config"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher re-runs the stylecheck pipeline whenever a matching source file
// under root changes. Save bursts are debounced per path on the trailing
// edge: each event resets the path's timer, and the check runs once the
// path has been quiet for the debounce window, so the final save of a
// burst is always the state checked.
type Watcher struct {
	root     string
	cfg      *config.Config
	pipeline *runner.Pipeline
	logger   *zap.Logger

	watcher     *fsnotify.Watcher
	debounceDur time.Duration

	mu      sync.Mutex
	pending map[string]*time.Timer
	runs    chan string
}

func New(root string, cfg *config.Config, pipeline *runner.Pipeline, logger *zap.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	return &Watcher{
		root:        root,
		cfg:         cfg,
		pipeline:    pipeline,
		logger:      logger,
		watcher:     fsw,
		debounceDur: 500 * time.Millisecond,
		pending:     make(map[string]*time.Timer),
		runs:        make(chan string, 16),
	}, nil
}

// Run watches until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	if err := w.addDirs(w.root); err != nil {
		return err
	}
	fmt.Printf("watching %s for changes\n", w.root)

	for {
		select {
		case <-ctx.Done():
			w.mu.Lock()
			for _, timer := range w.pending {
				timer.Stop()
			}
			w.mu.Unlock()
			return nil
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", zap.Error(err))
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handle(event)
		case path := <-w.runs:
			w.check(path)
		}
	}
}

// addDirs registers root and every non-excluded directory below it.
func (w *Watcher) addDirs(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if rel != "." && w.cfg.Excluded(filepath.ToSlash(rel)+"/x") {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
}

func (w *Watcher) handle(event fsnotify.Event) {
	if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return
	}

	// New directories need watching too.
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addDirs(event.Name); err != nil {
				w.logger.Warn("failed to watch new directory", zap.String("dir", event.Name), zap.Error(err))
			}
			return
		}
	}

	rel, err := filepath.Rel(w.root, event.Name)
	if err != nil {
		return
	}
	if !w.ShouldHandle(filepath.ToSlash(rel)) {
		return
	}

	w.schedule(event.Name)
}

// schedule queues one pipeline run for path after the debounce window:
// a pending timer is reset rather than doubled, so a burst of events
// yields exactly one run once the path goes quiet.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, pending := w.pending[path]; pending {
		timer.Reset(w.debounceDur)
		return
	}
	w.pending[path] = time.AfterFunc(w.debounceDur, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		w.runs <- path
	})
}

// check runs the pipeline over one settled file and reports the outcome.
func (w *Watcher) check(path string) {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		rel = path
	}
	rel = filepath.ToSlash(rel)

	result := w.pipeline.Check([]string{path}, false)
	switch {
	case len(result.Failed) > 0:
		for _, ferr := range result.Failed {
			fmt.Printf("%s: %v\n", rel, ferr)
		}
	case len(result.Changed) > 0:
		fmt.Printf("%s would be reformatted\n", rel)
	default:
		fmt.Printf("%s ok\n", rel)
	}
}

// ShouldHandle reports whether a change to the given relative path
// triggers a pipeline run.
func (w *Watcher) ShouldHandle(rel string) bool {
	return w.cfg.MatchesExtension(rel) && !w.cfg.Excluded(rel)
}
