package game

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/arthurmco/familyline-testbed-sub000/internal/pathing"
)

// reloadDebounce drops repeated writes to the same file within this window.
const reloadDebounce = 100 * time.Millisecond

// ConfigWatcher reports changes to a pathing config file. The directory is
// watched rather than the file so editors that replace files on save still
// trigger a reload.
type ConfigWatcher struct {
	path    string
	watcher *fsnotify.Watcher
	Events  chan string
	Errors  chan error
	closeCh chan struct{}
	done    chan struct{}
	once    sync.Once
}

// NewConfigWatcher starts watching path.
func NewConfigWatcher(path string) (*ConfigWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("game: watch %s: %w", path, err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("game: watch %s: %w", path, err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("game: watch %s: %w", path, err)
	}

	cw := &ConfigWatcher{
		path:    abs,
		watcher: w,
		Events:  make(chan string, 16),
		Errors:  make(chan error, 1),
		closeCh: make(chan struct{}),
		done:    make(chan struct{}),
	}
	go cw.run()
	return cw, nil
}

// Path returns the absolute path being watched.
func (cw *ConfigWatcher) Path() string { return cw.path }

// Close stops the watcher. It is safe to call more than once.
func (cw *ConfigWatcher) Close() error {
	var err error
	cw.once.Do(func() {
		close(cw.closeCh)
		err = cw.watcher.Close()
		<-cw.done
		close(cw.Events)
		close(cw.Errors)
	})
	return err
}

func (cw *ConfigWatcher) run() {
	defer close(cw.done)
	last := make(map[string]time.Time)
	for {
		select {
		case event, ok := <-cw.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if filepath.Clean(event.Name) != cw.path {
				continue
			}
			now := time.Now()
			if t, ok := last[event.Name]; ok && now.Sub(t) < reloadDebounce {
				continue
			}
			last[event.Name] = now
			select {
			case cw.Events <- cw.path:
			default:
			}
		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			select {
			case cw.Errors <- err:
			default:
			}
		case <-cw.closeCh:
			return
		}
	}
}

// Poll applies the newest config if the file changed since the last call.
// It never blocks; the tick loop calls it once per frame.
func (cw *ConfigWatcher) Poll(c *pathing.Coordinator) (bool, error) {
	changed := false
	for {
		select {
		case _, ok := <-cw.Events:
			if !ok {
				return false, nil
			}
			changed = true
			continue
		case err, ok := <-cw.Errors:
			if ok {
				return false, fmt.Errorf("game: watch %s: %w", cw.path, err)
			}
		default:
		}
		break
	}
	if !changed {
		return false, nil
	}
	cfg, err := pathing.LoadConfig(cw.path)
	if err != nil {
		return false, err
	}
	if err := c.ApplyConfig(cfg); err != nil {
		return false, err
	}
	return true, nil
}
