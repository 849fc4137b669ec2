// Package watch reloads package files when they change on disk.
package watch

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDelay is how long the watcher waits for writes to settle
const DefaultDelay = 500 * time.Millisecond

var skipDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
}

// PackageWatcher monitors package directories and reports changed package
// files in batches
type PackageWatcher struct {
	watcher   *fsnotify.Watcher
	debouncer *Debouncer
	dirs      []string
	extension string
	onChange  func([]string) error
	logger    *zap.Logger
	stopChan  chan struct{}
	wg        sync.WaitGroup
}

// NewPackageWatcher creates a watcher over dirs. onChange receives the
// sorted paths of the package files that were written or created.
func NewPackageWatcher(dirs []string, extension string, delay time.Duration, onChange func([]string) error, logger *zap.Logger) (*PackageWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if delay <= 0 {
		delay = DefaultDelay
	}

	pw := &PackageWatcher{
		watcher:   watcher,
		debouncer: NewDebouncer(delay),
		dirs:      dirs,
		extension: extension,
		onChange:  onChange,
		logger:    logger.Named("watch"),
		stopChan:  make(chan struct{}),
	}
	pw.debouncer.SetCallback(func(files []string) {
		if err := pw.onChange(files); err != nil {
			pw.logger.Error("reload failed", zap.Strings("files", files), zap.Error(err))
		}
	})
	return pw, nil
}

// Start begins watching
func (pw *PackageWatcher) Start() error {
	for _, dir := range pw.dirs {
		if err := pw.watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch directory %s: %w", dir, err)
		}
		pw.logger.Info("watching directory", zap.String("dir", dir))
	}

	pw.wg.Add(1)
	go pw.watch()
	return nil
}

// Stop stops the watcher. It is safe to call more than once.
func (pw *PackageWatcher) Stop() error {
	select {
	case <-pw.stopChan:
		return nil
	default:
		close(pw.stopChan)
	}

	pw.wg.Wait()
	pw.debouncer.Stop()
	return pw.watcher.Close()
}

func (pw *PackageWatcher) watch() {
	defer pw.wg.Done()

	for {
		select {
		case event, ok := <-pw.watcher.Events:
			if !ok {
				return
			}
			if !pw.matches(event.Name) {
				continue
			}
			switch {
			case event.Op.Has(fsnotify.Write), event.Op.Has(fsnotify.Create):
				pw.logger.Debug("package changed", zap.String("file", event.Name))
				pw.debouncer.Add(event.Name)
			case event.Op.Has(fsnotify.Remove):
				// removed packages stay loaded until the next explicit load
				pw.logger.Info("package removed", zap.String("file", event.Name))
			}

		case err, ok := <-pw.watcher.Errors:
			if !ok {
				return
			}
			pw.logger.Warn("watch error", zap.Error(err))

		case <-pw.stopChan:
			return
		}
	}
}

func (pw *PackageWatcher) matches(path string) bool {
	return strings.EqualFold(filepath.Ext(path), pw.extension)
}

// Dirs returns the directories to watch for a package root: the root itself
// (or the directory of a root file) and every symbolsDir directory below it
func Dirs(root, symbolsDir string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{filepath.Dir(root)}, nil
	}

	dirs := []string{root}
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() && path != root {
				return filepath.SkipDir
			}
			return err
		}
		if !d.IsDir() || path == root {
			return nil
		}
		if skipDirs[d.Name()] {
			return filepath.SkipDir
		}
		if strings.EqualFold(d.Name(), symbolsDir) {
			dirs = append(dirs, path)
			return filepath.SkipDir
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dirs, nil
}

// Debouncer collects file changes and triggers callbacks after a delay
type Debouncer struct {
	duration time.Duration
	timer    *time.Timer
	files    map[string]struct{}
	mutex    sync.Mutex
	callback func([]string)
	stopped  bool
}

// NewDebouncer creates a new debouncer instance
func NewDebouncer(duration time.Duration) *Debouncer {
	return &Debouncer{
		duration: duration,
		files:    make(map[string]struct{}),
	}
}

// Add records a file and restarts the delay
func (d *Debouncer) Add(file string) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	if d.stopped {
		return
	}

	d.files[file] = struct{}{}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.duration, d.flush)
}

// flush hands the accumulated files to the callback outside the lock
func (d *Debouncer) flush() {
	d.mutex.Lock()
	if len(d.files) == 0 || d.stopped {
		d.mutex.Unlock()
		return
	}
	files := make([]string, 0, len(d.files))
	for file := range d.files {
		files = append(files, file)
	}
	d.files = make(map[string]struct{})
	callback := d.callback
	d.mutex.Unlock()

	sort.Strings(files)
	if callback != nil {
		callback(files)
	}
}

// SetCallback sets the callback function
func (d *Debouncer) SetCallback(callback func([]string)) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.callback = callback
}

// Stop cancels any pending flush
func (d *Debouncer) Stop() {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.stopped = true
}
