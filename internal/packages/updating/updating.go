package updating

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/djordjev/mock-simulator/internal/packages/logging"
	"github.com/djordjev/mock-simulator/internal/packages/mapping"
	"github.com/fsnotify/fsnotify"
)

const DefaultDebounce = 100 * time.Millisecond

type Updater interface {
	Start(ctx context.Context) error
	Stop() error
}

// FSNotifyUpdater watches a mock directory tree and calls onChange once per
// burst of relevant file system events. The initial state is never reported.
type FSNotifyUpdater struct {
	root     string
	onChange func()
	logger   logging.Logger
	debounce time.Duration

	watcher   *fsnotify.Watcher
	lock      sync.Mutex
	running   bool
	stopCh    chan struct{}
	stoppedCh chan struct{}
}

type Option func(*FSNotifyUpdater)

func WithDebounce(delay time.Duration) Option {
	return func(f *FSNotifyUpdater) {
		f.debounce = delay
	}
}

func WithLogger(logger logging.Logger) Option {
	return func(f *FSNotifyUpdater) {
		f.logger = logger
	}
}

func NewUpdater(root string, onChange func(), opts ...Option) *FSNotifyUpdater {
	f := &FSNotifyUpdater{
		root:     root,
		onChange: onChange,
		logger:   logging.Nop(),
		debounce: DefaultDebounce,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Start fails when the root cannot be watched. Errors reported later by the
// watcher are logged and watching goes on.
func (f *FSNotifyUpdater) Start(ctx context.Context) error {
	f.lock.Lock()
	defer f.lock.Unlock()

	if f.running {
		return nil
	}

	root, err := filepath.Abs(f.root)
	if err != nil {
		return err
	}

	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("unable to watch mock directory: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("unable to watch mock directory: %s is not a directory", root)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("unable to create watcher: %w", err)
	}

	f.root = root
	f.watcher = watcher

	if err := f.addTree(root); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("unable to watch mock directory: %w", err)
	}

	f.running = true
	f.stopCh = make(chan struct{})
	f.stoppedCh = make(chan struct{})

	go f.listen(ctx)

	f.logger.Info("watching mock directory", logging.String("path", root))

	return nil
}

func (f *FSNotifyUpdater) Stop() error {
	f.lock.Lock()
	if !f.running {
		f.lock.Unlock()
		return nil
	}
	f.running = false
	f.lock.Unlock()

	close(f.stopCh)
	<-f.stoppedCh

	return f.watcher.Close()
}

func (f *FSNotifyUpdater) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path != root && errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}

		if !d.IsDir() {
			return nil
		}

		if path != root && mapping.IsHidden(path) {
			return filepath.SkipDir
		}

		return f.watcher.Add(path)
	})
}

func (f *FSNotifyUpdater) listen(ctx context.Context) {
	defer close(f.stoppedCh)

	var debounceTimer *time.Timer
	var debounceCh <-chan time.Time

	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			f.logger.Info("shutdown signal received -> stop listening folder changes")
			return

		case <-f.stopCh:
			return

		case event, ok := <-f.watcher.Events:
			if !ok {
				return
			}

			if !f.isRelevant(event) {
				continue
			}

			f.logger.Debug("mock directory changed",
				logging.String("path", event.Name),
				logging.String("op", event.Op.String()),
			)

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.NewTimer(f.debounce)
			debounceCh = debounceTimer.C

		case <-debounceCh:
			debounceCh = nil
			f.onChange()

		case err, ok := <-f.watcher.Errors:
			if !ok {
				return
			}

			f.logger.Error("mock directory watcher error", logging.Error(err))
		}
	}
}

// isRelevant keeps mock file changes and directory changes, new directories
// are added to the watch list.
func (f *FSNotifyUpdater) isRelevant(event fsnotify.Event) bool {
	isWrite := event.Has(fsnotify.Write)
	isCreate := event.Has(fsnotify.Create)
	isRename := event.Has(fsnotify.Rename)
	isDelete := event.Has(fsnotify.Remove)

	if !(isWrite || isCreate || isRename || isDelete) {
		return false
	}

	if mapping.IsHidden(event.Name) {
		return false
	}

	if isCreate {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := f.addTree(event.Name); err != nil {
				f.logger.Warn("unable to watch new directory",
					logging.String("path", event.Name),
					logging.Error(err),
				)
			}
			return true
		}
	}

	if mapping.HasMappingFileExtension(event.Name) {
		return true
	}

	// A removed or renamed directory leaves no trace to stat, so anything
	// without an extension is treated as one.
	return (isDelete || isRename) && filepath.Ext(event.Name) == ""
}
