package server

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"sync"
	"time"

	"github.com/djordjev/mock-simulator/internal/packages/logging"
	"github.com/djordjev/mock-simulator/internal/packages/mapping"
	"github.com/djordjev/mock-simulator/internal/packages/metrics"
	"github.com/djordjev/mock-simulator/internal/packages/routes"
	"github.com/djordjev/mock-simulator/internal/packages/updating"
)

type Options struct {
	MockDir      string
	Ignore       []string
	MountPath    string
	SkipFSEvents bool
	Debounce     time.Duration
	Logger       logging.Logger
	Metrics      *metrics.Metrics

	// FileSystem replaces os.DirFS(MockDir) for loading, the watcher still uses MockDir.
	FileSystem fs.FS
}

// Mock keeps the compiled route table of a mock directory up to date and
// serves it as middleware.
type Mock struct {
	options Options
	loader  mapping.Loader
	store   *routes.Store
	updater updating.Updater
	logger  logging.Logger
	metrics *metrics.Metrics

	reloadLock sync.Mutex
	errLock    sync.RWMutex
	errors     []error
}

// NewMockMiddleware loads the mock directory once and, unless SkipFSEvents is
// set, starts watching it. An invalid initial load is logged and leaves an
// empty table; only a watcher that cannot be started is fatal.
func NewMockMiddleware(ctx context.Context, options Options) (*Mock, error) {
	logger := options.Logger
	if logger == nil {
		logger = logging.Nop()
	}

	fileSystem := options.FileSystem
	if fileSystem == nil {
		fileSystem = os.DirFS(options.MockDir)
	}

	loader, err := mapping.NewLoader(fileSystem, options.Ignore, logger)
	if err != nil {
		return nil, err
	}

	m := &Mock{
		options: options,
		loader:  loader,
		store:   routes.NewStore(),
		logger:  logger,
		metrics: options.Metrics,
	}

	_ = m.Reload(ctx)

	if options.SkipFSEvents {
		logger.Info("file watching disabled")
		return m, nil
	}

	opts := []updating.Option{updating.WithLogger(logger)}
	if options.Debounce > 0 {
		opts = append(opts, updating.WithDebounce(options.Debounce))
	}

	m.updater = updating.NewUpdater(options.MockDir, func() {
		if err := m.Reload(ctx); err == nil {
			logger.Info("Mock file parse success")
		}
	}, opts...)

	if err := m.updater.Start(ctx); err != nil {
		return nil, err
	}

	return m, nil
}

// Reload rebuilds the route table from disk. A configuration error or a mock
// directory that cannot be listed keeps the table that is currently served. Files that fail to load are left out and
// reported, the rest is still published.
func (m *Mock) Reload(ctx context.Context) error {
	m.reloadLock.Lock()
	defer m.reloadLock.Unlock()

	definition, loadErrs := m.loader.Load(ctx)
	for _, err := range loadErrs {
		m.logger.Error("mock file load failed", logging.Error(err))
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	if definition == nil {
		err := errors.Join(loadErrs...)
		m.setErrors(loadErrs)
		m.metrics.Reloaded(metrics.ReloadFailure, 0)
		m.logger.Error("mock directory unreadable, keeping previous routes",
			logging.Error(err),
			logging.Int("routes", m.store.Load().Len()),
		)
		return err
	}

	table, err := routes.Compile(definition)
	if err != nil {
		m.setErrors(append(loadErrs, err))
		m.metrics.Reloaded(metrics.ReloadFailure, 0)
		m.logger.Error("mock config invalid, keeping previous routes",
			logging.Error(err),
			logging.Int("routes", m.store.Load().Len()),
		)
		return err
	}

	m.store.Publish(table)
	m.setErrors(loadErrs)

	if len(loadErrs) > 0 {
		m.metrics.Reloaded(metrics.ReloadLoadError, table.Len())
	} else {
		m.metrics.Reloaded(metrics.ReloadSuccess, table.Len())
	}

	m.logger.Debug("mock routes compiled", logging.Int("routes", table.Len()))

	return errors.Join(loadErrs...)
}

// Errors returns what went wrong during the most recent reload.
func (m *Mock) Errors() []error {
	m.errLock.RLock()
	defer m.errLock.RUnlock()

	return append([]error(nil), m.errors...)
}

func (m *Mock) setErrors(errs []error) {
	m.errLock.Lock()
	defer m.errLock.Unlock()

	m.errors = errs
}

// Table returns the snapshot currently served.
func (m *Mock) Table() *routes.Table {
	return m.store.Load()
}

func (m *Mock) Close() error {
	if m.updater == nil {
		return nil
	}

	return m.updater.Stop()
}
