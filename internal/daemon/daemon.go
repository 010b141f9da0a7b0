package daemon

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"log/slog"

	"github.com/gofrs/flock"

	"storyboard/internal/assets"
	"storyboard/internal/catalog"
	"storyboard/internal/config"
	"storyboard/internal/logging"
	"storyboard/internal/server"
)

// Daemon owns the HTTP server lifecycle and enforces single-instance
// execution through a lock file under the data directory.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *catalog.Store
	assets *assets.Store
	server *server.Server

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
}

// Status reports daemon runtime information for operator tooling.
type Status struct {
	Running      bool
	Address      string
	DBPath       string
	UploadDir    string
	LockFilePath string
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *catalog.Store, assetStore *assets.Store, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || assetStore == nil || logger == nil {
		return nil, errors.New("daemon requires config, store, asset store, and logger")
	}

	srv, err := server.New(cfg, store, assetStore, logger)
	if err != nil {
		return nil, fmt.Errorf("create http server: %w", err)
	}

	lockPath := cfg.LockPath()
	return &Daemon{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		assets:   assetStore,
		server:   srv,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the instance lock and launches the HTTP server.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another storyboard daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.server.Start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("start http server: %w", err)
	}
	d.cancel = cancel

	d.running.Store(true)
	d.logger.Info("storyboard daemon started",
		logging.String("address", d.server.Addr()),
		logging.String("lock", d.lockPath))
	return nil
}

// Stop shuts the server down and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.server.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("storyboard daemon stopped")
}

// Close stops the daemon and closes the catalog store.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Addr returns the address the HTTP server is bound to.
func (d *Daemon) Addr() string {
	return d.server.Addr()
}

// Status describes the current daemon state.
func (d *Daemon) Status() Status {
	return Status{
		Running:      d.running.Load(),
		Address:      d.server.Addr(),
		DBPath:       d.store.Path(),
		UploadDir:    d.assets.Dir(),
		LockFilePath: d.lockPath,
	}
}
