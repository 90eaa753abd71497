package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"golang.org/x/sync/errgroup"

	"citetally/internal/config"
	"citetally/internal/ignored"
	"citetally/internal/library"
	"citetally/internal/logging"
	"citetally/internal/preflight"
	"citetally/internal/tally"
)

// Daemon runs the background tally services and enforces single-instance execution.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *library.Store
	updater *tally.Updater
	now     func() time.Time

	lockPath string
	lock     *flock.Flock

	running  atomic.Bool
	lastSeen atomic.Int64
	cancel   context.CancelFunc
	done     chan error
}

// Status represents daemon runtime information.
type Status struct {
	Running          bool
	AutomaticRunning bool
	LibraryPath      string
	LockFilePath     string
	LastSeenRecordID int64
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *library.Store, updater *tally.Updater, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || updater == nil {
		return nil, errors.New("daemon requires config, library store, and updater")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	lockPath := cfg.LockPath()
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		updater:  updater,
		now:      time.Now,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock and launches the background services.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another citetally daemon instance is already running")
	}

	for _, result := range preflight.RunAll(ctx, d.cfg) {
		if !result.Passed {
			logging.WarnWithContext(d.logger, "preflight check failed", "preflight_failed",
				logging.String("check", result.Name),
				logging.String("detail", result.Detail),
				logging.String(logging.FieldImpact, "background updates may fail until resolved"),
			)
		}
	}
	if removed := logging.PruneOldLogs(d.logger, d.cfg.Paths.LogDir, "citetally*.log", d.cfg.LogPath(), d.cfg.Logging.RetentionDays, d.now()); removed > 0 {
		d.logger.Info("old logs pruned", logging.Int("removed", removed))
	}

	latest, err := d.store.LatestID(ctx)
	if err != nil {
		_ = d.lock.Unlock()
		return fmt.Errorf("read latest record: %w", err)
	}
	d.lastSeen.Store(latest)

	runCtx, cancel := context.WithCancel(ctx)
	group, groupCtx := errgroup.WithContext(runCtx)
	group.Go(func() error { return d.startupRun(groupCtx) })
	group.Go(func() error { return d.sweeper().Run(groupCtx) })
	group.Go(func() error { return d.watchAdded(groupCtx) })

	d.cancel = cancel
	d.done = make(chan error, 1)
	go func() { d.done <- group.Wait() }()

	d.running.Store(true)
	d.logger.Info("citetally daemon started",
		logging.String("lock", d.lockPath),
		logging.String("library", d.cfg.LibraryPath()),
	)
	return nil
}

// Wait blocks until the background services exit.
func (d *Daemon) Wait() error {
	if d.done == nil {
		return nil
	}
	err := <-d.done
	d.done <- err
	return err
}

// Stop cancels background work and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if err := d.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		d.logger.Warn("background service exited with error", logging.Error(err))
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("citetally daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Status returns a snapshot of daemon state.
func (d *Daemon) Status() Status {
	return Status{
		Running:          d.running.Load(),
		AutomaticRunning: d.updater.AutomaticRunning(),
		LibraryPath:      d.cfg.LibraryPath(),
		LockFilePath:     d.lockPath,
		LastSeenRecordID: d.lastSeen.Load(),
	}
}

// LockHeld reports whether another process holds the daemon lock at path.
func LockHeld(path string) (bool, error) {
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return false, fmt.Errorf("probe lock: %w", err)
	}
	if ok {
		_ = lock.Unlock()
		return false, nil
	}
	return true, nil
}

func (d *Daemon) startupRun(ctx context.Context) error {
	summary, err := d.updater.StartAutomatic(ctx, tally.RunOptions{})
	switch {
	case err == nil:
		if summary.Total > 0 {
			d.logger.Info("startup update finished",
				logging.Int("updated", summary.Updated),
				logging.Int("total", summary.Total),
				logging.Bool("aborted", summary.Aborted),
			)
		}
	case errors.Is(err, tally.ErrAutoUpdateDisabled):
		d.logger.Debug("startup update disabled by preference")
	case ctx.Err() != nil:
	default:
		logging.WarnWithContext(d.logger, "startup update failed", "startup_update_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "outdated records wait for the next run"),
		)
	}
	return nil
}

func (d *Daemon) sweeper() *ignored.Sweeper {
	return &ignored.Sweeper{
		Ledger:       d.updater.Ledger(),
		Exists:       d.store.Exists,
		InitialDelay: d.cfg.SweepInitialDelay(),
		Interval:     d.cfg.SweepInterval(),
		Logger:       d.logger,
	}
}

// watchAdded polls for records inserted since the last pass and tallies them.
func (d *Daemon) watchAdded(ctx context.Context) error {
	interval := d.cfg.WatchInterval()
	if interval <= 0 {
		<-ctx.Done()
		return nil
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		d.pollAdded(ctx)
	}
}

func (d *Daemon) pollAdded(ctx context.Context) {
	ids, err := d.store.AddedSince(ctx, d.lastSeen.Load())
	if err != nil {
		if ctx.Err() == nil {
			d.logger.Warn("added record poll failed", logging.Error(err))
		}
		return
	}
	if len(ids) == 0 {
		return
	}
	d.lastSeen.Store(ids[len(ids)-1])

	summary, err := d.updater.HandleAdded(ctx, ids, tally.RunOptions{Silent: true})
	if err != nil {
		if ctx.Err() == nil {
			logging.WarnWithContext(d.logger, "added record update failed", "added_update_failed",
				logging.Error(err),
				logging.Int("records", len(ids)),
			)
		}
		return
	}
	d.logger.Info("added records tallied",
		logging.Int("updated", summary.Updated),
		logging.Int("total", summary.Total),
		logging.String(logging.FieldEventType, "added_tallied"),
	)
}
