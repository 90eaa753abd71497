package tally

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"citetally/internal/library"
	"citetally/internal/locale"
	"citetally/internal/logging"
	"citetally/internal/prefs"
	"citetally/internal/progress"
	"citetally/internal/services"
)

type autoState struct {
	running atomic.Bool
}

// AutomaticRunning reports whether an automatic run is in flight.
func (u *Updater) AutomaticRunning() bool {
	return u.auto.running.Load()
}

func (u *Updater) runnable(ctx context.Context) error {
	if !u.host.Available(ctx) {
		return fmt.Errorf("%w: library unavailable", ErrNotRunnable)
	}
	if !u.network.Online(ctx) {
		return fmt.Errorf("%w: %w", ErrNotRunnable, ErrOffline)
	}
	return nil
}

// StartAutomatic sweeps the library for records with stale tallies and
// refreshes them, newest first. It requires the autoUpdate preference to be
// startup. Updated counts records processed before the run ended.
func (u *Updater) StartAutomatic(ctx context.Context, opts RunOptions) (Summary, error) {
	mode, err := prefs.AutoUpdateMode(ctx, u.prefs)
	if err != nil {
		return Summary{}, err
	}
	if mode != prefs.AutoUpdateStartup {
		return Summary{}, ErrAutoUpdateDisabled
	}
	return u.runAutomatic(ctx, opts)
}

// RetallyOutdated runs the automatic sweep regardless of the autoUpdate
// preference.
func (u *Updater) RetallyOutdated(ctx context.Context, opts RunOptions) (Summary, error) {
	return u.runAutomatic(ctx, opts)
}

func (u *Updater) runAutomatic(ctx context.Context, opts RunOptions) (Summary, error) {
	if !u.auto.running.CompareAndSwap(false, true) {
		return Summary{}, ErrAutoUpdateInProgress
	}
	defer u.auto.running.Store(false)

	ctx, logger := u.runContext(ctx)
	databases, err := u.resolveDatabases(ctx, opts.Databases)
	if err != nil {
		return Summary{}, err
	}
	classifier, err := u.Classifier(ctx)
	if err != nil {
		return Summary{}, err
	}
	queue, _, err := classifier.Candidates(ctx, u.host, databases, u.now())
	if err != nil {
		return Summary{}, err
	}
	summary := Summary{Total: len(queue)}
	if len(queue) == 0 {
		logger.Info("automatic update: no records need updating")
		return summary, nil
	}
	logger.Info("automatic update: records need updating", logging.Int("count", len(queue)))

	if err := u.runnable(ctx); err != nil {
		logger.Info("automatic update not runnable", logging.Error(err))
		summary.Aborted = true
		summary.Reason = err.Error()
		return summary, err
	}
	if err := u.sleep(ctx, u.cfg.StartDelay()); err != nil {
		summary.Aborted = true
		summary.Reason = err.Error()
		return summary, err
	}

	sink := u.progress(opts.Silent)
	defer sink.Close()
	sink.Start(u.printer.Sprintf(locale.AutoUpdateTitle, AppName),
		u.printer.Sprintf(locale.AutoUpdateOutdated, len(queue)))

	index, runErr := u.processQueue(ctx, logger, sink, queue, databases)
	summary.Updated = index
	if runErr != nil {
		summary.Aborted = true
		summary.Reason = runErr.Error()
		if errors.Is(runErr, ErrMaxRetries) {
			summary.Reason = u.printer.Sprintf(locale.MaxRetriesReached)
		}
		sink.Fail(u.printer.Sprintf(locale.AutoUpdateStopped, summary.Reason))
		logging.WarnWithContext(logger, "automatic update stopped", "auto_update_stopped",
			logging.Int("updated", summary.Updated),
			logging.Int("total", summary.Total),
			logging.Error(runErr),
			logging.String(logging.FieldErrorHint, "check your connection and run `citetally retally` again"),
			logging.String(logging.FieldImpact, "remaining records keep their previous tallies"),
		)
		return summary, runErr
	}

	sink.Succeed(u.printer.Sprintf(locale.AutoUpdateCompleted, summary.Updated, summary.Total))
	logger.Info("automatic update completed",
		logging.Int("updated", summary.Updated),
		logging.Int("total", summary.Total),
		logging.String(logging.FieldEventType, "auto_update_completed"),
	)
	return summary, nil
}

// processQueue walks queue with a cursor and returns the cursor position
// reached. A record is retried after RetryDelay when the network is down, a
// database answers 429 or the save fails transiently; the retry budget is
// shared by the whole run.
func (u *Updater) processQueue(ctx context.Context, logger *slog.Logger, sink progress.Sink, queue []int64, databases []string) (int, error) {
	maxRetries := u.cfg.Scheduler.MaxRetries
	retries := 0
	index := 0
	for index < len(queue) {
		if err := ctx.Err(); err != nil {
			return index, err
		}
		total := len(queue)
		sink.Tick(index+1, total, percent(index, total),
			u.printer.Sprintf(locale.AutoUpdateItem, index+1, total))

		retryErr := u.processOne(ctx, logger, queue[index], databases)
		if retryErr == nil {
			index++
			if err := u.sleep(ctx, u.cfg.ItemDelay()); err != nil {
				return index, err
			}
			continue
		}
		if ctx.Err() != nil {
			return index, ctx.Err()
		}

		retries++
		if retries >= maxRetries {
			return index, fmt.Errorf("%w: %w", ErrMaxRetries, retryErr)
		}
		logger.Info("automatic update retrying record",
			logging.Int64(logging.FieldItemID, queue[index]),
			logging.Int("attempt", retries),
			logging.Int("max", maxRetries),
			logging.Error(retryErr),
		)
		sink.Notice(u.printer.Sprintf(locale.AutoUpdateRetry, retries, maxRetries))
		if err := u.sleep(ctx, u.cfg.RetryDelay()); err != nil {
			return index, err
		}
	}
	return index, nil
}

// processOne updates one queued record. A non-nil return means the record
// should be retried.
func (u *Updater) processOne(ctx context.Context, logger *slog.Logger, id int64, databases []string) error {
	if !u.network.Online(ctx) {
		return ErrOffline
	}
	rec, err := u.host.Get(ctx, id)
	if err != nil {
		return services.Wrap(services.ErrTransient, "tally", "load record", "", err)
	}
	if rec == nil || rec.Deleted {
		logger.Debug("queued record no longer present", logging.Int64(logging.FieldItemID, id))
		return nil
	}
	logger.Debug("processing record",
		logging.Int64(logging.FieldItemID, rec.ID),
		logging.String("title", rec.Field(library.FieldTitle)),
	)

	outcome, err := u.UpdateRecord(ctx, rec, databases, true)
	if err != nil {
		if services.Retryable(err) {
			return err
		}
		logging.ErrorWithContext(logger, "record update failed", "record_update_failed",
			logging.Int64(logging.FieldItemID, rec.ID),
			logging.Error(err),
		)
		return nil
	}
	if outcome.RateLimited {
		return services.Wrap(services.ErrRateLimited, "tally", "lookup", "database rate limited", nil)
	}
	return nil
}
