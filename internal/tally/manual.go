package tally

import (
	"context"
	"fmt"
	"math"

	"github.com/google/uuid"

	"citetally/internal/library"
	"citetally/internal/locale"
	"citetally/internal/logging"
)

// RunOptions configures one run.
type RunOptions struct {
	// Silent runs show no progress to the operator.
	Silent bool
	// Databases overrides the databaseOrder preference when set.
	Databases []string
}

// Summary reports the result of a run.
type Summary struct {
	Updated int
	Total   int
	Aborted bool
	Reason  string
}

func newCorrelationID() string {
	return uuid.NewString()
}

func percent(index, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(index) / float64(total) * 100))
}

func (u *Updater) loadRecords(ctx context.Context, ids []int64, keep func(*library.Record) bool) ([]*library.Record, error) {
	records := make([]*library.Record, 0, len(ids))
	for _, id := range ids {
		rec, err := u.host.Get(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("load record %d: %w", id, err)
		}
		if rec == nil || !keep(rec) {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// UpdateRecords refreshes the tallies of the selected records. Non-regular
// records are dropped; when nothing remains ErrNoValidItems is returned.
// Updated counts records whose annotation was rewritten.
func (u *Updater) UpdateRecords(ctx context.Context, ids []int64, opts RunOptions) (Summary, error) {
	records, err := u.loadRecords(ctx, ids, (*library.Record).IsRegular)
	if err != nil {
		return Summary{}, err
	}
	if len(records) == 0 {
		if !opts.Silent {
			sink := u.progress(false)
			sink.Notice(u.printer.Sprintf(locale.ProgressNoValidItems))
			sink.Close()
		}
		return Summary{}, ErrNoValidItems
	}
	return u.runManual(ctx, records, opts)
}

// HandleAdded processes records that were just added to the library. Feed
// items and non-regular records are ignored, and an empty result is not an
// error.
func (u *Updater) HandleAdded(ctx context.Context, ids []int64, opts RunOptions) (Summary, error) {
	records, err := u.loadRecords(ctx, ids, func(rec *library.Record) bool {
		return !rec.IsFeedItem() && rec.IsRegular()
	})
	if err != nil || len(records) == 0 {
		return Summary{}, err
	}
	added := make([]int64, 0, len(records))
	for _, rec := range records {
		added = append(added, rec.ID)
	}
	u.logger.Info("new regular records added", logging.Any("ids", added))
	return u.runManual(ctx, records, opts)
}

func (u *Updater) runManual(ctx context.Context, records []*library.Record, opts RunOptions) (Summary, error) {
	ctx, logger := u.runContext(ctx)
	databases, err := u.resolveDatabases(ctx, opts.Databases)
	if err != nil {
		return Summary{}, err
	}
	summary := Summary{Total: len(records)}
	if len(databases) == 0 {
		logger.Info("no databases configured; nothing to update")
		return summary, nil
	}

	sink := u.progress(opts.Silent)
	defer sink.Close()
	sink.Start(AppName, u.printer.Sprintf(locale.ProgressGettingTallies))

	for idx, rec := range records {
		if err := ctx.Err(); err != nil {
			summary.Aborted = true
			summary.Reason = err.Error()
			return summary, err
		}
		sink.Tick(idx+1, summary.Total, percent(idx, summary.Total),
			u.printer.Sprintf(locale.ProgressItemCounter, idx+1, summary.Total))

		outcome, err := u.UpdateRecord(ctx, rec, databases, false)
		if err != nil {
			logging.ErrorWithContext(logger, "record update failed", "record_update_failed",
				logging.Int64(logging.FieldItemID, rec.ID),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check library database access"),
			)
			continue
		}
		if outcome.Updated {
			summary.Updated++
		}
	}

	sink.Succeed(u.printer.Sprintf(locale.ProgressItemsUpdated, summary.Updated))
	logger.Info("manual update finished",
		logging.Int("updated", summary.Updated),
		logging.Int("total", summary.Total),
		logging.String(logging.FieldEventType, "manual_update_finished"),
	)
	return summary, nil
}
