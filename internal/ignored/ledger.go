package ignored

import (
	"context"
	"log/slog"
	"time"

	"citetally/internal/logging"
)

// RetryEligible reports whether a blocked pair may be queried again at now.
func RetryEligible(entry Entry, now time.Time) bool {
	var required float64
	switch {
	case entry.Count == 1:
		required = 7
	case entry.Count == 2:
		required = 30
	case entry.Count == 3:
		required = 90
	case entry.Count > 3:
		required = 180
	default:
		return true
	}
	days := now.Sub(entry.LastChecked).Hours() / 24
	return days > required
}

// Ledger combines the session quarantine with the durable not-found store.
type Ledger struct {
	session *MemoryStore
	durable RecordBlockStore
	now     func() time.Time
	logger  *slog.Logger
}

// NewLedger builds a Ledger. A nil session gets a fresh quarantine.
func NewLedger(session *MemoryStore, durable RecordBlockStore, now func() time.Time, logger *slog.Logger) *Ledger {
	if now == nil {
		now = time.Now
	}
	if session == nil {
		session = NewMemoryStore(now)
	}
	return &Ledger{
		session: session,
		durable: durable,
		now:     now,
		logger:  logging.NewComponentLogger(logger, "ignored"),
	}
}

// MarkNotFound records that database has no entry for the record.
func (l *Ledger) MarkNotFound(ctx context.Context, recordID int64, database string) error {
	l.logger.Debug("record not found; added to ledger",
		logging.Int64(logging.FieldItemID, recordID),
		logging.String(logging.FieldDatabase, database),
	)
	return l.durable.Add(ctx, recordID, database)
}

// MarkNoIdentifier quarantines the pair for the rest of the session.
func (l *Ledger) MarkNoIdentifier(ctx context.Context, recordID int64, database string) error {
	return l.session.Add(ctx, recordID, database)
}

// IsIgnored reports whether an update run should skip the pair. Manual runs
// (autoOnly false) never skip. A record in the session quarantine is judged
// by the quarantine alone.
func (l *Ledger) IsIgnored(ctx context.Context, recordID int64, database string, autoOnly bool) (bool, error) {
	if !autoOnly {
		return false, nil
	}
	if l.session.Holds(recordID) {
		_, ok, err := l.session.Lookup(ctx, recordID, database)
		return ok, err
	}
	return l.Blocked(ctx, recordID, database)
}

// Blocked consults only the durable store: true while the pair's cool-off
// period is still running.
func (l *Ledger) Blocked(ctx context.Context, recordID int64, database string) (bool, error) {
	entry, ok, err := l.durable.Lookup(ctx, recordID, database)
	if err != nil || !ok {
		return false, err
	}
	return !RetryEligible(entry, l.now()), nil
}

// Lookup returns the durable entry for the pair.
func (l *Ledger) Lookup(ctx context.Context, recordID int64, database string) (Entry, bool, error) {
	return l.durable.Lookup(ctx, recordID, database)
}

// BlockedForAll reports whether every database in databases is blocked for the record.
func (l *Ledger) BlockedForAll(ctx context.Context, recordID int64, databases []string) (bool, error) {
	if len(databases) == 0 {
		return false, nil
	}
	for _, db := range databases {
		blocked, err := l.Blocked(ctx, recordID, db)
		if err != nil {
			return false, err
		}
		if !blocked {
			return false, nil
		}
	}
	return true, nil
}

// Clear forgets the pair in both stores; an empty database clears the record everywhere.
func (l *Ledger) Clear(ctx context.Context, recordID int64, database string) error {
	if err := l.session.Remove(ctx, recordID, database); err != nil {
		return err
	}
	return l.durable.Remove(ctx, recordID, database)
}

// Entries returns the durable ledger contents.
func (l *Ledger) Entries(ctx context.Context) (map[string]map[int64]Entry, error) {
	return l.durable.Entries(ctx)
}

// Sweep drops entries for records that no longer exist. Entries whose lookup
// fails are kept for the next sweep.
func (l *Ledger) Sweep(ctx context.Context, exists func(ctx context.Context, recordID int64) (bool, error)) (int, error) {
	keep := func(id int64) bool {
		ok, err := exists(ctx, id)
		return err != nil || ok
	}
	removed, err := l.durable.Prune(ctx, keep)
	if err != nil {
		return removed, err
	}
	sessionRemoved, err := l.session.Prune(ctx, keep)
	return removed + sessionRemoved, err
}
