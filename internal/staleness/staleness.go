// Package staleness decides which library records need fresh citation counts.
package staleness

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"citetally/internal/extra"
	"citetally/internal/identifier"
	"citetally/internal/ignored"
	"citetally/internal/library"
	"citetally/internal/logging"
	"citetally/internal/sources"
)

// Reason strings without a database prefix.
const (
	ReasonNoIdentifier          = "no_identifier"
	ReasonNoExtraField          = "no_extra_field"
	ReasonNoApplicableDatabases = "no_applicable_databases"
)

// Ledger is the durable ignore ledger as seen by the classifier.
type Ledger interface {
	Lookup(ctx context.Context, recordID int64, database string) (ignored.Entry, bool, error)
	BlockedForAll(ctx context.Context, recordID int64, databases []string) (bool, error)
}

// Host is the record store searched for candidates.
type Host interface {
	Search(ctx context.Context, filter library.Filter) ([]int64, error)
	Get(ctx context.Context, id int64) (*library.Record, error)
}

// Decision is the classification of one record.
type Decision struct {
	Outdated bool
	Reasons  []string
}

// Reason joins the reasons the way they are logged.
func (d Decision) Reason() string {
	return strings.Join(d.Reasons, "|")
}

// Summary counts how the candidate filter treated the library.
type Summary struct {
	Total          int
	Regular        int
	WithIdentifier int
	Ignored        int
	Outdated       int
}

// Classifier applies the cutoff and the ignore ledger to records.
type Classifier struct {
	Ledger       Ledger
	CutoffMonths int
	Logger       *slog.Logger
}

// Classify reports whether the record's tallies are stale for any checkable
// database. Databases that cannot answer for the identifier, or that are
// still in a cool-off period, are not checkable.
func (c *Classifier) Classify(ctx context.Context, rec *library.Record, id identifier.Identifier, databases []string, now time.Time) (Decision, error) {
	if id.Type == "" {
		return Decision{Reasons: []string{ReasonNoIdentifier}}, nil
	}
	text := rec.Field(library.FieldExtra)
	if text == "" {
		return Decision{Outdated: true, Reasons: []string{ReasonNoExtraField}}, nil
	}

	cutoff := now.AddDate(0, -c.CutoffMonths, 0)
	var (
		reasons   []string
		outdated  bool
		checkable int
	)
	for _, db := range databases {
		if !sources.Applicable(db, id) {
			kind := id.Type
			if id.IsArxivDOI() {
				kind = "arxiv_doi"
			}
			reasons = append(reasons, db+"_not_applicable_for_"+kind)
			continue
		}

		entry, blocked, err := c.Ledger.Lookup(ctx, rec.ID, db)
		if err != nil {
			return Decision{}, fmt.Errorf("ledger lookup: %w", err)
		}
		if blocked {
			if !ignored.RetryEligible(entry, now) {
				reasons = append(reasons, db+"_blocked_until_retry")
				continue
			}
			reasons = append(reasons, db+"_retry_eligible")
		}
		checkable++

		date, raw, ok := extra.EntryDate(text, sources.Display(db))
		if !ok {
			reasons = append(reasons, db+"_no_data")
			outdated = true
			continue
		}
		days := int(now.Sub(date).Hours() / 24)
		if date.Before(cutoff) {
			reasons = append(reasons, fmt.Sprintf("%s_outdated_%s_%ddays", db, raw, days))
			outdated = true
		} else {
			reasons = append(reasons, fmt.Sprintf("%s_recent_%s_%ddays", db, raw, days))
		}
	}

	if checkable == 0 {
		return Decision{Reasons: []string{ReasonNoApplicableDatabases}}, nil
	}
	return Decision{Outdated: outdated, Reasons: reasons}, nil
}

type candidate struct {
	id    int64
	added time.Time
}

// Candidates returns the user library records needing an automatic update,
// newest first.
func (c *Classifier) Candidates(ctx context.Context, host Host, databases []string, now time.Time) ([]int64, Summary, error) {
	logger := logging.NewComponentLogger(c.Logger, "staleness")
	ids, err := host.Search(ctx, library.Filter{
		Kind:         library.KindUser,
		ExcludeTypes: []string{library.TypeAttachment, library.TypeNote},
	})
	if err != nil {
		return nil, Summary{}, fmt.Errorf("search library: %w", err)
	}

	summary := Summary{Total: len(ids)}
	var picked []candidate
	for _, recordID := range ids {
		rec, err := host.Get(ctx, recordID)
		if err != nil {
			return nil, summary, fmt.Errorf("load record %d: %w", recordID, err)
		}
		if rec == nil || !rec.IsRegular() {
			continue
		}
		summary.Regular++

		id, ok := identifier.FromRecord(rec)
		if !ok {
			continue
		}
		summary.WithIdentifier++

		blocked, err := c.Ledger.BlockedForAll(ctx, rec.ID, databases)
		if err != nil {
			return nil, summary, fmt.Errorf("ledger check: %w", err)
		}
		if blocked {
			summary.Ignored++
			continue
		}

		decision, err := c.Classify(ctx, rec, id, databases, now)
		if err != nil {
			return nil, summary, err
		}
		if !decision.Outdated {
			continue
		}
		logger.Debug("record selected for update",
			logging.Int64(logging.FieldItemID, rec.ID),
			logging.String("identifier", id.String()),
			logging.String("reason", decision.Reason()),
		)
		picked = append(picked, candidate{id: rec.ID, added: rec.DateAdded})
		summary.Outdated++
	}

	sort.SliceStable(picked, func(i, j int) bool {
		return picked[i].added.After(picked[j].added)
	})
	out := make([]int64, len(picked))
	for i, p := range picked {
		out[i] = p.id
	}

	logger.Info("candidate filter summary",
		logging.Int("total", summary.Total),
		logging.Int("regular", summary.Regular),
		logging.Int("with_identifier", summary.WithIdentifier),
		logging.Int("ignored", summary.Ignored),
		logging.Int("outdated", summary.Outdated),
		logging.String(logging.FieldEventType, "candidate_summary"),
	)
	return out, summary, nil
}
