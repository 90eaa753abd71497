package ignored_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"citetally/internal/ignored"
	"citetally/internal/prefs"
)

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func newLedger(t *testing.T) (*ignored.Ledger, *prefs.Memory, *clock) {
	t.Helper()
	c := &clock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	store := prefs.NewMemory(nil)
	durable := ignored.NewDurableStore(store, c.Now, nil)
	return ignored.NewLedger(nil, durable, c.Now, nil), store, c
}

func TestRetryEligibleThresholds(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		count int
		days  int
		want  bool
	}{
		{0, 0, true},
		{1, 7, false},
		{1, 8, true},
		{2, 29, false},
		{2, 31, true},
		{3, 90, false},
		{3, 91, true},
		{4, 179, false},
		{9, 181, true},
	}
	for _, tc := range cases {
		entry := ignored.Entry{Count: tc.count, LastChecked: base}
		got := ignored.RetryEligible(entry, base.AddDate(0, 0, tc.days))
		if got != tc.want {
			t.Errorf("count=%d days=%d: got %v want %v", tc.count, tc.days, got, tc.want)
		}
	}
}

func TestMarkNotFoundPersistsAndBlocks(t *testing.T) {
	ctx := context.Background()
	ledger, store, c := newLedger(t)

	if err := ledger.MarkNotFound(ctx, 42, "crossref"); err != nil {
		t.Fatalf("MarkNotFound: %v", err)
	}
	if err := ledger.MarkNotFound(ctx, 42, "crossref"); err != nil {
		t.Fatalf("MarkNotFound: %v", err)
	}

	raw, ok, _ := store.Get(ctx, prefs.KeyIgnoredItems)
	if !ok {
		t.Fatal("expected ignoredItems preference to be written")
	}
	var doc map[string]map[string]ignored.Entry
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	entry := doc["crossref"]["42"]
	if entry.Count != 2 || !entry.LastChecked.Equal(c.now) {
		t.Fatalf("unexpected entry %+v", entry)
	}

	c.now = c.now.AddDate(0, 0, 29)
	ignoredAuto, err := ledger.IsIgnored(ctx, 42, "crossref", true)
	if err != nil || !ignoredAuto {
		t.Fatalf("expected blocked at 29 days, got %v err=%v", ignoredAuto, err)
	}
	ignoredManual, _ := ledger.IsIgnored(ctx, 42, "crossref", false)
	if ignoredManual {
		t.Fatal("manual runs must not be blocked")
	}

	c.now = c.now.AddDate(0, 0, 2)
	ignoredAuto, _ = ledger.IsIgnored(ctx, 42, "crossref", true)
	if ignoredAuto {
		t.Fatal("expected retry eligible at 31 days")
	}
}

func TestSessionQuarantineTakesPrecedence(t *testing.T) {
	ctx := context.Background()
	ledger, _, _ := newLedger(t)

	_ = ledger.MarkNotFound(ctx, 7, "crossref")
	_ = ledger.MarkNoIdentifier(ctx, 7, "inspire")

	got, _ := ledger.IsIgnored(ctx, 7, "inspire", true)
	if !got {
		t.Fatal("session pair should be ignored")
	}
	// The session holds record 7, so the durable entry is not consulted.
	got, _ = ledger.IsIgnored(ctx, 7, "crossref", true)
	if got {
		t.Fatal("session membership should decide for a held record")
	}
	blocked, _ := ledger.Blocked(ctx, 7, "crossref")
	if !blocked {
		t.Fatal("durable store should still block crossref")
	}
}

func TestMarkNoIdentifierIsNotDurable(t *testing.T) {
	ctx := context.Background()
	ledger, store, _ := newLedger(t)

	_ = ledger.MarkNoIdentifier(ctx, 3, "crossref")
	if _, ok, _ := store.Get(ctx, prefs.KeyIgnoredItems); ok {
		t.Fatal("session quarantine must not touch preferences")
	}
}

func TestClearRemovesFromBothStores(t *testing.T) {
	ctx := context.Background()
	ledger, _, _ := newLedger(t)

	_ = ledger.MarkNotFound(ctx, 5, "crossref")
	_ = ledger.MarkNotFound(ctx, 5, "inspire")
	_ = ledger.MarkNoIdentifier(ctx, 5, "semanticscholar")

	if err := ledger.Clear(ctx, 5, "crossref"); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	entries, _ := ledger.Entries(ctx)
	if _, ok := entries["crossref"]; ok {
		t.Fatal("empty database map should be removed")
	}
	if _, ok := entries["inspire"][5]; !ok {
		t.Fatal("inspire entry should remain")
	}

	if err := ledger.Clear(ctx, 5, ""); err != nil {
		t.Fatalf("Clear all: %v", err)
	}
	entries, _ = ledger.Entries(ctx)
	if len(entries) != 0 {
		t.Fatalf("expected empty ledger, got %v", entries)
	}
	got, _ := ledger.IsIgnored(ctx, 5, "semanticscholar", true)
	if got {
		t.Fatal("session entry should be cleared")
	}
}

func TestBlockedForAll(t *testing.T) {
	ctx := context.Background()
	ledger, _, _ := newLedger(t)
	dbs := []string{"crossref", "inspire"}

	_ = ledger.MarkNotFound(ctx, 1, "crossref")
	all, _ := ledger.BlockedForAll(ctx, 1, dbs)
	if all {
		t.Fatal("only one database blocked")
	}
	_ = ledger.MarkNotFound(ctx, 1, "inspire")
	all, _ = ledger.BlockedForAll(ctx, 1, dbs)
	if !all {
		t.Fatal("expected record blocked for every database")
	}
}

func TestSweepDropsMissingRecords(t *testing.T) {
	ctx := context.Background()
	ledger, _, _ := newLedger(t)

	_ = ledger.MarkNotFound(ctx, 1, "crossref")
	_ = ledger.MarkNotFound(ctx, 2, "crossref")
	_ = ledger.MarkNotFound(ctx, 3, "crossref")
	_ = ledger.MarkNoIdentifier(ctx, 2, "inspire")

	exists := func(_ context.Context, id int64) (bool, error) {
		switch id {
		case 1:
			return true, nil
		case 3:
			return false, errors.New("lookup failed")
		}
		return false, nil
	}
	removed, err := ledger.Sweep(ctx, exists)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if removed != 2 {
		t.Fatalf("expected 2 removals, got %d", removed)
	}
	entries, _ := ledger.Entries(ctx)
	if len(entries["crossref"]) != 2 {
		t.Fatalf("unexpected entries %v", entries)
	}
	if _, ok := entries["crossref"][3]; !ok {
		t.Fatalf("record with failed lookup should stay, got %v", entries)
	}
}

func TestSweepKeepsEntriesWhenLookupFails(t *testing.T) {
	ctx := context.Background()
	ledger, _, _ := newLedger(t)
	for id := int64(1); id <= 3; id++ {
		if err := ledger.MarkNotFound(ctx, id, "crossref"); err != nil {
			t.Fatalf("MarkNotFound(%d): %v", id, err)
		}
	}

	locked := func(context.Context, int64) (bool, error) {
		return false, errors.New("database is locked")
	}
	removed, err := ledger.Sweep(ctx, locked)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if removed != 0 {
		t.Fatalf("expected no removals, got %d", removed)
	}
	entries, _ := ledger.Entries(ctx)
	if len(entries["crossref"]) != 3 {
		t.Fatalf("expected all entries kept, got %v", entries)
	}
	blocked, err := ledger.Blocked(ctx, 2, "crossref")
	if err != nil || !blocked {
		t.Fatalf("Blocked = %v, %v", blocked, err)
	}
}

func TestCorruptPreferenceReadsAsEmpty(t *testing.T) {
	ctx := context.Background()
	c := &clock{now: time.Now()}
	store := prefs.NewMemory(map[string]string{prefs.KeyIgnoredItems: "{not json"})
	ledger := ignored.NewLedger(nil, ignored.NewDurableStore(store, c.Now, nil), c.Now, nil)

	blocked, err := ledger.Blocked(ctx, 1, "crossref")
	if err != nil || blocked {
		t.Fatalf("expected unblocked, got %v err=%v", blocked, err)
	}
	if err := ledger.MarkNotFound(ctx, 1, "crossref"); err != nil {
		t.Fatalf("MarkNotFound: %v", err)
	}
	entries, _ := ledger.Entries(ctx)
	if entries["crossref"][1].Count != 1 {
		t.Fatalf("expected fresh entry, got %v", entries)
	}
}

func TestSweeperRunsUntilCancelled(t *testing.T) {
	ledger, _, _ := newLedger(t)
	ctx, cancel := context.WithCancel(context.Background())
	_ = ledger.MarkNotFound(ctx, 9, "crossref")

	swept := make(chan struct{}, 1)
	sweeper := &ignored.Sweeper{
		Ledger: ledger,
		Exists: func(context.Context, int64) (bool, error) {
			select {
			case swept <- struct{}{}:
			default:
			}
			return false, nil
		},
		Interval: time.Hour,
	}
	done := make(chan error, 1)
	go func() { done <- sweeper.Run(ctx) }()

	select {
	case <-swept:
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper did not run")
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}
}
