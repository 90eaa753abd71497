package ignored

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"citetally/internal/logging"
	"citetally/internal/prefs"
)

// Entry is one blocked (record, database) pair.
type Entry struct {
	Count       int       `json:"count"`
	LastChecked time.Time `json:"lastChecked"`
}

// RecordBlockStore persists blocked pairs.
type RecordBlockStore interface {
	Add(ctx context.Context, recordID int64, database string) error
	Lookup(ctx context.Context, recordID int64, database string) (Entry, bool, error)
	// Remove deletes one pair, or every pair for the record when database is empty.
	Remove(ctx context.Context, recordID int64, database string) error
	Entries(ctx context.Context) (map[string]map[int64]Entry, error)
	// Prune drops pairs whose record keep rejects and returns how many were removed.
	Prune(ctx context.Context, keep func(recordID int64) bool) (int, error)
}

// MemoryStore is the in-process session quarantine.
type MemoryStore struct {
	mu      sync.Mutex
	records map[int64]map[string]Entry
	now     func() time.Time
}

// NewMemoryStore returns an empty quarantine.
func NewMemoryStore(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{records: map[int64]map[string]Entry{}, now: now}
}

func (m *MemoryStore) Add(_ context.Context, recordID int64, database string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	dbs, ok := m.records[recordID]
	if !ok {
		dbs = map[string]Entry{}
		m.records[recordID] = dbs
	}
	dbs[database] = Entry{Count: 1, LastChecked: m.now().UTC()}
	return nil
}

func (m *MemoryStore) Lookup(_ context.Context, recordID int64, database string) (Entry, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.records[recordID][database]
	return entry, ok, nil
}

// Holds reports whether the record is quarantined for any database.
func (m *MemoryStore) Holds(recordID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.records[recordID]
	return ok
}

func (m *MemoryStore) Remove(_ context.Context, recordID int64, database string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if database == "" {
		delete(m.records, recordID)
		return nil
	}
	if dbs, ok := m.records[recordID]; ok {
		delete(dbs, database)
		if len(dbs) == 0 {
			delete(m.records, recordID)
		}
	}
	return nil
}

func (m *MemoryStore) Entries(context.Context) (map[string]map[int64]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]map[int64]Entry{}
	for id, dbs := range m.records {
		for db, entry := range dbs {
			if out[db] == nil {
				out[db] = map[int64]Entry{}
			}
			out[db][id] = entry
		}
	}
	return out, nil
}

func (m *MemoryStore) Prune(_ context.Context, keep func(int64) bool) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, dbs := range m.records {
		if !keep(id) {
			removed += len(dbs)
			delete(m.records, id)
		}
	}
	return removed, nil
}

type document map[string]map[string]Entry

// DurableStore keeps "not found" pairs in the ignoredItems preference.
type DurableStore struct {
	mu     sync.Mutex
	prefs  prefs.Store
	now    func() time.Time
	logger *slog.Logger
}

// NewDurableStore wraps a preference store.
func NewDurableStore(store prefs.Store, now func() time.Time, logger *slog.Logger) *DurableStore {
	if now == nil {
		now = time.Now
	}
	return &DurableStore{prefs: store, now: now, logger: logging.NewComponentLogger(logger, "ignored")}
}

func (d *DurableStore) load(ctx context.Context) (document, error) {
	raw, ok, err := d.prefs.Get(ctx, prefs.KeyIgnoredItems)
	if err != nil {
		return nil, err
	}
	doc := document{}
	if !ok || raw == "" {
		return doc, nil
	}
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		logging.WarnWithContext(d.logger, "ignored items preference unreadable; treating as empty", "ignored_items_corrupt",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "run `citetally ignored clear` to reset the ledger"),
			logging.String(logging.FieldImpact, "previously ignored records may be queried again"),
		)
		return document{}, nil
	}
	for db, items := range doc {
		if items == nil {
			delete(doc, db)
		}
	}
	return doc, nil
}

func (d *DurableStore) save(ctx context.Context, doc document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return d.prefs.Set(ctx, prefs.KeyIgnoredItems, string(data))
}

func key(recordID int64) string {
	return strconv.FormatInt(recordID, 10)
}

// Add increments the not-found count for the pair and stamps it now.
func (d *DurableStore) Add(ctx context.Context, recordID int64, database string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	doc, err := d.load(ctx)
	if err != nil {
		return err
	}
	items, ok := doc[database]
	if !ok {
		items = map[string]Entry{}
		doc[database] = items
	}
	entry := items[key(recordID)]
	entry.Count++
	entry.LastChecked = d.now().UTC()
	items[key(recordID)] = entry
	return d.save(ctx, doc)
}

func (d *DurableStore) Lookup(ctx context.Context, recordID int64, database string) (Entry, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	doc, err := d.load(ctx)
	if err != nil {
		return Entry{}, false, err
	}
	entry, ok := doc[database][key(recordID)]
	return entry, ok, nil
}

func (d *DurableStore) Remove(ctx context.Context, recordID int64, database string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	doc, err := d.load(ctx)
	if err != nil {
		return err
	}
	modified := false
	for db, items := range doc {
		if database != "" && db != database {
			continue
		}
		if _, ok := items[key(recordID)]; ok {
			delete(items, key(recordID))
			modified = true
			if len(items) == 0 {
				delete(doc, db)
			}
		}
	}
	if !modified {
		return nil
	}
	return d.save(ctx, doc)
}

func (d *DurableStore) Entries(ctx context.Context) (map[string]map[int64]Entry, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	doc, err := d.load(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]map[int64]Entry, len(doc))
	for db, items := range doc {
		for k, entry := range items {
			id, convErr := strconv.ParseInt(k, 10, 64)
			if convErr != nil {
				continue
			}
			if out[db] == nil {
				out[db] = map[int64]Entry{}
			}
			out[db][id] = entry
		}
	}
	return out, nil
}

func (d *DurableStore) Prune(ctx context.Context, keep func(int64) bool) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	doc, err := d.load(ctx)
	if err != nil {
		return 0, err
	}
	removed := 0
	modified := false
	for db, items := range doc {
		for k := range items {
			id, convErr := strconv.ParseInt(k, 10, 64)
			if convErr != nil || !keep(id) {
				delete(items, k)
				removed++
			}
		}
		if len(items) == 0 {
			delete(doc, db)
			modified = true
		}
	}
	if removed == 0 && !modified {
		return 0, nil
	}
	return removed, d.save(ctx, doc)
}
