package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// PrefStore is the library's preference key-value table.
type PrefStore struct {
	store *Store
}

// Prefs exposes the preference table.
func (s *Store) Prefs() *PrefStore {
	return &PrefStore{store: s}
}

// Get returns the stored value and whether the key was present.
func (p *PrefStore) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := p.store.db.QueryRowContext(ensureContext(ctx), `SELECT value FROM prefs WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get pref %q: %w", key, err)
	}
	return value, true, nil
}

// Set upserts a preference value.
func (p *PrefStore) Set(ctx context.Context, key, value string) error {
	_, err := p.store.execWithRetry(ctx,
		`INSERT INTO prefs (key, value, updated_at) VALUES (?, ?, ?)
         ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("set pref %q: %w", key, err)
	}
	return nil
}

// Delete removes a preference so readers see the default again.
func (p *PrefStore) Delete(ctx context.Context, key string) error {
	if _, err := p.store.execWithRetry(ctx, `DELETE FROM prefs WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete pref %q: %w", key, err)
	}
	return nil
}
