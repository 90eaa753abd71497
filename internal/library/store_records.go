package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Filter narrows Search results.
type Filter struct {
	IncludeDeleted bool
	ExcludeTypes   []string
	Kind           string
}

// Add inserts a new record and its fields, returning the stored copy.
func (s *Store) Add(ctx context.Context, rec *Record) (*Record, error) {
	if rec == nil {
		return nil, errors.New("record is nil")
	}
	ctx = ensureContext(ctx)
	kind := rec.Kind
	if kind == "" {
		kind = KindUser
	}
	added := rec.DateAdded
	if added.IsZero() {
		added = time.Now()
	}
	addedStamp := added.UTC().Format(time.RFC3339Nano)

	var id int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO records (item_type, library_kind, deleted, date_added, date_modified) VALUES (?, ?, 0, ?, ?)`,
			rec.ItemType, kind, addedStamp, addedStamp,
		)
		if err != nil {
			return err
		}
		if id, err = res.LastInsertId(); err != nil {
			return err
		}
		for name, value := range rec.fields {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO record_fields (record_id, name, value) VALUES (?, ?, ?)`, id, name, value,
			); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("insert record: %w", err)
	}
	return s.Get(ctx, id)
}

// Get fetches a record with its fields. A missing record returns nil without error.
func (s *Store) Get(ctx context.Context, id int64) (*Record, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx,
		`SELECT id, item_type, library_kind, deleted, date_added, date_modified FROM records WHERE id = ?`, id)

	var (
		rec           Record
		deleted       int
		added, edited string
	)
	err := row.Scan(&rec.ID, &rec.ItemType, &rec.Kind, &deleted, &added, &edited)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}
	rec.Deleted = deleted != 0
	rec.DateAdded = parseTime(added)
	rec.DateModified = parseTime(edited)

	rows, err := s.db.QueryContext(ctx, `SELECT name, value FROM record_fields WHERE record_id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("get record fields: %w", err)
	}
	defer rows.Close()
	rec.fields = map[string]string{}
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return nil, fmt.Errorf("scan record field: %w", err)
		}
		rec.fields[name] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate record fields: %w", err)
	}
	return &rec, nil
}

// Save persists staged field edits in a single transaction.
func (s *Store) Save(ctx context.Context, rec *Record) error {
	if rec == nil {
		return errors.New("record is nil")
	}
	if !rec.Changed() {
		return nil
	}
	ctx = ensureContext(ctx)
	now := time.Now().UTC()
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE records SET date_modified = ? WHERE id = ?`,
			now.Format(time.RFC3339Nano), rec.ID)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("record %d does not exist", rec.ID)
		}
		for name := range rec.changed {
			value, ok := rec.fields[name]
			if !ok {
				if _, err := tx.ExecContext(ctx,
					`DELETE FROM record_fields WHERE record_id = ? AND name = ?`, rec.ID, name); err != nil {
					return err
				}
				continue
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO record_fields (record_id, name, value) VALUES (?, ?, ?)
                 ON CONFLICT(record_id, name) DO UPDATE SET value = excluded.value`,
				rec.ID, name, value,
			); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save record %d: %w", rec.ID, err)
	}
	rec.changed = nil
	rec.DateModified = now
	return nil
}

// Trash marks a record deleted without removing its rows.
func (s *Store) Trash(ctx context.Context, id int64) error {
	if _, err := s.execWithRetry(ctx, `UPDATE records SET deleted = 1 WHERE id = ?`, id); err != nil {
		return fmt.Errorf("trash record %d: %w", id, err)
	}
	return nil
}

// Purge removes a record and its fields permanently.
func (s *Store) Purge(ctx context.Context, id int64) error {
	if _, err := s.execWithRetry(ctx, `DELETE FROM records WHERE id = ?`, id); err != nil {
		return fmt.Errorf("purge record %d: %w", id, err)
	}
	return nil
}

// Exists reports whether the record is present and not in the trash.
func (s *Store) Exists(ctx context.Context, id int64) (bool, error) {
	var deleted int
	err := s.db.QueryRowContext(ensureContext(ctx), `SELECT deleted FROM records WHERE id = ?`, id).Scan(&deleted)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check record %d: %w", id, err)
	}
	return deleted == 0, nil
}

// Search returns matching record IDs ordered by ID.
func (s *Store) Search(ctx context.Context, filter Filter) ([]int64, error) {
	var (
		clauses []string
		args    []any
	)
	if !filter.IncludeDeleted {
		clauses = append(clauses, "deleted = 0")
	}
	if filter.Kind != "" {
		clauses = append(clauses, "library_kind = ?")
		args = append(args, filter.Kind)
	}
	if len(filter.ExcludeTypes) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(filter.ExcludeTypes)), ",")
		clauses = append(clauses, "item_type NOT IN ("+placeholders+")")
		for _, t := range filter.ExcludeTypes {
			args = append(args, t)
		}
	}
	query := "SELECT id FROM records"
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY id"
	return s.queryIDs(ctx, query, args...)
}

// AddedSince lists records inserted after afterID, oldest first.
func (s *Store) AddedSince(ctx context.Context, afterID int64) ([]int64, error) {
	return s.queryIDs(ctx, `SELECT id FROM records WHERE id > ? ORDER BY id`, afterID)
}

// LatestID returns the highest record ID, or 0 for an empty library.
func (s *Store) LatestID(ctx context.Context) (int64, error) {
	var id sql.NullInt64
	if err := s.db.QueryRowContext(ensureContext(ctx), `SELECT MAX(id) FROM records`).Scan(&id); err != nil {
		return 0, fmt.Errorf("latest record id: %w", err)
	}
	return id.Int64, nil
}

func (s *Store) queryIDs(ctx context.Context, query string, args ...any) ([]int64, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan record id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return ids, nil
}

func parseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t
	}
	return time.Time{}
}
