package prefs

import (
	"context"
	"slices"
	"strings"

	"citetally/internal/locale"
)

// KnownDatabases are the database names accepted in databaseOrder.
var KnownDatabases = []string{"crossref", "semanticscholar", "inspire"}

// Validation is the outcome of checking a database order value.
type Validation struct {
	Valid     bool
	Message   string
	Databases []string
}

// ValidateDatabaseOrder checks a comma separated database list. Input is
// trimmed and lowercased and empty segments are dropped. It never writes.
func ValidateDatabaseOrder(input string) Validation {
	var databases []string
	for _, part := range strings.Split(strings.ToLower(strings.TrimSpace(input)), ",") {
		if name := strings.TrimSpace(part); name != "" {
			databases = append(databases, name)
		}
	}

	seen := make(map[string]struct{}, len(databases))
	for _, db := range databases {
		if _, dup := seen[db]; dup {
			return Validation{Message: locale.T(locale.PrefDatabaseDuplicate)}
		}
		seen[db] = struct{}{}
	}

	var invalid []string
	for _, db := range databases {
		if !slices.Contains(KnownDatabases, db) {
			invalid = append(invalid, db)
		}
	}
	if len(invalid) > 0 {
		return Validation{Message: locale.T(locale.PrefDatabaseInvalid, strings.Join(invalid, ", "))}
	}

	if len(databases) == 0 || len(databases) > 3 {
		return Validation{Message: locale.T(locale.PrefDatabaseCount)}
	}

	return Validation{Valid: true, Message: locale.T(locale.PrefDatabaseValid), Databases: databases}
}

// SaveDatabaseOrder validates input and, only when valid, stores the
// normalized order.
func SaveDatabaseOrder(ctx context.Context, s Store, input string) (Validation, error) {
	v := ValidateDatabaseOrder(input)
	if !v.Valid {
		return v, nil
	}
	if err := s.Set(ctx, KeyDatabaseOrder, strings.Join(v.Databases, ",")); err != nil {
		return v, err
	}
	return v, nil
}
