// Package library provides the SQLite-backed bibliographic record store that
// hosts citation tallies.
//
// It owns the records, their named fields (title, DOI, extra, ...), the
// preference key-value table, and the monotonically increasing record IDs that
// double as the "record added" feed the daemon polls. Saves are transactional
// and retried on SQLITE_BUSY so the CLI and daemon can share one database file.
//
// Open guarantees the schema exists; a database created by a different schema
// version is rejected with ErrSchemaMismatch rather than migrated.
package library
