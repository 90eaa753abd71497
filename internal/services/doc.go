// Package services defines shared utilities consumed by the update scheduler
// and the citation database clients.
//
// Key responsibilities:
//   - Context helpers that stamp record IDs, database names, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper, so callers can tell a
//     retryable lookup failure from a configuration mistake with errors.Is.
package services
