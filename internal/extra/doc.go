// Package extra reads and rewrites citation tally lines kept in a record's
// free-text "extra" field.
//
// The current line format is
//
//	Citations: <count> (<database display name>) [YYYY-MM-DD]
//
// Merge replaces any current or legacy line for the databases being written
// and leaves every unrelated line where it was. New lines go immediately
// before a Better BibTeX "Citation Key:" line when one is present so the key
// stays last.
package extra
