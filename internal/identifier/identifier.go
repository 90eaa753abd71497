// Package identifier extracts the lookup identifier (DOI or arXiv id) from a
// library record.
package identifier

import (
	"regexp"
	"strings"

	"citetally/internal/library"
)

// Identifier types.
const (
	TypeDOI   = "doi"
	TypeArxiv = "arxiv"
)

var arxivPattern = regexp.MustCompile(`(?i)arXiv:\s*([\w.-]+/\d+|\d+\.\d+)`)

// Identifier names a record in an external citation database.
type Identifier struct {
	Type string
	ID   string
}

// FieldSource is satisfied by library records.
type FieldSource interface {
	Field(name string) string
}

// FromRecord returns the record's DOI, or else the first arXiv id mentioned in
// its extra field. ok is false when neither is present.
func FromRecord(rec FieldSource) (Identifier, bool) {
	if rec == nil {
		return Identifier{}, false
	}
	if doi := strings.TrimSpace(rec.Field(library.FieldDOI)); doi != "" {
		return Identifier{Type: TypeDOI, ID: doi}, true
	}
	if m := arxivPattern.FindStringSubmatch(rec.Field(library.FieldExtra)); m != nil {
		return Identifier{Type: TypeArxiv, ID: m[1]}, true
	}
	return Identifier{}, false
}

// IsArxivDOI reports whether id is a DOI minted for an arXiv preprint.
func (id Identifier) IsArxivDOI() bool {
	return id.Type == TypeDOI && strings.Contains(strings.ToLower(id.ID), "arxiv")
}

func (id Identifier) String() string {
	if id.Type == "" {
		return ""
	}
	return id.Type + ":" + id.ID
}
