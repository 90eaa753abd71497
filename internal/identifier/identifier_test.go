package identifier

import (
	"testing"

	"citetally/internal/library"
)

type fields map[string]string

func (f fields) Field(name string) string { return f[name] }

func TestFromRecord(t *testing.T) {
	tests := []struct {
		name   string
		fields fields
		want   Identifier
		ok     bool
	}{
		{"doi", fields{library.FieldDOI: "10.1000/xyz"}, Identifier{TypeDOI, "10.1000/xyz"}, true},
		{"doi wins", fields{library.FieldDOI: "10.1/a", library.FieldExtra: "arXiv: 2101.00001"}, Identifier{TypeDOI, "10.1/a"}, true},
		{"new arxiv", fields{library.FieldExtra: "note\narXiv:2101.00001v2"}, Identifier{TypeArxiv, "2101.00001"}, true},
		{"old arxiv", fields{library.FieldExtra: "ARXIV: hep-th/9901001"}, Identifier{TypeArxiv, "hep-th/9901001"}, true},
		{"blank doi", fields{library.FieldDOI: "  "}, Identifier{}, false},
		{"nothing", fields{library.FieldExtra: "Citations: 3 (Crossref) [2024-01-01]"}, Identifier{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := FromRecord(tt.fields)
			if ok != tt.ok || got != tt.want {
				t.Fatalf("FromRecord() = %+v, %v; want %+v, %v", got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestIsArxivDOI(t *testing.T) {
	if !(Identifier{TypeDOI, "10.48550/arXiv.2101.00001"}).IsArxivDOI() {
		t.Fatal("expected arXiv DOI")
	}
	if (Identifier{TypeArxiv, "2101.00001"}).IsArxivDOI() {
		t.Fatal("arxiv identifiers are not DOIs")
	}
	if (Identifier{TypeDOI, "10.1103/PhysRevD.1.1"}).IsArxivDOI() {
		t.Fatal("regular DOI misdetected")
	}
}

func TestFromRecordWithLibraryRecord(t *testing.T) {
	rec := library.NewRecord("journalArticle", map[string]string{library.FieldDOI: "10.1/b"})
	got, ok := FromRecord(rec)
	if !ok || got.ID != "10.1/b" {
		t.Fatalf("unexpected %+v", got)
	}
}
