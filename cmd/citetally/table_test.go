package main

import (
	"fmt"
	"strings"
	"testing"

	"citetally/internal/extra"
	"citetally/internal/preflight"
)

func TestRenderTableAlignsColumns(t *testing.T) {
	out := renderTable([]string{"ID", "Title"}, [][]string{{"7", "Gauge theory"}, {"12"}}, []columnAlignment{alignRight, alignLeft})
	for _, want := range []string{"ID", "TITLE", "Gauge theory", "12"} {
		if !strings.Contains(out, want) {
			t.Fatalf("table missing %q:\n%s", want, out)
		}
	}
	if renderTable(nil, nil, nil) != "" {
		t.Fatal("expected empty output without headers")
	}
}

func TestCitationCell(t *testing.T) {
	view := &extra.ColumnView{Counts: []string{"5", "-"}, Databases: []string{"crossref", "inspire"}}
	if got := citationCell(view, false); got != "5 / -" {
		t.Fatalf("citationCell = %q", got)
	}
	single := &extra.ColumnView{Counts: []string{"9"}, Databases: []string{"crossref"}}
	if got := citationCell(single, true); got != "9" {
		t.Fatalf("single database should stay uncolored, got %q", got)
	}
	if got := citationCell(nil, true); got != "" {
		t.Fatalf("nil view = %q", got)
	}
}

func TestTooltipLines(t *testing.T) {
	view := &extra.ColumnView{Counts: []string{"5", "-"}, Databases: []string{"crossref", "semanticscholar"}}
	got := tooltipLines(view)
	want := []string{"Crossref: 5", "Semantic Scholar: -"}
	if len(got) != len(want) {
		t.Fatalf("tooltipLines = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("line %d = %q want %q", i, got[i], want[i])
		}
	}
}

func TestRenderStatusLineNoColor(t *testing.T) {
	got := renderStatusLine("citetally", statusError, "Not running", false)
	want := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, "citetally:", "[ERROR] Not running")
	if got != want {
		t.Fatalf("renderStatusLine mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestRenderStatusLineWithColor(t *testing.T) {
	got := renderStatusLine("citetally", statusOK, "Running", true)
	if !strings.HasPrefix(got, ansiGreen) {
		t.Fatalf("expected green prefix, got %q", got)
	}
	if !strings.HasSuffix(got, ansiReset) {
		t.Fatalf("expected reset suffix, got %q", got)
	}
}

func TestCheckLines(t *testing.T) {
	lines := checkLines([]preflight.Result{
		{Name: "Library", Passed: true, Detail: "lib.db"},
		{Name: "Network", Detail: "timed out"},
	}, false)
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if !strings.Contains(lines[0], "[OK] lib.db") || !strings.Contains(lines[1], "[ERROR] timed out") {
		t.Fatalf("unexpected lines %q", lines)
	}
}

func TestParseRecordIDs(t *testing.T) {
	ids, err := parseRecordIDs([]string{"3,4", "9"})
	if err != nil || len(ids) != 3 || ids[0] != 3 || ids[2] != 9 {
		t.Fatalf("parseRecordIDs = %v, %v", ids, err)
	}
	for _, bad := range [][]string{{"0"}, {"x"}, {","}} {
		if _, err := parseRecordIDs(bad); err == nil {
			t.Fatalf("expected error for %v", bad)
		}
	}
}
