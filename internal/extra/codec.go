package extra

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrNoEntries is returned when Merge is called without counts to write.
	ErrNoEntries = errors.New("extra: no citation entries to write")
	// ErrEmptyTitle is returned when an entry has a blank display title.
	ErrEmptyTitle = errors.New("extra: entry title is empty")
)

var citationKeyAnchor = regexp.MustCompile(`(?i)^Citation Key: \S+`)

// CountEntry is one database's count to be written.
type CountEntry struct {
	Title string
	Count int
}

// Database pairs a database name with the display title used in tally lines.
type Database struct {
	Name    string
	Display string
}

// ColumnView is the per-database summary shown in record listings. Counts
// holds "-" for databases without a tally line.
type ColumnView struct {
	Counts    []string
	Databases []string
}

// Merge rewrites text so it carries exactly one current-format line per entry.
func Merge(text string, entries []CountEntry, now time.Time) (string, error) {
	if len(entries) == 0 {
		return text, ErrNoEntries
	}
	titles := make([]string, 0, len(entries))
	for _, e := range entries {
		title := strings.TrimSpace(e.Title)
		if title == "" {
			return text, ErrEmptyTitle
		}
		titles = append(titles, title)
	}

	compiled := make([]*regexp.Regexp, 0, len(rules))
	for _, r := range rules {
		compiled = append(compiled, r.Compile(titles))
	}

	var lines []string
	if text != "" {
		for _, line := range strings.Split(text, "\n") {
			if !matchesAny(compiled, line) {
				lines = append(lines, line)
			}
		}
	}

	date := now.Format("2006-01-02")
	for i, e := range entries {
		lines = insertBeforeAnchor(lines, fmt.Sprintf("Citations: %d (%s) [%s]", e.Count, titles[i], date))
	}
	return strings.Join(lines, "\n"), nil
}

func matchesAny(patterns []*regexp.Regexp, line string) bool {
	for _, p := range patterns {
		if p.MatchString(line) {
			return true
		}
	}
	return false
}

func insertBeforeAnchor(lines []string, entry string) []string {
	for i, line := range lines {
		if citationKeyAnchor.MatchString(line) {
			lines = append(lines, "")
			copy(lines[i+1:], lines[i:])
			lines[i] = entry
			return lines
		}
	}
	return append(lines, entry)
}

func countPatterns(display string) (dated, plain *regexp.Regexp) {
	quoted := regexp.QuoteMeta(display)
	dated = regexp.MustCompile(`(?i)^Citations: *(\d+) *\(` + quoted + `\) *\[(\d{4}-\d{1,2}-\d{1,2})\]`)
	plain = regexp.MustCompile(`(?i)^Citations: *(\d+) *\(` + quoted + `\)`)
	return dated, plain
}

// Count returns the first tally for display found in text.
func Count(text, display string) (int, bool) {
	if text == "" {
		return 0, false
	}
	dated, plain := countPatterns(display)
	for _, line := range strings.Split(text, "\n") {
		m := dated.FindStringSubmatch(line)
		if m == nil {
			m = plain.FindStringSubmatch(line)
		}
		if m != nil {
			n, err := strconv.Atoi(m[1])
			if err == nil {
				return n, true
			}
		}
	}
	return 0, false
}

// DecodeColumnView summarises the tallies for databases in order. It returns
// nil when none of them has a line.
func DecodeColumnView(text string, databases []Database) *ColumnView {
	if text == "" {
		return nil
	}
	view := &ColumnView{}
	found := false
	for _, db := range databases {
		view.Databases = append(view.Databases, db.Name)
		if n, ok := Count(text, db.Display); ok {
			view.Counts = append(view.Counts, strconv.Itoa(n))
			found = true
			continue
		}
		view.Counts = append(view.Counts, "-")
	}
	if !found {
		return nil
	}
	return view
}

// EntryDate returns the date on the first dated current-format line for
// display, along with the date text as written.
func EntryDate(text, display string) (time.Time, string, bool) {
	if text == "" {
		return time.Time{}, "", false
	}
	dated, _ := countPatterns(display)
	for _, line := range strings.Split(text, "\n") {
		m := dated.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		t, err := time.ParseInLocation("2006-1-2", m[2], time.Local)
		if err != nil {
			continue
		}
		return t, m[2], true
	}
	return time.Time{}, "", false
}
