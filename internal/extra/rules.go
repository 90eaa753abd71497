package extra

import (
	"fmt"
	"regexp"
	"strings"
)

const datePattern = `\[\d{4}-\d{1,2}-\d{1,2}\]`

// Rule recognises one historical or current tally line format.
type Rule struct {
	Name    string
	pattern func(titles string) string
}

// Compile returns the rule's expression for the given display titles.
func (r Rule) Compile(titles []string) *regexp.Regexp {
	return regexp.MustCompile("(?i)" + r.pattern(titleAlternation(titles)))
}

// Match reports whether line is a tally line of this format for any of titles.
func (r Rule) Match(line string, titles []string) bool {
	return r.Compile(titles).MatchString(line)
}

var rules = []Rule{
	{Name: "current", pattern: func(t string) string {
		return `^Citations: *\d+ *\(` + t + `\) *` + datePattern
	}},
	{Name: "citation-count", pattern: func(t string) string {
		return `^Citation *Count: *\d+ *\(` + t + `\) *` + datePattern
	}},
	{Name: "citations-colon", pattern: func(t string) string {
		return `^Citations \(` + t + `\): \d+`
	}},
	{Name: "n-citations", pattern: func(t string) string {
		return `^\d+ citations \(` + t + `\)`
	}},
	{Name: "n-citations-dated", pattern: func(t string) string {
		return `^\d+ citations \(` + t + `\) ` + datePattern
	}},
	{Name: "placeholder-key", pattern: func(string) string {
		return `^Citations: *\d+ \(citationtally-database-\w+\) ` + datePattern
	}},
	{Name: "legacy-source", pattern: func(string) string {
		return `^\d+ citations \((?:Crossref/DOI|Inspire/DOI|Inspire/arXiv|Semantic Scholar/DOI|Semantic Scholar/arXiv)\) ` + datePattern
	}},
}

// Rules returns the ordered rule table consulted by Merge.
func Rules() []Rule {
	out := make([]Rule, len(rules))
	copy(out, rules)
	return out
}

// MatchRule applies the named rule to line.
func MatchRule(name, line string, titles []string) (bool, error) {
	for _, r := range rules {
		if r.Name == name {
			return r.Match(line, titles), nil
		}
	}
	return false, fmt.Errorf("extra: unknown rule %q", name)
}

func titleAlternation(titles []string) string {
	quoted := make([]string, 0, len(titles))
	for _, t := range titles {
		if t = strings.TrimSpace(t); t != "" {
			quoted = append(quoted, regexp.QuoteMeta(t))
		}
	}
	if len(quoted) == 0 {
		// matches nothing, so title-bound rules stay inert
		return `[^\s\S]`
	}
	return "(?:" + strings.Join(quoted, "|") + ")"
}
