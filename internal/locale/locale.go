// Package locale holds the user-facing strings shown in progress output and
// preference validation, registered in a golang.org/x/text message catalog.
package locale

import (
	"sync"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Key identifies a catalog entry.
type Key string

const (
	ProgressGettingTallies Key = "progress-getting-citation-tallies"
	ProgressItemCounter    Key = "progress-item-counter"
	ProgressItemsUpdated   Key = "progress-items-updated"
	ProgressNoValidItems   Key = "progress-no-valid-items"
	AutoUpdateTitle        Key = "auto-update-title"
	AutoUpdateOutdated     Key = "auto-update-updating-outdated"
	AutoUpdateItem         Key = "auto-update-updating-item"
	AutoUpdateRetry        Key = "auto-update-connection-retry"
	AutoUpdateStopped      Key = "auto-update-stopped"
	AutoUpdateCompleted    Key = "auto-update-completed"
	ColumnCitations        Key = "column-citations"
	TooltipCitationTally   Key = "tooltip-citation-tallies"
	PrefDatabaseDuplicate  Key = "pref-database-duplicate"
	PrefDatabaseInvalid    Key = "pref-database-invalid"
	PrefDatabaseCount      Key = "pref-database-count"
	PrefDatabaseValid      Key = "pref-database-valid"
	MaxRetriesReached      Key = "auto-update-max-retries"
	AutoUpdateNoConnection Key = "auto-update-no-connection"
	MenuUpdateTallies      Key = "menuitem-update-citation-tallies"
	MenuRetallyOutdated    Key = "menuitem-retally-outdated-citations"
)

var english = map[Key]string{
	ProgressGettingTallies: "Getting citation tallies...",
	ProgressItemCounter:    "Item %d of %d",
	ProgressItemsUpdated:   "%d item(s) updated",
	ProgressNoValidItems:   "No valid items selected",
	AutoUpdateTitle:        "%s: automatic update",
	AutoUpdateOutdated:     "Updating %d outdated item(s)",
	AutoUpdateItem:         "Updating item %d of %d",
	AutoUpdateRetry:        "Connection problem, retrying (%d/%d)",
	AutoUpdateStopped:      "Automatic update stopped: %s",
	AutoUpdateCompleted:    "Automatic update completed: %d of %d item(s) updated",
	ColumnCitations:        "Citations",
	TooltipCitationTally:   "%s: %s",
	PrefDatabaseDuplicate:  "Duplicate databases found",
	PrefDatabaseInvalid:    "Invalid database(s): %s",
	PrefDatabaseCount:      "Please enter 1-3 databases",
	PrefDatabaseValid:      "Valid database configuration",
	MaxRetriesReached:      "max retries reached",
	AutoUpdateNoConnection: "no internet connection",
	MenuUpdateTallies:      "Update citation tallies",
	MenuRetallyOutdated:    "Retally outdated citations",
}

var (
	registerOnce sync.Once
	fallback     = language.English
)

func register() {
	registerOnce.Do(func() {
		for key, format := range english {
			_ = message.SetString(language.English, string(key), format)
		}
	})
}

// Printer renders catalog entries for one language.
type Printer struct {
	p *message.Printer
}

// NewPrinter returns a printer for the requested BCP 47 tag, falling back to
// English when the tag does not parse.
func NewPrinter(tag string) *Printer {
	register()
	parsed, err := language.Parse(tag)
	if err != nil {
		parsed = fallback
	}
	return &Printer{p: message.NewPrinter(parsed)}
}

// Sprintf renders the entry for key with args.
func (p *Printer) Sprintf(key Key, args ...any) string {
	return p.p.Sprintf(string(key), args...)
}

var (
	defaultOnce    sync.Once
	defaultPrinter *Printer
)

// T renders key with the default English printer.
func T(key Key, args ...any) string {
	defaultOnce.Do(func() { defaultPrinter = NewPrinter(fallback.String()) })
	return defaultPrinter.Sprintf(key, args...)
}
