package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"citetally/internal/config"
	"citetally/internal/extra"
	"citetally/internal/identifier"
	"citetally/internal/library"
	"citetally/internal/locale"
	"citetally/internal/prefs"
	"citetally/internal/sources"
	"citetally/internal/tally"
)

func newAddCommand(ctx *commandContext) *cobra.Command {
	var (
		itemType string
		title    string
		doi      string
		extraVal string
		feed     bool
		tallyNow bool
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a record to the library",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withUpdater(cmd, func(updater *tally.Updater, store *library.Store) error {
				fields := map[string]string{}
				if title != "" {
					fields[library.FieldTitle] = title
				}
				if doi != "" {
					fields[library.FieldDOI] = doi
				}
				if extraVal != "" {
					fields[library.FieldExtra] = strings.ReplaceAll(extraVal, `\n`, "\n")
				}
				rec := library.NewRecord(itemType, fields)
				if feed {
					rec.Kind = library.KindFeed
				}
				stored, err := store.Add(cmd.Context(), rec)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added record %d\n", stored.ID)
				if !tallyNow {
					return nil
				}
				summary, err := updater.HandleAdded(cmd.Context(), []int64{stored.ID}, tally.RunOptions{})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Updated %d of %d record(s)\n", summary.Updated, summary.Total)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&itemType, "type", "journalArticle", "Item type")
	cmd.Flags().StringVar(&title, "title", "", "Record title")
	cmd.Flags().StringVar(&doi, "doi", "", "DOI")
	cmd.Flags().StringVar(&extraVal, "extra", "", "Initial extra field text, lines separated by a literal \\n")
	cmd.Flags().BoolVar(&feed, "feed", false, "Store the record as a feed item")
	cmd.Flags().BoolVar(&tallyNow, "tally", false, "Tally the new record immediately")
	return cmd
}

func newListCommand(ctx *commandContext) *cobra.Command {
	var includeDeleted bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List library records with their citation tallies",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withLibrary(func(_ *config.Config, store *library.Store) error {
				c := cmd.Context()
				ids, err := store.Search(c, library.Filter{IncludeDeleted: includeDeleted})
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(ids) == 0 {
					fmt.Fprintln(out, "Library is empty")
					return nil
				}
				databases, colorize, err := columnSettings(cmd, store)
				if err != nil {
					return err
				}

				rows := make([][]string, 0, len(ids))
				for _, id := range ids {
					rec, err := store.Get(c, id)
					if err != nil {
						return err
					}
					if rec == nil {
						continue
					}
					view := extra.DecodeColumnView(rec.Field(library.FieldExtra), databases)
					rows = append(rows, []string{
						strconv.FormatInt(rec.ID, 10),
						rec.ItemType,
						truncate(rec.Title(), 48),
						identifierCell(rec),
						citationCell(view, colorize),
					})
				}
				headers := []string{"ID", "Type", "Title", "Identifier", locale.T(locale.ColumnCitations)}
				fmt.Fprintln(out, renderTable(headers, rows, []columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight}))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&includeDeleted, "deleted", false, "Include trashed records")
	return cmd
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a record's fields and citation tallies",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseRecordIDs(args)
			if err != nil {
				return err
			}
			return ctx.withLibrary(func(_ *config.Config, store *library.Store) error {
				rec, err := store.Get(cmd.Context(), ids[0])
				if err != nil {
					return err
				}
				if rec == nil {
					return fmt.Errorf("record %d not found", ids[0])
				}
				databases, colorize, err := columnSettings(cmd, store)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "ID:         %d\n", rec.ID)
				fmt.Fprintf(out, "Type:       %s\n", rec.ItemType)
				fmt.Fprintf(out, "Title:      %s\n", rec.Title())
				fmt.Fprintf(out, "Identifier: %s\n", identifierCell(rec))
				fmt.Fprintf(out, "Added:      %s\n", rec.DateAdded.Local().Format("2006-01-02 15:04"))
				fmt.Fprintf(out, "Regular:    %s\n", yesNo(rec.IsRegular()))
				fmt.Fprintf(out, "Trashed:    %s\n", yesNo(rec.Deleted))

				view := extra.DecodeColumnView(rec.Field(library.FieldExtra), databases)
				if view != nil {
					fmt.Fprintf(out, "%-11s %s\n", locale.T(locale.ColumnCitations)+":", citationCell(view, colorize))
					for _, line := range tooltipLines(view) {
						fmt.Fprintf(out, "  %s\n", line)
					}
				}
				if text := rec.Field(library.FieldExtra); text != "" {
					fmt.Fprintln(out, "Extra:")
					for _, line := range strings.Split(text, "\n") {
						fmt.Fprintf(out, "  %s\n", line)
					}
				}
				return nil
			})
		},
	}
}

// columnSettings resolves the configured databases and whether counts are colored.
func columnSettings(cmd *cobra.Command, store *library.Store) ([]extra.Database, bool, error) {
	order, err := prefs.DatabaseOrder(cmd.Context(), store.Prefs())
	if err != nil {
		return nil, false, err
	}
	useColors, err := prefs.UseColors(cmd.Context(), store.Prefs())
	if err != nil {
		return nil, false, err
	}
	return sources.ExtraDatabases(order), useColors && shouldColorize(cmd.OutOrStdout()), nil
}

func identifierCell(rec *library.Record) string {
	id, ok := identifier.FromRecord(rec)
	if !ok {
		return "-"
	}
	return id.String()
}

func truncate(value string, width int) string {
	runes := []rune(value)
	if len(runes) <= width {
		return value
	}
	return string(runes[:width-1]) + "…"
}
