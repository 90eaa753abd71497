package main

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"citetally/internal/config"
	"citetally/internal/ignored"
	"citetally/internal/library"
	"citetally/internal/logging"
	"citetally/internal/sources"
)

func newIgnoredCommand(ctx *commandContext) *cobra.Command {
	ignoredCmd := &cobra.Command{
		Use:   "ignored",
		Short: "Inspect the record/database pairs skipped by automatic runs",
	}
	ignoredCmd.AddCommand(newIgnoredListCommand(ctx))
	ignoredCmd.AddCommand(newIgnoredClearCommand(ctx))
	return ignoredCmd
}

func openLedger(store *library.Store) *ignored.Ledger {
	durable := ignored.NewDurableStore(store.Prefs(), nil, logging.NewNop())
	return ignored.NewLedger(nil, durable, nil, logging.NewNop())
}

func newIgnoredListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List ignored entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withLibrary(func(_ *config.Config, store *library.Store) error {
				entries, err := openLedger(store).Entries(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(entries) == 0 {
					fmt.Fprintln(out, "No ignored entries")
					return nil
				}

				dbs := make([]string, 0, len(entries))
				for db := range entries {
					dbs = append(dbs, db)
				}
				sort.Strings(dbs)
				var rows [][]string
				for _, db := range dbs {
					ids := make([]int64, 0, len(entries[db]))
					for id := range entries[db] {
						ids = append(ids, id)
					}
					sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
					for _, id := range ids {
						entry := entries[db][id]
						rows = append(rows, []string{
							sources.Display(db),
							strconv.FormatInt(id, 10),
							entry.LastChecked.Local().Format("2006-01-02"),
							strconv.Itoa(entry.Count),
						})
					}
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Database", "Record", "Last checked", "Misses"},
					rows,
					[]columnAlignment{alignLeft, alignRight, alignLeft, alignRight},
				))
				return nil
			})
		},
	}
}

func newIgnoredClearCommand(ctx *commandContext) *cobra.Command {
	var database string

	cmd := &cobra.Command{
		Use:   "clear <id>...",
		Short: "Clear ignored entries for records so automatic runs retry them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseRecordIDs(args)
			if err != nil {
				return err
			}
			if database != "" && !sources.Known(database) {
				return fmt.Errorf("unknown database %q", database)
			}
			return ctx.withLibrary(func(_ *config.Config, store *library.Store) error {
				ledger := openLedger(store)
				for _, id := range ids {
					if err := ledger.Clear(cmd.Context(), id, database); err != nil {
						return err
					}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d record(s)\n", len(ids))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&database, "database", "", "Only clear entries for this database")
	return cmd
}
