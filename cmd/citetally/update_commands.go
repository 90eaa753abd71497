package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"citetally/internal/library"
	"citetally/internal/tally"
)

func newUpdateCommand(ctx *commandContext) *cobra.Command {
	var databases []string
	var silent bool

	cmd := &cobra.Command{
		Use:   "update <id>...",
		Short: "Update citation tallies for the given records",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseRecordIDs(args)
			if err != nil {
				return err
			}
			return ctx.withUpdater(cmd, func(updater *tally.Updater, _ *library.Store) error {
				summary, err := updater.UpdateRecords(cmd.Context(), ids, tally.RunOptions{Silent: silent, Databases: databases})
				if errors.Is(err, tally.ErrNoValidItems) {
					return nil
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Updated %d of %d record(s)\n", summary.Updated, summary.Total)
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVar(&databases, "database", nil, "Limit the update to these databases (default: preference order)")
	cmd.Flags().BoolVar(&silent, "silent", false, "Suppress progress output")
	return cmd
}

func newRetallyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retally",
		Short: "Retally records whose citation counts are outdated",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withUpdater(cmd, func(updater *tally.Updater, _ *library.Store) error {
				summary, err := updater.RetallyOutdated(cmd.Context(), tally.RunOptions{})
				if err != nil && !errors.Is(err, tally.ErrMaxRetries) {
					return err
				}
				out := cmd.OutOrStdout()
				if summary.Total == 0 {
					fmt.Fprintln(out, "No outdated records")
					return nil
				}
				fmt.Fprintf(out, "Updated %d of %d outdated record(s)\n", summary.Updated, summary.Total)
				if summary.Aborted {
					fmt.Fprintf(out, "Stopped early: %s\n", summary.Reason)
				}
				return nil
			})
		},
	}
}
