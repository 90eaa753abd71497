package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"citetally/internal/config"
	"citetally/internal/daemon"
	"citetally/internal/library"
	"citetally/internal/preflight"
	"citetally/internal/prefs"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon, library and preference health",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withLibrary(func(cfg *config.Config, store *library.Store) error {
				c := cmd.Context()
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				var lines []string

				lines = append(lines, renderSectionHeader("Daemon", colorize)...)
				held, err := daemon.LockHeld(cfg.LockPath())
				switch {
				case err != nil:
					lines = append(lines, renderStatusLine("citetally", statusWarn, err.Error(), colorize))
				case held:
					lines = append(lines, renderStatusLine("citetally", statusOK, "Running", colorize))
				default:
					lines = append(lines, renderStatusLine("citetally", statusInfo, "Not running", colorize))
				}

				lines = append(lines, "")
				lines = append(lines, renderSectionHeader("Library", colorize)...)
				lines = append(lines, checkLines([]preflight.Result{preflight.CheckLibrary(c, store.Path(), store)}, colorize)...)
				ids, err := store.Search(c, library.Filter{})
				if err != nil {
					return err
				}
				lines = append(lines, renderStatusLine("Records", statusInfo, fmt.Sprintf("%d", len(ids)), colorize))
				entries, err := openLedger(store).Entries(c)
				if err != nil {
					return err
				}
				ignoredCount := 0
				for _, byRecord := range entries {
					ignoredCount += len(byRecord)
				}
				lines = append(lines, renderStatusLine("Ignored pairs", statusInfo, fmt.Sprintf("%d", ignoredCount), colorize))

				lines = append(lines, "")
				lines = append(lines, renderSectionHeader("Preferences", colorize)...)
				order, err := prefs.DatabaseOrder(c, store.Prefs())
				if err != nil {
					return err
				}
				lines = append(lines, checkLines([]preflight.Result{preflight.CheckDatabaseOrder(order)}, colorize)...)
				mode, err := prefs.AutoUpdateMode(c, store.Prefs())
				if err != nil {
					return err
				}
				cutoff, err := prefs.AutoUpdateCutoff(c, store.Prefs())
				if err != nil {
					return err
				}
				lines = append(lines,
					renderStatusLine("Auto update", statusInfo, mode, colorize),
					renderStatusLine("Cutoff", statusInfo, fmt.Sprintf("%d month(s)", cutoff), colorize),
				)

				lines = append(lines, "")
				lines = append(lines, renderSectionHeader("Checks", colorize)...)
				lines = append(lines, checkLines(preflight.RunAll(c, cfg), colorize)...)

				fmt.Fprintln(out, strings.Join(lines, "\n"))
				return nil
			})
		},
	}
}
