package main

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"citetally/internal/config"
	"citetally/internal/library"
	"citetally/internal/prefs"
	"citetally/internal/ratelimit"
	"citetally/internal/sources"
)

func newPrefsCommand(ctx *commandContext) *cobra.Command {
	prefsCmd := &cobra.Command{
		Use:   "prefs",
		Short: "Read and write user preferences",
	}
	prefsCmd.AddCommand(newPrefsGetCommand(ctx))
	prefsCmd.AddCommand(newPrefsSetCommand(ctx))
	return prefsCmd
}

func newPrefsGetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "get [key]",
		Short: "Show one preference, or all of them",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withLibrary(func(_ *config.Config, store *library.Store) error {
				keys := prefs.Keys()
				if len(args) == 1 {
					if !slices.Contains(keys, args[0]) {
						return fmt.Errorf("unknown preference %q (known: %s)", args[0], strings.Join(keys, ", "))
					}
					keys = []string{args[0]}
				}
				out := cmd.OutOrStdout()
				for _, key := range keys {
					value, ok, err := store.Prefs().Get(cmd.Context(), key)
					if err != nil {
						return err
					}
					if !ok {
						value = "(unset)"
					}
					fmt.Fprintf(out, "%s = %s\n", key, value)
				}
				return nil
			})
		},
	}
}

func newPrefsSetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a preference",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := args[0], strings.TrimSpace(args[1])
			return ctx.withLibrary(func(_ *config.Config, store *library.Store) error {
				out := cmd.OutOrStdout()
				switch key {
				case prefs.KeyDatabaseOrder:
					v, err := prefs.SaveDatabaseOrder(cmd.Context(), store.Prefs(), value)
					if err != nil {
						return err
					}
					if !v.Valid {
						return errors.New(v.Message)
					}
					fmt.Fprintln(out, v.Message)
					return nil
				case prefs.KeyAutoUpdate:
					if value != prefs.AutoUpdateNever && value != prefs.AutoUpdateStartup {
						return fmt.Errorf("%s must be %q or %q", key, prefs.AutoUpdateNever, prefs.AutoUpdateStartup)
					}
				case prefs.KeyUseColors:
					if value != "color" && value != "plain" {
						return fmt.Errorf("%s must be \"color\" or \"plain\"", key)
					}
				case prefs.KeyAutoUpdateCutoff:
					var months int
					if _, err := fmt.Sscanf(value, "%d", &months); err != nil || months <= 0 {
						return fmt.Errorf("%s must be a positive number of months", key)
					}
				case prefs.KeyRateLimits:
					if err := ratelimit.ValidateOverrides(value); err != nil {
						return err
					}
				default:
					return fmt.Errorf("preference %q cannot be set from the command line", key)
				}
				if err := store.Prefs().Set(cmd.Context(), key, value); err != nil {
					return err
				}
				fmt.Fprintf(out, "%s = %s\n", key, value)
				return nil
			})
		},
	}
}

func newDatabasesCommand(ctx *commandContext) *cobra.Command {
	dbCmd := &cobra.Command{
		Use:   "databases",
		Short: "Citation database utilities",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withLibrary(func(_ *config.Config, store *library.Store) error {
				order, err := prefs.DatabaseOrder(cmd.Context(), store.Prefs())
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(sources.Names()))
				for _, name := range sources.Names() {
					position := "-"
					if i := slices.Index(order, name); i >= 0 {
						position = fmt.Sprintf("%d", i+1)
					}
					rows = append(rows, []string{name, sources.Display(name), position})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Name", "Title", "Order"}, rows, []columnAlignment{alignLeft, alignLeft, alignRight}))
				return nil
			})
		},
	}
	dbCmd.AddCommand(&cobra.Command{
		Use:         "validate <list>",
		Short:       "Check a comma separated database order without saving it",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			v := prefs.ValidateDatabaseOrder(args[0])
			fmt.Fprintln(cmd.OutOrStdout(), v.Message)
			if !v.Valid {
				return fmt.Errorf("invalid database order")
			}
			return nil
		},
	})
	return dbCmd
}
