package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/OCAP2/ibt/internal/settings"
	"github.com/spf13/cobra"
)

func (a *app) settingsStore() (*settings.Store, error) {
	a.openDB()
	if a.settings == nil {
		return nil, errors.New("settings database is unavailable")
	}
	return a.settings, nil
}

func settingsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Manage stored settings",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List every setting",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.settingsStore()
			if err != nil {
				return err
			}
			rows, err := store.List()
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, row := range rows {
				locked := ""
				if !row.CanDelete {
					locked = "(locked)"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", row.Key, row.Value, locked)
			}
			return w.Flush()
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "get <key>",
		Short: "Print one setting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.settingsStore()
			if err != nil {
				return err
			}
			v, err := store.Get(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), v)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Create or update a setting",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.settingsStore()
			if err != nil {
				return err
			}
			return store.Set(args[0], args[1])
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <key>",
		Short: "Delete a setting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.settingsStore()
			if err != nil {
				return err
			}
			return store.Delete(args[0])
		},
	})

	return cmd
}
