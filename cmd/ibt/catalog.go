package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func catalogCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect the catalog of opened captures",
	}

	asJSON := false
	list := &cobra.Command{
		Use:   "list",
		Short: "List cataloged captures, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a.openDB()
			if a.catalog == nil {
				return errors.New("catalog is unavailable")
			}
			rows, err := a.catalog.List()
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), rows)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "FILE\tTRACK\tLAPS\tRECORDS\tOPENED")
			for _, r := range rows {
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n",
					r.FileName, r.TrackName, r.LapCount, r.RecordCount,
					r.OpenedAt.Local().Format("2006-01-02 15:04:05"))
			}
			return w.Flush()
		},
	}
	list.Flags().BoolVarP(&asJSON, "json", "j", false, "Output as JSON")
	cmd.AddCommand(list)

	return cmd
}
