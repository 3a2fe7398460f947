package main

import (
	"errors"
	"fmt"

	"github.com/OCAP2/ibt/internal/config"
	"github.com/spf13/cobra"
)

func exportCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a capture to JSON or InfluxDB",
	}
	cmd.AddCommand(exportJSONCmd(a))
	cmd.AddCommand(exportInfluxCmd(a))
	return cmd
}

func exportJSONCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "json <file>",
		Short: "Write a capture and all of its records to a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := a.service()
			opened, err := svc.Open(args[0])
			if err != nil {
				return err
			}
			path, err := svc.ExportJSON(opened.Handle)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
}

func exportInfluxCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "influx <file>",
		Short: "Write every record of a capture to InfluxDB",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := a.service()
			opened, err := svc.Open(args[0])
			if err != nil {
				return err
			}
			n, err := svc.ExportInflux(cmd.Context(), opened.Handle)
			if err != nil {
				if !config.GetBool("influx.enabled") {
					return errors.New("influx export is disabled, set influx.enabled in the config file")
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d points written\n", n)
			return nil
		},
	}
}
