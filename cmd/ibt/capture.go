package main

import (
	"fmt"
	"strconv"

	"github.com/OCAP2/ibt/pkg/ibt"
	"github.com/spf13/cobra"
)

func lsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ls [dir]",
		Short: "List the files in a telemetry directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := ""
			if len(args) == 1 {
				dir = args[0]
			}
			names, err := a.service().ListDir(dir)
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}

func infoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "info <file>",
		Short: "Show header, metadata, session info and variables of a capture",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opened, err := a.service().Open(args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), opened)
		},
	}
}

func recordCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "record <file> <index>",
		Short: "Decode one record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := strconv.ParseUint(args[1], 10, 32)
			if err != nil {
				return fmt.Errorf("invalid record index %q: %w", args[1], err)
			}

			svc := a.service()
			opened, err := svc.Open(args[0])
			if err != nil {
				return err
			}
			sample, err := svc.Record(opened.Handle, uint32(index))
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), sample)
		},
	}
}

func allCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "all <file>",
		Short: "Decode every record, keyed by the identity channel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := a.service()
			opened, err := svc.Open(args[0])
			if err != nil {
				return err
			}
			all, err := svc.All(opened.Handle)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), all)
		},
	}
}

func channelCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "channel <file> <index> <name>",
		Short: "Decode every element of one channel in one record",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := strconv.ParseUint(args[1], 10, 32)
			if err != nil {
				return fmt.Errorf("invalid record index %q: %w", args[1], err)
			}

			c, err := ibt.Open(args[0], ibt.WithLogger(a.log))
			if err != nil {
				return err
			}
			defer c.Close()

			var def *ibt.VarDef
			for i := range c.Vars {
				if c.Vars[i].Name == args[2] {
					def = &c.Vars[i]
					break
				}
			}
			if def == nil {
				return fmt.Errorf("channel %s not found", args[2])
			}

			raw, err := c.Sampler.RawRecord(uint32(index))
			if err != nil {
				return err
			}
			if raw == nil {
				return fmt.Errorf("record %d not found", index)
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"name":     def.Name,
				"unit":     def.Unit,
				"type":     def.Type.String(),
				"elements": def.Elements(raw),
			})
		},
	}
}
