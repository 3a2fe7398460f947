package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/OCAP2/ibt/internal/bridge"
	"github.com/OCAP2/ibt/internal/dispatcher"
	"github.com/OCAP2/ibt/internal/logging"
	"github.com/spf13/cobra"
)

func serveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Answer JSON-lines requests on stdin",
		Long: `Read one JSON request per line from stdin and write one response per line
to stdout. A request looks like {"command": "get_telemetry", "args": ["lap.ibt"]}.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			d, err := dispatcher.New(logging.NewDispatcherLogger(a.log))
			if err != nil {
				return err
			}
			defer d.Close()

			a.service().Register(d)
			a.log.Info().Strs("commands", d.Commands()).Msg("Bridge ready")

			return bridge.NewServer(d, a.log).Serve(ctx, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}
