package main

import (
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/c360/ticketfront/client"
	"github.com/c360/ticketfront/console"
)

func newConsoleCmd(a *app) *cobra.Command {
	var target string

	cmd := &cobra.Command{
		Use:   "console",
		Short: "Interactive console for the ticket backend",
		Long: `Opens a terminal console connected to the configured websocket.

Type backend commands as "name -key value ...". Console commands start with ":":
  :reconnect on|off   toggle automatic reconnection
  :help               list backend commands
  :quit               leave (ctrl+c works too)`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signalContext(cmd.Context())
			defer stop()

			out, err := a.buildSinks(ctx)
			if err != nil {
				return err
			}
			defer out.Close()

			inbox := console.NewInbox(64, a.logger)
			manager := client.NewManager(a.cfg.Client, inbox.Handler(),
				client.WithLogger(a.logger),
				client.WithMetrics(a.registry, "console"),
			)
			a.monitor.Register("client", manager)

			g, gctx := errgroup.WithContext(ctx)
			a.startMetrics(gctx, g)
			g.Go(func() error {
				defer stop()
				return console.Run(gctx, manager, inbox,
					console.WithSink(out.multi),
					console.WithTarget(target),
					console.WithLogger(a.logger),
				)
			})
			return g.Wait()
		},
	}

	cmd.Flags().StringVar(&target, "target", "console", "Name recorded as the target in sink records")
	return cmd
}
