package main

import (
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/c360/ticketfront/bridge"
)

func newBridgeCmd(a *app) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "bridge [-- backend-command [args...]]",
		Short: "Serve the ticket backend over a websocket",
		Long: `Listens for websocket clients and starts one backend process per session.
Each text message is written to the backend's stdin; its answer is sent back
as a single message.

The backend comes from bridge.backend in the config file, or from the
arguments after "--":

  ticketfront bridge --listen :8765 -- ./ticket-system`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg.Bridge
			if len(args) > 0 {
				cfg.Backend.Command = args[0]
				cfg.Backend.Args = args[1:]
			}
			if listen != "" {
				cfg.Listen = listen
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signalContext(cmd.Context())
			defer stop()

			srv := bridge.NewServer(cfg,
				bridge.WithLogger(a.logger),
				bridge.WithMetrics(a.registry, "bridge"),
			)
			a.monitor.Register("bridge", srv)

			g, gctx := errgroup.WithContext(ctx)
			a.startMetrics(gctx, g)
			g.Go(func() error {
				return srv.Run(gctx)
			})
			return g.Wait()
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "Listen address, overrides bridge.listen")
	return cmd
}
