package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kimhsiao/splitledger/client/internal/server"
	syncpkg "github.com/kimhsiao/splitledger/client/internal/sync"
)

func newServeCmd(c *cli) *cobra.Command {
	var addr string
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Drain the queue in the background and serve the local status API",
		Long: `Run the background drain scheduler and a local HTTP server.

Endpoints:
  GET    /api/health
  GET    /api/sync/status
  POST   /api/sync/drain
  GET    /api/queue
  DELETE /api/queue/{id}
  GET    /metrics
  GET    /ws            drain events: sync.started, sync.item_synced, sync.completed, sync.halted, sync.offline`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open()
			if err != nil {
				return err
			}
			if addr == "" {
				addr = c.cfg.Server.Addr
			}
			ctx := cmd.Context()

			hub := server.NewWSHub()
			a.processor.SetEventHandler(syncpkg.MultiHandler{a.metrics, hub})
			a.metrics.SetQueueDepth(a.queue.Len(ctx))
			a.metrics.SetHistoryEntries(len(a.history.List(ctx)))

			if err := a.scheduler.Start(ctx); err != nil {
				return err
			}
			defer a.scheduler.Stop()
			a.scheduler.TriggerDrain(ctx)

			fmt.Fprintf(cmd.OutOrStdout(), "Status server on http://%s (Ctrl+C to stop)\n", addr)
			return server.New(a.scheduler, a.queue, a.history, a.metrics, hub).ListenAndServe(ctx, addr)
		},
	}
	serveCmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config server.addr)")
	return serveCmd
}
