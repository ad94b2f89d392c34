package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kimhsiao/splitledger/client/internal/status"
	syncpkg "github.com/kimhsiao/splitledger/client/internal/sync"
)

func newQueueCmd(c *cli) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:     "queue",
		GroupID: "sync",
		Short:   "Inspect and repair the offline queue",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List pending writes in submission order",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open()
			if err != nil {
				return err
			}
			items := a.queue.List(cmd.Context())
			if c.asJSON {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(items)
			}
			if len(items) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No pending writes.")
				return nil
			}
			for _, it := range items {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %-14s  %s  %s\n",
					it.ID, it.Endpoint, it.Timestamp.Local().Format(time.RFC3339), status.Label(it.Endpoint, it.Payload))
			}
			return nil
		},
	}

	removeCmd := &cobra.Command{
		Use:   "remove <id>",
		Short: "Drop a pending write, e.g. one the server keeps rejecting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open()
			if err != nil {
				return err
			}
			if err := a.queue.RemoveByID(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
			return nil
		},
	}

	queueCmd.AddCommand(listCmd, removeCmd)
	return queueCmd
}

func newHistoryCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:     "history",
		GroupID: "sync",
		Short:   "Show recently synced writes, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open()
			if err != nil {
				return err
			}
			entries := a.history.List(cmd.Context())
			if c.asJSON {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(entries)
			}
			return status.Build(nil, entries, time.Now()).Render(cmd.OutOrStdout())
		},
	}
}

func printDrain(cmd *cobra.Command, result *syncpkg.DrainResult) {
	out := cmd.OutOrStdout()
	if result.Offline {
		fmt.Fprintln(out, "Offline: nothing was sent.")
		return
	}
	fmt.Fprintf(out, "Synced %d item(s), %d remaining.\n", len(result.Synced), result.Remaining)
	if result.Halted != nil {
		fmt.Fprintf(out, "Stopped at %s (%s): %v\n", result.Halted.ID, result.Reason, result.HaltErr)
		if result.Reason == syncpkg.HaltRejected {
			fmt.Fprintf(out, "The server rejected this write. Fix the data or run: ledgerq queue remove %s\n", result.Halted.ID)
		}
	}
}

func newDrainCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:     "drain",
		GroupID: "sync",
		Short:   "Send pending writes now",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open()
			if err != nil {
				return err
			}
			result, err := a.scheduler.DrainNow(cmd.Context())
			if result != nil {
				if c.asJSON {
					if encErr := json.NewEncoder(cmd.OutOrStdout()).Encode(result); encErr != nil {
						return encErr
					}
				} else {
					printDrain(cmd, result)
				}
			}
			return err
		},
	}
}

func newStatusCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:     "status",
		GroupID: "sync",
		Short:   "Show pending uploads and recently synced writes",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			report := status.Build(a.queue.List(ctx), a.history.List(ctx), time.Now())
			if c.asJSON {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(report)
			}
			return report.Render(cmd.OutOrStdout())
		},
	}
}

func newDashboardCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:     "dashboard",
		GroupID: "ledger",
		Short:   "Send pending writes, then print the server's dashboard data",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open()
			if err != nil {
				return err
			}
			result, err := a.service.Refresh(cmd.Context())
			if result != nil && result.Drain != nil && !c.asJSON {
				printDrain(cmd, result.Drain)
			}
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(append(result.Dashboard, '\n'))
			return err
		},
	}
}
