// Package main is the ledgerq command: record expenses and payments against
// the ledger server, queueing them locally while offline.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kimhsiao/splitledger/client/internal/config"
	"github.com/kimhsiao/splitledger/client/internal/logging"
)

// Version is set at build time
var Version = "0.1.0"

// cli holds the state shared by all commands of one invocation.
type cli struct {
	cfgFile string
	offline bool
	asJSON  bool

	out io.Writer
	cfg *config.Config
	app *app
}

// open builds the application on first use.
func (c *cli) open() (*app, error) {
	if c.app != nil {
		return c.app, nil
	}
	a, err := newApp(c.cfg, c.offline)
	if err != nil {
		return nil, err
	}
	c.app = a
	return a, nil
}

func (c *cli) close() {
	if c.app != nil {
		if err := c.app.Close(); err != nil {
			logging.Warn("Failed to close store", map[string]interface{}{"error": err.Error()})
		}
		c.app = nil
	}
}

func newRootCmd(out io.Writer) (*cobra.Command, *cli) {
	c := &cli{out: out}

	rootCmd := &cobra.Command{
		Use:           "ledgerq",
		Short:         "Shared-expense ledger client with an offline write queue",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(c.cfgFile)
			if err != nil {
				return err
			}
			c.cfg = cfg
			level := logging.ParseLevel(cfg.Log.Level)
			if cfg.Log.File != "" {
				logging.InitFile(cfg.Log.File, level)
			} else {
				logging.Init(os.Stderr, level)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			c.close()
		},
	}
	rootCmd.SetOut(out)

	rootCmd.PersistentFlags().StringVar(&c.cfgFile, "config", "", "config file (default ./ledgerq.yaml)")
	rootCmd.PersistentFlags().BoolVar(&c.offline, "offline", false, "treat the network as unavailable")
	rootCmd.PersistentFlags().BoolVar(&c.asJSON, "json", false, "print machine-readable JSON")

	rootCmd.AddGroup(
		&cobra.Group{ID: "ledger", Title: "Ledger writes:"},
		&cobra.Group{ID: "sync", Title: "Offline queue:"},
	)

	rootCmd.AddCommand(
		newExpenseCmd(c),
		newPaymentCmd(c),
		newQueueCmd(c),
		newHistoryCmd(c),
		newDrainCmd(c),
		newStatusCmd(c),
		newDashboardCmd(c),
		newServeCmd(c),
		newTokenCmd(c),
	)
	return rootCmd, c
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	rootCmd, c := newRootCmd(os.Stdout)
	err := rootCmd.ExecuteContext(ctx)
	c.close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
