package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newSyncCmd())
}

func newSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Run a single reconcile round and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			agent, err := newAgent(cmd)
			if err != nil {
				return err
			}

			if err := agent.SyncOnce(cmd.Context()); err != nil {
				return err
			}
			fmt.Println("in sync")
			return nil
		},
	}
}
