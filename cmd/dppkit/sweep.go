package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSweepCmd(envFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Expire trial subscriptions that have no model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, *envFile)
			if err != nil {
				return err
			}
			defer a.close()

			n, err := a.subscriptions.DegradeInvalidTrials(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "expired %d trial(s)\n", n)
			return nil
		},
	}
}
