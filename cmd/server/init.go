package main

import (
	"github.com/spf13/cobra"
)

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the donations table or sheet if it does not exist",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.store.Initialize(ctx); err != nil {
				return err
			}
			a.log.WithField("driver", a.cfg.Store.Driver).Info("record store initialized")
			return nil
		},
	}
}
