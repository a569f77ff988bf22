package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"cvbuilder/internal/subscriptions"
)

func subscriptionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "subscriptions",
		Short: "Manage subscriptions",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "expire",
		Short: "Mark lapsed trials and paid periods as expired",
		RunE: func(cmd *cobra.Command, args []string) error {
			sqlDB, err := openDB(cmd)
			if err != nil {
				return err
			}
			defer sqlDB.Close()

			svc := subscriptions.NewService(&subscriptions.PGRepo{DB: sqlDB}, cfg.TrialDays)
			n, err := svc.ExpireLapsed(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "expired %d subscriptions\n", n)
			return nil
		},
	})
	return cmd
}
