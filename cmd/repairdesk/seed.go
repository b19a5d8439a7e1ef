package main

import (
	"context"

	"github.com/smallbiznis/repairdesk/internal/config"
	"github.com/smallbiznis/repairdesk/internal/seed"
	userdomain "github.com/smallbiznis/repairdesk/internal/user/domain"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func newSeedCommand() *cobra.Command {
	var defaults seed.Defaults

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create the default department and administrator",
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				users userdomain.Service
				cfg   config.Config
				log   *zap.Logger
			)
			opts := fx.Options(
				infraModules(),
				domainModules(),
				fx.Populate(&users, &cfg, &log),
			)
			return runOneShot(cmd.Context(), opts, func(ctx context.Context) error {
				if defaults.Department == "" {
					defaults.Department = cfg.Bootstrap.Department
				}
				if defaults.AdminEmail == "" {
					defaults.AdminEmail = cfg.Bootstrap.AdminEmail
				}
				return seed.EnsureDefaults(ctx, users, log.Named("seed"), defaults)
			})
		},
	}

	cmd.Flags().StringVar(&defaults.Department, "department", "", "name of the default department")
	cmd.Flags().StringVar(&defaults.AdminName, "admin-name", "", "display name of the administrator")
	cmd.Flags().StringVar(&defaults.AdminEmail, "admin-email", "", "email of the administrator")
	return cmd
}
