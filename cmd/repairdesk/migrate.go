package main

import (
	"context"

	"github.com/smallbiznis/repairdesk/internal/config"
	"github.com/smallbiznis/repairdesk/internal/migration"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back the database schema",
	}
	cmd.AddCommand(newMigrateStepCommand("up", "Apply all pending migrations", migration.Up))
	cmd.AddCommand(newMigrateStepCommand("down", "Roll back every migration", migration.Down))
	return cmd
}

func newMigrateStepCommand(use, short string, step func(*gorm.DB, string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				conn *gorm.DB
				cfg  config.Config
				log  *zap.Logger
			)
			opts := fx.Options(
				infraModules(),
				fx.Populate(&conn, &cfg, &log),
			)
			return runOneShot(cmd.Context(), opts, func(ctx context.Context) error {
				if err := step(conn, cfg.DBType); err != nil {
					return err
				}
				log.Info("migration finished", zap.String("direction", use), zap.String("db_type", cfg.DBType))
				return nil
			})
		},
	}
}
