package main

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/repairdesk/internal/audit"
	"github.com/smallbiznis/repairdesk/internal/authorization"
	"github.com/smallbiznis/repairdesk/internal/clock"
	"github.com/smallbiznis/repairdesk/internal/config"
	"github.com/smallbiznis/repairdesk/internal/customer"
	"github.com/smallbiznis/repairdesk/internal/notification"
	"github.com/smallbiznis/repairdesk/internal/numbering"
	"github.com/smallbiznis/repairdesk/internal/observability"
	"github.com/smallbiznis/repairdesk/internal/redisclient"
	"github.com/smallbiznis/repairdesk/internal/servicerequest"
	"github.com/smallbiznis/repairdesk/internal/sla"
	"github.com/smallbiznis/repairdesk/internal/sparepart"
	"github.com/smallbiznis/repairdesk/internal/user"
	"github.com/smallbiznis/repairdesk/pkg/db"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

const commandTimeout = 5 * time.Minute

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "repairdesk",
		Short:         "Repair workshop service desk",
		Long:          "repairdesk tracks customer repair requests, technician assignments, SLA deadlines and the spare-part store.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newServeCommand())
	root.AddCommand(newMigrateCommand())
	root.AddCommand(newSweepCommand())
	root.AddCommand(newSeedCommand())
	return root
}

// infraModules are shared by every command that touches the database.
func infraModules() fx.Option {
	return fx.Options(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		redisclient.Module,
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log.Named("fx")}
		}),
	)
}

func domainModules() fx.Option {
	return fx.Options(
		authorization.Module,
		audit.Module,
		user.Module,
		customer.Module,
		numbering.Module,
		notification.Module,
		sparepart.Module,
		servicerequest.Module,
		sla.Module,
	)
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.NodeID)
}

// runOneShot starts an app, runs fn against it and stops it again.
func runOneShot(ctx context.Context, opts fx.Option, fn func(ctx context.Context) error) error {
	app := fx.New(opts)
	if err := app.Err(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	if err := app.Start(ctx); err != nil {
		return err
	}
	runErr := fn(ctx)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer stopCancel()
	if err := app.Stop(stopCtx); err != nil && runErr == nil {
		return err
	}
	return runErr
}
