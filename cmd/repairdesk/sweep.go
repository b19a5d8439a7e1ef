package main

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/smallbiznis/repairdesk/internal/config"
	"github.com/smallbiznis/repairdesk/internal/metricspush"
	"github.com/smallbiznis/repairdesk/internal/scheduler"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func newSweepCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sla-sweep",
		Short: "Flag overdue requests once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				sched *scheduler.Scheduler
				cfg   config.Config
				log   *zap.Logger
			)
			opts := fx.Options(
				infraModules(),
				domainModules(),
				fx.Provide(scheduler.ProvideConfig, scheduler.NewLocker, scheduler.New),
				fx.Populate(&sched, &cfg, &log),
			)
			return runOneShot(cmd.Context(), opts, func(ctx context.Context) error {
				runErr := sched.RunOnce(ctx)
				if pusher := metricspush.NewFromConfig(cfg, log); pusher != nil {
					if err := pusher.Push(ctx, prometheus.DefaultGatherer); err != nil {
						log.Warn("metrics push failed", zap.Error(err))
					}
				}
				return runErr
			})
		},
	}
}
