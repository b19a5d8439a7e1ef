package migration

import (
	"context"

	"github.com/smallbiznis/repairdesk/internal/config"
	"github.com/smallbiznis/repairdesk/internal/seed"
	userdomain "github.com/smallbiznis/repairdesk/internal/user/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, users userdomain.Service, log *zap.Logger) error {
		if cfg.AutoMigrate {
			if err := Up(conn, cfg.DBType); err != nil {
				return err
			}
		}
		if !cfg.Bootstrap.SeedDefaults {
			return nil
		}
		return seed.EnsureDefaults(context.Background(), users, log.Named("seed"), seed.Defaults{
			Department: cfg.Bootstrap.Department,
			AdminEmail: cfg.Bootstrap.AdminEmail,
		})
	}),
)
