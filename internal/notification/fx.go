package notification

import (
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/repairdesk/internal/config"
	"github.com/smallbiznis/repairdesk/internal/notification/domain"
	"github.com/smallbiznis/repairdesk/internal/notification/publisher"
	"github.com/smallbiznis/repairdesk/internal/notification/service"
	userdomain "github.com/smallbiznis/repairdesk/internal/user/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("notification.service",
	fx.Provide(provideDirectory),
	fx.Provide(service.NewPlanner),
	fx.Provide(providePublisher),
	fx.Provide(service.NewDispatcher),
	fx.Provide(service.NewNotifier),
)

func provideDirectory(users userdomain.Service) domain.Directory {
	return users
}

func providePublisher(cfg config.Config, client *redis.Client, log *zap.Logger) domain.Publisher {
	if client == nil {
		return publisher.NewLog(log)
	}
	return publisher.NewRedisStream(client, cfg.Notify.Stream)
}
