package servicerequest

import (
	"github.com/smallbiznis/repairdesk/internal/servicerequest/repository"
	"github.com/smallbiznis/repairdesk/internal/servicerequest/service"
	"go.uber.org/fx"
)

var Module = fx.Module("servicerequest.service",
	fx.Provide(repository.Provide),
	fx.Provide(repository.NewRequestReader),
	fx.Provide(service.New),
)
