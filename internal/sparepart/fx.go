package sparepart

import (
	"github.com/smallbiznis/repairdesk/internal/sparepart/repository"
	"github.com/smallbiznis/repairdesk/internal/sparepart/service"
	"go.uber.org/fx"
)

var Module = fx.Module("sparepart.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
	fx.Provide(service.NewLedger),
)
