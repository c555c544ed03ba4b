package nodesell

import (
	"github.com/smallbiznis/donora/internal/nodesell/repository"
	"github.com/smallbiznis/donora/internal/nodesell/service"
	"go.uber.org/fx"
)

var Module = fx.Module("nodesell.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
