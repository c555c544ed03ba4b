package content

import (
	"github.com/smallbiznis/donora/internal/content/repository"
	"github.com/smallbiznis/donora/internal/content/service"
	"go.uber.org/fx"
)

var Module = fx.Module("content.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
