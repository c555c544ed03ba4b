package providers

import (
	"github.com/smallbiznis/donora/internal/providers/contentgen"
	"go.uber.org/fx"
)

var Module = fx.Module("providers",
	contentgen.Module,
)
