package contentgen

import "go.uber.org/fx"

var Module = fx.Module("providers.contentgen",
	fx.Provide(func() Provider { return NewTemplateProvider() }),
)
