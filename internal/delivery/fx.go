package delivery

import (
	"context"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/donora/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("delivery",
	fx.Provide(NewPublisher),
)

type Params struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    config.Config
	Log       *zap.Logger
	Redis     *redis.Client `optional:"true"`
}

// NewPublisher selects the driver named by DELIVERY_DRIVER. Unknown names
// and the memory driver outside development fail startup.
func NewPublisher(p Params) (Publisher, error) {
	if err := p.Config.ValidateDelivery(); err != nil {
		return nil, err
	}
	switch p.Config.Delivery.Driver {
	case config.DeliveryDriverAMQP:
		pub := NewAMQPPublisher(p.Config.Delivery, p.Log)
		p.Lifecycle.Append(fx.Hook{
			OnStop: func(context.Context) error { return pub.Close() },
		})
		return pub, nil
	case config.DeliveryDriverRedis:
		return NewRedisPublisher(p.Redis, p.Config.Delivery.Stream)
	default:
		p.Log.Warn("using in-memory delivery publisher, messages do not leave the process")
		return NewMemoryPublisher(), nil
	}
}
