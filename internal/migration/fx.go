package migration

import (
	"github.com/smallbiznis/donora/internal/config"
	"github.com/smallbiznis/donora/internal/seed"
	"github.com/smallbiznis/donora/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(Apply),
)

// Apply migrates the schema for the configured dialect and runs the
// optional bootstrap seed.
func Apply(conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
	if cfg.DBType == db.DialectPostgres {
		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		if err := RunMigrations(sqlDB); err != nil {
			return err
		}
	} else if err := AutoMigrate(conn); err != nil {
		return err
	}
	log.Info("schema migrated", zap.String("type", cfg.DBType))

	if cfg.BootstrapDefaultOrg {
		return seed.EnsureMainOrg(conn, cfg.DefaultTimezone)
	}
	return nil
}
