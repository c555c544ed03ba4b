// Package bootstrap composes the fx graphs shared by the donora binaries.
package bootstrap

import (
	"github.com/smallbiznis/donora/internal/audit"
	"github.com/smallbiznis/donora/internal/cache"
	"github.com/smallbiznis/donora/internal/campaign"
	"github.com/smallbiznis/donora/internal/clock"
	"github.com/smallbiznis/donora/internal/cloudmetrics"
	"github.com/smallbiznis/donora/internal/config"
	"github.com/smallbiznis/donora/internal/content"
	"github.com/smallbiznis/donora/internal/delivery"
	"github.com/smallbiznis/donora/internal/migration"
	"github.com/smallbiznis/donora/internal/nodesell"
	"github.com/smallbiznis/donora/internal/observability"
	"github.com/smallbiznis/donora/internal/organization"
	"github.com/smallbiznis/donora/internal/providers"
	"github.com/smallbiznis/donora/internal/ratelimit"
	"github.com/smallbiznis/donora/internal/referral"
	"github.com/smallbiznis/donora/internal/scheduler"
	"github.com/smallbiznis/donora/internal/server"
	"github.com/smallbiznis/donora/internal/user"
	"github.com/smallbiznis/donora/pkg/db"
	"go.uber.org/fx"
)

// Core wires infrastructure and every domain service.
func Core() fx.Option {
	return fx.Options(
		// Core Infrastructure
		config.Module,
		observability.Module,
		db.Module,
		clock.Module,
		cache.Module,
		ratelimit.Module,
		delivery.Module,
		providers.Module,

		// Functional Domains
		audit.Module,
		organization.Module,
		user.Module,
		content.Module,
		campaign.Module,
		referral.Module,
		nodesell.Module,
	)
}

// API serves HTTP. Migrations run before the listener starts.
func API() fx.Option {
	return fx.Options(
		Core(),
		migration.Module,
		server.Module,
	)
}

// Scheduler runs the drop dispatcher without the HTTP surface. The backlog
// push worker rides along with it.
func Scheduler() fx.Option {
	return fx.Options(
		Core(),
		scheduler.Module,
		cloudmetrics.Module,
	)
}

// All runs the API and the scheduler in one process.
func All() fx.Option {
	return fx.Options(
		API(),
		scheduler.Module,
		cloudmetrics.Module,
	)
}

// Migrate applies the schema and exits.
func Migrate() fx.Option {
	return fx.Options(
		config.Module,
		observability.Module,
		db.Module,
		migration.Module,
	)
}
