package migration

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	auditdomain "github.com/smallbiznis/donora/internal/audit/domain"
	campaigndomain "github.com/smallbiznis/donora/internal/campaign/domain"
	contentdomain "github.com/smallbiznis/donora/internal/content/domain"
	nodeselldomain "github.com/smallbiznis/donora/internal/nodesell/domain"
	organizationdomain "github.com/smallbiznis/donora/internal/organization/domain"
	referraldomain "github.com/smallbiznis/donora/internal/referral/domain"
	userdomain "github.com/smallbiznis/donora/internal/user/domain"
	"gorm.io/gorm"
)

const migrationsDir = "migrations"

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// Models lists every table in dependency order, for dialects that migrate
// through gorm instead of the embedded SQL.
func Models() []any {
	models := []any{
		&organizationdomain.Organization{},
		&userdomain.User{},
		&contentdomain.ContentItem{},
		&auditdomain.AuditLog{},
	}
	models = append(models, campaigndomain.Models()...)
	return append(models,
		&nodeselldomain.NodeSell{},
		&referraldomain.NodeReferral{},
	)
}

// RunMigrations applies the embedded postgres migrations.
func RunMigrations(db *sql.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}

	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	// migrator.Close would close the shared *sql.DB.

	return nil
}

// AutoMigrate creates the schema through gorm.
func AutoMigrate(conn *gorm.DB) error {
	if conn == nil {
		return errors.New("migration database handle is required")
	}
	if err := conn.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
