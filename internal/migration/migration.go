// Package migration creates the repair desk schema. Postgres runs the
// embedded SQL files through golang-migrate; the other dialects use gorm
// AutoMigrate on the same models.
package migration

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	auditdomain "github.com/smallbiznis/repairdesk/internal/audit/domain"
	customerdomain "github.com/smallbiznis/repairdesk/internal/customer/domain"
	"github.com/smallbiznis/repairdesk/internal/numbering"
	servicerequestdomain "github.com/smallbiznis/repairdesk/internal/servicerequest/domain"
	sparepartdomain "github.com/smallbiznis/repairdesk/internal/sparepart/domain"
	userdomain "github.com/smallbiznis/repairdesk/internal/user/domain"
	"gorm.io/gorm"
)

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

const migrationsDir = "migrations"

var ErrNoDatabase = errors.New("migration database handle is required")

// Models lists every table owned by the application, parents first.
func Models() []any {
	return []any{
		&userdomain.Department{},
		&userdomain.User{},
		&customerdomain.Customer{},
		&numbering.DailySequence{},
		&servicerequestdomain.Request{},
		&sparepartdomain.SparePart{},
		&sparepartdomain.RequestPart{},
		&servicerequestdomain.RequestCost{},
		&auditdomain.PartHistory{},
		&auditdomain.RequestActivity{},
	}
}

// Up brings the schema to the latest version.
func Up(conn *gorm.DB, dbType string) error {
	if conn == nil {
		return ErrNoDatabase
	}
	if !isPostgres(dbType) {
		return conn.AutoMigrate(Models()...)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	return RunMigrations(sqlDB)
}

// Down reverts every migration. AutoMigrate dialects drop the tables.
func Down(conn *gorm.DB, dbType string) error {
	if conn == nil {
		return ErrNoDatabase
	}
	if !isPostgres(dbType) {
		models := Models()
		for i := len(models) - 1; i >= 0; i-- {
			if err := conn.Migrator().DropTable(models[i]); err != nil {
				return err
			}
		}
		return nil
	}
	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	migrator, err := newMigrator(sqlDB)
	if err != nil {
		return err
	}
	if err := migrator.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("revert migrations: %w", err)
	}
	return nil
}

func RunMigrations(db *sql.DB) error {
	if db == nil {
		return ErrNoDatabase
	}
	migrator, err := newMigrator(db)
	if err != nil {
		return err
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	// Do not call migrator.Close here because it would close the shared *sql.DB.
	return nil
}

func newMigrator(db *sql.DB) (*migrate.Migrate, error) {
	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return nil, fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return nil, fmt.Errorf("create migration source: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("create migrator: %w", err)
	}
	return migrator, nil
}

func isPostgres(dbType string) bool {
	switch strings.ToLower(strings.TrimSpace(dbType)) {
	case "postgres", "postgresql", "":
		return true
	default:
		return false
	}
}
