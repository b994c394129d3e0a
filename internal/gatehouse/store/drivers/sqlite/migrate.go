package sqlite

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/ferryhill/gatehouse/internal/gatehouse/store/drivers/sqlite/migrations/configuration"
	"github.com/ferryhill/gatehouse/internal/gatehouse/store/drivers/sqlite/migrations/operational"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	_ "modernc.org/sqlite"
)

// The schema is split into two migration contexts with independent version
// tables: configuration (clients, scopes) and operational (grants, signing
// keys). Each context evolves on its own cadence.
type migrationContext struct {
	name  string
	table string
	fsys  fs.FS
}

var migrationContexts = []migrationContext{
	{name: "configuration", table: "schema_migrations_configuration", fsys: configuration.FS},
	{name: "operational", table: "schema_migrations_operational", fsys: operational.FS},
}

// ApplyMigrations brings both contexts fully up to date. The migration
// files are embedded, so the binary carries its own schema.
func (s *Store) ApplyMigrations() error {
	for _, mc := range migrationContexts {
		instance, err := s.migrator(mc)
		if err != nil {
			return err
		}
		if err := instance.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("migrate %s context: %w", mc.name, err)
		}
	}
	return nil
}

// MigrateContext moves a single named context to the given version: fully
// up when negative, fully down when zero.
func (s *Store) MigrateContext(name string, version int) error {
	for _, mc := range migrationContexts {
		if mc.name != name {
			continue
		}
		instance, err := s.migrator(mc)
		if err != nil {
			return err
		}

		switch {
		case version < 0:
			err = instance.Up()
		case version == 0:
			err = instance.Down()
		default:
			err = instance.Migrate(uint(version))
		}
		if err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("migrate %s context: %w", mc.name, err)
		}
		return nil
	}
	return fmt.Errorf("unknown migration context %q", name)
}

// ContextVersion reports the current schema version of a named context.
// A fresh database reports version 0 and dirty false.
func (s *Store) ContextVersion(name string) (uint, bool, error) {
	for _, mc := range migrationContexts {
		if mc.name != name {
			continue
		}
		instance, err := s.migrator(mc)
		if err != nil {
			return 0, false, err
		}

		version, dirty, err := instance.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			return 0, false, nil
		}
		return version, dirty, err
	}
	return 0, false, fmt.Errorf("unknown migration context %q", name)
}

// MigrationContextNames lists the known contexts in application order.
func MigrationContextNames() []string {
	names := make([]string, len(migrationContexts))
	for i, mc := range migrationContexts {
		names[i] = mc.name
	}
	return names
}

func (s *Store) migrator(mc migrationContext) (*migrate.Migrate, error) {
	driver, err := migratesqlite.WithInstance(s.db, &migratesqlite.Config{
		MigrationsTable: mc.table,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s migration driver: %w", mc.name, err)
	}

	source, err := iofs.New(mc.fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("open %s migration source: %w", mc.name, err)
	}

	instance, err := migrate.NewWithInstance("iofs", source, "", driver)
	if err != nil {
		return nil, fmt.Errorf("build %s migrator: %w", mc.name, err)
	}
	return instance, nil
}
