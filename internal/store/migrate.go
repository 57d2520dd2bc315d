package store

import (
	"context"
	"embed"
	errs "errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrator handles DB schema migrations using golang-migrate.
type Migrator struct {
	dsn string
}

func NewMigrator(dsn string) (*Migrator, error) {
	if dsn == "" {
		return nil, fmt.Errorf("missing DSN")
	}
	return &Migrator{dsn: dsn}, nil
}

func (m *Migrator) Up(ctx context.Context) error {
	mig, closer, err := m.migrateInstance()
	if err != nil {
		return err
	}
	defer closer()
	return noChange(mig.Up())
}

func (m *Migrator) Down(ctx context.Context) error {
	mig, closer, err := m.migrateInstance()
	if err != nil {
		return err
	}
	defer closer()
	return noChange(mig.Steps(-1))
}

func (m *Migrator) migrateInstance() (*migrate.Migrate, func(), error) {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return nil, func() {}, err
	}
	mig, err := migrate.NewWithSourceInstance("iofs", src, m.dsn)
	if err != nil {
		return nil, func() {}, err
	}
	return mig, func() { mig.Close() }, nil
}

func noChange(err error) error {
	if errs.Is(err, migrate.ErrNoChange) {
		return ErrNoChange
	}
	return err
}
