package db

import (
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/rs/zerolog/log"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// Migrate applies the schema migrations to databaseURL. Migrations come from
// migrationsPath when set and from the embedded set otherwise.
func Migrate(databaseURL, migrationsPath string, dir Direction) error {
	if dir != Up && dir != Down {
		return fmt.Errorf("unknown migration direction %q", dir)
	}

	m, err := newMigrate(databaseURL, migrationsPath)
	if err != nil {
		return err
	}
	defer func() {
		srcErr, dbErr := m.Close()
		if srcErr != nil || dbErr != nil {
			log.Warn().AnErr("source_err", srcErr).AnErr("db_err", dbErr).Msg("failed to close migrator")
		}
	}()

	if dir == Up {
		err = m.Up()
	} else {
		err = m.Down()
	}

	if errors.Is(err, migrate.ErrNoChange) {
		log.Info().Msg("No new migrations to apply")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	log.Info().Str("direction", string(dir)).Msg("Migrations applied successfully")
	return nil
}

func newMigrate(databaseURL, migrationsPath string) (*migrate.Migrate, error) {
	dsn := pgx5URL(databaseURL)

	if migrationsPath != "" {
		m, err := migrate.New("file://"+migrationsPath, dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize migration instance: %w", err)
		}
		return m, nil
	}

	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize migration instance: %w", err)
	}
	return m, nil
}

// pgx5URL rewrites a postgres:// URL to the scheme the pgx/v5 migrate driver registers.
func pgx5URL(databaseURL string) string {
	for _, scheme := range []string{"postgresql://", "postgres://"} {
		if strings.HasPrefix(databaseURL, scheme) {
			return "pgx5://" + strings.TrimPrefix(databaseURL, scheme)
		}
	}
	return databaseURL
}
