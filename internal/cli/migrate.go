package cli

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/vasiliy-maslov/shop-service/internal/config"
	"github.com/vasiliy-maslov/shop-service/internal/db"
	"github.com/vasiliy-maslov/shop-service/internal/storage"
)

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down]",
		Short:     "Apply or roll back the database schema",
		Long:      "PostgreSQL runs the SQL migrations. MongoDB creates its indexes on up. The memory store has nothing to migrate.",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{string(db.Up), string(db.Down)},
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := db.Direction(args[0])

			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}

			switch cfg.Store.Driver {
			case config.DriverPostgres:
				return db.Migrate(cfg.Postgres.URL(), cfg.Postgres.MigrationsPath, dir)
			case config.DriverMongo:
				if dir != db.Up {
					return fmt.Errorf("migrate %s is not supported for %s", dir, cfg.Store.Driver)
				}
				backend, err := storage.Open(cmd.Context(), cfg)
				if err != nil {
					return err
				}
				backend.Close()
				return nil
			default:
				log.Info().Str("store", cfg.Store.Driver).Msg("Nothing to migrate")
				return nil
			}
		},
	}
}
