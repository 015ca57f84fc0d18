package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vasiliy-maslov/shop-service/internal/auth"
	"github.com/vasiliy-maslov/shop-service/internal/catalog"
	"github.com/vasiliy-maslov/shop-service/internal/seed"
	"github.com/vasiliy-maslov/shop-service/internal/storage"
	"github.com/vasiliy-maslov/shop-service/internal/user"
)

func newSeedCmd(opts *rootOptions) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load demo users and products",
		Long:  "Create the fixture's users and, when the catalog is empty, its products. Without --file the built-in demo fixture is used.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}

			fixture, err := seed.Load(file)
			if err != nil {
				return err
			}

			backend, err := storage.Open(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer backend.Close()

			users := user.NewService(backend.Users, auth.NewTokens(cfg.JWT.Secret, cfg.JWT.ExpiresIn))
			seeder := seed.NewSeeder(catalog.NewService(backend.Products), backend.Products, users)

			res, err := seeder.Run(cmd.Context(), fixture)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d users and %d products into %s\n", res.Users, res.Products, backend.Name)
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "YAML fixture to load instead of the built-in one")
	return cmd
}
