package cli

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/vasiliy-maslov/shop-service/internal/config"
)

const serviceName = "shop-service"

type rootOptions struct {
	envFile string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           serviceName,
		Short:         "E-commerce backend with inventory-safe checkout",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before the environment")

	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newMigrateCmd(opts))
	cmd.AddCommand(newSeedCmd(opts))
	return cmd
}

// NewRootCmdForTest returns the root command for testing.
func NewRootCmdForTest() *cobra.Command {
	return newRootCmd()
}

func Execute() error {
	return newRootCmd().Execute()
}

func loadConfig(opts *rootOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.envFile)
	if err != nil {
		return nil, err
	}
	setupLogger(cfg)
	return cfg, nil
}

// setupLogger uses a console writer in development and JSON otherwise.
func setupLogger(cfg *config.Config) {
	if cfg.IsProduction() {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	} else {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	log.Logger = log.With().Str("service", serviceName).Logger()
}
