package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 15 * time.Second

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			log.Info().Str("store", cfg.Store.Driver).Str("env", cfg.App.Env).Msg("Shop service starting...")

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			app, err := newApplication(ctx, cfg)
			if err != nil {
				return err
			}
			defer app.Close()

			// The dispatcher outlives the server so that events from
			// in-flight requests are still delivered during shutdown.
			dispatchCtx, stopDispatch := context.WithCancel(context.WithoutCancel(ctx))
			defer stopDispatch()

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return app.dispatcher.Run(dispatchCtx)
			})
			g.Go(func() error {
				log.Info().Str("port", cfg.App.Port).Msg("Starting HTTP server")
				if err := app.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				<-gctx.Done()
				log.Info().Msg("Shutting down...")
				defer stopDispatch()

				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				return app.server.Shutdown(shutdownCtx)
			})

			if err := g.Wait(); err != nil {
				return err
			}
			log.Info().Msg("Server stopped")
			return nil
		},
	}
}
