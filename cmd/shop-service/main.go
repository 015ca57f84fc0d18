package main

import (
	"os"

	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/shop-service/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		log.Error().Err(err).Msg("shop-service failed")
		os.Exit(1)
	}
}
