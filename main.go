package main

import (
	"os"

	"github.com/rs/zerolog/log"

	"pgmigrate/cmd"
	pgmigratelog "pgmigrate/internal/log"
)

func main() {
	pgmigratelog.Setup()

	if err := cmd.NewRootCmd().Execute(); err != nil {
		log.Error().Err(err).Msg("migration failed")
		os.Exit(1)
	}
}
