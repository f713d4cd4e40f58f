package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"cribbage/config"
	"cribbage/experiments"

	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Parse()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(2)
	}
	if err := config.SetupLogging(cfg, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "failed to set up logging: %v\n", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, err := experiments.RunTournament(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msgf("%s failed", cfg.Name)
	}
	log.Info().Msgf("results written to %s", summary.Dir)
}
