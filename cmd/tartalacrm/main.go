package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/platinummonkey/tartalacrm/pkg/app"
	"github.com/platinummonkey/tartalacrm/pkg/cli"
	"github.com/platinummonkey/tartalacrm/pkg/config"
	"github.com/platinummonkey/tartalacrm/pkg/observability"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.LoadConfig()
	if err != nil {
		if errors.Is(err, config.ErrMissingSecret) {
			fmt.Fprintln(os.Stderr, "La variable TARTALA_JWT_SECRET doit être définie (fichier .env ou environnement).")
			return 1
		}
		fmt.Fprintf(os.Stderr, "Configuration invalide : %v\n", err)
		return 1
	}

	// Info lines would mix with the prompts. Debug stays available.
	level := cfg.Observability.LogLevel
	if level == observability.InfoLevel {
		level = observability.WarnLevel
	}
	logger := observability.NewLogger(level, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Open(ctx, cfg, logger, nil)
	if err != nil {
		logger.WithError(err).Error("failed to open database")
		fmt.Fprintln(os.Stderr, "Impossible d'ouvrir la base de données.")
		return 1
	}
	defer a.Close()

	c := cli.New(a, cli.Options{
		SessionFile: cfg.CLI.SessionFile,
		Logger:      logger,
	})
	return c.Run(ctx, os.Args[1:])
}
