// Package main is a development utility that clears all user content and
// returns the app directly to onboarding, bypassing despair mode, the
// life counter, and the wipe audit log.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/covenant-app/covenant-api/internal/config"
	"github.com/covenant-app/covenant-api/internal/database"
	"github.com/covenant-app/covenant-api/internal/logging"
	"github.com/covenant-app/covenant-api/internal/repository"
	"github.com/covenant-app/covenant-api/internal/service"
)

func main() {
	confirm := flag.Bool("yes", false, "skip the confirmation prompt")
	flag.Parse()

	logger := logging.SetDefault()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	if !*confirm {
		fmt.Printf("This clears ALL data in %s and rewinds to onboarding. Continue? [y/N] ", cfg.DatabaseURL)
		var answer string
		_, _ = fmt.Scanln(&answer)
		if answer != "y" && answer != "Y" {
			fmt.Println("aborted")
			return
		}
	}

	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	if err := database.Migrate(db); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	repos := repository.NewRepositories(db)
	resetSvc := service.NewResetService(repos, logger)

	if err := resetSvc.ResetAll(context.Background()); err != nil {
		logger.Error("reset failed", "error", err)
		os.Exit(1)
	}

	fmt.Println("reset complete")
}
