// Command useradmin creates a local account directly in the store.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dmitrijs2005/inkwell/internal/admin"
	"github.com/dmitrijs2005/inkwell/internal/dbx"
	"github.com/dmitrijs2005/inkwell/internal/logging"
	"github.com/dmitrijs2005/inkwell/internal/server/auth"
	"github.com/dmitrijs2005/inkwell/internal/server/config"
	"github.com/dmitrijs2005/inkwell/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/inkwell/internal/server/services"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, admin.Describe(err))
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()
	cfg := config.LoadConfig()
	logger := logging.NewSlog(os.Stderr, !cfg.IsProd())

	db, dialect, err := dbx.Open(ctx, cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	defer db.Close()

	rm := repomanager.New(dialect)
	if err := rm.RunMigrations(ctx, db); err != nil {
		return err
	}

	tokens, err := auth.NewTokenService([]byte(cfg.SecretKey))
	if err != nil {
		return err
	}

	store := services.NewCredentialStore(db, rm, logger)
	users := services.NewUserService(store, tokens, cfg.TokenTTL)

	_, err = admin.NewApp(users, os.Stdin, os.Stdout).CreateUser(ctx)
	return err
}
