// Command seed-admin creates an admin account. Invitations can only be
// issued by an admin, so the first one has to come from here.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"coachportal/config"
	"coachportal/internal/model"
	"coachportal/internal/repository"
	"coachportal/internal/service"
	"coachportal/pkg/database"
	applogger "coachportal/pkg/logger"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to config file")
		email      = flag.String("email", "", "admin email (required)")
		password   = flag.String("password", os.Getenv("COACH_SEED_PASSWORD"), "admin password (or COACH_SEED_PASSWORD)")
		firstName  = flag.String("first-name", "", "first name (required)")
		lastName   = flag.String("last-name", "", "last name (required)")
	)
	flag.Parse()

	if *email == "" || *password == "" || *firstName == "" || *lastName == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer applogger.Sync(logger)

	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		logger.Fatal("connect database", zap.Error(err))
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("get sql.DB", zap.Error(err))
	}
	defer sqlDB.Close()
	if err := database.RunMigrations(sqlDB, logger); err != nil {
		logger.Fatal("run migrations", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	repo := repository.NewRepository(db)
	tx, err := repo.BeginTx(ctx)
	if err != nil {
		logger.Fatal("begin transaction", zap.Error(err))
	}
	txRepo := repo.WithTx(tx)
	// SignUp only touches the accounts table; no token manager or store needed.
	identity := service.NewIdentityProvider(txRepo.Account, nil, nil, 0, logger)

	account, err := identity.SignUp(ctx, *email, *password)
	if err != nil {
		tx.Rollback()
		logger.Fatal("create account", zap.Error(err))
	}
	profile := &model.Profile{ID: account.ID, FirstName: *firstName, LastName: *lastName, Role: model.RoleAdmin}
	if err := txRepo.Profile.Create(ctx, profile); err != nil {
		tx.Rollback()
		logger.Fatal("create profile", zap.Error(err))
	}
	if err := tx.Commit().Error; err != nil {
		logger.Fatal("commit", zap.Error(err))
	}

	logger.Info("admin created", zap.String("account_id", account.ID), zap.String("email", account.Email))
}
