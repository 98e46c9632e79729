package main

import (
	"context"
	"log"
	"os"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/trezcool/inclusiva/core"
	"github.com/trezcool/inclusiva/core/audit"
	"github.com/trezcool/inclusiva/core/member"
	"github.com/trezcool/inclusiva/core/workspace"
	"github.com/trezcool/inclusiva/services/email"
	"github.com/trezcool/inclusiva/services/logger"
	"github.com/trezcool/inclusiva/storage"
	"github.com/trezcool/inclusiva/storage/database"
)

func main() {
	conf := core.NewConfig()
	zapLogger, err := logsvc.NewZapLogger(conf)
	if err != nil {
		log.Fatalf("setting up logger: %v", err)
	}
	logger := zapLogger.Zap().Named("admin")
	ctx := context.Background()

	cli := commandLine{out: os.Stdout}

	// migrations run on a bare connection; everything else goes through the services
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		if conf.Database.Engine != "inmem" {
			if err = database.CreateIfNotExist(conf); err != nil {
				logger.Fatal("creating database", zap.Error(err))
			}
			db, err := database.Open(conf)
			if err != nil {
				logger.Fatal("opening database", zap.Error(err))
			}
			defer func() { _ = db.Close() }()
			cli.migrateFn = func(command string, args ...string) error {
				return database.RunMigrations(ctx, db, command, args...)
			}
		}
	} else {
		stores, err := storage.Open(ctx, conf)
		if err != nil {
			logger.Fatal("setting up database", zap.Error(err))
		}
		defer func() { _ = stores.Close() }()

		cacheStore, closeCache, err := storage.OpenCache(ctx, conf)
		if err != nil {
			logger.Fatal("setting up cache", zap.Error(err))
		}
		defer func() { _ = closeCache() }()

		validate := validator.New()
		translator := core.NewTranslator()
		core.InitValidators(validate, translator)
		member.InitValidators(validate, translator)
		workspace.InitValidators(validate, translator)

		trail := audit.NewTrail(stores.Audit, zapLogger)
		cli.wsSvc = workspace.NewService(stores.Workspace, cacheStore, trail, zapLogger, validate, translator, conf)
		cli.memberSvc = member.NewService(stores.Member, trail, emailsvc.New(conf, zapLogger), validate, translator, conf)
	}

	if err = cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error("command failed", zap.Error(err))
		}
		_ = zapLogger.Sync()
		os.Exit(1)
	}
	_ = zapLogger.Sync()
}
