package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/inclusiva/apps/api/echo"
	"github.com/trezcool/inclusiva/core"
	"github.com/trezcool/inclusiva/core/audit"
	"github.com/trezcool/inclusiva/core/member"
	"github.com/trezcool/inclusiva/core/student"
	"github.com/trezcool/inclusiva/core/workspace"
	"github.com/trezcool/inclusiva/services/email"
	"github.com/trezcool/inclusiva/services/logger"
	"github.com/trezcool/inclusiva/services/metrics"
	"github.com/trezcool/inclusiva/storage"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	zapLogger, err := logsvc.NewZapLogger(conf)
	if err != nil {
		log.Fatalf("setting up logger: %v", err)
	}
	defer func() { _ = zapLogger.Sync() }()

	logger := logsvc.NewRollbarLogger(zapLogger, conf)
	logger.Enable(!conf.Debug && conf.RollbarToken != "")

	ctx := context.Background()

	// set up DB
	stores, err := storage.Open(ctx, conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = stores.Close(); err != nil {
			logger.Error("closing database failed", err)
		}
	}()

	// set up cache
	mtr := metrics.New("inclusiva")
	cacheStore, closeCache, err := storage.OpenCache(ctx, conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up cache: %v", err), err)
	}
	defer func() { _ = closeCache() }()

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	member.InitValidators(validate, translator)
	workspace.InitValidators(validate, translator)

	// set up services
	trail := audit.NewTrail(stores.Audit, logger)
	wsSvc := workspace.NewService(stores.Workspace, mtr.InstrumentCache(cacheStore), trail, logger, validate, translator, conf)
	mailSvc := emailsvc.New(conf, logger)
	memberSvc := member.NewService(stores.Member, trail, mailSvc, validate, translator, conf)
	studentSvc := student.NewService(stores.Student, validate, translator, conf)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(echoapi.ServerDeps{
		Conf:          conf,
		Logger:        logger,
		RequestLogger: zapLogger.Zap(),
		Metrics:       mtr,
		WorkspaceSvc:  wsSvc,
		MemberSvc:     memberSvc,
		StudentSvc:    studentSvc,
		Validate:      validate,
		Translator:    translator,
	})

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		sctx, cancel := context.WithTimeout(ctx, conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(sctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}
