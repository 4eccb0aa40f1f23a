package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/ovaphlow/pitchfork/service-task-tracker/internal/auth"
	authrepo "github.com/ovaphlow/pitchfork/service-task-tracker/internal/auth/repo"
	"github.com/ovaphlow/pitchfork/service-task-tracker/internal/identity"
	"github.com/ovaphlow/pitchfork/service-task-tracker/internal/router"
	"github.com/ovaphlow/pitchfork/service-task-tracker/internal/schema"
	"github.com/ovaphlow/pitchfork/service-task-tracker/internal/task"
	"github.com/ovaphlow/pitchfork/service-task-tracker/pkg/database"
	"github.com/ovaphlow/pitchfork/service-task-tracker/pkg/utilities"
)

func main() {
	// load .env file if present so os.Getenv picks values from it
	_ = godotenv.Load()

	// init logger
	lg, err := utilities.Init(utilities.ConfigFromEnv())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()

	sugar := lg.Sugar()
	sugar.Info("starting task-tracker api")

	authCfg := auth.ConfigFromEnv()
	if err := authCfg.Validate(); err != nil {
		sugar.Fatalf("auth config: %v", err)
	}

	// init db
	dbCfg := database.ConfigFromEnv()
	db, err := database.Connect(dbCfg)
	if err != nil {
		sugar.Fatalf("db connect: %v", err)
	}
	sugar.Infow("database connected", "driver", dbCfg.Driver)

	setupCtx, cancelSetup := context.WithTimeout(context.Background(), 30*time.Second)
	err = schema.Ensure(setupCtx, db)
	cancelSetup()
	if err != nil {
		sugar.Fatalf("schema: %v", err)
	}

	ids, err := utilities.IDGeneratorFromEnv()
	if err != nil {
		sugar.Fatalf("id generator: %v", err)
	}

	identities := identity.NewService(db, nil, nil, ids)
	tasks := task.NewService(db, nil, identities, ids, task.ConfigFromEnv())
	authSvc, err := auth.NewService(authCfg, identities, authrepo.NewRevocationRepo(db))
	if err != nil {
		sugar.Fatalf("auth service: %v", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewDBStatsCollector(db.DB, "tasktracker"),
	)

	handler := router.RegisterRoutes(sugar, router.Deps{
		DB:         db,
		Auth:       authSvc,
		Identities: identities,
		Tasks:      tasks,
		Registry:   reg,
		CORSOrigin: router.CORSOriginFromEnv(),
	})

	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = "0.0.0.0:8431"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// run server in background
	go func() {
		sugar.Infow("http server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugar.Fatalf("http server failed: %v", err)
		}
	}()

	<-ctx.Done()

	sugar.Info("shutting down")

	// give a short grace period for cleanup
	doneCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = multierr.Combine(srv.Shutdown(doneCtx), db.Close())
	if err != nil {
		sugar.Warnf("shutdown: %v", err)
	}

	sugar.Info("goodbye")
}
