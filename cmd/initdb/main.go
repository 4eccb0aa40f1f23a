// Command initdb creates the task tracker schema and seeds an admin
// identity with one sample task.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-task-tracker/internal/auth"
	"github.com/ovaphlow/pitchfork/service-task-tracker/internal/identity"
	"github.com/ovaphlow/pitchfork/service-task-tracker/internal/schema"
	"github.com/ovaphlow/pitchfork/service-task-tracker/internal/task"
	"github.com/ovaphlow/pitchfork/service-task-tracker/pkg/database"
	"github.com/ovaphlow/pitchfork/service-task-tracker/pkg/utilities"
)

const adminLogin = "admin"

type options struct {
	Reset         bool
	AdminPassword string
	Today         time.Time
}

func main() {
	_ = godotenv.Load()
	if err := initDB(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "initdb: %v\n", err)
		os.Exit(1)
	}
}

// initDB wires config from the environment and runs the seed. Every
// resource it opens is released before it returns.
func initDB(args []string) error {
	fs := flag.NewFlagSet("initdb", flag.ContinueOnError)
	reset := fs.Bool("reset", false, "drop all tables before creating them")
	if err := fs.Parse(args); err != nil {
		return err
	}

	lg, err := utilities.Init(utilities.ConfigFromEnv())
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer lg.Sync()
	sugar := lg.Sugar()

	db, err := database.Connect(database.ConfigFromEnv())
	if err != nil {
		return fmt.Errorf("db connect: %w", err)
	}
	defer db.Close()

	ids, err := utilities.IDGeneratorFromEnv()
	if err != nil {
		return fmt.Errorf("id generator: %w", err)
	}

	pw := os.Getenv("ADMIN_PASSWORD")
	if pw == "" {
		pw = "Admin#2024"
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := run(ctx, db, ids, sugar, options{Reset: *reset, AdminPassword: pw, Today: time.Now().UTC()}); err != nil {
		sugar.Errorw("initdb failed", "err", err)
		return err
	}
	sugar.Info("database initialized")
	return nil
}

func run(ctx context.Context, db *sqlx.DB, ids *utilities.IDGenerator, logger *zap.SugaredLogger, opts options) error {
	if opts.Reset {
		if err := schema.Drop(ctx, db); err != nil {
			return err
		}
		logger.Info("tables dropped")
	}
	if err := schema.Ensure(ctx, db); err != nil {
		return err
	}

	identities := identity.NewService(db, nil, nil, ids)
	if _, err := identities.FindByLogin(ctx, adminLogin); err == nil {
		logger.Infow("admin already present, skipping seed", "login", adminLogin)
		return nil
	} else if !errors.Is(err, identity.ErrNotFound) {
		return err
	}

	middle := "Админович"
	reg, err := auth.RegisterRequest{
		FirstName:  "Админ",
		LastName:   "Админов",
		MiddleName: &middle,
		Login:      adminLogin,
		Password:   opts.AdminPassword,
	}.Command()
	if err != nil {
		return fmt.Errorf("admin account: %w", err)
	}
	admin, err := identities.Create(ctx, reg.Identity, reg.Password)
	if err != nil {
		return fmt.Errorf("create admin: %w", err)
	}
	logger.Infow("created identity", "id", admin.ID, "login", admin.Login)

	cmd, err := task.Request{
		Title:       "Тестовая задача",
		Description: "Это тестовая задача.",
		DueDate:     opts.Today.Format(time.DateOnly),
		Priority:    "high",
		Status:      "todo",
		Assignee:    adminLogin,
	}.Command()
	if err != nil {
		return err
	}
	t, err := task.NewService(db, nil, identities, ids, task.Config{}).Create(ctx, admin.ID, cmd)
	if err != nil {
		return fmt.Errorf("create sample task: %w", err)
	}
	logger.Infow("created task", "id", t.ID, "title", t.Title)
	return nil
}
