// Command seed creates the default branches and, when SEED_ADMIN_USERNAME
// and SEED_ADMIN_PASSWORD are set, the first ADMIN account. Existing rows
// are left alone, so it is safe to run repeatedly.
package main

import (
	"context"
	"errors"
	"log"
	"os"

	"electric-inventory/internal/audit"
	"electric-inventory/internal/branch"
	"electric-inventory/internal/config"
	"electric-inventory/internal/database"
	"electric-inventory/internal/errs"
	"electric-inventory/internal/logging"
	"electric-inventory/internal/models"
	"electric-inventory/internal/user"

	"go.uber.org/zap"
)

var defaultBranches = []branch.CreateInput{
	{Name: "Main Branch", Address: "123 Main Street"},
	{Name: "Downtown Branch", Address: "456 Downtown Avenue"},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := logging.New(logging.Options{Level: cfg.Logging.Level, Format: "console", Development: true})
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()
	db, err := database.Open(ctx, cfg, logger.Named("db"))
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}

	aw := audit.NewWriter(db, logger.Named("audit"))
	branches := branch.NewService(db, aw, logger.Named("branch"))
	users := user.NewService(db, branches, aw, logger.Named("user"))

	for _, in := range defaultBranches {
		b, err := branches.Create(ctx, in, 0)
		switch {
		case errors.Is(err, errs.ErrConflict):
			logger.Info("branch exists", zap.String("name", in.Name))
		case err != nil:
			logger.Fatal("create branch", zap.String("name", in.Name), zap.Error(err))
		default:
			logger.Info("branch created", zap.String("name", b.Name), zap.Uint("id", b.ID))
		}
	}

	username := os.Getenv("SEED_ADMIN_USERNAME")
	password := os.Getenv("SEED_ADMIN_PASSWORD")
	if username == "" || password == "" {
		logger.Info("SEED_ADMIN_USERNAME or SEED_ADMIN_PASSWORD not set, skipping admin")
		return
	}

	admins, err := users.CountByRole(ctx, models.RoleAdmin)
	if err != nil {
		logger.Fatal("count admins", zap.Error(err))
	}
	if admins > 0 {
		logger.Info("admin exists, skipping")
		return
	}

	u, err := users.Create(ctx, user.CreateInput{
		Username:   username,
		Password:   password,
		Role:       string(models.RoleAdmin),
		BranchName: defaultBranches[0].Name,
	}, 0)
	if err != nil {
		logger.Fatal("create admin", zap.Error(err))
	}
	logger.Info("admin created", zap.String("username", u.Username), zap.Uint("id", u.ID))
}
