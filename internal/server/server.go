// Package server assembles the Fiber application: middleware, services and
// routes.
package server

import (
	"fmt"
	"strings"

	"electric-inventory/internal/audit"
	"electric-inventory/internal/auth"
	"electric-inventory/internal/authz"
	"electric-inventory/internal/branch"
	"electric-inventory/internal/config"
	"electric-inventory/internal/inventory"
	"electric-inventory/internal/ledger"
	"electric-inventory/internal/logging"
	"electric-inventory/internal/metrics"
	"electric-inventory/internal/response"
	"electric-inventory/internal/user"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func New(cfg *config.Config, logger *zap.Logger, db *gorm.DB) (*fiber.App, error) {
	enforcer, err := authz.NewEnforcer()
	if err != nil {
		return nil, fmt.Errorf("authz: %w", err)
	}

	auditWriter := audit.NewWriter(db, logger.Named("audit"))
	branchSvc := branch.NewService(db, auditWriter, logger.Named("branch"))
	userSvc := user.NewService(db, branchSvc, auditWriter, logger.Named("user"))
	ledgerSvc := ledger.NewService(db, auditWriter, logger.Named("ledger"))
	inventorySvc := inventory.NewService(ledgerSvc, logger.Named("inventory"))

	tokens := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.JWTExpiresIn)
	authSvc := auth.NewService(userSvc, branchSvc, tokens, logger.Named("auth"))
	loginLimiter := auth.NewLoginLimiter(cfg.Auth.LoginRateLimit)

	app := fiber.New(fiber.Config{
		AppName:      "electric-inventory",
		ErrorHandler: errorHandler(logger),
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
	})

	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(cfg.Server.CORSOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PATCH,PUT,DELETE,OPTIONS",
	}))
	app.Use(logging.Middleware(logger.Named("http")))
	app.Use(metrics.Middleware())
	app.Use(recover.New())

	app.Get("/metrics", metrics.Handler())
	app.Get("/health", func(c *fiber.Ctx) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		if err := sqlDB.PingContext(c.UserContext()); err != nil {
			return fiber.NewError(fiber.StatusServiceUnavailable, "database unavailable")
		}
		return response.Message(c, "ok")
	})

	api := app.Group("/api")

	// Public
	auth.RegisterPublicRoutes(api, authSvc, loginLimiter)

	// Protected
	protected := api.Group("")
	protected.Use(auth.JWTMiddleware(tokens, userSvc))
	protected.Use(authz.Middleware(enforcer, logger.Named("authz")))
	protected.Get("/auth/me", auth.MeHandler(userSvc))

	ledger.RegisterRoutes(protected, ledgerSvc)
	inventory.RegisterRoutes(protected, inventorySvc)

	// ADMIN only, enforced by the policy
	branch.RegisterRoutes(protected, branchSvc)
	user.RegisterRoutes(protected, userSvc)
	protected.Get("/audit-logs", audit.ListAuditLogsHandler(auditWriter))

	return app, nil
}
