package database

import (
	"context"
	"fmt"
	"time"

	"electric-inventory/internal/config"
	"electric-inventory/internal/models"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Open connects to Postgres and prepares the schema: GORM AutoMigrate when
// DB_AUTO_MIGRATE is set, the embedded goose migrations otherwise.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.Database.DSN), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("database handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if cfg.Database.AutoMigrate {
		logger.Info("running gorm automigrate")
		if err := AutoMigrate(db); err != nil {
			return nil, err
		}
	} else {
		logger.Info("running sql migrations")
		if err := Migrate(ctx, cfg.Database.DSN); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}

	logger.Info("database ready")
	return db, nil
}

// AutoMigrate creates or updates tables from the GORM models.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Branch{},
		&models.User{},
		&models.Purchase{},
		&models.AuditLog{},
	); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	return nil
}
