package postgres

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"researchhub/internal/model"
)

func New(ctx context.Context, dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres failed: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get postgres sql db failed: %w", err)
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetConnMaxLifetime(1 * time.Hour)
	sqlDB.SetConnMaxIdleTime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		return nil, fmt.Errorf("ping postgres failed: %w", err)
	}

	return db, nil
}

// Migrate enables pgvector, creates the schema and pins the embedding column
// to the configured dimension.
func Migrate(ctx context.Context, db *gorm.DB, embeddingDim int) error {
	tx := db.WithContext(ctx)
	if err := tx.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
		return fmt.Errorf("create vector extension failed: %w", err)
	}
	if err := tx.AutoMigrate(&model.User{}, &model.Workspace{}, &model.Paper{}, &model.ChatMessage{}); err != nil {
		return fmt.Errorf("auto migrate failed: %w", err)
	}
	if embeddingDim > 0 {
		stmt := fmt.Sprintf("ALTER TABLE papers ALTER COLUMN embedding TYPE vector(%d)", embeddingDim)
		if err := tx.Exec(stmt).Error; err != nil {
			return fmt.Errorf("set embedding dimension failed: %w", err)
		}
	}
	return nil
}
