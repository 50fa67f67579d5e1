package database

import (
	"context"
	"fmt"
	"time"

	"price-delta/internal/models"

	"github.com/rs/zerolog"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func Initialize(databaseURL string, log zerolog.Logger) (*gorm.DB, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL not set")
	}

	db, err := gorm.Open(mysql.Open(databaseURL), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MySQL database: %w", err)
	}

	// One batch run needs only a couple of connections
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(2)
	sqlDB.SetMaxOpenConns(4)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&models.ReportRun{}, &models.PriceDeltaRow{}); err != nil {
		return nil, fmt.Errorf("migrate archive tables: %w", err)
	}

	log.Info().Msg("archive database initialized")
	return db, nil
}

// Archive stores the output of each run. The pipeline never reads it back.
type Archive struct {
	db *gorm.DB
}

func NewArchive(db *gorm.DB) *Archive {
	return &Archive{db: db}
}

// SaveRun writes the run header and its rows in one transaction.
func (a *Archive) SaveRun(ctx context.Context, run *models.ReportRun, rows []models.PriceDeltaRow) error {
	return a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(run).Error; err != nil {
			return fmt.Errorf("insert run %s: %w", run.RunID, err)
		}
		if len(rows) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(rows, 500).Error; err != nil {
			return fmt.Errorf("insert rows for run %s: %w", run.RunID, err)
		}
		return nil
	})
}

// History returns the archived deltas of one product, newest run first.
func (a *Archive) History(ctx context.Context, productID string, limit int) ([]models.PriceDeltaRow, error) {
	if limit <= 0 {
		limit = 20
	}
	var rows []models.PriceDeltaRow
	err := a.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("query history for %s: %w", productID, err)
	}
	return rows, nil
}
