package db

import (
	"github.com/ikkim/taxfiling-backend/internal/app/model"
	"github.com/ikkim/taxfiling-backend/pkg/logger"
	"gorm.io/gorm"
)

// Models lists every table owned or read by the tax engine.
func Models() []interface{} {
	return []interface{}{
		&model.Workspace{},
		&model.TaxProfile{},
		&model.TaxReport{},
		&model.TaxReportLine{},
		&model.TaxSnapshot{},
		&model.Invoice{},
		&model.InvoicePayment{},
		&model.Expense{},
	}
}

// Migrate runs database migrations
func Migrate() error {
	return MigrateDB(DB)
}

// MigrateDB runs migrations against the given connection
func MigrateDB(conn *gorm.DB) error {
	logger.Info("Running database migrations...")

	models := Models()
	if err := conn.AutoMigrate(models...); err != nil {
		logger.Error("Failed to run migrations", err)
		return err
	}

	logger.Info("Database migrations completed successfully", map[string]interface{}{
		"models_count": len(models),
	})
	return nil
}
