package db

import (
	"metalops/internal/models"
)

func AutoMigrate(db *DB) error {
	if db == nil || db.Gorm == nil || db.SQL == nil {
		return nil
	}

	return db.Gorm.AutoMigrate(
		&models.Company{},
		&models.PhysicalOrder{},
		&models.Ticket{},
		&models.BLOrder{},
		&models.HedgeRequest{},
		&models.HedgeExecution{},
		&models.HedgeLink{},
		&models.HedgeRoll{},
		&models.ExposureSnapshot{},
	)
}
