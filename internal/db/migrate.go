package db

import (
	"genehub/internal/models"
)

func AutoMigrate(db *DB) error {
	if db == nil || db.Gorm == nil || db.SQL == nil {
		return nil
	}

	return db.Gorm.AutoMigrate(
		&models.Gene{},
		&models.BacktestRecord{},
		&models.PoolState{},
		&models.Bounty{},
		&models.BountyEvent{},
		&models.AgentReputation{},
		&models.Listing{},
		&models.Order{},
	)
}
