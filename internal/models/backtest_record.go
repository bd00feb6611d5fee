package models

import (
	"time"

	"gorm.io/datatypes"
)

// BacktestRecord is one append-only validation history entry for a gene.
// Rows are immutable once written; insertion order is the history order.
type BacktestRecord struct {
	ID     uint64 `gorm:"primaryKey;autoIncrement"`
	GeneID string `gorm:"type:varchar(64);not null;index"`

	// Generation the gene carried when this run was recorded.
	Generation int `gorm:"not null"`

	Score      datatypes.JSON `gorm:"type:jsonb;not null"`
	Breakdown  datatypes.JSON `gorm:"type:jsonb"`
	Passed     bool           `gorm:"not null"`
	FailReason string         `gorm:"type:varchar(120)"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime;index"`
}

func (BacktestRecord) TableName() string {
	return "backtest_records"
}
