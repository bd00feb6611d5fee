package models

import (
	"time"

	"gorm.io/datatypes"
)

// PoolState is the single-row cycle aggregate: the persisted generation
// counter and the last cycle summary. It replaces any in-process counter so
// multiple orchestrator instances stay consistent.
type PoolState struct {
	Scope string `gorm:"type:varchar(40);primaryKey"`

	Generation  int    `gorm:"not null;default:0"`
	SeedVersion string `gorm:"type:varchar(20)"`

	LastCycleAt *time.Time     `gorm:"type:timestamptz"`
	LastSummary datatypes.JSON `gorm:"type:jsonb"`

	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (PoolState) TableName() string {
	return "pool_state"
}

// PoolStateScope is the fixed key of the singleton row.
const PoolStateScope = "gene_pool"
