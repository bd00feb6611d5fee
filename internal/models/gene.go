package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	GeneStatusActive   = "active"
	GeneStatusArchived = "archived"
)

// Gene is a candidate trading-signal formula plus parameters and lineage.
// Archived genes keep their row (ids are never reused) but leave the active pool.
type Gene struct {
	ID      string `gorm:"type:varchar(64);primaryKey"`
	Name    string `gorm:"type:varchar(120);not null"`
	Formula string `gorm:"type:text;not null"`

	// Parameters maps parameter name to numeric value, passed verbatim to the oracle.
	Parameters datatypes.JSON `gorm:"type:jsonb;not null"`

	Generation int            `gorm:"not null;default:0;index"`
	ParentIDs  datatypes.JSON `gorm:"type:jsonb"`

	// BacktestScore is the last aggregated score, null until first validation.
	BacktestScore datatypes.JSON `gorm:"type:jsonb"`
	Passed        bool           `gorm:"not null;default:false"`

	Status string `gorm:"type:varchar(20);not null;default:'active';index"`

	CreatedAt       time.Time  `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt       time.Time  `gorm:"type:timestamptz;autoUpdateTime"`
	LastValidatedAt *time.Time `gorm:"type:timestamptz"`
}

func (Gene) TableName() string {
	return "genes"
}

// BacktestScore is the aggregated metric vector persisted on a gene and in
// history records. MaxDrawdown is negative-signed: more negative is worse.
type BacktestScore struct {
	Sharpe       float64 `json:"sharpe"`
	MaxDrawdown  float64 `json:"max_drawdown"`
	WinRate      float64 `json:"win_rate"`
	AnnualReturn float64 `json:"annual_return"`
}
