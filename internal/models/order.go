package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order is one row of the append-only marketplace order log.
type Order struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement"`
	ListingID string `gorm:"type:varchar(64);not null;index"`
	TraderID  string `gorm:"type:varchar(64);not null;index"`

	Price decimal.Decimal `gorm:"type:numeric(20,8);not null"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime;index"`
}

func (Order) TableName() string {
	return "orders"
}
