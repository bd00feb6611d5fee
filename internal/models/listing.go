package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	ListingStatusActive   = "active"
	ListingStatusDelisted = "delisted"
)

// Listing is a published strategy-marketplace entry. Listings have no claim
// semantics; orders against them are appended without contention.
type Listing struct {
	ID       string `gorm:"type:varchar(64);primaryKey"`
	GeneID   string `gorm:"type:varchar(64);not null;index"`
	SellerID string `gorm:"type:varchar(64);not null;index"`

	Price decimal.Decimal `gorm:"type:numeric(20,8);not null"`

	Status string `gorm:"type:varchar(20);not null;default:'active';index"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime;index"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (Listing) TableName() string {
	return "listings"
}
