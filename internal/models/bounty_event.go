package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	BountyEventCreated      = "created"
	BountyEventClaimed      = "claimed"
	BountyEventClaimExpired = "claim_expired"
	BountyEventSubmitted    = "submitted"
	BountyEventCompleted    = "completed"
	BountyEventFailed       = "failed"
	BountyEventExpired      = "expired"
)

// BountyEvent is the append-only audit trail of bounty transitions.
type BountyEvent struct {
	ID        uint64         `gorm:"primaryKey;autoIncrement"`
	BountyID  string         `gorm:"type:varchar(64);not null;index"`
	EventType string         `gorm:"type:varchar(30);not null"`
	Actor     string         `gorm:"type:varchar(64)"`
	Payload   datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt time.Time      `gorm:"type:timestamptz;autoCreateTime;index"`
}

func (BountyEvent) TableName() string {
	return "bounty_events"
}
